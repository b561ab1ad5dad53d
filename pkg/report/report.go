// Package report 把解析结果编码成 CBOR 报告并发布到外部存储
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"file2pcie/pkg/types"

	"github.com/fxamacker/cbor/v2"
)

// ContentType 是报告在对象存储里的 MIME 类型
const ContentType = "application/cbor"

// Report 是一次解析的完整快照
type Report struct {
	Host      string       `cbor:"h"`
	Target    string       `cbor:"t"`
	Offset    int64        `cbor:"o"`
	Length    uint64       `cbor:"l"`
	Result    types.Result `cbor:"r"`
	CreatedAt time.Time    `cbor:"at"`
}

// 规范编码：相同的报告总是得到相同的字节，ID 因此稳定
var encOptions = cbor.EncOptions{
	Sort:          cbor.SortCanonical,
	ShortestFloat: cbor.ShortestFloatNone,
	Time:          cbor.TimeUnix,
	TimeTag:       cbor.EncTagNone,
	IndefLength:   cbor.IndefLengthForbidden,
}

var em, _ = encOptions.EncMode()

var decOptions = cbor.DecOptions{
	// 报告最多 16 个控制器，这些上限留足余量
	MaxArrayElements: 1024,
	MaxMapPairs:      1024,
	MaxNestedLevels:  16,
	IndefLength:      cbor.IndefLengthForbidden,
	DupMapKey:        cbor.DupMapKeyEnforcedAPF,
	TimeTag:          cbor.DecTagIgnored,
}

var dm, _ = decOptions.DecMode()

// New 创建报告；时间截断到秒，与编码精度一致
func New(host, target string, offset int64, length uint64, res *types.Result) *Report {
	r := &Report{
		Host:      host,
		Target:    target,
		Offset:    offset,
		Length:    length,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if res != nil {
		r.Result = *res
	}
	return r
}

// Encode 返回报告的规范 CBOR 编码
func (r *Report) Encode() ([]byte, error) {
	data, err := em.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

// Decode 解析 CBOR 编码的报告
func Decode(data []byte) (*Report, error) {
	var r Report
	if err := dm.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &r, nil
}

// ID 是编码内容的 SHA-256 (hex)，作为各个 sink 的存储键
func ID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Key 把 ID 分片成 "aa/bbcc..."，避免单目录下文件过多
func Key(id string) string {
	if len(id) < 2 {
		return id
	}
	return id[:2] + "/" + id[2:]
}
