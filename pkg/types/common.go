// pkg/types/common.go
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// 编译期固定的配置，不允许运行时调整
const (
	SectorSize  = 512
	SectorShift = 9

	// MaxControllers 单次请求最多返回的控制器数量，超出部分静默截断
	MaxControllers = 16

	// ClassNVMe 是 PCI 类代码 "Mass storage / Non-Volatile memory controller"
	// 比较时忽略最低字节 (prog-if)
	ClassNVMe     uint32 = 0x010800
	ClassMaskNVMe uint32 = 0xFFFF00

	// MaxNameLen 是控制器名字的最大字节数，超出截断
	MaxNameLen = 63
)

// Classification 是句柄背后对象的分类结果 (封闭枚举)
type Classification int

const (
	Unresolvable Classification = iota
	BlockSpecial
	RegularOnLocal
	RegularOnPseudo
	RegularOnNetwork
)

func (c Classification) String() string {
	switch c {
	case BlockSpecial:
		return "BlockSpecial"
	case RegularOnLocal:
		return "RegularOnLocal"
	case RegularOnPseudo:
		return "RegularOnPseudo"
	case RegularOnNetwork:
		return "RegularOnNetwork"
	default:
		return "Unresolvable"
	}
}

// DeviceNumber 代表一个 dev_t (major:minor)
type DeviceNumber struct {
	Major uint32
	Minor uint32
}

func (d DeviceNumber) String() string { return fmt.Sprintf("%d:%d", d.Major, d.Minor) }

// IsAnonymous 判断是否为匿名设备号 (major 0)，tmpfs/proc/btrfs 子卷等都是这种
func (d DeviceNumber) IsAnonymous() bool { return d.Major == 0 }

// ParseDeviceNumber 解析 sysfs "dev" 属性的格式，例如 "259:1"
func ParseDeviceNumber(s string) (DeviceNumber, error) {
	majStr, minStr, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return DeviceNumber{}, fmt.Errorf("malformed device number %q", s)
	}
	maj, err := strconv.ParseUint(majStr, 10, 32)
	if err != nil {
		return DeviceNumber{}, fmt.Errorf("malformed major in %q: %w", s, err)
	}
	min, err := strconv.ParseUint(minStr, 10, 32)
	if err != nil {
		return DeviceNumber{}, fmt.Errorf("malformed minor in %q: %w", s, err)
	}
	return DeviceNumber{Major: uint32(maj), Minor: uint32(min)}, nil
}

// SectorRange 是闭区间 [Start, End]，单位为 512 字节扇区
type SectorRange struct {
	Start int64 `json:"start" cbor:"s"`
	End   int64 `json:"end" cbor:"e"`
}

// ByteRange 是文件内的闭区间 [Start, End]
type ByteRange struct {
	Start int64 `json:"start" cbor:"s"`
	End   int64 `json:"end" cbor:"e"`
}

func (r ByteRange) Len() int64 { return r.End - r.Start + 1 }

// Controller 描述一个匹配目标类代码的 PCIe 控制器
type Controller struct {
	VendorID uint16 `json:"vendor_id" cbor:"vid"`
	DeviceID uint16 `json:"device_id" cbor:"did"`
	Domain   uint16 `json:"domain" cbor:"dom"`
	Bus      uint8  `json:"bus" cbor:"bus"`
	Device   uint8  `json:"device" cbor:"dev"`
	Function uint8  `json:"function" cbor:"fn"`
	Class    uint32 `json:"class" cbor:"cls"`
	Name     string `json:"name" cbor:"n"`
	Driver   string `json:"driver,omitempty" cbor:"drv,omitempty"`

	// 整个请求区间原样挂到每个控制器上 (不按成员设备拆分)
	Bytes   ByteRange   `json:"file_range" cbor:"br"`
	Sectors SectorRange `json:"sector_range" cbor:"sr"`
}

// DeviceInfo 是结果里携带的块设备摘要，便于诊断
type DeviceInfo struct {
	Number    string `json:"number" cbor:"num"`
	Name      string `json:"name" cbor:"n"`
	Disk      string `json:"disk" cbor:"disk"`
	Partition bool   `json:"partition" cbor:"part"`
}

// Result 是一次解析请求的完整结果，每个请求都新建一个
type Result struct {
	Classification Classification `json:"classification" cbor:"cls"`
	Code           Code           `json:"code" cbor:"code"`
	FSType         string         `json:"fs_type,omitempty" cbor:"fs,omitempty"`
	MountPoint     string         `json:"mount_point,omitempty" cbor:"mnt,omitempty"`
	Device         *DeviceInfo    `json:"device,omitempty" cbor:"dev,omitempty"`
	Sectors        SectorRange    `json:"sectors" cbor:"sr"`
	Controllers    []Controller   `json:"controllers" cbor:"ctrl"`
	Count          int            `json:"count" cbor:"cnt"`
}
