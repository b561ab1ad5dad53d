package history

import (
	"encoding/json"
	"time"

	"file2pcie/pkg/types"

	"gorm.io/datatypes"
)

// Record 是一次解析请求的投影
type Record struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	// Target 是被解析的对象，路径或 "pid:fd"
	Target string `gorm:"index;type:varchar(1024)"`
	Host   string `gorm:"type:varchar(255)"`

	Classification string `gorm:"type:varchar(32)"`
	Code           string `gorm:"index;type:varchar(32)"`
	FSType         string `gorm:"type:varchar(64)"`
	Device         string `gorm:"type:varchar(64)"`

	Offset      int64
	Length      uint64
	SectorStart int64
	SectorEnd   int64
	Count       int

	// Controllers 是控制器描述符数组 [{"name": "0000:3d:00.0", ...}]
	Controllers datatypes.JSON

	CreatedAt time.Time `gorm:"index"`
}

func (Record) TableName() string {
	return "resolutions"
}

// Decode 把 Controllers 列还原成描述符
func (r *Record) Decode() ([]types.Controller, error) {
	if len(r.Controllers) == 0 {
		return nil, nil
	}
	var out []types.Controller
	if err := json.Unmarshal(r.Controllers, &out); err != nil {
		return nil, err
	}
	return out, nil
}
