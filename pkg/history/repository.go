package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"file2pcie/pkg/types"

	"gorm.io/datatypes"
)

// DefaultLimit 是未指定 limit 时返回的条数
const DefaultLimit = 20

// Entry 是写入一条历史所需的全部信息
type Entry struct {
	Target string
	Host   string
	Offset int64
	Length uint64
	Result *types.Result
}

// Repository 封装对 resolutions 表的操作
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Save 追加一条记录
func (r *Repository) Save(ctx context.Context, e Entry) error {
	res := e.Result
	if res == nil {
		return fmt.Errorf("history entry for %s has no result", e.Target)
	}

	ctrls := res.Controllers
	if ctrls == nil {
		ctrls = []types.Controller{}
	}
	payload, err := json.Marshal(ctrls)
	if err != nil {
		return fmt.Errorf("failed to marshal controllers: %w", err)
	}

	rec := Record{
		Target:         e.Target,
		Host:           e.Host,
		Classification: res.Classification.String(),
		Code:           res.Code.String(),
		FSType:         res.FSType,
		Offset:         e.Offset,
		Length:         e.Length,
		SectorStart:    res.Sectors.Start,
		SectorEnd:      res.Sectors.End,
		Count:          res.Count,
		Controllers:    datatypes.JSON(payload),
		CreatedAt:      time.Now().UTC(),
	}
	if res.Device != nil {
		rec.Device = res.Device.Name
	}

	if err := r.db.GetConn().WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to save resolution: %w", err)
	}
	return nil
}

// Recent 按时间倒序返回最近的记录
func (r *Repository) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var recs []Record
	err := r.db.GetConn().WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

// FindByTarget 返回某个目标的全部历史，最新的在前
func (r *Repository) FindByTarget(ctx context.Context, target string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var recs []Record
	err := r.db.GetConn().WithContext(ctx).
		Where("target = ?", target).
		Order("id DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}
