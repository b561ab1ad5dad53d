package f2prpc

import (
	"time"

	"file2pcie/pkg/types"
)

// ResolveRequest 指定一个已打开的文件 (pid + fd) 或一个路径，以及字节区间
// Fd 为空时使用 Path
type ResolveRequest struct {
	Pid    int32  `json:"pid,omitempty"`
	Fd     *int32 `json:"fd,omitempty"`
	Path   string `json:"path,omitempty"`
	Offset int64  `json:"offset"`
	Length uint64 `json:"length"`
}

// ResolveResponse 携带结果码；领域内的失败放在 Code 里，不作为 gRPC 错误返回
type ResolveResponse struct {
	Code           int32              `json:"code"`
	CodeName       string             `json:"code_name"`
	Classification string             `json:"classification"`
	FSType         string             `json:"fs_type,omitempty"`
	MountPoint     string             `json:"mount_point,omitempty"`
	Device         *types.DeviceInfo  `json:"device,omitempty"`
	SectorStart    int64              `json:"sector_start"`
	SectorEnd      int64              `json:"sector_end"`
	Count          int32              `json:"count"`
	Controllers    []types.Controller `json:"controllers"`
	Message        string             `json:"message,omitempty"`
}

type HistoryRequest struct {
	Limit  int32  `json:"limit,omitempty"`
	Target string `json:"target,omitempty"`
}

type HistoryRecord struct {
	ID             uint64             `json:"id"`
	Target         string             `json:"target"`
	Host           string             `json:"host,omitempty"`
	Classification string             `json:"classification"`
	Code           string             `json:"code"`
	FSType         string             `json:"fs_type,omitempty"`
	Device         string             `json:"device,omitempty"`
	Offset         int64              `json:"offset"`
	Length         uint64             `json:"length"`
	SectorStart    int64              `json:"sector_start"`
	SectorEnd      int64              `json:"sector_end"`
	Count          int32              `json:"count"`
	Controllers    []types.Controller `json:"controllers"`
	CreatedAt      time.Time          `json:"created_at"`
}

type HistoryResponse struct {
	Records []HistoryRecord `json:"records"`
}
