package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	f2prpc "file2pcie/pkg/api/f2prpc/v1"
	"file2pcie/pkg/app"
	"file2pcie/pkg/history"
	"file2pcie/pkg/resolver"
	"file2pcie/pkg/types"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MaxHistoryLimit 限制一次 History 调用返回的记录数
const MaxHistoryLimit = 1000

type PlacementService struct {
	f2prpc.UnimplementedPlacementServiceServer
	app *app.App
}

func NewPlacementService(application *app.App) *PlacementService {
	return &PlacementService{app: application}
}

// Resolve 处理一次解析请求
// 领域内的失败 (不支持的文件系统、句柄无效等) 放在响应的 Code 里返回
func (s *PlacementService) Resolve(ctx context.Context, req *f2prpc.ResolveRequest) (*f2prpc.ResolveResponse, error) {
	// 1. 请求必须指明对象
	target, path, err := s.locate(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	// 2. 解析：ResolvePath 负责打开并在返回前关闭句柄
	r := resolver.Request{Offset: req.Offset, Length: req.Length}
	res, resolveErr := s.app.Resolver.ResolvePath(ctx, path, r)

	// 3. 旁路记录
	s.app.Record(ctx, target, r, res)

	return ToResponse(res, resolveErr), nil
}

// locate 把请求翻译成可以打开的路径
// pid+fd 经由 /proc/<pid>/fd/<fd> 打开，pid 为 0 表示服务进程自身
func (s *PlacementService) locate(req *f2prpc.ResolveRequest) (target, path string, err error) {
	if req.Fd != nil {
		if *req.Fd < 0 {
			return "", "", fmt.Errorf("fd must be non-negative, got %d", *req.Fd)
		}
		if req.Pid < 0 {
			return "", "", fmt.Errorf("pid must be non-negative, got %d", req.Pid)
		}
		pid := "self"
		if req.Pid > 0 {
			pid = strconv.Itoa(int(req.Pid))
		}
		fd := strconv.Itoa(int(*req.Fd))
		return pid + ":" + fd, filepath.Join(s.app.ProcRoot, pid, "fd", fd), nil
	}
	if req.Path == "" {
		return "", "", errors.New("either fd or path is required")
	}
	return req.Path, req.Path, nil
}

// ToResponse 把解析结果转换成线上消息
func ToResponse(res *types.Result, err error) *f2prpc.ResolveResponse {
	if res == nil {
		res = &types.Result{Code: types.CodeOf(err)}
	}
	ctrls := res.Controllers
	if ctrls == nil {
		ctrls = []types.Controller{}
	}
	out := &f2prpc.ResolveResponse{
		Code:           int32(res.Code),
		CodeName:       res.Code.String(),
		Classification: res.Classification.String(),
		FSType:         res.FSType,
		MountPoint:     res.MountPoint,
		Device:         res.Device,
		SectorStart:    res.Sectors.Start,
		SectorEnd:      res.Sectors.End,
		Count:          int32(res.Count),
		Controllers:    ctrls,
	}
	if err != nil {
		out.Message = err.Error()
	}
	return out
}

// History 查询解析历史
func (s *PlacementService) History(ctx context.Context, req *f2prpc.HistoryRequest) (*f2prpc.HistoryResponse, error) {
	if s.app.History == nil {
		return nil, status.Error(codes.FailedPrecondition, "history is disabled on this server")
	}

	limit := int(req.Limit)
	if limit < 0 || limit > MaxHistoryLimit {
		return nil, status.Errorf(codes.InvalidArgument, "limit must be within [0, %d]", MaxHistoryLimit)
	}

	var (
		recs []history.Record
		err  error
	)
	if req.Target != "" {
		recs, err = s.app.History.FindByTarget(ctx, req.Target, limit)
	} else {
		recs, err = s.app.History.Recent(ctx, limit)
	}
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to query history: %v", err)
	}

	out := &f2prpc.HistoryResponse{Records: make([]f2prpc.HistoryRecord, 0, len(recs))}
	for i := range recs {
		rec, err := ToRecord(&recs[i])
		if err != nil {
			return nil, status.Errorf(codes.DataLoss, "corrupt history record %d: %v", recs[i].ID, err)
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

// ToRecord 把历史库行转成传输格式，CLI 本地模式也用它
func ToRecord(r *history.Record) (f2prpc.HistoryRecord, error) {
	ctrls, err := r.Decode()
	if err != nil {
		return f2prpc.HistoryRecord{}, err
	}
	if ctrls == nil {
		ctrls = []types.Controller{}
	}
	return f2prpc.HistoryRecord{
		ID:             r.ID,
		Target:         r.Target,
		Host:           r.Host,
		Classification: r.Classification,
		Code:           r.Code,
		FSType:         r.FSType,
		Device:         r.Device,
		Offset:         r.Offset,
		Length:         r.Length,
		SectorStart:    r.SectorStart,
		SectorEnd:      r.SectorEnd,
		Count:          int32(r.Count),
		Controllers:    ctrls,
		CreatedAt:      r.CreatedAt,
	}, nil
}
