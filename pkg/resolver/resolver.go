// Package resolver 串起整条解析流水线：分类 -> 设备 -> 扇区 -> 血缘遍历
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"file2pcie/pkg/blockdev"
	"file2pcie/pkg/classify"
	"file2pcie/pkg/lineage"
	"file2pcie/pkg/sector"
	"file2pcie/pkg/sysfs"
	"file2pcie/pkg/types"
)

// State 是一次请求在流水线中的位置，Error 是吸收态
type State int

const (
	StateStart State = iota
	StateClassified
	StateDeviceResolved
	StateRangeComputed
	StateLineageWalked
	StateDone
	StateError
)

var stateNames = [...]string{"Start", "Classified", "DeviceResolved", "RangeComputed", "LineageWalked", "Done", "Error"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Request 是调用方解码好的请求，句柄单独传入
type Request struct {
	Offset int64
	Length uint64
}

// Resolver 本身无状态，可以被任意多个 goroutine 并发使用
type Resolver struct {
	classifier *classify.Classifier
	devices    *blockdev.Resolver
	walker     *lineage.Walker
	log        *slog.Logger
}

func New(p classify.Prober, fs *sysfs.FS, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		classifier: classify.NewClassifier(p),
		devices:    blockdev.NewResolver(fs),
		walker:     lineage.NewWalker(fs, lineage.WithLogger(logger)),
		log:        logger,
	}
}

// ResolvePath 打开文件、解析、关闭；句柄在每条返回路径上都只关闭一次
func (r *Resolver) ResolvePath(ctx context.Context, path string, req Request) (*types.Result, error) {
	// 先校验区间，参数错误时连文件都不打开
	if err := sector.ValidateRange(req.Offset, req.Length); err != nil {
		return failed(err), err
	}
	// O_PATH：FIFO 不会阻塞，socket 也能拿到 inode，交给分类器判成 Unresolvable
	f, err := classify.OpenPath(path)
	if err != nil {
		return failed(err), err
	}
	defer f.Close()

	return r.Resolve(ctx, f, req)
}

// Resolve 对借来的句柄执行一次完整解析
// 返回的 Result 永远非 nil，Code 与 error 一一对应；error 为 nil 时 Code 为 OK
func (r *Resolver) Resolve(ctx context.Context, h classify.Handle, req Request) (*types.Result, error) {
	res := &types.Result{Controllers: []types.Controller{}}
	log := r.log.With(slog.Int64("offset", req.Offset), slog.Uint64("length", req.Length))
	if name := classify.HandleName(h); name != "" {
		log = log.With(slog.String("handle", name))
	}

	// 遍历中途不支持取消，只在入口检查一次
	if err := ctx.Err(); err != nil {
		return r.fail(log, res, StateStart, err)
	}

	// 1. 参数校验先于一切，失败时不产生任何中间状态
	if err := sector.ValidateRange(req.Offset, req.Length); err != nil {
		return r.fail(log, res, StateStart, err)
	}

	// 2. 分类
	backing, err := r.classifier.Classify(h)
	if err != nil {
		return r.fail(log, res, StateStart, err)
	}
	res.Classification = backing.Class
	if backing.Stat.Object == classify.ObjectRegular {
		res.FSType = backing.Stat.TypeName()
		res.MountPoint = backing.Stat.MountPoint
	}
	log.Debug("resolve state", slog.String("state", StateClassified.String()),
		slog.String("class", backing.Class.String()), slog.String("fs", res.FSType))

	switch backing.Class {
	case types.RegularOnPseudo, types.RegularOnNetwork:
		// 不是故障，只是这类文件系统没有可报告的控制器
		return r.fail(log, res, StateClassified, fmt.Errorf("%w: %s", types.ErrUnsupportedFilesystem, res.FSType))
	case types.Unresolvable:
		return r.fail(log, res, StateClassified, types.ErrUnresolvable)
	}

	// 3. 块设备对象
	dev, err := r.devices.Resolve(backing)
	if err != nil {
		if errors.Is(err, types.ErrNoBackingDevice) {
			log.Warn("filesystem has no backing block device",
				slog.String("fs", res.FSType), slog.String("dev", backing.Stat.Dev.String()))
		}
		return r.fail(log, res, StateClassified, err)
	}
	res.Device = dev.Info()
	log.Debug("resolve state", slog.String("state", StateDeviceResolved.String()),
		slog.String("device", dev.Name), slog.String("disk", dev.DiskName))

	// 4. 扇区区间
	sectors, err := sector.Compute(sector.Input{
		Class:      backing.Class,
		BlockSize:  backing.Stat.BlockSize,
		HasBacking: backing.Stat.HasBacking,
	}, req.Offset, req.Length)
	if err != nil {
		return r.fail(log, res, StateDeviceResolved, err)
	}
	res.Sectors = sectors
	log.Debug("resolve state", slog.String("state", StateRangeComputed.String()),
		slog.Int64("sector_start", sectors.Start), slog.Int64("sector_end", sectors.End))

	// 5. 血缘遍历，空结果也算成功
	res.Controllers = r.walker.Walk(dev.Disk, sector.Bytes(req.Offset, req.Length), sectors)
	res.Count = len(res.Controllers)
	log.Debug("resolve state", slog.String("state", StateLineageWalked.String()), slog.Int("count", res.Count))

	res.Code = types.CodeOK
	log.Debug("resolve state", slog.String("state", StateDone.String()))
	return res, nil
}

func (r *Resolver) fail(log *slog.Logger, res *types.Result, from State, err error) (*types.Result, error) {
	res.Code = types.CodeOf(err)
	res.Controllers = []types.Controller{}
	res.Count = 0
	log.Debug("resolve state", slog.String("state", StateError.String()),
		slog.String("from", from.String()), slog.String("code", res.Code.String()), slog.Any("err", err))
	return res, err
}

func failed(err error) *types.Result {
	return &types.Result{Code: types.CodeOf(err), Controllers: []types.Controller{}}
}
