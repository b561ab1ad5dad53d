// Package lineage 沿设备树向上遍历，找出块设备背后的 PCIe 存储控制器
package lineage

import (
	"log/slog"
	"path/filepath"

	"file2pcie/pkg/sysfs"
	"file2pcie/pkg/types"
)

const (
	// MaxDepth 是单条链的跳数上限，真实设备树远小于这个值
	MaxDepth = 64

	// maxFanout 限制聚合设备的嵌套层数 (dm -> md -> nvme 已经是 2 层)
	maxFanout = 8
)

// 聚合设备通过这些目录指向成员设备
var memberDirs = []string{"slaves", "multipath"}

type Walker struct {
	fs    *sysfs.FS
	class uint32
	mask  uint32
	limit int
	log   *slog.Logger
}

type Option func(*Walker)

// WithClass 修改目标类代码，默认是 NVMe 控制器
func WithClass(class, mask uint32) Option {
	return func(w *Walker) {
		w.class = class
		w.mask = mask
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Walker) { w.log = l }
}

func NewWalker(fs *sysfs.FS, opts ...Option) *Walker {
	w := &Walker{
		fs:    fs,
		class: types.ClassNVMe,
		mask:  types.ClassMaskNVMe,
		limit: types.MaxControllers,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// walk 是一次遍历的全部状态，随请求创建、随请求丢弃
type walk struct {
	seen     map[string]struct{}
	reported map[string]struct{}
	out      []types.Controller
	bytes    types.ByteRange
	sectors  types.SectorRange
}

// Walk 从磁盘节点出发向上遍历，返回按遍历顺序 (最近的在前) 排列的控制器
// 走到根也没找到不算失败，返回空切片
func (w *Walker) Walk(start string, bytes types.ByteRange, sectors types.SectorRange) []types.Controller {
	st := &walk{
		seen:     make(map[string]struct{}),
		reported: make(map[string]struct{}),
		out:      make([]types.Controller, 0, w.limit),
		bytes:    bytes,
		sectors:  sectors,
	}
	w.chain(st, start, 0)
	return st.out
}

func (w *Walker) full(st *walk) bool { return len(st.out) >= w.limit }

func (w *Walker) chain(st *walk, node string, level int) {
	for hop := 0; hop < MaxDepth && !w.full(st); hop++ {
		if !w.fs.Valid(node) {
			w.log.Debug("lineage chain ends at invalid node", slog.String("node", node))
			return
		}
		// 多个成员共享的上游 (同一个根端口) 只走一遍
		if _, ok := st.seen[node]; ok {
			return
		}
		st.seen[node] = struct{}{}

		if ctrl, ok := w.asPCIDevice(node); ok {
			if ctrl.Class&w.mask == w.class&w.mask {
				w.record(st, ctrl)
			} else {
				w.log.Debug("skip non-matching pci device",
					slog.String("name", ctrl.Name),
					slog.String("class", classHex(ctrl.Class)))
			}
		}

		// 聚合设备 (md/dm/NVMe 多路径头)：先沿每个成员往上走
		if level < maxFanout {
			for _, dir := range memberDirs {
				for _, member := range w.fs.Links(node, dir) {
					w.chain(st, member, level+1)
					if w.full(st) {
						return
					}
				}
			}
		}

		parent, ok := w.fs.Parent(node)
		if !ok {
			return
		}
		node = parent
	}
}

func (w *Walker) record(st *walk, ctrl types.Controller) {
	// 同一控制器经由多个成员被找到时只报告一次
	if _, ok := st.reported[ctrl.Name]; ok {
		return
	}
	st.reported[ctrl.Name] = struct{}{}

	// 整个请求区间挂到每个控制器上，不按成员拆分
	ctrl.Bytes = st.bytes
	ctrl.Sectors = st.sectors
	st.out = append(st.out, ctrl)
}

// asPCIDevice 是能力检查：只有挂在 pci 总线上、属性完整的节点才被当作 PCI 设备
func (w *Walker) asPCIDevice(node string) (types.Controller, bool) {
	if sub, err := w.fs.LinkBase(node, "subsystem"); err != nil || sub != "pci" {
		return types.Controller{}, false
	}
	addr, ok := parseAddress(filepath.Base(node))
	if !ok {
		return types.Controller{}, false
	}
	class, err := w.fs.ReadHex(node, "class")
	if err != nil {
		return types.Controller{}, false
	}
	vendor, err := w.fs.ReadHex(node, "vendor")
	if err != nil {
		return types.Controller{}, false
	}
	device, err := w.fs.ReadHex(node, "device")
	if err != nil {
		return types.Controller{}, false
	}

	ctrl := types.Controller{
		VendorID: uint16(vendor),
		DeviceID: uint16(device),
		Domain:   addr.domain,
		Bus:      addr.bus,
		Device:   addr.device,
		Function: addr.function,
		Class:    uint32(class),
		Name:     truncate(filepath.Base(node), types.MaxNameLen),
	}
	if drv, err := w.fs.LinkBase(node, "driver"); err == nil {
		ctrl.Driver = drv
	}
	return ctrl, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
