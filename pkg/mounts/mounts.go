package mounts

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"file2pcie/pkg/types"

	"github.com/moby/sys/mountinfo"
)

var ErrNotFound = errors.New("no mount for device")

// Mount 是 mountinfo 中与分类相关的字段
type Mount struct {
	Device     types.DeviceNumber
	FSType     string
	Source     string
	Mountpoint string
	Root       string
}

// Table 按文件系统设备号或文件路径查找挂载点
type Table interface {
	Lookup(dev types.DeviceNumber) (*Mount, error)
	// LookupPath 返回包含 path 的最深挂载点
	// btrfs 非顶层子卷的 st_dev 与 mountinfo 的 major:minor 不同，只能按路径找
	LookupPath(path string) (*Mount, error)
}

// ProcTable 每次查询都重新读取 /proc/self/mountinfo
// 挂载可能在两次请求之间变化，所以这里不缓存
type ProcTable struct{}

func NewProcTable() *ProcTable { return &ProcTable{} }

func (ProcTable) Lookup(dev types.DeviceNumber) (*Mount, error) {
	infos, err := mountinfo.GetMounts(func(i *mountinfo.Info) (skip, stop bool) {
		if uint32(i.Major) == dev.Major && uint32(i.Minor) == dev.Minor {
			// 同一个设备可能被 bind mount 多次，取第一个即可，类型相同
			return false, true
		}
		return true, false
	})
	if err != nil {
		return nil, fmt.Errorf("read mountinfo: %w", err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("%w %s", ErrNotFound, dev)
	}
	return fromInfo(infos[0]), nil
}

func (ProcTable) LookupPath(path string) (*Mount, error) {
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("%w: relative path %q", ErrNotFound, path)
	}
	infos, err := mountinfo.GetMounts(mountinfo.ParentsFilter(path))
	if err != nil {
		return nil, fmt.Errorf("read mountinfo: %w", err)
	}

	// mountinfo 按挂载顺序排列，同一挂载点上后挂的覆盖先挂的
	var best *mountinfo.Info
	for _, i := range infos {
		// ParentsFilter 只做字符串前缀比较，"/home" 也会匹配 "/homework"
		if !contains(i.Mountpoint, path) {
			continue
		}
		if best == nil || len(i.Mountpoint) >= len(best.Mountpoint) {
			best = i
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w %s", ErrNotFound, path)
	}
	return fromInfo(best), nil
}

func fromInfo(i *mountinfo.Info) *Mount {
	return &Mount{
		Device:     types.DeviceNumber{Major: uint32(i.Major), Minor: uint32(i.Minor)},
		FSType:     i.FSType,
		Source:     i.Source,
		Mountpoint: i.Mountpoint,
		Root:       i.Root,
	}
}

// StaticTable 是固定内容的表，用于测试和离线分析
type StaticTable map[types.DeviceNumber]Mount

func (t StaticTable) Lookup(dev types.DeviceNumber) (*Mount, error) {
	m, ok := t[dev]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrNotFound, dev)
	}
	return &m, nil
}

func (t StaticTable) LookupPath(path string) (*Mount, error) {
	var best *Mount
	for _, m := range t {
		if !contains(m.Mountpoint, path) {
			continue
		}
		// map 无序，挂载点一样长时按设备号定序
		if best == nil || len(m.Mountpoint) > len(best.Mountpoint) ||
			(len(m.Mountpoint) == len(best.Mountpoint) && m.Device.String() > best.Device.String()) {
			m := m
			best = &m
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w %s", ErrNotFound, path)
	}
	return best, nil
}

// contains 报告 mountpoint 是否是 path 本身或其祖先目录
func contains(mountpoint, path string) bool {
	if mountpoint == "/" || mountpoint == path {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(mountpoint, "/")+"/")
}
