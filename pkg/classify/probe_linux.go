//go:build linux

package classify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"file2pcie/pkg/mounts"
	"file2pcie/pkg/types"

	"golang.org/x/sys/unix"
)

// OpenPath 以 O_PATH 打开 path，只用于 fstat/fstatfs
// 不会因为 FIFO 没有写端而阻塞，socket 的 /proc/<pid>/fd 链接也能打开
func OpenPath(path string) (*os.File, error) {
	f, err := os.OpenFile(path, unix.O_PATH|unix.O_CLOEXEC, 0)
	if errors.Is(err, unix.EINVAL) {
		// 不支持 O_PATH 的内核
		f, err = os.OpenFile(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidHandle, err)
	}
	return f, nil
}

// FDProber 通过 fstat/fstatfs 与 mountinfo 采集句柄信息
type FDProber struct {
	mounts mounts.Table

	// blockSource 把挂载源解析成块设备号，测试里替换
	blockSource func(source string) (types.DeviceNumber, bool)
}

func NewFDProber(table mounts.Table) *FDProber {
	return &FDProber{mounts: table, blockSource: blockSource}
}

func (p *FDProber) Probe(h Handle) (Stat, error) {
	if !validHandle(h) {
		return Stat{}, types.ErrInvalidHandle
	}
	rc, err := h.SyscallConn()
	if err != nil {
		return Stat{}, fmt.Errorf("%w: %v", types.ErrInvalidHandle, err)
	}

	// 所有基于 fd 的系统调用都在同一次 Control 回调中完成
	// Control 期间运行时持有 fd 的引用，返回即释放，恰好一次
	var st Stat
	var sysErr error
	if err := rc.Control(func(fd uintptr) {
		st, sysErr = statFD(int(fd))
	}); err != nil {
		return Stat{}, fmt.Errorf("%w: %v", types.ErrInvalidHandle, err)
	}
	if sysErr != nil {
		if errors.Is(sysErr, unix.EBADF) {
			return Stat{}, fmt.Errorf("%w: %v", types.ErrInvalidHandle, sysErr)
		}
		return Stat{}, fmt.Errorf("probe %s: %w", h.Name(), sysErr)
	}

	if st.Object == ObjectRegular {
		p.resolveFilesystem(&st)
	}
	return st, nil
}

func statFD(fd int) (Stat, error) {
	var s unix.Stat_t
	if err := unix.Fstat(fd, &s); err != nil {
		return Stat{}, err
	}

	out := Stat{Object: objectKind(s.Mode)}
	switch out.Object {
	case ObjectBlock:
		out.Rdev = deviceNumber(uint64(s.Rdev))
	case ObjectRegular:
		out.Dev = deviceNumber(uint64(s.Dev))
		var fs unix.Statfs_t
		if err := unix.Fstatfs(fd, &fs); err != nil {
			return Stat{}, err
		}
		out.FSMagic = int64(uint32(fs.Type))
		out.BlockSize = int64(fs.Bsize)
		out.Path = fdPath(fd)
	}
	return out, nil
}

// fdPath 读 /proc/self/fd/<fd>；已删除的文件和非绝对路径返回空串
func fdPath(fd int) string {
	target, err := os.Readlink("/proc/self/fd/" + strconv.Itoa(fd))
	if err != nil || !filepath.IsAbs(target) || strings.HasSuffix(target, " (deleted)") {
		return ""
	}
	return target
}

// resolveFilesystem 补全类型名、挂载点和绑定的块设备
func (p *FDProber) resolveFilesystem(st *Stat) {
	m := p.findMount(st)
	if m != nil {
		st.FSType = m.FSType
		st.MountPoint = m.Mountpoint
	}

	// 1. st_dev 不是匿名设备号：它就是块设备本身 (ext4, xfs ...)
	if !st.Dev.IsAnonymous() {
		st.Backing = st.Dev
		st.HasBacking = true
		return
	}

	// 2. 匿名设备号 (btrfs 子卷等)：看挂载源是不是块设备文件
	if m != nil {
		if dev, ok := p.blockSource(m.Source); ok {
			st.Backing = dev
			st.HasBacking = true
		}
	}
}

// findMount 先按 st_dev 找；匿名设备号找不到时按路径找最深的挂载点
// 找不到挂载 (例如别的 mount namespace) 不算错误，TypeName 会退化到魔数
func (p *FDProber) findMount(st *Stat) *mounts.Mount {
	if p.mounts == nil {
		return nil
	}
	if m, err := p.mounts.Lookup(st.Dev); err == nil {
		return m
	}
	if !st.Dev.IsAnonymous() || st.Path == "" {
		return nil
	}
	m, err := p.mounts.LookupPath(st.Path)
	if err != nil || !sameFilesystem(m, st.FSMagic) {
		return nil
	}
	return m
}

// sameFilesystem 防止按路径找到的是上层的另一个文件系统
func sameFilesystem(m *mounts.Mount, magic int64) bool {
	name := NameFromMagic(magic)
	if name == "" {
		return true
	}
	return m.FSType == name || strings.HasPrefix(m.FSType, name+".")
}

func blockSource(source string) (types.DeviceNumber, bool) {
	if !filepath.IsAbs(source) {
		return types.DeviceNumber{}, false
	}
	var s unix.Stat_t
	if err := unix.Stat(source, &s); err != nil {
		return types.DeviceNumber{}, false
	}
	if objectKind(s.Mode) != ObjectBlock {
		return types.DeviceNumber{}, false
	}
	return deviceNumber(uint64(s.Rdev)), true
}

func objectKind(mode uint32) ObjectKind {
	switch mode & unix.S_IFMT {
	case unix.S_IFBLK:
		return ObjectBlock
	case unix.S_IFREG:
		return ObjectRegular
	case unix.S_IFDIR:
		return ObjectDirectory
	case unix.S_IFCHR:
		return ObjectChar
	case unix.S_IFLNK:
		return ObjectSymlink
	default:
		return ObjectOther
	}
}

func deviceNumber(dev uint64) types.DeviceNumber {
	return types.DeviceNumber{Major: unix.Major(dev), Minor: unix.Minor(dev)}
}
