// Package blockdev 把分类后的句柄解析成底层块设备对象
package blockdev

import (
	"errors"
	"fmt"
	"path/filepath"

	"file2pcie/pkg/classify"
	"file2pcie/pkg/sysfs"
	"file2pcie/pkg/types"
)

// Device 是借用的块设备对象：只在一次请求内有效，不得跨请求保存
type Device struct {
	Number    types.DeviceNumber
	Name      string
	Node      string // 块设备自身的规范 sysfs 节点
	Disk      string // 顶层磁盘节点，血缘遍历从这里开始
	DiskName  string
	Partition bool
}

func (d *Device) Info() *types.DeviceInfo {
	return &types.DeviceInfo{
		Number:    d.Number.String(),
		Name:      d.Name,
		Disk:      d.DiskName,
		Partition: d.Partition,
	}
}

type Resolver struct {
	fs *sysfs.FS
}

func NewResolver(fs *sysfs.FS) *Resolver {
	return &Resolver{fs: fs}
}

// Resolve 返回句柄绑定的块设备
func (r *Resolver) Resolve(b *classify.Backing) (*Device, error) {
	switch b.Class {
	case types.BlockSpecial:
		dev, err := r.lookup(b.Stat.Rdev)
		if errors.Is(err, sysfs.ErrNoDevice) {
			// 设备节点存在但内核里没有对应设备 (例如 mknod 出来的陈旧节点)
			return nil, fmt.Errorf("%w: %v", types.ErrDeviceNotBound, err)
		}
		return dev, err

	case types.RegularOnLocal:
		if !b.Stat.HasBacking {
			return nil, fmt.Errorf("%w: %s filesystem on %s", types.ErrNoBackingDevice, b.Stat.TypeName(), b.Stat.Dev)
		}
		dev, err := r.lookup(b.Stat.Backing)
		if errors.Is(err, sysfs.ErrNoDevice) {
			return nil, fmt.Errorf("%w: %v", types.ErrNoBackingDevice, err)
		}
		return dev, err

	case types.RegularOnPseudo, types.RegularOnNetwork:
		return nil, types.ErrUnsupportedFilesystem

	default:
		return nil, types.ErrUnresolvable
	}
}

func (r *Resolver) lookup(num types.DeviceNumber) (*Device, error) {
	node, err := r.fs.BlockNode(num)
	if err != nil {
		return nil, err
	}

	dev := &Device{
		Number: num,
		Name:   filepath.Base(node),
		Node:   node,
		Disk:   node,
	}
	// 分区节点的父节点就是整盘
	if r.fs.Has(node, "partition") {
		if parent, ok := r.fs.Parent(node); ok && r.fs.Valid(parent) {
			dev.Partition = true
			dev.Disk = parent
		}
	}
	dev.DiskName = filepath.Base(dev.Disk)
	return dev, nil
}
