// Package sysfstest 在临时目录中构造假的 sysfs 设备树，供各包测试使用
package sysfstest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"file2pcie/pkg/sysfs"
	"file2pcie/pkg/types"

	"github.com/stretchr/testify/require"
)

// Tree 是一棵可增量构造的假 sysfs
type Tree struct {
	t    testing.TB
	Root string
	FS   *sysfs.FS
}

// New 创建骨架：devices/、dev/block/、bus/pci、class/block
func New(t testing.TB) *Tree {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{
		"devices/pci0000:00",
		"devices/virtual/block",
		"dev/block",
		"bus/pci/drivers",
		"class/block",
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0755))
	}
	fs, err := sysfs.New(root)
	require.NoError(t, err)
	// 使用解析后的根，避免 /tmp 本身是符号链接时前缀比较失败
	return &Tree{t: t, Root: fs.Root(), FS: fs}
}

// HostBridge 返回 PCI 根节点 devices/pci0000:00
func (tr *Tree) HostBridge() string {
	return filepath.Join(tr.Root, "devices", "pci0000:00")
}

// Dir 在 parent 下创建一个普通节点 (例如 nvme/、host0/)
func (tr *Tree) Dir(parent, name string) string {
	tr.t.Helper()
	node := filepath.Join(parent, name)
	require.NoError(tr.t, os.MkdirAll(node, 0755))
	return node
}

// PCI 在 parent 下创建 PCI 功能节点，name 形如 "0000:3d:00.0"
func (tr *Tree) PCI(parent, name string, vendor, device uint16, class uint32, driver string) string {
	tr.t.Helper()
	node := tr.Dir(parent, name)
	tr.write(node, "vendor", fmt.Sprintf("0x%04x", vendor))
	tr.write(node, "device", fmt.Sprintf("0x%04x", device))
	tr.write(node, "class", fmt.Sprintf("0x%06x", class))
	tr.link(node, "subsystem", filepath.Join(tr.Root, "bus", "pci"))
	if driver != "" {
		drv := filepath.Join(tr.Root, "bus", "pci", "drivers", driver)
		require.NoError(tr.t, os.MkdirAll(drv, 0755))
		tr.link(node, "driver", drv)
	}
	return node
}

// Block 在 parent 下创建块设备节点并注册到 dev/block
func (tr *Tree) Block(parent, name string, dev types.DeviceNumber) string {
	tr.t.Helper()
	node := tr.Dir(parent, name)
	tr.write(node, "dev", dev.String())
	tr.link(node, "subsystem", filepath.Join(tr.Root, "class", "block"))
	tr.link(filepath.Join(tr.Root, "dev", "block"), dev.String(), node)
	return node
}

// Partition 在磁盘节点下创建分区
func (tr *Tree) Partition(disk, name string, dev types.DeviceNumber, index int) string {
	tr.t.Helper()
	node := tr.Block(disk, name, dev)
	tr.write(node, "partition", fmt.Sprintf("%d", index))
	return node
}

// Virtual 创建 devices/virtual/block/<name> (loop、md、dm 等)
func (tr *Tree) Virtual(name string, dev types.DeviceNumber) string {
	return tr.Block(filepath.Join(tr.Root, "devices", "virtual", "block"), name, dev)
}

// Slave 把 member 登记为聚合设备 agg 的成员 (slaves/<member>)
func (tr *Tree) Slave(agg, member string) {
	tr.t.Helper()
	dir := filepath.Join(agg, "slaves")
	require.NoError(tr.t, os.MkdirAll(dir, 0755))
	tr.link(dir, filepath.Base(member), member)
}

// Multipath 把 path 登记为 NVMe 多路径头设备 head 的一条路径
func (tr *Tree) Multipath(head, path string) {
	tr.t.Helper()
	dir := filepath.Join(head, "multipath")
	require.NoError(tr.t, os.MkdirAll(dir, 0755))
	tr.link(dir, filepath.Base(path), path)
}

// DanglingDev 注册一个指向不存在节点的 dev/block 条目
func (tr *Tree) DanglingDev(dev types.DeviceNumber) {
	tr.t.Helper()
	tr.link(filepath.Join(tr.Root, "dev", "block"), dev.String(), filepath.Join(tr.Root, "devices", "gone"))
}

// NVMeDisk 构造一条完整的 PCIe NVMe 链：根端口 -> 控制器 -> nvme/nvmeN -> nvmeNn1
// 返回控制器节点和磁盘节点
func (tr *Tree) NVMeDisk(port, ctrl string, index int, dev types.DeviceNumber) (string, string) {
	tr.t.Helper()
	bridge := filepath.Join(tr.HostBridge(), port)
	if _, err := os.Stat(bridge); err != nil {
		bridge = tr.PCI(tr.HostBridge(), port, 0x8086, 0x7ab8, 0x060400, "pcieport")
	}
	ctrlNode := tr.PCI(bridge, ctrl, 0x144d, 0xa808, 0x010802, "nvme")
	host := tr.Dir(tr.Dir(ctrlNode, "nvme"), fmt.Sprintf("nvme%d", index))
	disk := tr.Block(host, fmt.Sprintf("nvme%dn1", index), dev)
	return ctrlNode, disk
}

func (tr *Tree) write(node, attr, value string) {
	tr.t.Helper()
	require.NoError(tr.t, os.WriteFile(filepath.Join(node, attr), []byte(value+"\n"), 0644))
}

func (tr *Tree) link(dir, name, target string) {
	tr.t.Helper()
	require.NoError(tr.t, os.MkdirAll(dir, 0755))
	require.NoError(tr.t, os.Symlink(target, filepath.Join(dir, name)))
}
