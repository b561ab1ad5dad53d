package lineage

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"file2pcie/pkg/sysfs/sysfstest"
	"file2pcie/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testBytes   = types.ByteRange{Start: 0, End: 4095}
	testSectors = types.SectorRange{Start: 2048, End: 2055}
)

func TestWalk_NVMePartition(t *testing.T) {
	tree := sysfstest.New(t)
	_, disk := tree.NVMeDisk("0000:00:1d.0", "0000:3d:00.0", 0, types.DeviceNumber{Major: 259, Minor: 0})
	tree.Partition(disk, "nvme0n1p1", types.DeviceNumber{Major: 259, Minor: 1}, 1)

	got := NewWalker(tree.FS).Walk(disk, testBytes, testSectors)
	require.Len(t, got, 1)

	c := got[0]
	assert.Equal(t, "0000:3d:00.0", c.Name)
	assert.Equal(t, uint16(0x144d), c.VendorID)
	assert.Equal(t, uint16(0xa808), c.DeviceID)
	assert.Equal(t, uint32(0x010802), c.Class)
	assert.Equal(t, uint16(0), c.Domain)
	assert.Equal(t, uint8(0x3d), c.Bus)
	assert.Equal(t, uint8(0), c.Device)
	assert.Equal(t, uint8(0), c.Function)
	assert.Equal(t, "nvme", c.Driver)
	assert.Equal(t, testBytes, c.Bytes)
	assert.Equal(t, testSectors, c.Sectors)
}

func TestWalk_RaidMembers(t *testing.T) {
	tree := sysfstest.New(t)
	_, disk0 := tree.NVMeDisk("0000:00:1d.0", "0000:3d:00.0", 0, types.DeviceNumber{Major: 259, Minor: 0})
	_, disk1 := tree.NVMeDisk("0000:00:1c.0", "0000:3e:00.0", 1, types.DeviceNumber{Major: 259, Minor: 2})
	p0 := tree.Partition(disk0, "nvme0n1p1", types.DeviceNumber{Major: 259, Minor: 1}, 1)
	p1 := tree.Partition(disk1, "nvme1n1p1", types.DeviceNumber{Major: 259, Minor: 3}, 1)
	md := tree.Virtual("md0", types.DeviceNumber{Major: 9, Minor: 0})
	tree.Slave(md, p0)
	tree.Slave(md, p1)

	got := NewWalker(tree.FS).Walk(md, testBytes, testSectors)
	require.Len(t, got, 2)
	assert.Equal(t, "0000:3d:00.0", got[0].Name)
	assert.Equal(t, "0000:3e:00.0", got[1].Name)
	for _, c := range got {
		assert.Equal(t, testSectors, c.Sectors)
	}
}

func TestWalk_SameControllerReportedOnce(t *testing.T) {
	tree := sysfstest.New(t)
	_, disk := tree.NVMeDisk("0000:00:1d.0", "0000:3d:00.0", 0, types.DeviceNumber{Major: 259, Minor: 0})
	p1 := tree.Partition(disk, "nvme0n1p1", types.DeviceNumber{Major: 259, Minor: 1}, 1)
	p2 := tree.Partition(disk, "nvme0n1p2", types.DeviceNumber{Major: 259, Minor: 2}, 2)
	md := tree.Virtual("md0", types.DeviceNumber{Major: 9, Minor: 0})
	tree.Slave(md, p1)
	tree.Slave(md, p2)

	got := NewWalker(tree.FS).Walk(md, testBytes, testSectors)
	require.Len(t, got, 1)
	assert.Equal(t, "0000:3d:00.0", got[0].Name)
}

func TestWalk_NativeMultipath(t *testing.T) {
	tree := sysfstest.New(t)
	_, path0 := tree.NVMeDisk("0000:00:1d.0", "0000:3d:00.0", 0, types.DeviceNumber{Major: 259, Minor: 10})
	_, path1 := tree.NVMeDisk("0000:00:1c.0", "0000:3e:00.0", 1, types.DeviceNumber{Major: 259, Minor: 11})
	subsys := tree.Dir(filepath.Join(tree.Root, "devices", "virtual"), "nvme-subsystem")
	head := tree.Block(tree.Dir(subsys, "nvme-subsys0"), "nvme0n1", types.DeviceNumber{Major: 259, Minor: 0})
	tree.Multipath(head, path0)
	tree.Multipath(head, path1)

	got := NewWalker(tree.FS).Walk(head, testBytes, testSectors)
	require.Len(t, got, 2)
}

func TestWalk_NoController(t *testing.T) {
	t.Run("loop device", func(t *testing.T) {
		tree := sysfstest.New(t)
		loop := tree.Virtual("loop0", types.DeviceNumber{Major: 7, Minor: 0})
		assert.Empty(t, NewWalker(tree.FS).Walk(loop, testBytes, testSectors))
	})

	t.Run("usb mass storage behind xhci", func(t *testing.T) {
		tree := sysfstest.New(t)
		sda := usbDisk(tree)
		assert.Empty(t, NewWalker(tree.FS).Walk(sda, testBytes, testSectors))
	})
}

func TestWalk_CustomClass(t *testing.T) {
	tree := sysfstest.New(t)
	sda := usbDisk(tree)

	got := NewWalker(tree.FS, WithClass(0x0c0330, 0xffffff)).Walk(sda, testBytes, testSectors)
	require.Len(t, got, 1)
	assert.Equal(t, "0000:00:14.0", got[0].Name)
	assert.Equal(t, "xhci_hcd", got[0].Driver)
}

func TestWalk_TruncatesAtLimit(t *testing.T) {
	tree := sysfstest.New(t)
	md := tree.Virtual("md0", types.DeviceNumber{Major: 9, Minor: 0})
	for i := 0; i < 20; i++ {
		_, disk := tree.NVMeDisk("0000:00:1d.0", fmt.Sprintf("0000:%02x:00.0", i+1), i,
			types.DeviceNumber{Major: 259, Minor: uint32(i)})
		tree.Slave(md, disk)
	}

	got := NewWalker(tree.FS).Walk(md, testBytes, testSectors)
	assert.Len(t, got, types.MaxControllers)
}

func TestWalk_InvalidNodes(t *testing.T) {
	tree := sysfstest.New(t)
	w := NewWalker(tree.FS)

	assert.Empty(t, w.Walk("", testBytes, testSectors))
	assert.Empty(t, w.Walk(t.TempDir(), testBytes, testSectors))
	assert.Empty(t, w.Walk(filepath.Join(tree.Root, "devices", "missing"), testBytes, testSectors))

	// 成员链接逃出设备树：该成员被忽略，其余成员照常遍历
	_, disk := tree.NVMeDisk("0000:00:1d.0", "0000:3d:00.0", 0, types.DeviceNumber{Major: 259, Minor: 0})
	outside := t.TempDir()
	md := tree.Virtual("md0", types.DeviceNumber{Major: 9, Minor: 0})
	tree.Slave(md, outside)
	tree.Slave(md, disk)

	got := w.Walk(md, testBytes, testSectors)
	require.Len(t, got, 1)
	assert.Equal(t, "0000:3d:00.0", got[0].Name)
}

func TestWalk_DepthCap(t *testing.T) {
	tree := sysfstest.New(t)
	ctrl := tree.PCI(tree.HostBridge(), "0000:01:00.0", 0x144d, 0xa808, 0x010802, "nvme")

	deep := ctrl
	for i := 0; i < MaxDepth+4; i++ {
		deep = filepath.Join(deep, "d")
	}
	require.NoError(t, os.MkdirAll(deep, 0755))
	assert.Empty(t, NewWalker(tree.FS).Walk(deep, testBytes, testSectors))

	shallow := filepath.Join(ctrl, "a", "b", "c")
	require.NoError(t, os.MkdirAll(shallow, 0755))
	assert.Len(t, NewWalker(tree.FS).Walk(shallow, testBytes, testSectors), 1)
}

func TestWalk_IncompletePCINode(t *testing.T) {
	tree := sysfstest.New(t)
	ctrl, disk := tree.NVMeDisk("0000:00:1d.0", "0000:3d:00.0", 0, types.DeviceNumber{Major: 259, Minor: 0})
	require.NoError(t, os.Remove(filepath.Join(ctrl, "class")))

	assert.Empty(t, NewWalker(tree.FS).Walk(disk, testBytes, testSectors))
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want address
		ok   bool
	}{
		{"typical", "0000:3d:00.0", address{bus: 0x3d}, true},
		{"domain overflow", "10000:e1:1f.7", address{}, false},
		{"wide domain", "abcd:e1:1f.7", address{domain: 0xabcd, bus: 0xe1, device: 0x1f, function: 7}, true},
		{"device out of range", "0000:00:20.0", address{}, false},
		{"function out of range", "0000:00:00.8", address{}, false},
		{"missing function", "0000:00:00", address{}, false},
		{"host bridge", "pci0000:00", address{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseAddress(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// usbDisk 构造 xHCI -> usb 集线器 -> scsi host -> sda
func usbDisk(tree *sysfstest.Tree) string {
	xhci := tree.PCI(tree.HostBridge(), "0000:00:14.0", 0x8086, 0x7ae0, 0x0c0330, "xhci_hcd")
	n := tree.Dir(xhci, "usb2")
	for _, name := range []string{"2-1", "2-1:1.0", "host0", "target0:0:0", "0:0:0:0", "block"} {
		n = tree.Dir(n, name)
	}
	return tree.Block(n, "sda", types.DeviceNumber{Major: 8, Minor: 0})
}
