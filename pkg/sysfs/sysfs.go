// Package sysfs 提供一个以可配置根目录为基础的 sysfs 只读视图
// 生产环境根目录为 /sys，测试使用临时目录里构造的假树
package sysfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"file2pcie/pkg/types"
)

const DefaultRoot = "/sys"

var ErrNoDevice = errors.New("no sysfs node for device")

type FS struct {
	root    string
	devices string
}

// New 创建视图；root 本身也会被解析成规范路径，保证后续的前缀比较可靠
func New(root string) (*FS, error) {
	if root == "" {
		root = DefaultRoot
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("sysfs root %q: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("sysfs root %q: %w", root, err)
	}
	return &FS{root: resolved, devices: filepath.Join(resolved, "devices")}, nil
}

func (fs *FS) Root() string { return fs.root }

// DevicesRoot 是设备树的根，任何合法节点都必须位于其下
func (fs *FS) DevicesRoot() string { return fs.devices }

// BlockNode 通过 /sys/dev/block/MAJ:MIN 找到块设备的规范节点路径
func (fs *FS) BlockNode(dev types.DeviceNumber) (string, error) {
	link := filepath.Join(fs.root, "dev", "block", dev.String())
	node, err := filepath.EvalSymlinks(link)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w %s", ErrNoDevice, dev)
		}
		return "", fmt.Errorf("resolve %s: %w", link, err)
	}
	if !fs.Valid(node) {
		return "", fmt.Errorf("%w %s: node %s outside device tree", ErrNoDevice, dev, node)
	}
	return node, nil
}

// Valid 是节点合法性检查：位于设备树之内、存在且是目录
// 不合法的节点意味着链条到此为止，而不是错误
func (fs *FS) Valid(node string) bool {
	if node == "" || !filepath.IsAbs(node) {
		return false
	}
	rel, err := filepath.Rel(fs.devices, node)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	info, err := os.Stat(node)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Canonical 解析节点下某个链接 (例如 slaves/nvme0n1p1) 的目标
func (fs *FS) Canonical(path string) (string, error) {
	return filepath.EvalSymlinks(path)
}

// Parent 返回设备树中的父节点；到达设备树根时返回 false
func (fs *FS) Parent(node string) (string, bool) {
	parent := filepath.Dir(node)
	if parent == node || parent == fs.devices || !strings.HasPrefix(parent, fs.devices) {
		return "", false
	}
	return parent, true
}

// ReadString 读取属性文件并去掉首尾空白
func (fs *FS) ReadString(node, attr string) (string, error) {
	data, err := os.ReadFile(filepath.Join(node, attr))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ReadHex 读取 "0x144d" 这种十六进制属性
func (fs *FS) ReadHex(node, attr string) (uint64, error) {
	s, err := fs.ReadString(node, attr)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("attribute %s/%s: %w", node, attr, err)
	}
	return v, nil
}

// LinkBase 返回节点下符号链接目标的最后一段，例如 subsystem -> "pci"
func (fs *FS) LinkBase(node, attr string) (string, error) {
	target, err := os.Readlink(filepath.Join(node, attr))
	if err != nil {
		return "", err
	}
	return filepath.Base(target), nil
}

// Has 判断节点下是否存在某个属性
func (fs *FS) Has(node, attr string) bool {
	_, err := os.Lstat(filepath.Join(node, attr))
	return err == nil
}

// Links 返回目录 (如 slaves/、multipath/) 下各条目解析后的节点，按名字排序
func (fs *FS) Links(node, dir string) []string {
	entries, err := os.ReadDir(filepath.Join(node, dir))
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		target, err := filepath.EvalSymlinks(filepath.Join(node, dir, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, target)
	}
	return out
}
