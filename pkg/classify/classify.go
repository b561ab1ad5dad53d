// Package classify 判断一个文件句柄背后是什么对象：
// 块设备文件，还是某个文件系统上的普通文件 (本地/伪/网络)。
package classify

import (
	"reflect"
	"syscall"

	"file2pcie/pkg/types"
)

// Handle 是调用方借给我们的打开文件，*os.File 天然满足
// 通过 SyscallConn 访问 fd，保证在系统调用期间 fd 不会被并发关闭
type Handle interface {
	syscall.Conn
	Name() string
}

// validHandle 同时排除 nil 接口和装着 nil 指针的接口 (例如 (*os.File)(nil))
func validHandle(h Handle) bool {
	if h == nil {
		return false
	}
	v := reflect.ValueOf(h)
	return v.Kind() != reflect.Pointer || !v.IsNil()
}

// HandleName 返回句柄名，无效句柄返回空串
func HandleName(h Handle) string {
	if !validHandle(h) {
		return ""
	}
	return h.Name()
}

// ObjectKind 是 inode 的类型 (st_mode & S_IFMT 的抽象)
type ObjectKind int

const (
	ObjectOther ObjectKind = iota
	ObjectBlock
	ObjectRegular
	ObjectDirectory
	ObjectChar
	ObjectSymlink
)

// Stat 是分类所需的全部输入，一次性从句柄采集
type Stat struct {
	Object ObjectKind

	// Rdev 仅对块设备文件有意义
	Rdev types.DeviceNumber

	// 以下仅对普通文件有意义
	Dev        types.DeviceNumber // 所在文件系统的 st_dev
	FSMagic    int64
	BlockSize  int64
	FSType     string // mountinfo 中的类型名，找不到挂载时为空
	MountPoint string
	Path       string // 内核视角的文件路径 (/proc/self/fd 链接)，拿不到时为空

	// Backing 是文件系统绑定的块设备 (对应 superblock 的 s_bdev)
	Backing    types.DeviceNumber
	HasBacking bool
}

// TypeName 优先使用 mountinfo 的类型名，退化到 statfs 魔数
func (s Stat) TypeName() string {
	if s.FSType != "" {
		return s.FSType
	}
	return NameFromMagic(s.FSMagic)
}

// Backing 是分类结果加上后续步骤需要的原始输入
type Backing struct {
	Class types.Classification
	Stat  Stat
}

// Prober 从句柄采集 Stat
type Prober interface {
	Probe(h Handle) (Stat, error)
}

// Classify 是纯函数，而且是全函数：任何 Stat 都恰好落到五种分类之一
func Classify(st Stat) types.Classification {
	switch st.Object {
	case ObjectBlock:
		// 块设备文件与所在文件系统无关
		return types.BlockSpecial
	case ObjectRegular:
		return classifyRegular(st)
	default:
		return types.Unresolvable
	}
}

func classifyRegular(st Stat) types.Classification {
	// 第一层：按类型名查表
	switch LookupKind(st.TypeName()) {
	case KindLocal:
		return types.RegularOnLocal
	case KindPseudo:
		return types.RegularOnPseudo
	case KindNetwork:
		return types.RegularOnNetwork
	}

	// 第二层：不认识的类型，看有没有绑定的块设备
	// 没有设备就没什么可解析的，保守地当作伪文件系统
	if st.HasBacking {
		return types.RegularOnLocal
	}
	return types.RegularOnPseudo
}

// Classifier 组合 Prober 与纯分类逻辑
type Classifier struct {
	prober Prober
}

func NewClassifier(p Prober) *Classifier {
	return &Classifier{prober: p}
}

// Classify 采集并分类；只有句柄本身无效时才返回错误
func (c *Classifier) Classify(h Handle) (*Backing, error) {
	st, err := c.prober.Probe(h)
	if err != nil {
		return nil, err
	}
	return &Backing{Class: Classify(st), Stat: st}, nil
}
