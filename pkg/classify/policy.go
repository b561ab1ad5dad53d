package classify

import "strings"

// Kind 是按文件系统类型名得到的策略分类
type Kind int

const (
	KindUnknown Kind = iota
	KindLocal
	KindPseudo
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindPseudo:
		return "pseudo"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// 本地文件系统白名单
// btrfs/bcachefs 的 st_dev 是匿名设备号，不一定能直接拿到块设备，但仍按本地处理
var localFilesystems = map[string]struct{}{
	"ext2": {}, "ext3": {}, "ext4": {},
	"xfs": {}, "btrfs": {}, "bcachefs": {},
	"f2fs": {}, "jfs": {}, "reiserfs": {},
	"vfat": {}, "msdos": {}, "exfat": {},
	"ntfs": {}, "ntfs3": {}, "hfsplus": {},
	"iso9660": {}, "udf": {}, "nilfs2": {},
}

// 伪文件系统：内存或内核导出，天然没有块设备
var pseudoFilesystems = map[string]struct{}{
	"proc": {}, "sysfs": {}, "tmpfs": {}, "ramfs": {},
	"devtmpfs": {}, "devpts": {}, "cgroup": {}, "cgroup2": {},
	"pstore": {}, "debugfs": {}, "tracefs": {}, "securityfs": {},
	"configfs": {}, "hugetlbfs": {}, "mqueue": {}, "bpf": {},
	"efivarfs": {}, "binfmt_misc": {}, "autofs": {}, "rpc_pipefs": {},
	"fusectl": {}, "nsfs": {}, "pipefs": {}, "sockfs": {},
}

// 网络文件系统；fuse 的各种子类型 (fuse.sshfs 等) 也归到这里
var networkFilesystems = map[string]struct{}{
	"nfs": {}, "nfs4": {}, "cifs": {}, "smb3": {}, "smbfs": {},
	"9p": {}, "ceph": {}, "glusterfs": {}, "fuse": {},
	"afs": {}, "lustre": {}, "virtiofs": {},
}

// LookupKind 根据 mountinfo/statfs 报告的类型名查策略表
func LookupKind(fsType string) Kind {
	name := normalize(fsType)
	if name == "" {
		return KindUnknown
	}
	if _, ok := localFilesystems[name]; ok {
		return KindLocal
	}
	if _, ok := pseudoFilesystems[name]; ok {
		return KindPseudo
	}
	if _, ok := networkFilesystems[name]; ok {
		return KindNetwork
	}
	return KindUnknown
}

// normalize 去掉子类型后缀，"fuse.sshfs" -> "fuse"
func normalize(fsType string) string {
	name := strings.ToLower(strings.TrimSpace(fsType))
	if base, _, ok := strings.Cut(name, "."); ok {
		return base
	}
	return name
}
