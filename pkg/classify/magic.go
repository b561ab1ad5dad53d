package classify

// statfs(2) f_type -> 类型名，取自 linux/magic.h
// 只在 mountinfo 里找不到挂载 (例如句柄来自别的 mount namespace) 时使用
var magicNames = map[int64]string{
	0xEF53:     "ext4",
	0x58465342: "xfs",
	0x9123683E: "btrfs",
	0xCA451A4E: "bcachefs",
	0xF2F52010: "f2fs",
	0x4D44:     "vfat",
	0x2011BAB0: "exfat",
	0x01021994: "tmpfs",
	0x858458F6: "ramfs",
	0x9FA0:     "proc",
	0x62656572: "sysfs",
	0x1CD1:     "devpts",
	0x27E0EB:   "cgroup",
	0x63677270: "cgroup2",
	0x6165676C: "pstore",
	0x64626720: "debugfs",
	0x74726163: "tracefs",
	0x73636673: "securityfs",
	0x62656570: "configfs",
	0x958458F6: "hugetlbfs",
	0x19800202: "mqueue",
	0xCAFE4A11: "bpf",
	0xDE5E81E4: "efivarfs",
	0x6969:     "nfs",
	0xFF534D42: "cifs",
	0xFE534D42: "smb3",
	0x01021997: "9p",
	0x00C36400: "ceph",
	0x65735546: "fuse",
	0x794C7630: "overlay",
}

// NameFromMagic 返回 statfs 魔数对应的类型名，未知返回空串
func NameFromMagic(magic int64) string {
	return magicNames[magic]
}
