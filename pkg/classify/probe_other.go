//go:build !linux

package classify

import (
	"errors"
	"os"

	"file2pcie/pkg/mounts"
)

// errUnsupportedPlatform 不对应任何领域错误，结果码为 Internal
var errUnsupportedPlatform = errors.New("handle probing is only implemented on linux")

// OpenPath 在非 Linux 平台上不打开任何东西，避免在 FIFO 上阻塞
func OpenPath(path string) (*os.File, error) {
	return nil, errUnsupportedPlatform
}

type FDProber struct {
	mounts mounts.Table
}

func NewFDProber(table mounts.Table) *FDProber {
	return &FDProber{mounts: table}
}

func (p *FDProber) Probe(h Handle) (Stat, error) {
	return Stat{}, errUnsupportedPlatform
}
