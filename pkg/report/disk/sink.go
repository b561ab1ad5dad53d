package disk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"file2pcie/pkg/report"
)

var ErrNotFound = errors.New("report not found")

// Sink 把报告写成 root/aa/bbcc... 文件
type Sink struct {
	root string
}

func NewSink(root string) (*Sink, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}
	return &Sink{root: root}, nil
}

func (s *Sink) path(id string) string {
	return filepath.Join(s.root, filepath.FromSlash(report.Key(id)))
}

func (s *Sink) Publish(ctx context.Context, id string, data []byte) error {
	target := s.path(id)

	// 内容寻址：同样的报告只写一次
	if _, err := os.Stat(target); err == nil {
		return nil
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// 先写临时文件再 Rename，读者要么看不到文件，要么看到完整的文件
	tmp, err := os.CreateTemp(dir, "temp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// Load 读回一份报告
func (s *Sink) Load(id string) (*report.Report, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return report.Decode(data)
}

func (s *Sink) Close() error { return nil }
