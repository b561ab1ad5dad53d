// Package scan 对目录下所有普通文件并发做一次完整解析
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"file2pcie/pkg/ignore"
	"file2pcie/pkg/resolver"
	"file2pcie/pkg/types"

	"golang.org/x/sync/errgroup"
)

// Item 是单个文件的解析结果；Err 非 nil 时 Result.Code 与之对应
type Item struct {
	Path   string        `json:"path"`
	Result *types.Result `json:"result"`
	Err    error         `json:"-"`
}

// Options 控制一次扫描
type Options struct {
	// Concurrency <= 0 时使用 NumCPU
	Concurrency int
	// Request 对每个文件都一样；Length 为 0 表示整个文件
	Request resolver.Request
}

// Scanner 遍历目录，把每个文件交给 Resolver
type Scanner struct {
	resolver *resolver.Resolver
	log      *slog.Logger
}

func NewScanner(r *resolver.Resolver, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{resolver: r, log: logger}
}

// Scan 解析 root 下所有未被忽略的普通文件，结果按路径排序
// 单个文件的解析失败记在 Item.Err 里，只有遍历本身出错或 ctx 结束才返回 error
func (s *Scanner) Scan(ctx context.Context, root string, opts Options) ([]Item, error) {
	matcher, err := ignore.NewMatcher(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore rules: %w", err)
	}

	paths, err := collect(root, matcher)
	if err != nil {
		return nil, err
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	items := make([]Item, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			req, err := requestFor(p, opts.Request)
			if err != nil {
				items[i] = Item{Path: p, Result: &types.Result{Code: types.CodeOf(err), Controllers: []types.Controller{}}, Err: err}
				return nil
			}
			res, err := s.resolver.ResolvePath(gctx, p, req)
			if err != nil {
				s.log.Debug("scan: resolve failed", slog.String("path", p), slog.Any("err", err))
			}
			items[i] = Item{Path: p, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// collect 已经排好序，这里保证调用方拿到的顺序不依赖调度
	sort.Slice(items, func(a, b int) bool { return items[a].Path < items[b].Path })
	return items, nil
}

// collect 返回 root 下所有普通文件；root 本身是文件时只返回它
func collect(root string, matcher *ignore.Matcher) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			if matcher.Matches(rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		// 符号链接、设备、管道都不跟
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk failed: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// requestFor 把 Length 0 展开成整个文件
func requestFor(path string, req resolver.Request) (resolver.Request, error) {
	if req.Length != 0 {
		return req, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return req, fmt.Errorf("%w: %v", types.ErrInvalidHandle, err)
	}
	if info.Size() <= req.Offset {
		return req, fmt.Errorf("%w: offset %d beyond file size %d", types.ErrInvalidRange, req.Offset, info.Size())
	}
	req.Length = uint64(info.Size() - req.Offset)
	return req, nil
}
