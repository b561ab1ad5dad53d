// Package logging 根据配置安装全局 slog Logger
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel 接受 debug/info/warn/error (大小写不敏感)
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// New 创建 Logger；format 为 "json" 时输出 JSON，其余输出 key=value 文本
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch strings.ToLower(format) {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "text", "":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	return slog.New(h), nil
}

// Setup 创建 Logger 并设为默认
func Setup(w io.Writer, level, format string) (*slog.Logger, error) {
	l, err := New(w, level, format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(l)
	return l, nil
}
