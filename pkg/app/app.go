// pkg/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"file2pcie/pkg/classify"
	"file2pcie/pkg/config"
	"file2pcie/pkg/history"
	"file2pcie/pkg/mounts"
	"file2pcie/pkg/report"
	"file2pcie/pkg/report/disk"
	"file2pcie/pkg/report/s3"
	"file2pcie/pkg/report/stream"
	"file2pcie/pkg/resolver"
	"file2pcie/pkg/sysfs"
	"file2pcie/pkg/types"

	"github.com/spf13/viper"
)

// App 是进程级的依赖容器：启动时构造一次，退出时 Close 一次
// 解析核心本身不依赖这里的任何全局状态
type App struct {
	Resolver *resolver.Resolver
	Sysfs    *sysfs.FS
	ProcRoot string
	Host     string

	// 以下可选，未配置时为 nil
	History *history.Repository
	Reports report.Sink

	db *history.DB
}

// NewApp 按 Viper 配置组装各个组件
func NewApp(ctx context.Context) (*App, error) {
	// 1. sysfs 视图
	fs, err := sysfs.New(viper.GetString(config.KeySysfsRoot))
	if err != nil {
		return nil, fmt.Errorf("failed to open sysfs: %w", err)
	}

	host, _ := os.Hostname()
	a := &App{
		Resolver: resolver.New(classify.NewFDProber(mounts.NewProcTable()), fs, slog.Default()),
		Sysfs:    fs,
		ProcRoot: viper.GetString(config.KeyProcRoot),
		Host:     host,
	}

	// 2. 历史库
	if viper.GetBool(config.KeyHistoryEnabled) {
		db, err := initHistory(ctx)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.History = history.NewRepository(db)
	}

	// 3. 报告 sink
	sinks, err := initSinks(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if len(sinks) > 0 {
		a.Reports = sinks
	}
	return a, nil
}

func initHistory(ctx context.Context) (*history.DB, error) {
	driver := viper.GetString(config.KeyHistoryDriver)
	dsn := viper.GetString(config.KeyHistoryDSN)
	if dsn == "" {
		return nil, fmt.Errorf("history enabled but %s is empty", config.KeyHistoryDSN)
	}
	if driver == history.DriverSQLite {
		// sqlite 不会自己创建父目录
		if err := os.MkdirAll(dirOf(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create history dir: %w", err)
		}
	}
	db, err := history.Open(ctx, history.Config{Driver: driver, DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("failed to init history: %w", err)
	}
	return db, nil
}

func initSinks(ctx context.Context) (report.Multi, error) {
	var sinks report.Multi

	if dir := viper.GetString(config.KeyReportDir); dir != "" {
		s, err := disk.NewSink(dir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}

	if viper.GetBool(config.KeyReportS3Enabled) {
		bucket := viper.GetString(config.KeyReportS3Bucket)
		if bucket == "" {
			sinks.Close()
			return nil, fmt.Errorf("s3 bucket is required when %s is set", config.KeyReportS3Enabled)
		}
		s, err := s3.NewSink(ctx, s3.Config{
			Endpoint:        viper.GetString(config.KeyReportS3Endpoint),
			Region:          viper.GetString(config.KeyReportS3Region),
			Bucket:          bucket,
			Prefix:          viper.GetString(config.KeyReportS3Prefix),
			AccessKeyID:     viper.GetString(config.KeyReportS3AccessKey),
			SecretAccessKey: viper.GetString(config.KeyReportS3SecretKey),
		})
		if err != nil {
			sinks.Close()
			return nil, fmt.Errorf("failed to init s3 report sink: %w", err)
		}
		sinks = append(sinks, s)
	}

	if url := viper.GetString(config.KeyReportRedisURL); url != "" {
		s, err := stream.NewSink(stream.Config{
			RedisURL: url,
			Stream:   viper.GetString(config.KeyReportRedisStream),
			MaxLen:   viper.GetInt64(config.KeyReportRedisMaxLen),
		})
		if err != nil {
			sinks.Close()
			return nil, fmt.Errorf("failed to init redis report sink: %w", err)
		}
		sinks = append(sinks, s)
	}

	return sinks, nil
}

// Record 把一次解析结果写入历史并发布报告
// 两者都是旁路：失败只记日志，不影响返回给调用方的结果
func (a *App) Record(ctx context.Context, target string, req resolver.Request, res *types.Result) {
	if a.History != nil {
		err := a.History.Save(ctx, history.Entry{
			Target: target, Host: a.Host, Offset: req.Offset, Length: req.Length, Result: res,
		})
		if err != nil {
			slog.Warn("failed to record history", slog.String("target", target), slog.Any("err", err))
		}
	}
	if a.Reports != nil {
		id, err := report.Publish(ctx, a.Reports, report.New(a.Host, target, req.Offset, req.Length, res))
		if err != nil {
			slog.Warn("failed to publish report", slog.String("target", target), slog.Any("err", err))
			return
		}
		slog.Debug("report published", slog.String("id", id))
	}
}

// Close 释放所有外部连接
func (a *App) Close() error {
	var errs []error
	if a.Reports != nil {
		errs = append(errs, a.Reports.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

func dirOf(dsn string) string {
	// 兼容 "file:/path/x.db?_pragma=..." 形式
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	return filepath.Dir(path)
}
