package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// 配置键
const (
	KeySysfsRoot = "sysfs.root"
	KeyProcRoot  = "proc.root"
	KeyServer    = "server.addr"
	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"

	KeyHistoryEnabled = "history.enabled"
	KeyHistoryDriver  = "history.driver"
	KeyHistoryDSN     = "history.dsn"

	KeyReportDir         = "report.dir"
	KeyReportS3Enabled   = "report.s3.enabled"
	KeyReportS3Endpoint  = "report.s3.endpoint"
	KeyReportS3Region    = "report.s3.region"
	KeyReportS3Bucket    = "report.s3.bucket"
	KeyReportS3Prefix    = "report.s3.prefix"
	KeyReportS3AccessKey = "report.s3.access_key"
	KeyReportS3SecretKey = "report.s3.secret_key"
	KeyReportRedisURL    = "report.redis.url"
	KeyReportRedisStream = "report.redis.stream"
	KeyReportRedisMaxLen = "report.redis.maxlen"

	KeyScanConcurrency = "scan.concurrency"
)

const DefaultServerAddr = ":8080"

// Load 初始化 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
func Load(cfgFile string) error {
	// 1. 默认值
	setDefaults()

	// 2. 搜索路径
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		// 当前目录 -> ./.f2p -> ~/.f2p
		viper.AddConfigPath(".")
		viper.AddConfigPath(".f2p")
		viper.AddConfigPath(filepath.Join(home, ".f2p"))

		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// 3. 环境变量：F2P_SYSFS_ROOT、F2P_REPORT_S3_BUCKET ...
	viper.SetEnvPrefix("F2P")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 4. 配置文件；找不到不算错，格式错才算
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			slog.Debug("no config file found, using defaults/env vars")
			return nil
		}
		return fmt.Errorf("fatal error config file: %w", err)
	}
	slog.Debug("using config file", slog.String("path", viper.ConfigFileUsed()))
	return nil
}

func setDefaults() {
	viper.SetDefault(KeySysfsRoot, "/sys")
	viper.SetDefault(KeyProcRoot, "/proc")
	viper.SetDefault(KeyServer, DefaultServerAddr)
	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyLogFormat, "text")

	wd, _ := os.Getwd()
	viper.SetDefault(KeyHistoryEnabled, false)
	viper.SetDefault(KeyHistoryDriver, "sqlite")
	viper.SetDefault(KeyHistoryDSN, filepath.Join(wd, ".f2p", "history.db"))

	viper.SetDefault(KeyReportDir, "")
	viper.SetDefault(KeyReportS3Enabled, false)
	viper.SetDefault(KeyReportS3Region, "us-east-1")
	viper.SetDefault(KeyReportS3Bucket, "f2p-reports")
	viper.SetDefault(KeyReportS3Prefix, "reports/")
	viper.SetDefault(KeyReportRedisStream, "f2p:reports")
	viper.SetDefault(KeyReportRedisMaxLen, 10000)

	viper.SetDefault(KeyScanConcurrency, runtime.NumCPU())
}
