package commands

import (
	"context"
	"fmt"
	"os"

	"file2pcie/pkg/app"
	"file2pcie/pkg/config"
	"file2pcie/pkg/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// noApp 标记不需要本地 App 的命令
const noApp = "no-app"

var (
	cfgFile    string
	serverAddr string

	// 全局应用实例，供子命令使用；远程模式下为 nil
	F2P *app.App
)

var rootCmd = &cobra.Command{
	Use:   "f2p",
	Short: "file2pcie: map a file byte range to its sectors and NVMe controllers",
	// 退出码和错误输出由 main 统一处理
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := logging.Setup(os.Stderr, viper.GetString(config.KeyLogLevel), viper.GetString(config.KeyLogFormat)); err != nil {
			return err
		}

		// 远程模式和纯系统查询不需要本地 sysfs/历史库
		if cmd.Annotations[noApp] == "true" || serverAddr != "" {
			return nil
		}

		var err error
		F2P, err = app.NewApp(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to initialize f2p: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if F2P == nil {
			return nil
		}
		return F2P.Close()
	},
}

// Execute 是入口
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.f2p/config.yaml)")
	flags.StringVar(&serverAddr, "server", "", "resolve through a running f2p-server instead of locally")

	flags.String("sysfs-root", "", "sysfs mount point (for testing against a captured tree)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")

	for key, flag := range map[string]string{
		config.KeySysfsRoot: "sysfs-root",
		config.KeyLogLevel:  "log-level",
		config.KeyLogFormat: "log-format",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			fmt.Println("Failed to bind flag:", err)
			os.Exit(1)
		}
	}
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	if err := config.Load(cfgFile); err != nil {
		fmt.Println("Config error:", err)
		os.Exit(1)
	}
}
