package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"tieba-chat/internal/config/loader"
	"tieba-chat/internal/config/schema"
	"tieba-chat/internal/config/source"
	corelog "tieba-chat/internal/core/log"
	"tieba-chat/internal/version"
)

// 全局标志
var (
	configFile string
	logLevel   string
)

// rootCmd 代表根命令
var rootCmd = &cobra.Command{
	Use:   "chatserver",
	Short: "tieba-chat - clustered chat node",
	Long: `chatserver runs one node of the tieba-chat cluster.

Nodes share presence, login tokens and login locks through Redis and
notify each other over gRPC when a user logged in on another node.

Quick Start:
  chatserver serve                        Run a standalone node with defaults
  chatserver serve -c chatserver.yaml     Run a node from a config file
  chatserver cleanup --node chat-2        Drop presence left by a crashed node
  chatserver migrate                      Create the PostgreSQL schema`,
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute 执行根命令
func Execute() {
	defer func() {
		if r := recover(); r != nil {
			corelog.Errorf("FATAL: main goroutine panic recovered: %v", r)
			fmt.Fprintf(os.Stderr, "\nPANIC: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", string(debug.Stack()))
			os.Exit(2)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file path (default: ./chatserver.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug/info/warn/error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig 按 默认值 → YAML → 环境变量 → 命令行 的顺序加载配置
func loadConfig(overrides source.CLIOverrides) (*schema.Root, error) {
	overrides.LogLevel = logLevel
	return loader.NewLoaderBuilder().
		WithConfigFile(configFile).
		WithCLI(overrides).
		Build().
		Load()
}

// initLogger 工具命令使用的日志，serve 由节点自己初始化
func initLogger(cfg *schema.Root) (func(), error) {
	closer, err := corelog.Init(corelog.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = closer.Close() }, nil
}
