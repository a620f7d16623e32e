package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tieba-chat/internal/config/schema"
	"tieba-chat/internal/config/source"
	corelog "tieba-chat/internal/core/log"
	redisstore "tieba-chat/internal/core/storage/redis"
	"tieba-chat/internal/presence"
)

var cleanupNode string

// cleanupCmd 清理崩溃节点遗留的在线记录
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove presence records left by a crashed node",
	Long: `Remove every uip_/usession_ record that still names the given node,
and its login count. Only run this for a node that is no longer running:
users it still serves would become unreachable from other nodes.

Example:
  chatserver cleanup --node chat-2`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().StringVar(&cleanupNode, "node", "", "Name of the dead node")
	_ = cleanupCmd.MarkFlagRequired("node")
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(source.CLIOverrides{})
	if err != nil {
		return err
	}
	if cfg.Storage.Type != schema.StorageTypeRedis {
		return fmt.Errorf("cleanup needs storage.type=redis, got %q", cfg.Storage.Type)
	}
	closeLog, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := redisstore.New(ctx, &redisstore.Config{
		Addr:     cfg.Storage.Redis.Addr,
		Password: cfg.Storage.Redis.Password.Value(),
		DB:       cfg.Storage.Redis.DB,
		PoolSize: cfg.Storage.Redis.PoolSize,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	keys := presence.KeySchema{
		IPPrefix:      cfg.Presence.IPPrefix,
		SessionPrefix: cfg.Presence.SessionPrefix,
		LoginCountKey: cfg.Presence.LoginCountKey,
	}.WithDefaults()
	purged, err := presence.NewDirectory(store, keys, corelog.Default()).PurgeNode(ctx, cleanupNode)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "purged %d presence records of node %s\n", purged, cleanupNode)
	return nil
}
