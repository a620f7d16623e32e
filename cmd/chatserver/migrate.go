package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tieba-chat/internal/app/chatserver"
	"tieba-chat/internal/config/schema"
	"tieba-chat/internal/config/source"
)

// migrateCmd 创建 PostgreSQL 表结构
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the PostgreSQL schema",
	Long: `Create the chat_user, friend apply and friend tables if they do not exist.

Example:
  CHAT_DATABASE_TYPE=postgres CHAT_DATABASE_DSN=postgres://chat@db/chat chatserver migrate`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(source.CLIOverrides{})
	if err != nil {
		return err
	}
	if cfg.Database.Type != schema.DatabaseTypePostgres {
		return fmt.Errorf("migrate needs database.type=postgres, got %q", cfg.Database.Type)
	}
	closeLog, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repo, err := chatserver.OpenPostgres(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
	return nil
}
