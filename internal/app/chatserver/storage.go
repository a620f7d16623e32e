package chatserver

import (
	"context"

	"tieba-chat/internal/config/schema"
	coreerrors "tieba-chat/internal/core/errors"
	"tieba-chat/internal/core/storage"
	"tieba-chat/internal/core/storage/memory"
	"tieba-chat/internal/core/storage/postgres"
	redisstore "tieba-chat/internal/core/storage/redis"
	"tieba-chat/internal/dao"
)

// newStorageFactory 注册各存储类型的构造函数
func newStorageFactory(cfg *schema.StorageConfig) *storage.Factory {
	f := storage.NewFactory()
	f.Register(storage.TypeMemory, func(ctx context.Context) (storage.Storage, error) {
		return memory.New(ctx), nil
	})
	f.Register(storage.TypeRedis, func(ctx context.Context) (storage.Storage, error) {
		return redisstore.New(ctx, &redisstore.Config{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password.Value(),
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout,
			OpTimeout:   cfg.Redis.OpTimeout,
		})
	})
	return f
}

// createStorage 根据配置创建共享存储
func createStorage(ctx context.Context, cfg *schema.StorageConfig) (storage.Storage, error) {
	return newStorageFactory(cfg).Create(ctx, storage.Type(cfg.Type))
}

// OpenPostgres 打开 PostgreSQL 仓库，migrate 命令与节点共用
func OpenPostgres(ctx context.Context, cfg *schema.DatabaseConfig) (*dao.PgRepository, error) {
	pg, err := postgres.New(ctx, &postgres.Config{
		DSN:      cfg.DSN.Value(),
		MaxConns: cfg.MaxConns,
	})
	if err != nil {
		return nil, err
	}
	return dao.NewPgRepository(pg), nil
}

// createRepository 根据配置创建关系型仓库
func createRepository(ctx context.Context, cfg *schema.DatabaseConfig) (dao.Repository, error) {
	switch cfg.Type {
	case schema.DatabaseTypeMemory, "":
		return dao.NewMemoryRepository(), nil
	case schema.DatabaseTypePostgres:
		return OpenPostgres(ctx, cfg)
	default:
		return nil, coreerrors.Newf(coreerrors.CodeConfigError, "unsupported database type: %s", cfg.Type)
	}
}
