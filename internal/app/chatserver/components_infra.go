package chatserver

import (
	"context"
	"fmt"

	"tieba-chat/internal/distributed"
	"tieba-chat/internal/presence"
	"tieba-chat/internal/userinfo"
)

// ============================================================================
// StorageComponent - 共享存储组件
// ============================================================================

// StorageComponent 共享存储组件，保存在线目录、登录锁与用户缓存
type StorageComponent struct {
	BaseComponent
	deps *Dependencies
}

func (c *StorageComponent) Name() string {
	return "Storage"
}

func (c *StorageComponent) Initialize(ctx context.Context, deps *Dependencies) error {
	c.deps = deps
	if deps.Storage != nil {
		deps.Logger.Infof("Storage initialized: injected")
		return nil
	}

	s, err := createStorage(ctx, &deps.Config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	deps.Storage = s

	deps.Logger.Infof("Storage initialized: type=%s", deps.Config.Storage.Type)
	return nil
}

func (c *StorageComponent) Stop() error {
	if c.deps == nil || c.deps.Storage == nil {
		return nil
	}
	return c.deps.Storage.Close()
}

// ============================================================================
// DatabaseComponent - 关系型仓库组件
// ============================================================================

// DatabaseComponent 用户、好友申请与好友关系的仓库
type DatabaseComponent struct {
	BaseComponent
	deps *Dependencies
}

func (c *DatabaseComponent) Name() string {
	return "Database"
}

func (c *DatabaseComponent) Initialize(ctx context.Context, deps *Dependencies) error {
	c.deps = deps
	if deps.Repository != nil {
		deps.Logger.Infof("Database initialized: injected")
		return nil
	}

	repo, err := createRepository(ctx, &deps.Config.Database)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	deps.Repository = repo

	deps.Logger.Infof("Database initialized: type=%s", deps.Config.Database.Type)
	return nil
}

func (c *DatabaseComponent) Stop() error {
	if c.deps == nil || c.deps.Repository == nil {
		return nil
	}
	return c.deps.Repository.Close()
}

// ============================================================================
// PresenceComponent - 在线目录、登录锁与用户资料缓存
// ============================================================================

// PresenceComponent 基于共享存储的集群状态
type PresenceComponent struct {
	BaseComponent
}

func (c *PresenceComponent) Name() string {
	return "Presence"
}

func (c *PresenceComponent) Initialize(_ context.Context, deps *Dependencies) error {
	if deps.Storage == nil {
		return fmt.Errorf("storage is required")
	}
	if deps.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	cfg := deps.Config
	keys := presence.KeySchema{
		IPPrefix:       cfg.Presence.IPPrefix,
		TokenPrefix:    cfg.Presence.TokenPrefix,
		SessionPrefix:  cfg.Presence.SessionPrefix,
		LockPrefix:     cfg.Presence.LockPrefix,
		BaseInfoPrefix: cfg.Presence.BaseInfoPrefix,
		NameInfoPrefix: cfg.Presence.NameInfoPrefix,
		LoginCountKey:  cfg.Presence.LoginCountKey,
	}.WithDefaults()

	deps.Directory = presence.NewDirectory(deps.Storage, keys, deps.Logger)
	deps.Locks = distributed.NewLockManager(deps.Storage, cfg.Lock.RetryInterval, deps.Logger)
	deps.Users = userinfo.NewCache(deps.Storage, deps.Repository, keys, cfg.Cache.UserInfoTTL, deps.Logger)

	deps.Logger.Infof("Presence initialized: lock hold=%s wait=%s", cfg.Lock.HoldTTL, cfg.Lock.AcquireTimeout)
	return nil
}
