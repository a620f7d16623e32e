// Package distributed 基于共享存储的分布式锁
package distributed

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tieba-chat/internal/constants"
	coreerrors "tieba-chat/internal/core/errors"
	corelog "tieba-chat/internal/core/log"
	"tieba-chat/internal/core/storage"
)

// LockManager 分布式锁管理器
//
// 每次获取都生成新的随机标识写入锁键，释放时只有持有该标识才会删除。
// 锁带过期时间，持有者崩溃后由存储过期回收。
type LockManager struct {
	storage       storage.Storage
	retryInterval time.Duration
	logger        corelog.Logger
}

// NewLockManager 创建锁管理器，retryInterval <= 0 时使用默认值
func NewLockManager(s storage.Storage, retryInterval time.Duration, logger corelog.Logger) *LockManager {
	if retryInterval <= 0 {
		retryInterval = constants.DefaultLockRetryInterval
	}
	return &LockManager{
		storage:       s,
		retryInterval: retryInterval,
		logger:        corelog.OrDefault(logger),
	}
}

// Acquire 获取锁，返回本次持有的标识
//
// 在 waitTimeout 内按固定间隔重试，超时返回 LOCK_TIMEOUT；存储故障立即返回。
func (m *LockManager) Acquire(ctx context.Context, key string, holdTTL, waitTimeout time.Duration) (string, error) {
	id := uuid.NewString()
	deadline := time.Now().Add(waitTimeout)

	var ticker *time.Ticker
	for attempt := 1; ; attempt++ {
		ok, err := m.storage.SetNX(ctx, key, id, holdTTL)
		if err != nil {
			m.logger.Errorf("LockManager: acquire %s failed: %v", key, err)
			return "", err
		}
		if ok {
			if ticker != nil {
				ticker.Stop()
			}
			m.logger.Debugf("LockManager: acquired %s after %d attempts", key, attempt)
			return id, nil
		}

		if !time.Now().Add(m.retryInterval).Before(deadline) {
			if ticker != nil {
				ticker.Stop()
			}
			m.logger.Warnf("LockManager: acquire %s timed out after %v", key, waitTimeout)
			return "", coreerrors.Wrapf(coreerrors.ErrLockTimeout, coreerrors.CodeLockTimeout,
				"lock %s busy", key)
		}

		if ticker == nil {
			ticker = time.NewTicker(m.retryInterval)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			ticker.Stop()
			return "", coreerrors.Wrapf(ctx.Err(), coreerrors.CodeLockTimeout, "acquire %s cancelled", key)
		}
	}
}

// Release 释放锁，标识不匹配（已过期或被他人持有）时不做任何事并返回 false
func (m *LockManager) Release(ctx context.Context, key, id string) (bool, error) {
	released, err := m.storage.CompareAndDelete(ctx, key, id)
	if err != nil {
		m.logger.Errorf("LockManager: release %s failed: %v", key, err)
		return false, err
	}
	if !released {
		m.logger.Debugf("LockManager: %s no longer held by %s, release skipped", key, id)
	}
	return released, nil
}

// WithLock 在持有锁期间执行 fn，任何返回路径都会释放锁
func (m *LockManager) WithLock(ctx context.Context, key string, holdTTL, waitTimeout time.Duration, fn func() error) error {
	id, err := m.Acquire(ctx, key, holdTTL, waitTimeout)
	if err != nil {
		return err
	}
	defer func() {
		// 释放失败只记录，锁会随 TTL 过期
		if _, err := m.Release(context.WithoutCancel(ctx), key, id); err != nil {
			m.logger.Warnf("LockManager: deferred release of %s failed: %v", key, err)
		}
	}()
	return fn()
}
