package presence

import (
	"context"
	"errors"

	coreerrors "tieba-chat/internal/core/errors"
	corelog "tieba-chat/internal/core/log"
	"tieba-chat/internal/core/storage"
)

// Record uid 的在线记录，登录时整体覆盖
type Record struct {
	Node      string `json:"node"`
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

// Directory 在线目录
type Directory struct {
	storage storage.Storage
	keys    KeySchema
	logger  corelog.Logger
}

// NewDirectory 创建在线目录
func NewDirectory(s storage.Storage, keys KeySchema, logger corelog.Logger) *Directory {
	return &Directory{
		storage: s,
		keys:    keys.WithDefaults(),
		logger:  corelog.OrDefault(logger),
	}
}

// Keys 键命名
func (d *Directory) Keys() KeySchema {
	return d.keys
}

// Storage 底层共享存储
func (d *Directory) Storage() storage.Storage {
	return d.storage
}

// getOptional 读取可选值，不存在返回 ("", false, nil)
func (d *Directory) getOptional(ctx context.Context, key string) (string, bool, error) {
	v, err := d.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

// Lookup 查询 uid 的在线记录，不在线返回 (nil, nil)
func (d *Directory) Lookup(ctx context.Context, uid int64) (*Record, error) {
	node, ok, err := d.getOptional(ctx, d.keys.IPKey(uid))
	if err != nil || !ok {
		return nil, err
	}

	rec := &Record{Node: node}
	if rec.SessionID, _, err = d.getOptional(ctx, d.keys.SessionKey(uid)); err != nil {
		return nil, err
	}
	if rec.Token, _, err = d.getOptional(ctx, d.keys.TokenKey(uid)); err != nil {
		return nil, err
	}
	return rec, nil
}

// Publish 覆盖写入在线记录
func (d *Directory) Publish(ctx context.Context, uid int64, rec Record) error {
	if err := d.storage.Set(ctx, d.keys.IPKey(uid), rec.Node, 0); err != nil {
		return err
	}
	if err := d.storage.Set(ctx, d.keys.SessionKey(uid), rec.SessionID, 0); err != nil {
		return err
	}
	if rec.Token != "" {
		if err := d.storage.Set(ctx, d.keys.TokenKey(uid), rec.Token, 0); err != nil {
			return err
		}
	}
	d.logger.Debugf("Directory: published uid %d -> node %s session %s", uid, rec.Node, rec.SessionID)
	return nil
}

// Token 查询 uid 的登录 token，由注册/登录网关写入
//
// 不存在返回 AUTH_FAILED；存储故障原样返回 STORAGE_ERROR。
func (d *Directory) Token(ctx context.Context, uid int64) (string, error) {
	token, ok, err := d.getOptional(ctx, d.keys.TokenKey(uid))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", coreerrors.Newf(coreerrors.CodeAuthFailed, "no token for uid %d", uid)
	}
	return token, nil
}

// Withdraw 会话关闭时撤销在线记录
//
// 仅当 usession_ 仍等于 sessionID 时删除，调用方需持有 uid 的登录锁，
// 否则可能误删刚完成的新登录。
func (d *Directory) Withdraw(ctx context.Context, uid int64, sessionID string) (bool, error) {
	removed, err := d.storage.CompareAndDelete(ctx, d.keys.SessionKey(uid), sessionID)
	if err != nil || !removed {
		return false, err
	}
	if err := d.storage.Delete(ctx, d.keys.IPKey(uid)); err != nil {
		return true, err
	}
	d.logger.Debugf("Directory: withdrew uid %d session %s", uid, sessionID)
	return true, nil
}

// PurgeNode 删除指向 node 的全部在线记录，返回清理的 uid 数量
//
// 用于节点崩溃后的运维清理。节点仍在运行时不要调用。
func (d *Directory) PurgeNode(ctx context.Context, node string) (int, error) {
	keys, err := d.storage.Keys(ctx, d.keys.IPPrefix+"*")
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, key := range keys {
		uid, ok := d.keys.UIDFromIPKey(key)
		if !ok {
			continue
		}
		removed, err := d.storage.CompareAndDelete(ctx, key, node)
		if err != nil {
			return purged, err
		}
		if !removed {
			continue
		}
		if err := d.storage.Delete(ctx, d.keys.SessionKey(uid)); err != nil {
			return purged, err
		}
		purged++
	}

	if err := d.ResetLoginCount(ctx, node); err != nil {
		return purged, err
	}
	d.logger.Infof("Directory: purged %d presence records of node %s", purged, node)
	return purged, nil
}

// AddLoginCount 调整节点的登录计数
func (d *Directory) AddLoginCount(ctx context.Context, node string, delta int64) (int64, error) {
	return d.storage.HIncrBy(ctx, d.keys.LoginCountKey, node, delta)
}

// ResetLoginCount 删除节点的登录计数
func (d *Directory) ResetLoginCount(ctx context.Context, node string) error {
	return d.storage.HDel(ctx, d.keys.LoginCountKey, node)
}
