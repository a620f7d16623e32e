// Package userinfo 用户资料的旁路缓存：先查共享存储，未命中再查数据库并回填
package userinfo

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"tieba-chat/internal/constants"
	coreerrors "tieba-chat/internal/core/errors"
	corelog "tieba-chat/internal/core/log"
	"tieba-chat/internal/core/storage"
	"tieba-chat/internal/dao"
	"tieba-chat/internal/presence"
)

// Cache 用户资料缓存
type Cache struct {
	storage storage.Storage
	repo    dao.Repository
	keys    presence.KeySchema
	ttl     time.Duration
	logger  corelog.Logger
}

// NewCache 创建缓存，ttl <= 0 使用默认值
func NewCache(s storage.Storage, repo dao.Repository, keys presence.KeySchema, ttl time.Duration, logger corelog.Logger) *Cache {
	if ttl <= 0 {
		ttl = constants.DefaultUserInfoCacheTTL
	}
	return &Cache{
		storage: s,
		repo:    repo,
		keys:    keys.WithDefaults(),
		ttl:     ttl,
		logger:  corelog.OrDefault(logger),
	}
}

// Repository 底层仓库
func (c *Cache) Repository() dao.Repository {
	return c.repo
}

// ByUID 按 uid 查询
func (c *Cache) ByUID(ctx context.Context, uid int64) (*dao.User, error) {
	return c.load(ctx, c.keys.BaseInfoKey(uid), func() (*dao.User, error) {
		return c.repo.GetUser(ctx, uid)
	})
}

// ByName 按用户名查询
func (c *Cache) ByName(ctx context.Context, name string) (*dao.User, error) {
	return c.load(ctx, c.keys.NameInfoKey(name), func() (*dao.User, error) {
		return c.repo.GetUserByName(ctx, name)
	})
}

// Search 纯数字按 uid 查询，否则按用户名查询
func (c *Cache) Search(ctx context.Context, query string) (*dao.User, error) {
	if isDigits(query) {
		uid, err := strconv.ParseInt(query, 10, 64)
		if err == nil {
			return c.ByUID(ctx, uid)
		}
	}
	return c.ByName(ctx, query)
}

// Invalidate 删除 uid 的缓存
func (c *Cache) Invalidate(ctx context.Context, uid int64, name string) error {
	keys := []string{c.keys.BaseInfoKey(uid)}
	if name != "" {
		keys = append(keys, c.keys.NameInfoKey(name))
	}
	return c.storage.Delete(ctx, keys...)
}

func (c *Cache) load(ctx context.Context, key string, fetch func() (*dao.User, error)) (*dao.User, error) {
	raw, err := c.storage.Get(ctx, key)
	switch {
	case err == nil:
		var u dao.User
		if jerr := json.Unmarshal([]byte(raw), &u); jerr == nil {
			return &u, nil
		}
		c.logger.Warnf("UserInfoCache: corrupt entry %s, reloading", key)
	case errors.Is(err, storage.ErrKeyNotFound):
	default:
		return nil, err
	}

	u, err := fetch()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(u)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeInternal, "marshal user info")
	}
	if err := c.storage.Set(ctx, key, string(data), c.ttl); err != nil {
		// 回填失败不影响本次查询
		c.logger.Warnf("UserInfoCache: fill %s failed: %v", key, err)
	}
	return u, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
