// Package storage 定义节点间共享的键值存储接口
//
// 在线目录（uip_/usession_/utoken_）、登录锁（lock_）、用户信息缓存与
// 登录计数都存放在同一个共享存储中。生产环境使用 Redis，单节点开发与
// 部分测试使用内存实现。
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound 键不存在
var ErrKeyNotFound = errors.New("key not found")

// Storage 共享键值存储
//
// 所有方法在存储不可达时返回 error，调用方需要把它与"键不存在"区分开，
// 后者统一用 ErrKeyNotFound 表示。
type Storage interface {
	// Get 获取字符串值，不存在时返回 ErrKeyNotFound
	Get(ctx context.Context, key string) (string, error)

	// Set 设置值，ttl <= 0 表示永不过期
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Delete 删除键，键不存在不视为错误
	Delete(ctx context.Context, keys ...string) error

	// DeleteByPattern 删除匹配 glob 模式的所有键，返回删除数量
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)

	// Keys 列出匹配 glob 模式的键
	Keys(ctx context.Context, pattern string) ([]string, error)

	// SetNX 仅当键不存在时设置，返回是否设置成功
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)

	// CompareAndDelete 仅当当前值等于 expected 时删除，返回是否删除
	CompareAndDelete(ctx context.Context, key string, expected string) (bool, error)

	// HIncrBy 哈希字段自增
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)

	// HDel 删除哈希字段
	HDel(ctx context.Context, key string, fields ...string) error

	// Ping 检查连接
	Ping(ctx context.Context) error

	// Close 释放资源
	Close() error
}
