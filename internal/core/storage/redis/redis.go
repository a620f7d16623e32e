package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tieba-chat/internal/core/dispose"
	coreerrors "tieba-chat/internal/core/errors"
	"tieba-chat/internal/core/storage"
)

// Config Redis配置
type Config struct {
	Addr         string        `json:"addr" yaml:"addr"`                   // Redis地址，如 "localhost:6379"
	Password     string        `json:"password" yaml:"password"`           // Redis密码
	DB           int           `json:"db" yaml:"db"`                       // 数据库编号
	PoolSize     int           `json:"pool_size" yaml:"pool_size"`         // 连接池大小
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout"`   // 建连超时
	OpTimeout    time.Duration `json:"op_timeout" yaml:"op_timeout"`       // 单次操作超时
	ScanPageSize int64         `json:"scan_page_size" yaml:"scan_page_size"` // SCAN 每页数量
}

// Storage Redis存储实现
type Storage struct {
	dispose.Dispose
	client    *redis.Client
	opTimeout time.Duration
	scanCount int64
}

var _ storage.Storage = (*Storage)(nil)

// New 创建新的Redis存储，连接失败时立即返回错误
func New(parentCtx context.Context, config *Config) (*Storage, error) {
	if config == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        config.Addr,
		Password:    config.Password,
		DB:          config.DB,
		PoolSize:    withDefault(config.PoolSize, 10),
		DialTimeout: withDefaultDuration(config.DialTimeout, 5*time.Second),
	})

	ctx, cancel := context.WithTimeout(parentCtx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, coreerrors.Wrapf(err, coreerrors.CodeStorageError, "failed to connect to Redis at %s", config.Addr)
	}

	s := NewWithClient(parentCtx, client)
	s.opTimeout = withDefaultDuration(config.OpTimeout, s.opTimeout)
	if config.ScanPageSize > 0 {
		s.scanCount = config.ScanPageSize
	}

	dispose.Infof("RedisStorage: connected to Redis at %s, DB: %d", config.Addr, config.DB)
	return s, nil
}

// NewWithClient 使用已有客户端创建存储（测试或共享连接池时使用）
func NewWithClient(parentCtx context.Context, client *redis.Client) *Storage {
	s := &Storage{
		client:    client,
		opTimeout: 3 * time.Second,
		scanCount: 200,
	}
	s.SetCtx(parentCtx, s.onClose)
	return s
}

// onClose 资源释放回调
func (r *Storage) onClose() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Client 获取底层客户端（broker 复用连接）
func (r *Storage) Client() *redis.Client {
	return r.client
}

func (r *Storage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.opTimeout)
}

func storageErr(err error, op, key string) error {
	return coreerrors.Wrapf(err, coreerrors.CodeStorageError, "redis %s %s", op, key)
}

// Get 获取值
func (r *Storage) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrKeyNotFound
		}
		dispose.Errorf("RedisStorage.Get: failed to get key %s: %v", key, err)
		return "", storageErr(err, "GET", key)
	}
	return val, nil
}

// Set 设置键值对
func (r *Storage) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		dispose.Errorf("RedisStorage.Set: failed to set key %s: %v", key, err)
		return storageErr(err, "SET", key)
	}
	return nil
}

// Delete 删除键
func (r *Storage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		dispose.Errorf("RedisStorage.Delete: failed to delete keys %v: %v", keys, err)
		return storageErr(err, "DEL", keys[0])
	}
	return nil
}

// Ping 测试连接
func (r *Storage) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func withDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func withDefaultDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
