package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"tieba-chat/internal/core/dispose"
)

// compareAndDeleteScript 值匹配时才删除，用于锁释放与会话撤销
var compareAndDeleteScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// SetNX 原子设置，仅当键不存在时
func (r *Storage) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if ttl < 0 {
		ttl = 0
	}
	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, storageErr(err, "SETNX", key)
	}
	dispose.Debugf("RedisStorage.SetNX: key %s success: %v", key, ok)
	return ok, nil
}

// CompareAndDelete 原子比较并删除
func (r *Storage) CompareAndDelete(ctx context.Context, key string, expected string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	n, err := compareAndDeleteScript.Run(ctx, r.client, []string{key}, expected).Int64()
	if err != nil {
		return false, storageErr(err, "CAD", key)
	}
	return n == 1, nil
}

// Keys 使用 SCAN 获取匹配模式的键，避免 KEYS 阻塞 Redis
func (r *Storage) Keys(ctx context.Context, pattern string) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, r.scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, storageErr(err, "SCAN", pattern)
	}
	return keys, nil
}

// DeleteByPattern 删除匹配模式的键
func (r *Storage) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	keys, err := r.Keys(ctx, pattern)
	if err != nil {
		return 0, err
	}

	var deleted int64
	for start := 0; start < len(keys); start += int(r.scanCount) {
		end := start + int(r.scanCount)
		if end > len(keys) {
			end = len(keys)
		}

		opCtx, cancel := r.withTimeout(ctx)
		n, err := r.client.Del(opCtx, keys[start:end]...).Result()
		cancel()
		if err != nil {
			return deleted, storageErr(err, "DEL", pattern)
		}
		deleted += n
	}

	dispose.Infof("RedisStorage.DeleteByPattern: deleted %d keys matching %s", deleted, pattern)
	return deleted, nil
}

// HIncrBy 哈希字段自增
func (r *Storage) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	n, err := r.client.HIncrBy(ctx, key, field, delta).Result()
	if err != nil {
		return 0, storageErr(err, "HINCRBY", key)
	}
	return n, nil
}

// HDel 删除哈希字段
func (r *Storage) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.HDel(ctx, key, fields...).Err(); err != nil {
		return storageErr(err, "HDEL", key)
	}
	return nil
}
