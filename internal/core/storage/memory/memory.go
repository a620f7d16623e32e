package memory

import (
	"context"
	"path"
	"sync"
	"time"

	"tieba-chat/internal/core/dispose"
	coreerrors "tieba-chat/internal/core/errors"
	"tieba-chat/internal/core/storage"
)

type entry struct {
	value    string
	hash     map[string]int64
	expireAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// Storage 内存存储实现，仅用于单节点部署与测试
type Storage struct {
	dispose.Dispose
	mu   sync.Mutex
	data map[string]*entry
	now  func() time.Time
}

var _ storage.Storage = (*Storage)(nil)

// New 创建内存存储
func New(parentCtx context.Context) *Storage {
	s := &Storage{
		data: make(map[string]*entry),
		now:  time.Now,
	}
	s.SetCtx(parentCtx, s.onClose)
	return s
}

func (m *Storage) onClose() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]*entry)
	return nil
}

func (m *Storage) checkClosed() error {
	if m.IsClosed() {
		return coreerrors.New(coreerrors.CodeServiceClosed, "memory storage closed")
	}
	return nil
}

// lookup 调用方持有 mu
func (m *Storage) lookup(key string) (*entry, bool) {
	e, ok := m.data[key]
	if !ok {
		return nil, false
	}
	if e.expired(m.now()) {
		delete(m.data, key)
		return nil, false
	}
	return e, true
}

func (m *Storage) expireAt(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

// Get 获取值
func (m *Storage) Get(_ context.Context, key string) (string, error) {
	if err := m.checkClosed(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok || e.hash != nil {
		return "", storage.ErrKeyNotFound
	}
	return e.value, nil
}

// Set 设置值
func (m *Storage) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	if err := m.checkClosed(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = &entry{value: value, expireAt: m.expireAt(ttl)}
	return nil
}

// Delete 删除键
func (m *Storage) Delete(_ context.Context, keys ...string) error {
	if err := m.checkClosed(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Keys 列出匹配模式的键
func (m *Storage) Keys(_ context.Context, pattern string) ([]string, error) {
	if err := m.checkClosed(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.match(pattern)
}

// match 调用方持有 mu
func (m *Storage) match(pattern string) ([]string, error) {
	var keys []string
	for k := range m.data {
		if _, ok := m.lookup(k); !ok {
			continue
		}
		matched, err := path.Match(pattern, k)
		if err != nil {
			return nil, coreerrors.Wrapf(err, coreerrors.CodeInvalidParam, "bad pattern %q", pattern)
		}
		if matched {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// DeleteByPattern 删除匹配模式的键
func (m *Storage) DeleteByPattern(_ context.Context, pattern string) (int64, error) {
	if err := m.checkClosed(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, err := m.match(pattern)
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return int64(len(keys)), nil
}

// SetNX 仅当键不存在时设置
func (m *Storage) SetNX(_ context.Context, key string, value string, ttl time.Duration) (bool, error) {
	if err := m.checkClosed(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lookup(key); ok {
		return false, nil
	}
	m.data[key] = &entry{value: value, expireAt: m.expireAt(ttl)}
	return true, nil
}

// CompareAndDelete 值匹配时删除
func (m *Storage) CompareAndDelete(_ context.Context, key string, expected string) (bool, error) {
	if err := m.checkClosed(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok || e.hash != nil || e.value != expected {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

// HIncrBy 哈希字段自增
func (m *Storage) HIncrBy(_ context.Context, key, field string, delta int64) (int64, error) {
	if err := m.checkClosed(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok {
		e = &entry{hash: make(map[string]int64)}
		m.data[key] = e
	}
	if e.hash == nil {
		return 0, coreerrors.Newf(coreerrors.CodeInvalidParam, "key %s holds a non-hash value", key)
	}
	e.hash[field] += delta
	return e.hash[field], nil
}

// HDel 删除哈希字段
func (m *Storage) HDel(_ context.Context, key string, fields ...string) error {
	if err := m.checkClosed(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok || e.hash == nil {
		return nil
	}
	for _, f := range fields {
		delete(e.hash, f)
	}
	if len(e.hash) == 0 {
		delete(m.data, key)
	}
	return nil
}

// Ping 内存存储总是可用
func (m *Storage) Ping(_ context.Context) error {
	return m.checkClosed()
}

// HGetAll 返回哈希快照（测试与诊断用）
func (m *Storage) HGetAll(key string) map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int64)
	if e, ok := m.lookup(key); ok {
		for f, v := range e.hash {
			out[f] = v
		}
	}
	return out
}
