package distributed

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "tieba-chat/internal/core/errors"
	corelog "tieba-chat/internal/core/log"
	"tieba-chat/internal/core/storage"
	redisstorage "tieba-chat/internal/core/storage/redis"
)

func newRedisStorage(t *testing.T) (storage.Storage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := redisstorage.New(context.Background(), &redisstorage.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestLockManager_AcquireRelease(t *testing.T) {
	s, mr := newRedisStorage(t)
	m := NewLockManager(s, 10*time.Millisecond, corelog.NewTestLogger(t))
	ctx := context.Background()

	id, err := m.Acquire(ctx, "lock_1", 10*time.Second, time.Second)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	held, err := mr.Get("lock_1")
	require.NoError(t, err)
	assert.Equal(t, id, held)
	assert.True(t, mr.TTL("lock_1") > 0)

	released, err := m.Release(ctx, "lock_1", id)
	require.NoError(t, err)
	assert.True(t, released)
	assert.False(t, mr.Exists("lock_1"))
}

func TestLockManager_TimeoutWhenHeld(t *testing.T) {
	s, _ := newRedisStorage(t)
	m := NewLockManager(s, 10*time.Millisecond, corelog.NewNopLogger())
	ctx := context.Background()

	_, err := m.Acquire(ctx, "lock_1", 10*time.Second, time.Second)
	require.NoError(t, err)

	start := time.Now()
	_, err = m.Acquire(ctx, "lock_1", 10*time.Second, 100*time.Millisecond)
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeLockTimeout))
	assert.Less(t, time.Since(start), time.Second)
}

func TestLockManager_AcquireAfterRelease(t *testing.T) {
	s, _ := newRedisStorage(t)
	m := NewLockManager(s, 10*time.Millisecond, corelog.NewNopLogger())
	ctx := context.Background()

	id, err := m.Acquire(ctx, "lock_1", 10*time.Second, time.Second)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_, _ = m.Release(ctx, "lock_1", id)
	}()

	id2, err := m.Acquire(ctx, "lock_1", 10*time.Second, 2*time.Second)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestLockManager_StaleReleaseIsNoop(t *testing.T) {
	s, mr := newRedisStorage(t)
	m := NewLockManager(s, 10*time.Millisecond, corelog.NewNopLogger())
	ctx := context.Background()

	staleID, err := m.Acquire(ctx, "lock_1", time.Second, time.Second)
	require.NoError(t, err)

	// 持有者超过 TTL，锁被他人重新获取
	mr.FastForward(2 * time.Second)
	freshID, err := m.Acquire(ctx, "lock_1", 10*time.Second, time.Second)
	require.NoError(t, err)

	released, err := m.Release(ctx, "lock_1", staleID)
	require.NoError(t, err)
	assert.False(t, released)

	held, err := mr.Get("lock_1")
	require.NoError(t, err)
	assert.Equal(t, freshID, held)
}

func TestLockManager_MutualExclusion(t *testing.T) {
	s, _ := newRedisStorage(t)
	m := NewLockManager(s, 5*time.Millisecond, corelog.NewNopLogger())

	var inside, maxInside, done atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithLock(context.Background(), "lock_9", 10*time.Second, 5*time.Second, func() error {
				n := inside.Add(1)
				for {
					cur := maxInside.Load()
					if n <= cur || maxInside.CompareAndSwap(cur, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inside.Add(-1)
				return nil
			})
			if err == nil {
				done.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), done.Load())
	assert.Equal(t, int32(1), maxInside.Load())
}

func TestLockManager_StorageFailureIsNotTimeout(t *testing.T) {
	s, mr := newRedisStorage(t)
	m := NewLockManager(s, 10*time.Millisecond, corelog.NewNopLogger())
	mr.Close()

	_, err := m.Acquire(context.Background(), "lock_1", time.Second, time.Second)
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeStorageError))
}
