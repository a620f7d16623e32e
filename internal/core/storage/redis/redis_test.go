package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "tieba-chat/internal/core/errors"
	"tieba-chat/internal/core/storage"
)

func newTestStorage(t *testing.T) (*Storage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	s, err := New(context.Background(), &Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStorage_GetSet(t *testing.T) {
	s, mr := newTestStorage(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "uip_1", "node-a", 0))
	v, err := s.Get(ctx, "uip_1")
	require.NoError(t, err)
	assert.Equal(t, "node-a", v)

	require.NoError(t, s.Set(ctx, "short", "x", time.Second))
	mr.FastForward(2 * time.Second)
	_, err = s.Get(ctx, "short")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestRedisStorage_SetNX(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	ok, err := s.SetNX(ctx, "lock_1", "a", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetNX(ctx, "lock_1", "b", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	v, _ := s.Get(ctx, "lock_1")
	assert.Equal(t, "a", v)
}

func TestRedisStorage_CompareAndDelete(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "usession_1", "s1", 0))

	deleted, err := s.CompareAndDelete(ctx, "usession_1", "s2")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.CompareAndDelete(ctx, "usession_1", "s1")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.Get(ctx, "usession_1")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	deleted, err = s.CompareAndDelete(ctx, "usession_1", "s1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRedisStorage_KeysAndDeleteByPattern(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	for _, k := range []string{"uip_1", "uip_2", "utoken_1"} {
		require.NoError(t, s.Set(ctx, k, "v", 0))
	}

	keys, err := s.Keys(ctx, "uip_*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"uip_1", "uip_2"}, keys)

	n, err := s.DeleteByPattern(ctx, "uip_*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	keys, err = s.Keys(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"utoken_1"}, keys)
}

func TestRedisStorage_Hash(t *testing.T) {
	s, mr := newTestStorage(t)
	ctx := context.Background()

	n, err := s.HIncrBy(ctx, "logincount", "node-a", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.HIncrBy(ctx, "logincount", "node-a", -1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.NoError(t, s.HDel(ctx, "logincount", "node-a"))
	assert.False(t, mr.Exists("logincount"))
}

func TestRedisStorage_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := New(context.Background(), &Config{Addr: mr.Addr(), OpTimeout: 200 * time.Millisecond})
	require.NoError(t, err)
	defer s.Close()

	mr.Close()

	_, err = s.Get(context.Background(), "uip_1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrKeyNotFound)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeStorageError))
}

func TestNew_ConnectFailure(t *testing.T) {
	_, err := New(context.Background(), &Config{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeStorageError))
}
