package dispose

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_CloseRunsHandlersOnce(t *testing.T) {
	svc := NewService("test", context.Background())

	var calls int32
	svc.AddCleanHandler(func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())
	assert.True(t, svc.IsClosed())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Error(t, svc.Ctx().Err(), "ctx should be cancelled after Close")
}

func TestService_ParentCancelTriggersCleanup(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	svc := NewService("child", parent)

	done := make(chan struct{})
	svc.AddCleanHandler(func() error {
		close(done)
		return nil
	})

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup handler not called after parent cancel")
	}
	assert.Eventually(t, svc.IsClosed, time.Second, 10*time.Millisecond)
}

func TestService_CleanupErrorsAreJoined(t *testing.T) {
	svc := NewService("faulty", context.Background())
	boom := errors.New("boom")
	svc.AddCleanHandler(func() error { return boom })
	svc.AddCleanHandler(func() error { return nil })

	err := svc.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var de *DisposeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "faulty", de.ResourceName)
	assert.Equal(t, 1, de.HandlerIndex)
}
