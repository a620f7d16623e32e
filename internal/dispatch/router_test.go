package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tieba-chat/internal/constants"
	coreerrors "tieba-chat/internal/core/errors"
	corelog "tieba-chat/internal/core/log"
)

const testMsg constants.MsgID = 1005

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	return NewRouter(corelog.NewTestLogger(t))
}

func stop(t *testing.T, r *Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
}

func TestRouter_FIFO(t *testing.T) {
	r := newTestRouter(t)

	var got []byte
	require.NoError(t, r.Register(testMsg, func(_ context.Context, env *Envelope) {
		got = append(got, env.Payload...)
	}))
	require.NoError(t, r.Start(context.Background()))

	for i := 0; i < 100; i++ {
		require.NoError(t, r.Submit(NewEnvelope(nil, testMsg, []byte{byte(i)})))
	}
	stop(t, r)

	require.Len(t, got, 100)
	for i := range got {
		assert.Equal(t, byte(i), got[i])
	}
}

func TestRouter_DrainsQueueOnStop(t *testing.T) {
	r := newTestRouter(t)

	release := make(chan struct{})
	var handled atomic.Int32
	require.NoError(t, r.Register(testMsg, func(_ context.Context, env *Envelope) {
		switch env.Payload[0] {
		case 0:
			<-release
		case 99:
			return
		}
		handled.Add(1)
	}))
	require.NoError(t, r.Start(context.Background()))

	for i := 0; i < 10; i++ {
		require.NoError(t, r.Submit(NewEnvelope(nil, testMsg, []byte{byte(i)})))
	}

	stopped := make(chan error, 1)
	go func() { stopped <- r.Stop(context.Background()) }()

	// Stop 之后的提交被拒绝
	require.Eventually(t, func() bool {
		err := r.Submit(NewEnvelope(nil, testMsg, []byte{99}))
		return coreerrors.IsCode(err, coreerrors.CodeServiceClosed)
	}, time.Second, 5*time.Millisecond)

	close(release)
	require.NoError(t, <-stopped)
	assert.Equal(t, int32(10), handled.Load())
}

func TestRouter_UnknownIDDropped(t *testing.T) {
	r := newTestRouter(t)

	var handled atomic.Int32
	require.NoError(t, r.Register(testMsg, func(context.Context, *Envelope) { handled.Add(1) }))
	require.NoError(t, r.Start(context.Background()))

	require.NoError(t, r.Submit(NewEnvelope(nil, 4242, nil)))
	require.NoError(t, r.Submit(NewEnvelope(nil, testMsg, nil)))
	stop(t, r)

	assert.Equal(t, int32(1), handled.Load())
}

func TestRouter_DuplicateRegisterOverwrites(t *testing.T) {
	r := newTestRouter(t)

	var which atomic.Int32
	require.NoError(t, r.Register(testMsg, func(context.Context, *Envelope) { which.Store(1) }))
	require.NoError(t, r.Register(testMsg, func(context.Context, *Envelope) { which.Store(2) }))
	require.NoError(t, r.Start(context.Background()))

	require.NoError(t, r.Submit(NewEnvelope(nil, testMsg, nil)))
	stop(t, r)
	assert.Equal(t, int32(2), which.Load())

	assert.Error(t, r.Register(testMsg, func(context.Context, *Envelope) {}))
}

func TestRouter_PanicDoesNotKillConsumer(t *testing.T) {
	r := newTestRouter(t)

	var handled atomic.Int32
	require.NoError(t, r.Register(testMsg, func(_ context.Context, env *Envelope) {
		if len(env.Payload) == 0 {
			panic("boom")
		}
		handled.Add(1)
	}))
	require.NoError(t, r.Start(context.Background()))

	require.NoError(t, r.Submit(NewEnvelope(nil, testMsg, nil)))
	require.NoError(t, r.Submit(NewEnvelope(nil, testMsg, []byte("ok"))))
	stop(t, r)

	assert.Equal(t, int32(1), handled.Load())
}

func TestRouter_ConcurrentProducersSingleConsumer(t *testing.T) {
	r := newTestRouter(t)

	var inFlight, maxInFlight, handled atomic.Int32
	require.NoError(t, r.Register(testMsg, func(context.Context, *Envelope) {
		n := inFlight.Add(1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		handled.Add(1)
		inFlight.Add(-1)
	}))
	require.NoError(t, r.Start(context.Background()))

	const producers, perProducer = 8, 200
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = r.Submit(NewEnvelope(nil, testMsg, nil))
			}
		}()
	}
	wg.Wait()
	stop(t, r)

	assert.Equal(t, int32(producers*perProducer), handled.Load())
	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestRouter_HandlerContextSurvivesParentCancel(t *testing.T) {
	r := newTestRouter(t)

	parent, cancel := context.WithCancel(context.Background())
	var ctxErr error
	require.NoError(t, r.Register(testMsg, func(ctx context.Context, _ *Envelope) {
		ctxErr = ctx.Err()
	}))
	require.NoError(t, r.Start(parent))
	cancel()

	require.NoError(t, r.Submit(NewEnvelope(nil, testMsg, nil)))
	stop(t, r)
	assert.NoError(t, ctxErr)
}

func TestRouter_StopBeforeStart(t *testing.T) {
	r := newTestRouter(t)
	stop(t, r)
	assert.Error(t, r.Submit(NewEnvelope(nil, testMsg, nil)))
	assert.Error(t, r.Start(context.Background()))
}
