package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tieba-chat/internal/constants"
	coreerrors "tieba-chat/internal/core/errors"
	corelog "tieba-chat/internal/core/log"
	"tieba-chat/internal/dispatch"
	"tieba-chat/internal/packet"
)

type chanSubmitter struct {
	ch chan *dispatch.Envelope
}

func newChanSubmitter() *chanSubmitter {
	return &chanSubmitter{ch: make(chan *dispatch.Envelope, 64)}
}

func (c *chanSubmitter) Submit(env *dispatch.Envelope) error {
	select {
	case c.ch <- env:
		return nil
	default:
		return coreerrors.ErrServiceClosed
	}
}

func (c *chanSubmitter) next(t *testing.T) *dispatch.Envelope {
	t.Helper()
	select {
	case env := <-c.ch:
		return env
	case <-time.After(3 * time.Second):
		t.Fatal("no envelope submitted")
		return nil
	}
}

func startServer(t *testing.T, cfg Config) (*TCPServer, *chanSubmitter) {
	t.Helper()
	cfg.Addr = "127.0.0.1:0"
	sub := newChanSubmitter()
	srv := NewTCPServer(context.Background(), cfg, sub, corelog.NewTestLogger(t))
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Close() })
	return srv, sub
}

func dial(t *testing.T, srv *TCPServer) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// expectClosed 丢弃剩余帧直到服务端断开，超时视为失败
func expectClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, err := packet.ReadFrame(conn, 0)
		if err == nil {
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Fatal("connection still open")
		}
		return
	}
}

func TestTCPServer_RoundTrip(t *testing.T) {
	srv, sub := startServer(t, Config{})
	conn := dial(t, srv)

	require.NoError(t, packet.WriteFrame(conn, constants.MsgChatLoginReq, []byte(`{"uid":1}`)))
	require.NoError(t, packet.WriteFrame(conn, constants.MsgHeartBeatReq, []byte(`{}`)))

	first := sub.next(t)
	second := sub.next(t)
	assert.Equal(t, constants.MsgChatLoginReq, first.MsgID)
	assert.Equal(t, `{"uid":1}`, string(first.Payload))
	assert.Equal(t, constants.MsgHeartBeatReq, second.MsgID)
	require.NotNil(t, first.Session)
	assert.Same(t, first.Session, second.Session)
	assert.Equal(t, 1, srv.ConnCount())

	require.NoError(t, first.Session.Send(constants.MsgChatLoginRsp, []byte(`{"error":0}`)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	frame, err := packet.ReadFrame(conn, 0)
	require.NoError(t, err)
	assert.Equal(t, constants.MsgChatLoginRsp, frame.MsgID)
	assert.Equal(t, `{"error":0}`, string(frame.Payload))

	require.NoError(t, conn.Close())
	end := sub.next(t)
	assert.Equal(t, constants.MsgInternalSessionEnd, end.MsgID)
	assert.Same(t, first.Session, end.Session)
	assert.Eventually(t, func() bool { return srv.ConnCount() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestTCPServer_RejectsInternalID(t *testing.T) {
	srv, sub := startServer(t, Config{})
	conn := dial(t, srv)

	require.NoError(t, packet.WriteFrame(conn, constants.MsgInternalKickUser, []byte(`{"uid":1}`)))
	expectClosed(t, conn)

	env := sub.next(t)
	assert.Equal(t, constants.MsgInternalSessionEnd, env.MsgID, "internal frame must not reach the router")
}

func TestTCPServer_RejectsOversizedFrame(t *testing.T) {
	srv, sub := startServer(t, Config{MaxPayload: 8})
	conn := dial(t, srv)

	require.NoError(t, packet.WriteFrame(conn, constants.MsgTextChatReq, make([]byte, 16)))
	expectClosed(t, conn)
	assert.Equal(t, constants.MsgInternalSessionEnd, sub.next(t).MsgID)
}

func TestTCPServer_ReapsIdleConnections(t *testing.T) {
	srv, sub := startServer(t, Config{HeartbeatTimeout: 100 * time.Millisecond, CheckInterval: 20 * time.Millisecond})
	conn := dial(t, srv)

	expectClosed(t, conn)
	assert.Equal(t, constants.MsgInternalSessionEnd, sub.next(t).MsgID)
}

func TestTCPServer_CloseFlushesQueuedFrames(t *testing.T) {
	srv, sub := startServer(t, Config{})
	conn := dial(t, srv)

	require.NoError(t, packet.WriteFrame(conn, constants.MsgChatLoginReq, nil))
	sess := sub.next(t).Session
	require.NoError(t, sess.Send(constants.MsgNotifyOffline, []byte(`{"error":0,"uid":1}`)))
	require.NoError(t, sess.Close())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	frame, err := packet.ReadFrame(conn, 0)
	require.NoError(t, err)
	assert.Equal(t, constants.MsgNotifyOffline, frame.MsgID)
	expectClosed(t, conn)

	assert.Error(t, sess.Send(constants.MsgHeartBeatRsp, nil))
}

func TestTCPServer_CloseEndsAllSessions(t *testing.T) {
	srv, sub := startServer(t, Config{})
	a := dial(t, srv)
	b := dial(t, srv)
	require.NoError(t, packet.WriteFrame(a, constants.MsgHeartBeatReq, nil))
	require.NoError(t, packet.WriteFrame(b, constants.MsgHeartBeatReq, nil))
	sub.next(t)
	sub.next(t)

	require.NoError(t, srv.Close())
	assert.Zero(t, srv.ConnCount())
	// Close 返回前两条会话的结束消息都已提交
	assert.Len(t, sub.ch, 2)
	expectClosed(t, a)
	expectClosed(t, b)

	assert.ErrorIs(t, srv.Start(), coreerrors.ErrServiceClosed)
}
