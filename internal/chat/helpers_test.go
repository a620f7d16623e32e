package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"tieba-chat/internal/constants"
	coreerrors "tieba-chat/internal/core/errors"
	corelog "tieba-chat/internal/core/log"
	redisstorage "tieba-chat/internal/core/storage/redis"
	"tieba-chat/internal/crossnode"
	"tieba-chat/internal/dao"
	"tieba-chat/internal/dispatch"
	"tieba-chat/internal/distributed"
	"tieba-chat/internal/presence"
	"tieba-chat/internal/session"
	"tieba-chat/internal/userinfo"
)

const msgTestBarrier constants.MsgID = 2999

var errConnClosed = errors.New("connection closed")

type sentFrame struct {
	id      constants.MsgID
	payload []byte
}

// fakeConn 记录发出的帧，关闭时像传输层一样提交会话结束消息
type fakeConn struct {
	mu      sync.Mutex
	frames  []sentFrame
	closed  bool
	ended   bool
	onClose func()
}

func (c *fakeConn) Send(id constants.MsgID, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	c.frames = append(c.frames, sentFrame{id: id, payload: payload})
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	onClose := c.onClose
	c.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	c.mu.Lock()
	c.ended = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) RemoteAddr() string { return "127.0.0.1:40000" }

// isClosed 关闭且会话结束消息已提交
func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended
}

func (c *fakeConn) find(id constants.MsgID) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.frames) - 1; i >= 0; i-- {
		if c.frames[i].id == id {
			return c.frames[i].payload, true
		}
	}
	return nil, false
}

func (c *fakeConn) count(id constants.MsgID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, f := range c.frames {
		if f.id == id {
			n++
		}
	}
	return n
}

// loopNet 进程内的 Notifier，把通知交给目标节点的 crossnode.Server
type loopNet struct {
	mu      sync.Mutex
	servers map[string]*crossnode.Server
	calls   []string
	fail    error
}

func newLoopNet() *loopNet {
	return &loopNet{servers: make(map[string]*crossnode.Server)}
}

func (l *loopNet) Notify(ctx context.Context, node string, n crossnode.Notification) error {
	l.mu.Lock()
	l.calls = append(l.calls, node+" "+n.Method())
	srv, fail := l.servers[node], l.fail
	l.mu.Unlock()

	if fail != nil {
		return fail
	}
	if srv == nil {
		return coreerrors.Newf(coreerrors.CodeNetworkError, "unknown node %s", node)
	}

	var err error
	switch req := n.(type) {
	case *crossnode.KickUserReq:
		_, err = srv.NotifyKickUser(ctx, req)
	case *crossnode.AddFriendReq:
		_, err = srv.NotifyAddFriend(ctx, req)
	case *crossnode.AuthFriendReq:
		_, err = srv.NotifyAuthFriend(ctx, req)
	case *crossnode.TextChatMsgReq:
		_, err = srv.NotifyTextChatMsg(ctx, req)
	}
	if err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeNetworkError, "loop notify")
	}
	return nil
}

func (l *loopNet) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func (l *loopNet) setFail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail = err
}

type testCluster struct {
	mr    *miniredis.Miniredis
	repo  *dao.MemoryRepository
	net   *loopNet
	keys  presence.KeySchema
	nodes map[string]*testNode
}

type testNode struct {
	name     string
	svc      *Service
	router   *dispatch.Router
	registry *session.Registry
	barriers chan chan struct{}
}

type testClient struct {
	sess *session.Session
	conn *fakeConn
	node *testNode
}

func newTestCluster(t *testing.T, names ...string) *testCluster {
	t.Helper()
	c := &testCluster{
		mr:    miniredis.RunT(t),
		repo:  dao.NewMemoryRepository(),
		net:   newLoopNet(),
		keys:  presence.DefaultKeySchema(),
		nodes: make(map[string]*testNode),
	}
	for _, name := range names {
		c.nodes[name] = c.addNode(t, name)
	}
	return c
}

func (c *testCluster) addNode(t *testing.T, name string) *testNode {
	t.Helper()
	logger := corelog.NewTestLogger(t)

	store, err := redisstorage.New(context.Background(), &redisstorage.Config{Addr: c.mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	n := &testNode{
		name:     name,
		router:   dispatch.NewRouter(logger),
		registry: session.NewRegistry(logger),
		barriers: make(chan chan struct{}, 16),
	}
	n.svc = NewService(Config{
		NodeName:           name,
		LockHoldTTL:        2 * time.Second,
		LockAcquireTimeout: 2 * time.Second,
		RPCTimeout:         time.Second,
	}, Deps{
		Registry:  n.registry,
		Directory: presence.NewDirectory(store, c.keys, logger),
		Locks:     distributed.NewLockManager(store, 10*time.Millisecond, logger),
		Users:     userinfo.NewCache(store, c.repo, c.keys, time.Minute, logger),
		Notifier:  c.net,
		Logger:    logger,
	})
	require.NoError(t, n.svc.Register(n.router))
	require.NoError(t, n.router.Register(msgTestBarrier, func(context.Context, *dispatch.Envelope) {
		close(<-n.barriers)
	}))
	require.NoError(t, n.router.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = n.router.Stop(ctx)
		n.svc.Wait()
	})

	c.net.mu.Lock()
	c.net.servers[name] = crossnode.NewServer(n.router, logger)
	c.net.mu.Unlock()
	return n
}

// seedUser 写入用户资料与登录 token
func (c *testCluster) seedUser(t *testing.T, u *dao.User, token string) {
	t.Helper()
	c.repo.PutUser(u)
	require.NoError(t, c.mr.Set(c.keys.TokenKey(u.UID), token))
}

func (c *testCluster) get(key string) string {
	v, _ := c.mr.Get(key)
	return v
}

// connect 模拟一条新连接
func (n *testNode) connect() *testClient {
	conn := &fakeConn{}
	sess := session.New(conn)
	conn.onClose = func() {
		_ = n.router.Submit(dispatch.NewEnvelope(sess, constants.MsgInternalSessionEnd, nil))
	}
	return &testClient{sess: sess, conn: conn, node: n}
}

// flush 等待此前提交的消息全部处理完
func (n *testNode) flush(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	n.barriers <- done
	require.NoError(t, n.router.Submit(dispatch.NewEnvelope(nil, msgTestBarrier, nil)))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("node %s did not drain", n.name)
	}
}

func (tc *testClient) send(t *testing.T, id constants.MsgID, v any) {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, tc.node.router.Submit(dispatch.NewEnvelope(tc.sess, id, body)))
}

func (tc *testClient) sendRaw(t *testing.T, id constants.MsgID, body []byte) {
	t.Helper()
	require.NoError(t, tc.node.router.Submit(dispatch.NewEnvelope(tc.sess, id, body)))
}

// expect 等待 id 对应的帧并解析到 v
func (tc *testClient) expect(t *testing.T, id constants.MsgID, v any) {
	t.Helper()
	var body []byte
	require.Eventually(t, func() bool {
		var ok bool
		body, ok = tc.conn.find(id)
		return ok
	}, 3*time.Second, 5*time.Millisecond, "no %s frame", id)
	require.NoError(t, json.Unmarshal(body, v))
}

// login 发送登录请求并返回响应错误码
func (tc *testClient) login(t *testing.T, uid int64, token string) constants.ErrorCode {
	t.Helper()
	tc.send(t, constants.MsgChatLoginReq, loginReq{UID: uid, Token: token})
	var rsp loginRsp
	tc.expect(t, constants.MsgChatLoginRsp, &rsp)
	return rsp.Error
}
