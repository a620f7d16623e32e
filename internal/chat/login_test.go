package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tieba-chat/internal/constants"
	"tieba-chat/internal/crossnode"
	"tieba-chat/internal/dao"
)

func seedAlice(t *testing.T, c *testCluster) {
	t.Helper()
	c.seedUser(t, &dao.User{UID: 1, Name: "alice", Nick: "A", Icon: "a.png", Sex: 1, Pwd: "pw"}, "tok-1")
}

func TestLogin_Success(t *testing.T) {
	c := newTestCluster(t, "node-a")
	seedAlice(t, c)
	c.seedUser(t, &dao.User{UID: 2, Name: "bob"}, "tok-2")
	require.NoError(t, c.repo.AddFriendApply(t.Context(), 2, 1))
	require.NoError(t, c.repo.AddFriend(t.Context(), 1, 2, "bobby"))

	cl := c.nodes["node-a"].connect()
	cl.send(t, constants.MsgChatLoginReq, loginReq{UID: 1, Token: "tok-1"})

	var rsp loginRsp
	cl.expect(t, constants.MsgChatLoginRsp, &rsp)
	assert.Equal(t, constants.ErrSuccess, rsp.Error)
	assert.Equal(t, int64(1), rsp.UID)
	assert.Equal(t, "alice", rsp.Name)
	require.Len(t, rsp.ApplyList, 1)
	assert.Equal(t, int64(2), rsp.ApplyList[0].UID)
	require.Len(t, rsp.FriendList, 1)
	assert.Equal(t, "bobby", rsp.FriendList[0].Back)

	assert.Equal(t, "node-a", c.get(c.keys.IPKey(1)))
	assert.Equal(t, cl.sess.ID(), c.get(c.keys.SessionKey(1)))
	assert.Equal(t, "1", c.mr.HGet(c.keys.LoginCountKey, "node-a"))
	assert.False(t, c.mr.Exists(c.keys.LockKey(1)), "lock released")

	uid, ok := cl.sess.UID()
	assert.True(t, ok)
	assert.Equal(t, int64(1), uid)
	local, ok := c.nodes["node-a"].registry.LocalConnection(1)
	require.True(t, ok)
	assert.Same(t, cl.sess, local)
}

func TestLogin_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		uid   int64
		token string
		want  constants.ErrorCode
	}{
		{"token mismatch", 1, "wrong", constants.ErrTokenInvalid},
		{"token absent", 7, "tok-7", constants.ErrUIDInvalid},
		{"user unknown", 9, "tok-9", constants.ErrUIDInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCluster(t, "node-a")
			seedAlice(t, c)
			// 9 只有 token 没有资料
			require.NoError(t, c.mr.Set(c.keys.TokenKey(9), "tok-9"))

			cl := c.nodes["node-a"].connect()
			assert.Equal(t, tt.want, cl.login(t, tt.uid, tt.token))

			assert.False(t, c.mr.Exists(c.keys.IPKey(tt.uid)))
			assert.False(t, c.mr.Exists(c.keys.SessionKey(tt.uid)))
			assert.False(t, c.mr.Exists(c.keys.LockKey(tt.uid)))
			assert.False(t, cl.sess.IsAuthenticated())
			assert.Zero(t, c.nodes["node-a"].registry.Len())
		})
	}
}

func TestLogin_BadJSON(t *testing.T) {
	c := newTestCluster(t, "node-a")
	cl := c.nodes["node-a"].connect()
	cl.sendRaw(t, constants.MsgChatLoginReq, []byte("{not json"))

	var rsp errorRsp
	cl.expect(t, constants.MsgChatLoginRsp, &rsp)
	assert.Equal(t, constants.ErrJSON, rsp.Error)
}

func TestLogin_LockBusy(t *testing.T) {
	c := newTestCluster(t, "node-a")
	seedAlice(t, c)
	require.NoError(t, c.mr.Set(c.keys.LockKey(1), "someone-else"))

	node := c.nodes["node-a"]
	node.svc.cfg.LockAcquireTimeout = 200 * time.Millisecond
	owner := node.connect()
	// 先写入一条在线记录，锁超时后它不能被改动
	require.NoError(t, c.mr.Set(c.keys.IPKey(1), "node-z"))
	require.NoError(t, c.mr.Set(c.keys.SessionKey(1), "old-session"))

	assert.Equal(t, constants.ErrLoginBusy, owner.login(t, 1, "tok-1"))
	assert.Equal(t, "node-z", c.get(c.keys.IPKey(1)))
	assert.Equal(t, "old-session", c.get(c.keys.SessionKey(1)))
	assert.Equal(t, "someone-else", c.get(c.keys.LockKey(1)))
	assert.Zero(t, c.net.callCount(), "no kick on lock timeout")
}

func TestLogin_StoreUnavailable(t *testing.T) {
	c := newTestCluster(t, "node-a")
	seedAlice(t, c)
	cl := c.nodes["node-a"].connect()

	c.mr.SetError("store down")
	defer c.mr.SetError("")

	assert.Equal(t, constants.ErrStoreUnavailable, cl.login(t, 1, "tok-1"))
	assert.False(t, cl.sess.IsAuthenticated())
}

func TestLogin_SameNodeSupersedes(t *testing.T) {
	c := newTestCluster(t, "node-a")
	seedAlice(t, c)
	node := c.nodes["node-a"]

	first := node.connect()
	require.Equal(t, constants.ErrSuccess, first.login(t, 1, "tok-1"))
	second := node.connect()
	require.Equal(t, constants.ErrSuccess, second.login(t, 1, "tok-1"))
	node.flush(t)

	var off offlineNotify
	first.expect(t, constants.MsgNotifyOffline, &off)
	assert.Equal(t, int64(1), off.UID)
	assert.True(t, first.conn.isClosed())
	assert.False(t, second.conn.isClosed())
	assert.Zero(t, second.conn.count(constants.MsgNotifyOffline))

	local, ok := node.registry.LocalConnection(1)
	require.True(t, ok)
	assert.Same(t, second.sess, local)

	// 旧会话的结束清理不能撤销新登录
	assert.Equal(t, "node-a", c.get(c.keys.IPKey(1)))
	assert.Equal(t, second.sess.ID(), c.get(c.keys.SessionKey(1)))
	assert.Equal(t, "1", c.mr.HGet(c.keys.LoginCountKey, "node-a"))
	assert.Zero(t, c.net.callCount())
}

func TestLogin_RemoteSupersedes(t *testing.T) {
	c := newTestCluster(t, "node-a", "node-b")
	seedAlice(t, c)

	onA := c.nodes["node-a"].connect()
	require.Equal(t, constants.ErrSuccess, onA.login(t, 1, "tok-1"))
	onB := c.nodes["node-b"].connect()
	require.Equal(t, constants.ErrSuccess, onB.login(t, 1, "tok-1"))

	var off offlineNotify
	onA.expect(t, constants.MsgNotifyOffline, &off)
	assert.Equal(t, int64(1), off.UID)
	require.Eventually(t, onA.conn.isClosed, 3*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return c.nodes["node-a"].registry.Len() == 0 }, 3*time.Second, 5*time.Millisecond)
	c.nodes["node-a"].flush(t)

	assert.Equal(t, 1, c.net.callCount())
	assert.Equal(t, "node-b", c.get(c.keys.IPKey(1)))
	assert.Equal(t, onB.sess.ID(), c.get(c.keys.SessionKey(1)))
	assert.Equal(t, "0", c.mr.HGet(c.keys.LoginCountKey, "node-a"))
	assert.Equal(t, "1", c.mr.HGet(c.keys.LoginCountKey, "node-b"))
}

// 在线记录已指向别的节点（踢人通知还在路上）时，同节点再次登录仍要顶掉本地旧会话
func TestLogin_SupersedesLocalWhenPresenceMovedAway(t *testing.T) {
	c := newTestCluster(t, "node-a")
	seedAlice(t, c)
	node := c.nodes["node-a"]

	first := node.connect()
	require.Equal(t, constants.ErrSuccess, first.login(t, 1, "tok-1"))

	// uid 1 随后在 node-b 登录，node-b 发给本节点的踢人通知尚未到达
	require.NoError(t, c.mr.Set(c.keys.IPKey(1), "node-b"))
	require.NoError(t, c.mr.Set(c.keys.SessionKey(1), "b-session"))

	second := node.connect()
	require.Equal(t, constants.ErrSuccess, second.login(t, 1, "tok-1"))
	node.flush(t)

	var off offlineNotify
	first.expect(t, constants.MsgNotifyOffline, &off)
	assert.Equal(t, int64(1), off.UID)
	assert.True(t, first.conn.isClosed())

	// node-b 的踢人通知晚到，针对的是已被顶掉的会话
	_, err := c.net.servers["node-a"].NotifyKickUser(t.Context(), &crossnode.KickUserReq{UID: 1, SessionID: first.sess.ID()})
	require.NoError(t, err)
	node.flush(t)

	assert.False(t, second.conn.isClosed())
	local, ok := node.registry.LocalConnection(1)
	require.True(t, ok)
	assert.Same(t, second.sess, local)
	assert.Equal(t, 1, node.registry.Len())

	first.send(t, constants.MsgHeartBeatReq, struct{}{})
	node.flush(t)
	assert.Zero(t, first.conn.count(constants.MsgHeartBeatRsp))

	assert.Equal(t, "node-a", c.get(c.keys.IPKey(1)))
	assert.Equal(t, second.sess.ID(), c.get(c.keys.SessionKey(1)))
	require.Eventually(t, func() bool { return c.net.callCount() == 1 }, 3*time.Second, 5*time.Millisecond)
}

func TestLogin_RemoteKickUnreachable(t *testing.T) {
	c := newTestCluster(t, "node-b")
	seedAlice(t, c)
	// 在线记录指向已经不存在的节点
	require.NoError(t, c.mr.Set(c.keys.IPKey(1), "node-gone"))
	require.NoError(t, c.mr.Set(c.keys.SessionKey(1), "stale"))

	cl := c.nodes["node-b"].connect()
	assert.Equal(t, constants.ErrSuccess, cl.login(t, 1, "tok-1"))
	assert.Equal(t, "node-b", c.get(c.keys.IPKey(1)))
	require.Eventually(t, func() bool { return c.net.callCount() == 1 }, 3*time.Second, 5*time.Millisecond)
}

func TestLogin_StaleKickIgnored(t *testing.T) {
	c := newTestCluster(t, "node-a")
	seedAlice(t, c)
	node := c.nodes["node-a"]

	cl := node.connect()
	require.Equal(t, constants.ErrSuccess, cl.login(t, 1, "tok-1"))

	// 针对更早会话的踢人请求晚到，不能影响当前会话
	_, err := c.net.servers["node-a"].NotifyKickUser(t.Context(), &crossnode.KickUserReq{UID: 1, SessionID: "earlier"})
	require.NoError(t, err)
	node.flush(t)
	assert.False(t, cl.conn.isClosed())

	_, err = c.net.servers["node-a"].NotifyKickUser(t.Context(), &crossnode.KickUserReq{UID: 1, SessionID: cl.sess.ID()})
	require.NoError(t, err)
	node.flush(t)
	assert.True(t, cl.conn.isClosed())
}

func TestLogin_RebindOtherUIDRejected(t *testing.T) {
	c := newTestCluster(t, "node-a")
	seedAlice(t, c)
	c.seedUser(t, &dao.User{UID: 2, Name: "bob"}, "tok-2")

	cl := c.nodes["node-a"].connect()
	require.Equal(t, constants.ErrSuccess, cl.login(t, 1, "tok-1"))
	cl.send(t, constants.MsgChatLoginReq, loginReq{UID: 2, Token: "tok-2"})
	c.nodes["node-a"].flush(t)

	assert.Equal(t, 2, cl.conn.count(constants.MsgChatLoginRsp))
	var rsp errorRsp
	cl.expect(t, constants.MsgChatLoginRsp, &rsp)
	assert.Equal(t, constants.ErrNotAuthenticated, rsp.Error)
	assert.False(t, c.mr.Exists(c.keys.IPKey(2)))
}

// 多个节点并发登录同一 uid，最终只剩一个会话
func TestLogin_ExclusiveAcrossNodes(t *testing.T) {
	names := []string{"node-a", "node-b", "node-c"}
	c := newTestCluster(t, names...)
	seedAlice(t, c)

	var clients []*testClient
	for i := 0; i < 6; i++ {
		clients = append(clients, c.nodes[names[i%len(names)]].connect())
	}

	// 三个节点的消费协程并行处理
	for _, cl := range clients {
		cl.send(t, constants.MsgChatLoginReq, loginReq{UID: 1, Token: "tok-1"})
	}

	for _, cl := range clients {
		var rsp loginRsp
		cl.expect(t, constants.MsgChatLoginRsp, &rsp)
		require.Equal(t, constants.ErrSuccess, rsp.Error)
	}

	live := func() int {
		n := 0
		for _, cl := range clients {
			if !cl.conn.isClosed() {
				n++
			}
		}
		return n
	}
	require.Eventually(t, func() bool { return live() == 1 }, 5*time.Second, 10*time.Millisecond)

	bound := 0
	for _, name := range names {
		c.nodes[name].flush(t)
		bound += c.nodes[name].registry.Len()
	}
	assert.Equal(t, 1, bound)

	for _, cl := range clients {
		if cl.conn.isClosed() {
			continue
		}
		assert.Equal(t, cl.node.name, c.get(c.keys.IPKey(1)))
		assert.Equal(t, cl.sess.ID(), c.get(c.keys.SessionKey(1)))
	}
}
