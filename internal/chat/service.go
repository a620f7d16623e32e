// Package chat 聊天节点的业务处理：登录互踢、跨节点投递以及好友与文本消息
//
// 所有处理函数都注册在 dispatch.Router 上，由唯一的消费协程顺序执行，
// 因此本地会话表只有一个写者。
package chat

import (
	"context"
	"encoding/json"
	"time"

	"tieba-chat/internal/constants"
	corelog "tieba-chat/internal/core/log"
	"tieba-chat/internal/core/safe"
	"tieba-chat/internal/crossnode"
	"tieba-chat/internal/dao"
	"tieba-chat/internal/dispatch"
	"tieba-chat/internal/distributed"
	"tieba-chat/internal/presence"
	"tieba-chat/internal/session"
	"tieba-chat/internal/userinfo"
)

// Config 业务参数
type Config struct {
	NodeName           string
	LockHoldTTL        time.Duration
	LockAcquireTimeout time.Duration
	ApplyPageSize      int
	RPCTimeout         time.Duration
}

func (c Config) withDefaults() Config {
	if c.LockHoldTTL <= 0 {
		c.LockHoldTTL = constants.DefaultLockHoldTTL
	}
	if c.LockAcquireTimeout <= 0 {
		c.LockAcquireTimeout = constants.DefaultLockAcquireWait
	}
	if c.ApplyPageSize <= 0 {
		c.ApplyPageSize = dao.DefaultApplyPageSize
	}
	if c.RPCTimeout <= 0 {
		c.RPCTimeout = constants.DefaultRPCTimeout
	}
	return c
}

// Deps 业务依赖，均由调用方注入
type Deps struct {
	Registry  *session.Registry
	Directory *presence.Directory
	Locks     *distributed.LockManager
	Users     *userinfo.Cache
	Notifier  crossnode.Notifier
	Logger    corelog.Logger
}

// Service 聊天业务
type Service struct {
	cfg       Config
	registry  *session.Registry
	directory *presence.Directory
	locks     *distributed.LockManager
	users     *userinfo.Cache
	repo      dao.Repository
	notifier  crossnode.Notifier
	logger    corelog.Logger

	kicks *safe.WaitGroup
}

// NewService 创建聊天业务
func NewService(cfg Config, deps Deps) *Service {
	logger := corelog.OrDefault(deps.Logger)
	return &Service{
		cfg:       cfg.withDefaults(),
		registry:  deps.Registry,
		directory: deps.Directory,
		locks:     deps.Locks,
		users:     deps.Users,
		repo:      deps.Users.Repository(),
		notifier:  deps.Notifier,
		logger:    logger,
		kicks:     safe.NewWaitGroup("chat-kick", logger),
	}
}

// NodeName 本节点名
func (s *Service) NodeName() string {
	return s.cfg.NodeName
}

// Wait 等待已发出的跨节点踢人通知结束
func (s *Service) Wait() {
	s.kicks.Wait()
}

// Register 把全部处理函数注册到路由器，必须在路由器启动前调用
func (s *Service) Register(r *dispatch.Router) error {
	handlers := map[constants.MsgID]dispatch.Handler{
		constants.MsgChatLoginReq:  s.clientOnly(s.handleLogin),
		constants.MsgSearchUserReq: s.requireAuth(constants.MsgSearchUserRsp, s.handleSearchUser),
		constants.MsgAddFriendReq:  s.requireAuth(constants.MsgAddFriendRsp, s.handleAddFriend),
		constants.MsgAuthFriendReq: s.requireAuth(constants.MsgAuthFriendRsp, s.handleAuthFriend),
		constants.MsgTextChatReq:   s.requireAuth(constants.MsgTextChatRsp, s.handleTextChat),
		constants.MsgHeartBeatReq:  s.requireAuth(constants.MsgHeartBeatRsp, s.handleHeartbeat),

		constants.MsgInternalKickUser:   s.remoteOnly(s.handleRemoteKick),
		constants.MsgInternalAddFriend:  s.remoteOnly(s.handleRemoteAddFriend),
		constants.MsgInternalAuthFriend: s.remoteOnly(s.handleRemoteAuthFriend),
		constants.MsgInternalTextChat:   s.remoteOnly(s.handleRemoteTextChat),
		constants.MsgInternalSessionEnd: s.clientOnly(s.handleSessionEnd),
	}
	for id, h := range handlers {
		if err := r.Register(id, h); err != nil {
			return err
		}
	}
	return nil
}

type sessionHandler func(ctx context.Context, sess *session.Session, payload []byte)

type authedHandler func(ctx context.Context, sess *session.Session, uid int64, payload []byte)

// clientOnly 处理来自客户端连接的消息
func (s *Service) clientOnly(h sessionHandler) dispatch.Handler {
	return func(ctx context.Context, env *dispatch.Envelope) {
		if env.Session == nil {
			s.logger.Warnf("ChatService: %s without session dropped", env.MsgID)
			return
		}
		h(ctx, env.Session, env.Payload)
	}
}

// requireAuth 未登录的会话直接回复 1022
func (s *Service) requireAuth(rspID constants.MsgID, h authedHandler) dispatch.Handler {
	return s.clientOnly(func(ctx context.Context, sess *session.Session, payload []byte) {
		uid, ok := sess.UID()
		if !ok {
			s.logger.Debugf("ChatService: unauthenticated session %s sent %s", sess.ID(), rspID-1)
			s.reply(sess, rspID, &errorRsp{Error: constants.ErrNotAuthenticated})
			return
		}
		h(ctx, sess, uid, payload)
	})
}

// remoteOnly 处理对端节点经 RPC 转入的通知，不允许携带会话
func (s *Service) remoteOnly(h func(ctx context.Context, payload []byte)) dispatch.Handler {
	return func(ctx context.Context, env *dispatch.Envelope) {
		if env.Session != nil {
			s.logger.Warnf("ChatService: internal %s from session %s dropped", env.MsgID, env.Session.ID())
			return
		}
		h(ctx, env.Payload)
	}
}

// decode 解析请求，失败时回复 1001
func (s *Service) decode(sess *session.Session, rspID constants.MsgID, payload []byte, v any) bool {
	if err := json.Unmarshal(payload, v); err != nil {
		s.logger.Debugf("ChatService: bad payload for %s from session %s: %v", rspID-1, sess.ID(), err)
		s.reply(sess, rspID, &errorRsp{Error: constants.ErrJSON})
		return false
	}
	return true
}
