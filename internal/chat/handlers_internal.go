package chat

import (
	"context"
	"encoding/json"

	"tieba-chat/internal/crossnode"
	"tieba-chat/internal/session"
)

func (s *Service) handleRemoteKick(ctx context.Context, payload []byte) {
	s.deliverRemote(ctx, payload, &crossnode.KickUserReq{})
}

func (s *Service) handleRemoteAddFriend(ctx context.Context, payload []byte) {
	s.deliverRemote(ctx, payload, &crossnode.AddFriendReq{})
}

func (s *Service) handleRemoteAuthFriend(ctx context.Context, payload []byte) {
	s.deliverRemote(ctx, payload, &crossnode.AuthFriendReq{})
}

func (s *Service) handleRemoteTextChat(ctx context.Context, payload []byte) {
	s.deliverRemote(ctx, payload, &crossnode.TextChatMsgReq{})
}

// deliverRemote 对端转入的通知只投递给本地会话，不再转发
func (s *Service) deliverRemote(ctx context.Context, payload []byte, n crossnode.Notification) {
	if err := json.Unmarshal(payload, n); err != nil {
		s.logger.Errorf("ChatService: decode %s: %v", n.Method(), err)
		return
	}
	s.deliverLocal(ctx, n)
}

// handleSessionEnd 连接断开后的清理
//
// 本地表只在 uid 仍映射到该会话时解绑；在线记录持锁撤销，且仅当
// usession_ 仍是该会话时才删除。
func (s *Service) handleSessionEnd(ctx context.Context, sess *session.Session, _ []byte) {
	uid, ok := sess.UID()
	if !ok {
		return
	}
	s.registry.UnbindIf(uid, sess)

	if _, err := s.directory.AddLoginCount(ctx, s.cfg.NodeName, -1); err != nil {
		s.logger.Warnf("ChatService: decrease login count of %s: %v", s.cfg.NodeName, err)
	}

	var withdrawn bool
	err := s.locks.WithLock(ctx, s.directory.Keys().LockKey(uid), s.cfg.LockHoldTTL, s.cfg.LockAcquireTimeout, func() error {
		var err error
		withdrawn, err = s.directory.Withdraw(ctx, uid, sess.ID())
		return err
	})
	if err != nil {
		s.logger.Warnf("ChatService: withdraw presence of uid %d session %s: %v", uid, sess.ID(), err)
		return
	}
	s.logger.Infof("ChatService: session %s of uid %d ended, presence withdrawn: %v", sess.ID(), uid, withdrawn)
}

// ReleaseAll 节点停机时撤销本地全部在线记录并关闭连接
//
// 必须在路由器排空后调用，本地会话表此时只有这一个写者。其他节点仍可能
// 同时登录同一 uid，撤销在线记录与 handleSessionEnd 一样持有登录锁。
func (s *Service) ReleaseAll(ctx context.Context) {
	for uid, sess := range s.registry.Snapshot() {
		err := s.locks.WithLock(ctx, s.directory.Keys().LockKey(uid), s.cfg.LockHoldTTL, s.cfg.LockAcquireTimeout, func() error {
			_, err := s.directory.Withdraw(ctx, uid, sess.ID())
			return err
		})
		if err != nil {
			s.logger.Warnf("ChatService: withdraw uid %d on shutdown: %v", uid, err)
		}
		s.registry.UnbindIf(uid, sess)
		if err := sess.Close(); err != nil {
			s.logger.Debugf("ChatService: close session %s: %v", sess.ID(), err)
		}
	}
	if err := s.directory.ResetLoginCount(ctx, s.cfg.NodeName); err != nil {
		s.logger.Warnf("ChatService: reset login count of %s: %v", s.cfg.NodeName, err)
	}
}
