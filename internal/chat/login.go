package chat

import (
	"context"

	"tieba-chat/internal/constants"
	coreerrors "tieba-chat/internal/core/errors"
	"tieba-chat/internal/crossnode"
	"tieba-chat/internal/presence"
	"tieba-chat/internal/session"
)

func (s *Service) handleLogin(ctx context.Context, sess *session.Session, payload []byte) {
	var req loginReq
	if !s.decode(sess, constants.MsgChatLoginRsp, payload, &req) {
		return
	}

	rsp, err := s.Login(ctx, sess, req.UID, req.Token)
	if err != nil {
		s.logger.Infof("ChatService: login uid %d on session %s rejected: %v", req.UID, sess.ID(), err)
		s.reply(sess, constants.MsgChatLoginRsp, &errorRsp{Error: constants.WireCode(err)})
		return
	}
	s.reply(sess, constants.MsgChatLoginRsp, rsp)
}

// Login 在 sess 上登录 uid
//
// 顺序：校验 token，读取资料，持锁处理旧登录并发布在线记录。
// 校验失败、用户不存在或锁超时时不修改任何状态。
func (s *Service) Login(ctx context.Context, sess *session.Session, uid int64, token string) (*loginRsp, error) {
	if cur, ok := sess.UID(); ok && cur != uid {
		return nil, coreerrors.Wrapf(coreerrors.ErrAlreadyBound, coreerrors.CodeAlreadyBound,
			"session %s already bound to %d", sess.ID(), cur)
	}

	stored, err := s.directory.Token(ctx, uid)
	if err != nil {
		return nil, err
	}
	if stored != token {
		return nil, coreerrors.Wrapf(coreerrors.ErrInvalidToken, coreerrors.CodeInvalidToken, "token mismatch for uid %d", uid)
	}

	rsp, err := s.loadLoginProfile(ctx, uid)
	if err != nil {
		return nil, err
	}

	if err := s.locks.WithLock(ctx, s.directory.Keys().LockKey(uid), s.cfg.LockHoldTTL, s.cfg.LockAcquireTimeout, func() error {
		return s.takeOver(ctx, sess, uid, token)
	}); err != nil {
		return nil, err
	}
	return rsp, nil
}

// takeOver 持锁执行：顶掉旧登录并把 uid 绑定到 sess
func (s *Service) takeOver(ctx context.Context, sess *session.Session, uid int64, token string) error {
	rec, err := s.directory.Lookup(ctx, uid)
	if err != nil {
		return err
	}
	if rec != nil && rec.SessionID != sess.ID() && rec.Node != s.cfg.NodeName {
		s.kickRemote(ctx, rec, uid)
	}
	// 在线记录可能已被其他节点覆盖，本地表里的旧会话无论如何都要顶掉
	s.kickLocal(uid, "", sess)

	if err := s.directory.Publish(ctx, uid, presence.Record{
		Node:      s.cfg.NodeName,
		SessionID: sess.ID(),
		Token:     token,
	}); err != nil {
		return err
	}

	firstBind := !sess.IsAuthenticated()
	if err := sess.Bind(uid); err != nil {
		return err
	}
	s.registry.Bind(uid, sess)

	if firstBind {
		if _, err := s.directory.AddLoginCount(ctx, s.cfg.NodeName, 1); err != nil {
			s.logger.Warnf("ChatService: increase login count of %s: %v", s.cfg.NodeName, err)
		}
	}
	s.logger.Infof("ChatService: uid %d logged in on node %s session %s", uid, s.cfg.NodeName, sess.ID())
	return nil
}

// kickLocal 顶掉本节点上 uid 的旧会话，sessionID 为空时不校验会话ID
func (s *Service) kickLocal(uid int64, sessionID string, keep *session.Session) bool {
	old, ok := s.registry.LocalConnection(uid)
	if !ok || old == keep {
		return false
	}
	if sessionID != "" && old.ID() != sessionID {
		s.logger.Debugf("ChatService: kick for uid %d session %s skipped, local session is %s", uid, sessionID, old.ID())
		return false
	}
	s.registry.UnbindIf(uid, old)
	s.notifyOffline(old, uid)
	s.logger.Infof("ChatService: uid %d session %s superseded", uid, old.ID())
	return true
}

// kickRemote 通知旧节点踢人，不等待结果
func (s *Service) kickRemote(ctx context.Context, rec *presence.Record, uid int64) {
	req := &crossnode.KickUserReq{UID: uid, SessionID: rec.SessionID}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RPCTimeout)
	s.kicks.Go(func() {
		defer cancel()
		if err := s.notifier.Notify(ctx, rec.Node, req); err != nil {
			s.logger.Warnf("ChatService: kick uid %d on node %s failed: %v", uid, rec.Node, err)
		}
	})
}

// loadLoginProfile 组装登录响应：资料、申请列表与好友列表
func (s *Service) loadLoginProfile(ctx context.Context, uid int64) (*loginRsp, error) {
	user, err := s.users.ByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	applies, err := s.repo.GetApplyList(ctx, uid, 0, s.cfg.ApplyPageSize)
	if err != nil {
		return nil, err
	}
	friends, err := s.repo.GetFriendList(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &loginRsp{
		Error:      constants.ErrSuccess,
		UID:        user.UID,
		Pwd:        user.Pwd,
		Name:       user.Name,
		Email:      user.Email,
		Nick:       user.Nick,
		Desc:       user.Desc,
		Sex:        user.Sex,
		Icon:       user.Icon,
		ApplyList:  applies,
		FriendList: friends,
	}, nil
}
