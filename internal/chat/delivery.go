package chat

import (
	"context"

	"tieba-chat/internal/constants"
	"tieba-chat/internal/crossnode"
)

// Deliver 把通知送到目标用户所在的节点
//
// 目标不在线时静默返回；在本节点时直接写入本地会话；在其他节点时恰好调用一次
// Notifier。远端失败以 NETWORK_ERROR 返回，已提交的数据不回滚。
func (s *Service) Deliver(ctx context.Context, n crossnode.Notification) error {
	uid := n.TargetUID()
	rec, err := s.directory.Lookup(ctx, uid)
	if err != nil {
		return err
	}
	if rec == nil {
		s.logger.Debugf("ChatService: uid %d offline, %s not delivered", uid, n.Method())
		return nil
	}
	if rec.Node == s.cfg.NodeName {
		s.deliverLocal(ctx, n)
		return nil
	}
	return s.notifier.Notify(ctx, rec.Node, n)
}

// deliverLocal 把通知转换为客户端帧写给本地会话，会话已不存在时忽略
func (s *Service) deliverLocal(ctx context.Context, n crossnode.Notification) {
	if kick, ok := n.(*crossnode.KickUserReq); ok {
		s.kickLocal(kick.UID, kick.SessionID, nil)
		return
	}

	sess, ok := s.registry.LocalConnection(n.TargetUID())
	if !ok {
		s.logger.Debugf("ChatService: uid %d has no local session for %s", n.TargetUID(), n.Method())
		return
	}

	switch req := n.(type) {
	case *crossnode.AddFriendReq:
		s.reply(sess, constants.MsgNotifyAddFriend, &addFriendNotify{
			Error:    constants.ErrSuccess,
			ApplyUID: req.ApplyUID,
			Name:     req.Name,
			Desc:     req.Desc,
			Icon:     req.Icon,
			Sex:      req.Sex,
			Nick:     req.Nick,
		})
	case *crossnode.AuthFriendReq:
		notify := &authFriendNotify{FromUID: req.FromUID, ToUID: req.ToUID}
		if user, err := s.users.ByUID(ctx, req.FromUID); err != nil {
			notify.Error = constants.WireCode(err)
		} else {
			notify.Name, notify.Nick, notify.Icon, notify.Sex = user.Name, user.Nick, user.Icon, user.Sex
		}
		s.reply(sess, constants.MsgNotifyAuthFriend, notify)
	case *crossnode.TextChatMsgReq:
		s.reply(sess, constants.MsgNotifyTextChat, &textChatRsp{
			Error:     constants.ErrSuccess,
			FromUID:   req.FromUID,
			ToUID:     req.ToUID,
			TextArray: fromRPCText(req.TextMsgs),
		})
	default:
		s.logger.Warnf("ChatService: no local form for %s", n.Method())
	}
}
