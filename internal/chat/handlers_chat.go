package chat

import (
	"context"
	"strings"

	"tieba-chat/internal/constants"
	"tieba-chat/internal/crossnode"
	"tieba-chat/internal/session"
)

// handleSearchUser 按 uid 或用户名查询资料
func (s *Service) handleSearchUser(ctx context.Context, sess *session.Session, _ int64, payload []byte) {
	var req searchReq
	if !s.decode(sess, constants.MsgSearchUserRsp, payload, &req) {
		return
	}

	user, err := s.users.Search(ctx, strings.TrimSpace(string(req.UID)))
	if err != nil {
		s.reply(sess, constants.MsgSearchUserRsp, &errorRsp{Error: constants.WireCode(err)})
		return
	}
	s.reply(sess, constants.MsgSearchUserRsp, &searchRsp{
		Error: constants.ErrSuccess,
		UID:   user.UID,
		Name:  user.Name,
		Email: user.Email,
		Nick:  user.Nick,
		Desc:  user.Desc,
		Sex:   user.Sex,
		Icon:  user.Icon,
	})
}

// handleTextChat 回显消息并投递给接收方
func (s *Service) handleTextChat(ctx context.Context, sess *session.Session, uid int64, payload []byte) {
	var req textChatReq
	if !s.decode(sess, constants.MsgTextChatRsp, payload, &req) {
		return
	}
	if req.FromUID != 0 && req.FromUID != uid {
		s.logger.Warnf("ChatService: session %s of uid %d sent text as %d, using bound uid", sess.ID(), uid, req.FromUID)
	}

	err := s.Deliver(ctx, &crossnode.TextChatMsgReq{
		FromUID:  uid,
		ToUID:    req.ToUID,
		TextMsgs: toRPCText(req.TextArray),
	})
	if req.TextArray == nil {
		req.TextArray = []textMsg{}
	}
	s.reply(sess, constants.MsgTextChatRsp, &textChatRsp{
		Error:     constants.WireCode(err),
		FromUID:   uid,
		ToUID:     req.ToUID,
		TextArray: req.TextArray,
	})
}

func (s *Service) handleHeartbeat(_ context.Context, sess *session.Session, _ int64, _ []byte) {
	s.reply(sess, constants.MsgHeartBeatRsp, &errorRsp{Error: constants.ErrSuccess})
}
