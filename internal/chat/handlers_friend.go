package chat

import (
	"context"

	"tieba-chat/internal/constants"
	"tieba-chat/internal/crossnode"
	"tieba-chat/internal/session"
)

// handleAddFriend 记录好友申请并通知对方
func (s *Service) handleAddFriend(ctx context.Context, sess *session.Session, uid int64, payload []byte) {
	var req addFriendReq
	if !s.decode(sess, constants.MsgAddFriendRsp, payload, &req) {
		return
	}
	if req.UID != 0 && req.UID != uid {
		s.logger.Warnf("ChatService: session %s of uid %d applied as %d, using bound uid", sess.ID(), uid, req.UID)
	}

	if err := s.repo.AddFriendApply(ctx, uid, req.ToUID); err != nil {
		s.logger.Errorf("ChatService: add friend apply %d -> %d: %v", uid, req.ToUID, err)
		s.reply(sess, constants.MsgAddFriendRsp, &errorRsp{Error: constants.WireCode(err)})
		return
	}

	notify := &crossnode.AddFriendReq{ApplyUID: uid, Name: req.ApplyName, ToUID: req.ToUID}
	if applicant, err := s.users.ByUID(ctx, uid); err == nil {
		notify.Desc, notify.Icon, notify.Nick, notify.Sex = applicant.Desc, applicant.Icon, applicant.Nick, applicant.Sex
		if notify.Name == "" {
			notify.Name = applicant.Name
		}
	} else {
		s.logger.Warnf("ChatService: load applicant %d: %v", uid, err)
	}

	err := s.Deliver(ctx, notify)
	s.reply(sess, constants.MsgAddFriendRsp, &errorRsp{Error: constants.WireCode(err)})
}

// handleAuthFriend 同意好友申请，建立好友关系并通知申请人
func (s *Service) handleAuthFriend(ctx context.Context, sess *session.Session, uid int64, payload []byte) {
	var req authFriendReq
	if !s.decode(sess, constants.MsgAuthFriendRsp, payload, &req) {
		return
	}
	if req.FromUID != 0 && req.FromUID != uid {
		s.logger.Warnf("ChatService: session %s of uid %d authorized as %d, using bound uid", sess.ID(), uid, req.FromUID)
	}

	applicant, err := s.users.ByUID(ctx, req.ToUID)
	if err != nil {
		s.reply(sess, constants.MsgAuthFriendRsp, &errorRsp{Error: constants.WireCode(err)})
		return
	}

	if err := s.repo.AuthFriendApply(ctx, uid, req.ToUID); err != nil {
		s.logger.Errorf("ChatService: auth friend apply %d <- %d: %v", uid, req.ToUID, err)
		s.reply(sess, constants.MsgAuthFriendRsp, &errorRsp{Error: constants.WireCode(err)})
		return
	}
	if err := s.repo.AddFriend(ctx, uid, req.ToUID, req.Back); err != nil {
		s.logger.Errorf("ChatService: add friend %d <-> %d: %v", uid, req.ToUID, err)
		s.reply(sess, constants.MsgAuthFriendRsp, &errorRsp{Error: constants.WireCode(err)})
		return
	}

	err = s.Deliver(ctx, &crossnode.AuthFriendReq{FromUID: uid, ToUID: req.ToUID})
	s.reply(sess, constants.MsgAuthFriendRsp, &authFriendRsp{
		Error: constants.WireCode(err),
		UID:   applicant.UID,
		Name:  applicant.Name,
		Nick:  applicant.Nick,
		Icon:  applicant.Icon,
		Sex:   applicant.Sex,
	})
}
