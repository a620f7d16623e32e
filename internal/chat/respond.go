package chat

import (
	"encoding/json"

	"tieba-chat/internal/constants"
	"tieba-chat/internal/session"
)

// reply 序列化并发送一帧，发送失败只记录日志
func (s *Service) reply(sess *session.Session, msgID constants.MsgID, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Errorf("ChatService: marshal %s failed: %v", msgID, err)
		return
	}
	if err := sess.Send(msgID, body); err != nil {
		s.logger.Debugf("ChatService: send %s to session %s failed: %v", msgID, sess.ID(), err)
	}
}

// notifyOffline 通知旧连接已被新登录顶替，然后关闭它
func (s *Service) notifyOffline(sess *session.Session, uid int64) {
	s.reply(sess, constants.MsgNotifyOffline, &offlineNotify{Error: constants.ErrSuccess, UID: uid})
	if err := sess.Close(); err != nil {
		s.logger.Debugf("ChatService: close superseded session %s: %v", sess.ID(), err)
	}
}
