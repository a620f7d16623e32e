// Package dispatch 节点内的消息路由：多生产者投递，单消费者按提交顺序执行处理器
package dispatch

import (
	"context"

	"tieba-chat/internal/constants"
	"tieba-chat/internal/session"
)

// Envelope 一条待处理的消息，投递后只被消费一次
//
// Session 为空表示节点内部消息（跨节点通知、会话关闭等）。
type Envelope struct {
	Session *session.Session
	MsgID   constants.MsgID
	Payload []byte
}

// NewEnvelope 创建消息
func NewEnvelope(sess *session.Session, msgID constants.MsgID, payload []byte) *Envelope {
	return &Envelope{Session: sess, MsgID: msgID, Payload: payload}
}

// Handler 消息处理器，在路由消费协程中串行执行
type Handler func(ctx context.Context, env *Envelope)

// Submitter 投递端接口，传输层与跨节点服务只依赖它
type Submitter interface {
	Submit(env *Envelope) error
}
