// Package session 节点本地的会话与会话注册表
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"tieba-chat/internal/constants"
	coreerrors "tieba-chat/internal/core/errors"
)

// Conn 传输层连接，Session 只通过它收发数据
type Conn interface {
	// Send 异步发送一帧，连接已关闭时返回错误
	Send(msgID constants.MsgID, payload []byte) error
	// Close 关闭连接，可重复调用
	Close() error
	// RemoteAddr 对端地址，仅用于日志
	RemoteAddr() string
}

// Session 一条客户端连接的会话状态
//
// 会话创建时未绑定用户，登录成功后绑定且只绑定一次。
type Session struct {
	id        string
	conn      Conn
	createdAt time.Time

	mu    sync.RWMutex
	uid   int64
	bound bool
}

// New 为连接创建会话
func New(conn Conn) *Session {
	return &Session{
		id:        uuid.NewString(),
		conn:      conn,
		createdAt: time.Now(),
	}
}

// ID 会话ID，同时写入共享存储的 usession_ 记录
func (s *Session) ID() string {
	return s.id
}

// Conn 底层连接
func (s *Session) Conn() Conn {
	return s.conn
}

// CreatedAt 创建时间
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// UID 已绑定的用户ID
func (s *Session) UID() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uid, s.bound
}

// IsAuthenticated 是否已登录
func (s *Session) IsAuthenticated() bool {
	_, ok := s.UID()
	return ok
}

// Bind 绑定用户，重复绑定同一用户视为成功
func (s *Session) Bind(uid int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bound {
		if s.uid == uid {
			return nil
		}
		return coreerrors.Wrapf(coreerrors.ErrAlreadyBound, coreerrors.CodeAlreadyBound,
			"session %s bound to %d, refusing %d", s.id, s.uid, uid)
	}
	s.uid = uid
	s.bound = true
	return nil
}

// Send 向客户端发送一帧
func (s *Session) Send(msgID constants.MsgID, payload []byte) error {
	return s.conn.Send(msgID, payload)
}

// Close 关闭底层连接
func (s *Session) Close() error {
	return s.conn.Close()
}
