package session

import (
	"sync"

	corelog "tieba-chat/internal/core/log"
)

// Registry 本节点 uid -> 会话 的映射
//
// 只有路由消费协程写入；读锁供关闭流程等其它协程做只读快照。
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	logger   corelog.Logger
}

// NewRegistry 创建会话注册表
func NewRegistry(logger corelog.Logger) *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
		logger:   corelog.OrDefault(logger),
	}
}

// Bind 记录 uid 对应的本地会话，已存在时覆盖
func (r *Registry) Bind(uid int64, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.sessions[uid]; ok && old != s {
		r.logger.Warnf("Registry: uid %d rebound from session %s to %s", uid, old.ID(), s.ID())
	}
	r.sessions[uid] = s
	r.logger.Debugf("Registry: bound uid %d to session %s", uid, s.ID())
}

// Unbind 删除 uid 的本地会话
func (r *Registry) Unbind(uid int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, uid)
}

// UnbindIf 仅当 uid 仍映射到 s 时删除，返回是否删除
//
// 旧连接断开时，uid 可能已被新会话重新绑定，此时不能删除。
func (r *Registry) UnbindIf(uid int64, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[uid]; ok && cur == s {
		delete(r.sessions, uid)
		return true
	}
	return false
}

// LocalConnection 查找 uid 在本节点的会话
func (r *Registry) LocalConnection(uid int64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[uid]
	return s, ok
}

// Len 已绑定会话数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot 返回当前所有绑定
func (r *Registry) Snapshot() map[int64]*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int64]*Session, len(r.sessions))
	for uid, s := range r.sessions {
		out[uid] = s
	}
	return out
}
