package dao

import (
	"context"
	"sort"
	"sync"

	coreerrors "tieba-chat/internal/core/errors"
)

type friendKey struct{ self, friend int64 }

type applyRow struct {
	seq    int64
	from   int64
	to     int64
	status ApplyStatus
}

// MemoryRepository 单节点开发与测试使用的内存仓库
type MemoryRepository struct {
	mu      sync.RWMutex
	users   map[int64]*User
	applies map[friendKey]*applyRow
	friends map[friendKey]string
	seq     int64
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository 创建内存仓库
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:   make(map[int64]*User),
		applies: make(map[friendKey]*applyRow),
		friends: make(map[friendKey]string),
	}
}

// PutUser 写入用户
func (m *MemoryRepository) PutUser(u *User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.UID] = &cp
}

func (m *MemoryRepository) GetUser(_ context.Context, uid int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[uid]
	if !ok {
		return nil, coreerrors.Newf(coreerrors.CodeUserNotFound, "user %d not found", uid)
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) GetUserByName(_ context.Context, name string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Name == name {
			cp := *u
			return &cp, nil
		}
	}
	return nil, coreerrors.Newf(coreerrors.CodeUserNotFound, "user %q not found", name)
}

func (m *MemoryRepository) AddFriendApply(_ context.Context, fromUID, toUID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := friendKey{fromUID, toUID}
	if row, ok := m.applies[key]; ok {
		row.status = ApplyPending
		return nil
	}
	m.seq++
	m.applies[key] = &applyRow{seq: m.seq, from: fromUID, to: toUID, status: ApplyPending}
	return nil
}

func (m *MemoryRepository) AuthFriendApply(_ context.Context, selfUID, applicantUID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if row, ok := m.applies[friendKey{applicantUID, selfUID}]; ok {
		row.status = ApplyApproved
	}
	return nil
}

func (m *MemoryRepository) AddFriend(_ context.Context, selfUID, friendUID int64, back string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.friends[friendKey{selfUID, friendUID}] = back
	if _, ok := m.friends[friendKey{friendUID, selfUID}]; !ok {
		m.friends[friendKey{friendUID, selfUID}] = ""
	}
	return nil
}

func (m *MemoryRepository) GetApplyList(_ context.Context, toUID int64, offset, limit int) ([]*ApplyInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []*applyRow
	for _, row := range m.applies {
		if row.to == toUID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	list := make([]*ApplyInfo, 0, len(rows))
	for _, row := range rows {
		info := &ApplyInfo{UID: row.from, Status: row.status}
		if u, ok := m.users[row.from]; ok {
			info.Name, info.Desc, info.Icon, info.Nick, info.Sex = u.Name, u.Desc, u.Icon, u.Nick, u.Sex
		}
		list = append(list, info)
	}
	return list, nil
}

func (m *MemoryRepository) GetFriendList(_ context.Context, selfUID int64) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []*User
	for key, back := range m.friends {
		if key.self != selfUID {
			continue
		}
		u, ok := m.users[key.friend]
		if !ok {
			continue
		}
		cp := *u
		cp.Back = back
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UID < list[j].UID })
	return list, nil
}

// Close 内存仓库无需释放
func (m *MemoryRepository) Close() error { return nil }
