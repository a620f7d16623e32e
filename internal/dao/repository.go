package dao

import "context"

// Repository 关系型数据访问
//
// 查不到用户返回 USER_NOT_FOUND，数据库故障返回 STORAGE_ERROR。
type Repository interface {
	GetUser(ctx context.Context, uid int64) (*User, error)
	GetUserByName(ctx context.Context, name string) (*User, error)

	// AddFriendApply 记录 from 向 to 发起的申请，重复申请重置为待处理
	AddFriendApply(ctx context.Context, fromUID, toUID int64) error
	// AuthFriendApply self 同意 applicant 的申请
	AuthFriendApply(ctx context.Context, selfUID, applicantUID int64) error
	// AddFriend 建立双向好友关系，back 为 self 给 friend 的备注
	AddFriend(ctx context.Context, selfUID, friendUID int64, back string) error

	GetApplyList(ctx context.Context, toUID int64, offset, limit int) ([]*ApplyInfo, error)
	GetFriendList(ctx context.Context, selfUID int64) ([]*User, error)

	Close() error
}
