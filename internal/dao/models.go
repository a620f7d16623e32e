// Package dao 用户、好友申请与好友关系的持久化
package dao

// User 用户资料，Back 仅在好友列表中表示备注名
type User struct {
	UID   int64  `json:"uid"`
	Name  string `json:"name"`
	Pwd   string `json:"pwd"`
	Email string `json:"email"`
	Nick  string `json:"nick"`
	Desc  string `json:"desc"`
	Sex   int    `json:"sex"`
	Icon  string `json:"icon"`
	Back  string `json:"back,omitempty"`
}

// ApplyStatus 好友申请状态
type ApplyStatus int

const (
	ApplyPending  ApplyStatus = 0
	ApplyApproved ApplyStatus = 1
)

// ApplyInfo 收到的好友申请，字段为申请人资料
type ApplyInfo struct {
	UID    int64       `json:"uid"`
	Name   string      `json:"name"`
	Desc   string      `json:"desc"`
	Icon   string      `json:"icon"`
	Nick   string      `json:"nick"`
	Sex    int         `json:"sex"`
	Status ApplyStatus `json:"status"`
}

// DefaultApplyPageSize 登录时返回的申请列表条数
const DefaultApplyPageSize = 10
