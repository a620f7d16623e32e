package constants

// MsgID 消息ID，请求为 N，响应为 N+1
type MsgID uint16

// 客户端请求/响应
const (
	MsgChatLoginReq  MsgID = 1005 // 登录
	MsgChatLoginRsp  MsgID = 1006
	MsgSearchUserReq MsgID = 1007 // 搜索用户
	MsgSearchUserRsp MsgID = 1008
	MsgAddFriendReq  MsgID = 1009 // 申请添加好友
	MsgAddFriendRsp  MsgID = 1010
	MsgAuthFriendReq MsgID = 1013 // 认证好友申请
	MsgAuthFriendRsp MsgID = 1014
	MsgTextChatReq   MsgID = 1017 // 文本聊天
	MsgTextChatRsp   MsgID = 1018
	MsgHeartBeatReq  MsgID = 1023 // 心跳
	MsgHeartBeatRsp  MsgID = 1024
)

// 服务端主动下发的通知
const (
	MsgNotifyAddFriend  MsgID = 1011
	MsgNotifyAuthFriend MsgID = 1015
	MsgNotifyTextChat   MsgID = 1019
	MsgNotifyOffline    MsgID = 1021 // 被同账号新登录顶下线
)

// 节点内部消息，只能由本节点投递到路由队列，不接受来自网络的帧
const (
	MsgInternalKickUser   MsgID = 2001
	MsgInternalAddFriend  MsgID = 2002
	MsgInternalAuthFriend MsgID = 2003
	MsgInternalTextChat   MsgID = 2004
	MsgInternalSessionEnd MsgID = 2005

	internalMsgIDMin MsgID = 2000
	internalMsgIDMax MsgID = 2999
)

// IsInternal 是否为节点内部消息
func (id MsgID) IsInternal() bool {
	return id >= internalMsgIDMin && id <= internalMsgIDMax
}

var msgNames = map[MsgID]string{
	MsgChatLoginReq:       "login",
	MsgChatLoginRsp:       "login_rsp",
	MsgSearchUserReq:      "search_user",
	MsgSearchUserRsp:      "search_user_rsp",
	MsgAddFriendReq:       "add_friend",
	MsgAddFriendRsp:       "add_friend_rsp",
	MsgAuthFriendReq:      "auth_friend",
	MsgAuthFriendRsp:      "auth_friend_rsp",
	MsgTextChatReq:        "text_chat",
	MsgTextChatRsp:        "text_chat_rsp",
	MsgHeartBeatReq:       "heartbeat",
	MsgHeartBeatRsp:       "heartbeat_rsp",
	MsgNotifyAddFriend:    "notify_add_friend",
	MsgNotifyAuthFriend:   "notify_auth_friend",
	MsgNotifyTextChat:     "notify_text_chat",
	MsgNotifyOffline:      "notify_offline",
	MsgInternalKickUser:   "internal_kick_user",
	MsgInternalAddFriend:  "internal_add_friend",
	MsgInternalAuthFriend: "internal_auth_friend",
	MsgInternalTextChat:   "internal_text_chat",
	MsgInternalSessionEnd: "internal_session_end",
}

// String 日志中使用的可读名称
func (id MsgID) String() string {
	if name, ok := msgNames[id]; ok {
		return name
	}
	return "unknown"
}
