// Package crossnode 节点间通知：踢人、好友申请、好友认证与文本消息
package crossnode

const serviceName = "chat.ChatService"

// 完整方法名
const (
	MethodKickUser    = "/" + serviceName + "/NotifyKickUser"
	MethodAddFriend   = "/" + serviceName + "/NotifyAddFriend"
	MethodAuthFriend  = "/" + serviceName + "/NotifyAuthFriend"
	MethodTextChatMsg = "/" + serviceName + "/NotifyTextChatMsg"
)

// Notification 发往其他节点的通知
type Notification interface {
	// TargetUID 接收方用户
	TargetUID() int64
	// Method 对应的 gRPC 方法
	Method() string

	newResponse() Response
}

// Response 对端的应答，Code 非零表示对端处理失败
type Response interface {
	Code() int
}

// KickUserReq 通知对端踢掉 uid 的旧会话
//
// SessionID 非空时只踢该会话，避免延迟到达的请求误踢之后的新登录。
type KickUserReq struct {
	UID       int64  `json:"uid"`
	SessionID string `json:"session_id,omitempty"`
}

type KickUserRsp struct {
	Error int   `json:"error"`
	UID   int64 `json:"uid"`
}

// AddFriendReq 好友申请通知，字段为申请人资料
type AddFriendReq struct {
	ApplyUID int64  `json:"applyuid"`
	Name     string `json:"name"`
	Desc     string `json:"desc"`
	Icon     string `json:"icon"`
	Nick     string `json:"nick"`
	Sex      int    `json:"sex"`
	ToUID    int64  `json:"touid"`
}

type AddFriendRsp struct {
	Error    int   `json:"error"`
	ApplyUID int64 `json:"applyuid"`
	ToUID    int64 `json:"touid"`
}

// AuthFriendReq 好友认证通过通知
type AuthFriendReq struct {
	FromUID int64 `json:"fromuid"`
	ToUID   int64 `json:"touid"`
}

type AuthFriendRsp struct {
	Error   int   `json:"error"`
	FromUID int64 `json:"fromuid"`
	ToUID   int64 `json:"touid"`
}

// TextChatData 一条文本消息
type TextChatData struct {
	MsgID      string `json:"msgid"`
	MsgContent string `json:"msgcontent"`
}

// TextChatMsgReq 文本消息通知
type TextChatMsgReq struct {
	FromUID  int64          `json:"fromuid"`
	ToUID    int64          `json:"touid"`
	TextMsgs []TextChatData `json:"textmsgs"`
}

type TextChatMsgRsp struct {
	Error    int            `json:"error"`
	FromUID  int64          `json:"fromuid"`
	ToUID    int64          `json:"touid"`
	TextMsgs []TextChatData `json:"textmsgs"`
}

func (r *KickUserReq) TargetUID() int64 { return r.UID }
func (r *KickUserReq) Method() string   { return MethodKickUser }
func (r *KickUserReq) newResponse() Response {
	return &KickUserRsp{}
}

func (r *AddFriendReq) TargetUID() int64 { return r.ToUID }
func (r *AddFriendReq) Method() string   { return MethodAddFriend }
func (r *AddFriendReq) newResponse() Response {
	return &AddFriendRsp{}
}

func (r *AuthFriendReq) TargetUID() int64 { return r.ToUID }
func (r *AuthFriendReq) Method() string   { return MethodAuthFriend }
func (r *AuthFriendReq) newResponse() Response {
	return &AuthFriendRsp{}
}

func (r *TextChatMsgReq) TargetUID() int64 { return r.ToUID }
func (r *TextChatMsgReq) Method() string   { return MethodTextChatMsg }
func (r *TextChatMsgReq) newResponse() Response {
	return &TextChatMsgRsp{}
}

func (r *KickUserRsp) Code() int    { return r.Error }
func (r *AddFriendRsp) Code() int   { return r.Error }
func (r *AuthFriendRsp) Code() int  { return r.Error }
func (r *TextChatMsgRsp) Code() int { return r.Error }
