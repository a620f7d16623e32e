package chat

import (
	"bytes"
	"encoding/json"

	"tieba-chat/internal/constants"
	"tieba-chat/internal/crossnode"
	"tieba-chat/internal/dao"
)

// looseString 兼容字符串或数字形式的字段
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

type errorRsp struct {
	Error constants.ErrorCode `json:"error"`
}

type loginReq struct {
	UID   int64  `json:"uid"`
	Token string `json:"token"`
}

type loginRsp struct {
	Error      constants.ErrorCode `json:"error"`
	UID        int64               `json:"uid,omitempty"`
	Pwd        string              `json:"pwd,omitempty"`
	Name       string              `json:"name,omitempty"`
	Email      string              `json:"email,omitempty"`
	Nick       string              `json:"nick,omitempty"`
	Desc       string              `json:"desc,omitempty"`
	Sex        int                 `json:"sex,omitempty"`
	Icon       string              `json:"icon,omitempty"`
	ApplyList  []*dao.ApplyInfo    `json:"apply_list,omitempty"`
	FriendList []*dao.User         `json:"friend_list,omitempty"`
}

type searchReq struct {
	UID looseString `json:"uid"`
}

type searchRsp struct {
	Error constants.ErrorCode `json:"error"`
	UID   int64               `json:"uid,omitempty"`
	Name  string              `json:"name,omitempty"`
	Email string              `json:"email,omitempty"`
	Nick  string              `json:"nick,omitempty"`
	Desc  string              `json:"desc,omitempty"`
	Sex   int                 `json:"sex,omitempty"`
	Icon  string              `json:"icon,omitempty"`
}

type addFriendReq struct {
	UID       int64  `json:"uid"`
	ApplyName string `json:"applyname"`
	BakName   string `json:"bakname"`
	ToUID     int64  `json:"touid"`
}

type addFriendNotify struct {
	Error    constants.ErrorCode `json:"error"`
	ApplyUID int64               `json:"applyuid"`
	Name     string              `json:"name"`
	Desc     string              `json:"desc"`
	Icon     string              `json:"icon"`
	Sex      int                 `json:"sex"`
	Nick     string              `json:"nick"`
}

type authFriendReq struct {
	FromUID int64  `json:"fromuid"`
	ToUID   int64  `json:"touid"`
	Back    string `json:"back"`
}

type authFriendRsp struct {
	Error constants.ErrorCode `json:"error"`
	UID   int64               `json:"uid,omitempty"`
	Name  string              `json:"name,omitempty"`
	Nick  string              `json:"nick,omitempty"`
	Icon  string              `json:"icon,omitempty"`
	Sex   int                 `json:"sex,omitempty"`
}

type authFriendNotify struct {
	Error   constants.ErrorCode `json:"error"`
	FromUID int64               `json:"fromuid"`
	ToUID   int64               `json:"touid"`
	Name    string              `json:"name,omitempty"`
	Nick    string              `json:"nick,omitempty"`
	Icon    string              `json:"icon,omitempty"`
	Sex     int                 `json:"sex,omitempty"`
}

type textMsg struct {
	MsgID   string `json:"msgid"`
	Content string `json:"content"`
}

type textChatReq struct {
	FromUID   int64     `json:"fromuid"`
	ToUID     int64     `json:"touid"`
	TextArray []textMsg `json:"text_array"`
}

// textChatRsp 同时用作 1018 响应与 1019 通知
type textChatRsp struct {
	Error     constants.ErrorCode `json:"error"`
	FromUID   int64               `json:"fromuid"`
	ToUID     int64               `json:"touid"`
	TextArray []textMsg           `json:"text_array"`
}

type offlineNotify struct {
	Error constants.ErrorCode `json:"error"`
	UID   int64               `json:"uid"`
}

func toRPCText(msgs []textMsg) []crossnode.TextChatData {
	out := make([]crossnode.TextChatData, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, crossnode.TextChatData{MsgID: m.MsgID, MsgContent: m.Content})
	}
	return out
}

func fromRPCText(msgs []crossnode.TextChatData) []textMsg {
	out := make([]textMsg, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, textMsg{MsgID: m.MsgID, Content: m.MsgContent})
	}
	return out
}
