package constants

import (
	coreerrors "tieba-chat/internal/core/errors"
)

// ErrorCode 响应中 "error" 字段的取值
type ErrorCode int

const (
	ErrSuccess          ErrorCode = 0
	ErrJSON             ErrorCode = 1001 // JSON 解析失败
	ErrRPCFailed        ErrorCode = 1002 // 跨节点调用失败
	ErrTokenInvalid     ErrorCode = 1010 // token 不匹配
	ErrUIDInvalid       ErrorCode = 1011 // token 不存在或用户不存在
	ErrLoginBusy        ErrorCode = 1021 // 获取登录锁超时
	ErrNotAuthenticated ErrorCode = 1022 // 会话未登录
	ErrStoreUnavailable ErrorCode = 1023 // 共享存储或数据库不可用
)

// WireCode 把内部错误映射为协议错误码，nil 映射为成功
func WireCode(err error) ErrorCode {
	if err == nil {
		return ErrSuccess
	}

	switch coreerrors.GetCode(err) {
	case coreerrors.CodeInvalidPacket, coreerrors.CodeInvalidParam:
		return ErrJSON
	case coreerrors.CodeNetworkError, coreerrors.CodeTimeout, coreerrors.CodeServiceClosed:
		return ErrRPCFailed
	case coreerrors.CodeInvalidToken:
		return ErrTokenInvalid
	case coreerrors.CodeAuthFailed, coreerrors.CodeUserNotFound, coreerrors.CodeNotFound:
		return ErrUIDInvalid
	case coreerrors.CodeLockTimeout:
		return ErrLoginBusy
	case coreerrors.CodeUnauthorized, coreerrors.CodeAlreadyBound:
		return ErrNotAuthenticated
	default:
		return ErrStoreUnavailable
	}
}
