package errors

// 预定义哨兵错误（用于 errors.Is 比较）
var (
	ErrAuthFailed    = New(CodeAuthFailed, "authentication failed")
	ErrInvalidToken  = New(CodeInvalidToken, "invalid token")
	ErrUnauthorized  = New(CodeUnauthorized, "session not authenticated")
	ErrAlreadyBound  = New(CodeAlreadyBound, "session already bound to another user")
	ErrUserNotFound  = New(CodeUserNotFound, "user not found")
	ErrNotFound      = New(CodeNotFound, "resource not found")
	ErrAlreadyExists = New(CodeAlreadyExists, "resource already exists")

	ErrInvalidParam  = New(CodeInvalidParam, "invalid parameter")
	ErrInvalidPacket = New(CodeInvalidPacket, "invalid packet")

	ErrLockTimeout = New(CodeLockTimeout, "lock acquisition timed out")

	ErrInternal      = New(CodeInternal, "internal error")
	ErrStorageError  = New(CodeStorageError, "storage error")
	ErrNetworkError  = New(CodeNetworkError, "network error")
	ErrTimeout       = New(CodeTimeout, "operation timeout")
	ErrServiceClosed = New(CodeServiceClosed, "service closed")
)
