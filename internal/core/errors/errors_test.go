package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without cause",
			err:      New(CodeUserNotFound, "uid 42 not found"),
			expected: "[USER_NOT_FOUND] uid 42 not found",
		},
		{
			name:     "with cause",
			err:      Wrap(errors.New("dial tcp: refused"), CodeStorageError, "failed to get token"),
			expected: "[STORAGE_ERROR] failed to get token: dial tcp: refused",
		},
		{
			name:     "formatted message",
			err:      Newf(CodeLockTimeout, "lock %s not acquired in %s", "lock_42", "5s"),
			expected: "[LOCK_TIMEOUT] lock lock_42 not acquired in 5s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := Newf(CodeInvalidToken, "token mismatch for uid %d", 42)

	assert.True(t, errors.Is(err, ErrInvalidToken))
	assert.False(t, errors.Is(err, ErrStorageError))

	wrapped := fmt.Errorf("login: %w", err)
	assert.True(t, errors.Is(wrapped, ErrInvalidToken))
	assert.Equal(t, CodeInvalidToken, GetCode(wrapped))
}

func TestError_StorageAndBusinessAreDistinct(t *testing.T) {
	storeErr := Wrap(errors.New("connection reset"), CodeStorageError, "get utoken_42")

	assert.True(t, IsCode(storeErr, CodeStorageError))
	assert.False(t, errors.Is(storeErr, ErrInvalidToken))
	assert.False(t, errors.Is(storeErr, ErrAuthFailed))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("original error")
	wrapped := Wrap(cause, CodeInternal, "wrapped")
	assert.Same(t, cause, errors.Unwrap(wrapped))
}

func TestGetCode_PlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, GetCode(errors.New("plain")))
}

func TestError_WithDetail(t *testing.T) {
	err := New(CodeInvalidParam, "bad uid").WithDetail("uid", "abc")
	assert.Equal(t, "abc", err.Details["uid"])
}
