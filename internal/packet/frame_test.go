package packet

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tieba-chat/internal/constants"
	coreerrors "tieba-chat/internal/core/errors"
)

func TestEncode_Layout(t *testing.T) {
	buf, err := Encode(constants.MsgChatLoginReq, []byte(`{"uid":1}`))
	require.NoError(t, err)

	require.Len(t, buf, 8+9)
	assert.Equal(t, uint32(4+9), binary.BigEndian.Uint32(buf[0:4]))
	assert.Equal(t, uint16(1005), binary.BigEndian.Uint16(buf[4:6]))
	assert.Equal(t, uint16(9), binary.BigEndian.Uint16(buf[6:8]))
	assert.Equal(t, `{"uid":1}`, string(buf[8:]))
}

func TestReadFrame_Stream(t *testing.T) {
	var stream bytes.Buffer
	require.NoError(t, WriteFrame(&stream, constants.MsgHeartBeatReq, []byte(`{"fromuid":3}`)))
	require.NoError(t, WriteFrame(&stream, constants.MsgTextChatReq, nil))

	f, err := ReadFrame(&stream, 0)
	require.NoError(t, err)
	assert.Equal(t, constants.MsgHeartBeatReq, f.MsgID)
	assert.Equal(t, `{"fromuid":3}`, string(f.Payload))

	f, err = ReadFrame(&stream, 0)
	require.NoError(t, err)
	assert.Equal(t, constants.MsgTextChatReq, f.MsgID)
	assert.Empty(t, f.Payload)

	_, err = ReadFrame(&stream, 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrame_Invalid(t *testing.T) {
	t.Run("length mismatch", func(t *testing.T) {
		buf, _ := Encode(constants.MsgChatLoginReq, []byte("abc"))
		binary.BigEndian.PutUint32(buf[0:4], 10)
		_, err := ReadFrame(bytes.NewReader(buf), 0)
		assert.True(t, coreerrors.IsCode(err, coreerrors.CodeInvalidPacket))
	})

	t.Run("over limit", func(t *testing.T) {
		buf, _ := Encode(constants.MsgChatLoginReq, bytes.Repeat([]byte("a"), 100))
		_, err := ReadFrame(bytes.NewReader(buf), 50)
		assert.True(t, coreerrors.IsCode(err, coreerrors.CodeInvalidPacket))
	})

	t.Run("truncated", func(t *testing.T) {
		buf, _ := Encode(constants.MsgChatLoginReq, []byte("abcdef"))
		_, err := ReadFrame(bytes.NewReader(buf[:10]), 0)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("oversized encode", func(t *testing.T) {
		_, err := Encode(constants.MsgChatLoginReq, make([]byte, MaxPayloadSize+1))
		assert.Error(t, err)
	})
}
