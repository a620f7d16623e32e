// Package packet 客户端与节点之间的帧编解码
//
// 帧格式（大端）：
//
//	[u32 total_length][u16 msg_id][u16 payload_length][payload ...]
//
// total_length 为其后所有字节数，即 4 + payload_length。
package packet

import (
	"encoding/binary"
	"io"
	"math"

	"tieba-chat/internal/constants"
	coreerrors "tieba-chat/internal/core/errors"
)

const (
	// TotalLengthSize 总长度字段字节数
	TotalLengthSize = 4
	// HeaderSize msg_id 与 payload_length 两个字段的字节数
	HeaderSize = 4
	// MaxPayloadSize payload_length 字段可表示的最大值
	MaxPayloadSize = math.MaxUint16
)

// Frame 一个完整的协议帧
type Frame struct {
	MsgID   constants.MsgID
	Payload []byte
}

// Encode 编码帧
func Encode(msgID constants.MsgID, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, coreerrors.Newf(coreerrors.CodeInvalidPacket, "payload too large: %d", len(payload))
	}

	buf := make([]byte, TotalLengthSize+HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(HeaderSize+len(payload)))
	binary.BigEndian.PutUint16(buf[4:6], uint16(msgID))
	binary.BigEndian.PutUint16(buf[6:8], uint16(len(payload)))
	copy(buf[8:], payload)
	return buf, nil
}

// WriteFrame 编码并写出一帧
func WriteFrame(w io.Writer, msgID constants.MsgID, payload []byte) error {
	buf, err := Encode(msgID, payload)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// ReadFrame 读取一帧，maxPayload <= 0 时只受字段宽度限制
//
// 读到帧边界处的 EOF 原样返回 io.EOF；帧中途断开返回 io.ErrUnexpectedEOF。
func ReadFrame(r io.Reader, maxPayload int) (*Frame, error) {
	var lenBuf [TotalLengthSize]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	total := binary.BigEndian.Uint32(lenBuf[:])
	if total < HeaderSize || total > HeaderSize+MaxPayloadSize {
		return nil, coreerrors.Newf(coreerrors.CodeInvalidPacket, "invalid total length: %d", total)
	}

	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, unexpected(err)
	}
	msgID := constants.MsgID(binary.BigEndian.Uint16(header[0:2]))
	payloadLen := int(binary.BigEndian.Uint16(header[2:4]))

	if uint32(payloadLen)+HeaderSize != total {
		return nil, coreerrors.Newf(coreerrors.CodeInvalidPacket,
			"length mismatch: total %d, payload %d", total, payloadLen)
	}
	if maxPayload > 0 && payloadLen > maxPayload {
		return nil, coreerrors.Newf(coreerrors.CodeInvalidPacket,
			"payload %d exceeds limit %d", payloadLen, maxPayload)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, unexpected(err)
	}
	return &Frame{MsgID: msgID, Payload: payload}, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
