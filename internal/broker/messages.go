package broker

import (
	"context"
	"encoding/json"
	"time"

	coreerrors "tieba-chat/internal/core/errors"
)

// NodeOnlineMessage 节点上线消息
type NodeOnlineMessage struct {
	Node       string `json:"node"`
	RPCAddress string `json:"rpc_address"`
	Timestamp  int64  `json:"timestamp"`
}

// NodeShutdownMessage 节点下线消息
type NodeShutdownMessage struct {
	Node      string `json:"node"`
	Timestamp int64  `json:"timestamp"`
}

// PublishJSON 序列化后发布
func PublishJSON(ctx context.Context, b MessageBroker, topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeInternal, "marshal %s message", topic)
	}
	return b.Publish(ctx, topic, data)
}

// Decode 反序列化消息体
func Decode[T any](msg *Message) (*T, error) {
	var v T
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return nil, coreerrors.Wrapf(err, coreerrors.CodeInvalidPacket, "decode %s message", msg.Topic)
	}
	return &v, nil
}

// NewNodeOnline 构造上线消息
func NewNodeOnline(node, rpcAddr string) NodeOnlineMessage {
	return NodeOnlineMessage{Node: node, RPCAddress: rpcAddr, Timestamp: time.Now().Unix()}
}

// NewNodeShutdown 构造下线消息
func NewNodeShutdown(node string) NodeShutdownMessage {
	return NodeShutdownMessage{Node: node, Timestamp: time.Now().Unix()}
}
