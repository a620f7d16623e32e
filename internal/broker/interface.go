// Package broker 节点间的发布订阅，用于广播节点上下线
package broker

import (
	"context"
	"time"
)

// MessageBroker 消息代理接口
type MessageBroker interface {
	// Publish 发布消息到指定主题
	Publish(ctx context.Context, topic string, message []byte) error

	// Subscribe 订阅主题，返回消息通道，代理关闭时通道被关闭
	Subscribe(ctx context.Context, topic string) (<-chan *Message, error)

	// Unsubscribe 取消订阅
	Unsubscribe(ctx context.Context, topic string) error

	// Ping 检查代理是否可用
	Ping(ctx context.Context) error

	// Close 关闭连接
	Close() error
}

// Message 消息结构
type Message struct {
	Topic     string    `json:"topic"`
	Payload   []byte    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	Node      string    `json:"node"` // 发布者节点名
}

// 主题
const (
	TopicNodeOnline   = "node.online"   // 节点上线，携带 RPC 地址
	TopicNodeShutdown = "node.shutdown" // 节点下线
)

// channelPrefix Redis 频道前缀
const channelPrefix = "chat:"

// subscriberBuffer 订阅通道缓冲
const subscriberBuffer = 64
