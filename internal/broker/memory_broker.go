package broker

import (
	"context"
	"sync"
	"time"

	"tieba-chat/internal/core/dispose"
	coreerrors "tieba-chat/internal/core/errors"
	corelog "tieba-chat/internal/core/log"
)

// MemoryBroker 进程内消息代理，单节点部署与测试使用
//
// 多个节点实例共享同一个 MemoryBroker 时，可以在一个进程内模拟集群广播。
type MemoryBroker struct {
	dispose.Dispose
	mu          sync.RWMutex
	subscribers map[string][]chan *Message
	node        string
	logger      corelog.Logger
}

// NewMemoryBroker 创建内存消息代理
func NewMemoryBroker(parentCtx context.Context, node string, logger corelog.Logger) *MemoryBroker {
	b := &MemoryBroker{
		subscribers: make(map[string][]chan *Message),
		node:        node,
		logger:      corelog.OrDefault(logger),
	}
	b.SetCtx(parentCtx, b.onClose)
	return b
}

// ForNode 返回共享订阅表、但以另一个节点名发布的视图
func (m *MemoryBroker) ForNode(node string) MessageBroker {
	return &memoryView{MemoryBroker: m, node: node}
}

func (m *MemoryBroker) Publish(ctx context.Context, topic string, message []byte) error {
	return m.publish(ctx, m.node, topic, message)
}

func (m *MemoryBroker) publish(ctx context.Context, node, topic string, message []byte) error {
	if m.IsClosed() {
		return coreerrors.New(coreerrors.CodeServiceClosed, "broker is closed")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	subscribers := m.subscribers[topic]
	if len(subscribers) == 0 {
		m.logger.Debugf("MemoryBroker: no subscribers for topic %s, message dropped", topic)
		return nil
	}

	msg := &Message{Topic: topic, Payload: message, Timestamp: time.Now(), Node: node}
	for _, ch := range subscribers {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		default:
			m.logger.Warnf("MemoryBroker: subscriber channel full for topic %s, skipping", topic)
		}
	}
	return nil
}

func (m *MemoryBroker) Subscribe(_ context.Context, topic string) (<-chan *Message, error) {
	if m.IsClosed() {
		return nil, coreerrors.New(coreerrors.CodeServiceClosed, "broker is closed")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan *Message, subscriberBuffer)
	m.subscribers[topic] = append(m.subscribers[topic], ch)
	m.logger.Debugf("MemoryBroker: new subscriber for topic %s (total: %d)", topic, len(m.subscribers[topic]))
	return ch, nil
}

func (m *MemoryBroker) Unsubscribe(_ context.Context, topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	subscribers, ok := m.subscribers[topic]
	if !ok {
		return coreerrors.Newf(coreerrors.CodeNotFound, "no subscribers for topic: %s", topic)
	}
	for _, ch := range subscribers {
		close(ch)
	}
	delete(m.subscribers, topic)
	return nil
}

func (m *MemoryBroker) Ping(context.Context) error {
	if m.IsClosed() {
		return coreerrors.New(coreerrors.CodeServiceClosed, "broker is closed")
	}
	return nil
}

func (m *MemoryBroker) onClose() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, subscribers := range m.subscribers {
		for _, ch := range subscribers {
			close(ch)
		}
	}
	m.subscribers = make(map[string][]chan *Message)
	m.logger.Infof("MemoryBroker closed for node: %s", m.node)
	return nil
}

// SubscriberCount 订阅者数量
func (m *MemoryBroker) SubscriberCount(topic string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers[topic])
}

// memoryView 以指定节点名发布；关闭视图不影响共享代理
type memoryView struct {
	*MemoryBroker
	node string
}

func (v *memoryView) Publish(ctx context.Context, topic string, message []byte) error {
	return v.publish(ctx, v.node, topic, message)
}

func (v *memoryView) Close() error { return nil }
