package broker

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"tieba-chat/internal/core/dispose"
	coreerrors "tieba-chat/internal/core/errors"
	corelog "tieba-chat/internal/core/log"
)

// RedisBrokerConfig Redis Broker 配置
type RedisBrokerConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	PoolSize int    `yaml:"pool_size" json:"pool_size"`
}

// RedisBroker 基于 Redis Pub/Sub 的消息代理
type RedisBroker struct {
	dispose.Dispose
	client      *redis.Client
	pubsub      *redis.PubSub
	subscribers map[string]chan *Message
	mu          sync.RWMutex
	node        string
	logger      corelog.Logger
}

// NewRedisBroker 创建 Redis 消息代理
func NewRedisBroker(parentCtx context.Context, config *RedisBrokerConfig, node string, logger corelog.Logger) (*RedisBroker, error) {
	if config == nil || config.Addr == "" {
		return nil, coreerrors.New(coreerrors.CodeConfigError, "redis broker address is required")
	}
	if config.PoolSize <= 0 {
		config.PoolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(parentCtx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, coreerrors.Wrapf(err, coreerrors.CodeStorageError, "failed to connect to Redis at %s", config.Addr)
	}

	b := &RedisBroker{
		client:      client,
		subscribers: make(map[string]chan *Message),
		node:        node,
		logger:      corelog.OrDefault(logger),
	}
	b.SetCtx(parentCtx, b.onClose)

	b.logger.Infof("RedisBroker initialized for node: %s", node)
	return b, nil
}

func (r *RedisBroker) Publish(ctx context.Context, topic string, message []byte) error {
	if r.IsClosed() {
		return coreerrors.New(coreerrors.CodeServiceClosed, "broker is closed")
	}

	data, err := json.Marshal(&Message{
		Topic:     topic,
		Payload:   message,
		Timestamp: time.Now(),
		Node:      r.node,
	})
	if err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeInternal, "failed to marshal message")
	}

	if err := r.client.Publish(ctx, channelPrefix+topic, data).Err(); err != nil {
		r.logger.Errorf("RedisBroker: failed to publish to %s: %v", topic, err)
		return coreerrors.Wrapf(err, coreerrors.CodeStorageError, "publish %s", topic)
	}
	return nil
}

func (r *RedisBroker) Subscribe(ctx context.Context, topic string) (<-chan *Message, error) {
	if r.IsClosed() {
		return nil, coreerrors.New(coreerrors.CodeServiceClosed, "broker is closed")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.subscribers[topic]; exists {
		return nil, coreerrors.Newf(coreerrors.CodeAlreadyExists, "already subscribed to topic: %s", topic)
	}

	first := r.pubsub == nil
	if first {
		r.pubsub = r.client.Subscribe(r.Ctx())
	}
	if err := r.pubsub.Subscribe(ctx, channelPrefix+topic); err != nil {
		return nil, coreerrors.Wrapf(err, coreerrors.CodeStorageError, "subscribe %s", topic)
	}
	// 首次订阅等待确认，之后发布的消息不会丢失；接收循环启动后由它消费确认
	if first {
		if _, err := r.pubsub.Receive(ctx); err != nil {
			return nil, coreerrors.Wrapf(err, coreerrors.CodeStorageError, "subscribe %s", topic)
		}
	}

	ch := make(chan *Message, subscriberBuffer)
	r.subscribers[topic] = ch
	if first {
		go r.receiveLoop(r.pubsub.Channel())
	}

	r.logger.Infof("RedisBroker: subscribed to topic %s", topic)
	return ch, nil
}

func (r *RedisBroker) receiveLoop(in <-chan *redis.Message) {
	for raw := range in {
		var msg Message
		if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
			r.logger.Warnf("RedisBroker: bad message on %s: %v", raw.Channel, err)
			continue
		}
		if msg.Topic == "" {
			msg.Topic = strings.TrimPrefix(raw.Channel, channelPrefix)
		}

		r.mu.RLock()
		ch, ok := r.subscribers[msg.Topic]
		if ok {
			select {
			case ch <- &msg:
			default:
				r.logger.Warnf("RedisBroker: subscriber channel full for topic %s, dropping message", msg.Topic)
			}
		}
		r.mu.RUnlock()
	}
	r.logger.Debugf("RedisBroker: receive loop stopped")
}

func (r *RedisBroker) Unsubscribe(ctx context.Context, topic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.subscribers[topic]
	if !ok {
		return coreerrors.Newf(coreerrors.CodeNotFound, "not subscribed to topic: %s", topic)
	}
	if r.pubsub != nil {
		if err := r.pubsub.Unsubscribe(ctx, channelPrefix+topic); err != nil {
			r.logger.Warnf("RedisBroker: failed to unsubscribe from Redis: %v", err)
		}
	}
	close(ch)
	delete(r.subscribers, topic)
	return nil
}

func (r *RedisBroker) Ping(ctx context.Context) error {
	if r.IsClosed() {
		return coreerrors.New(coreerrors.CodeServiceClosed, "broker is closed")
	}
	return r.client.Ping(ctx).Err()
}

func (r *RedisBroker) onClose() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pubsub != nil {
		if err := r.pubsub.Close(); err != nil {
			r.logger.Warnf("RedisBroker: failed to close pubsub: %v", err)
		}
	}
	for _, ch := range r.subscribers {
		close(ch)
	}
	r.subscribers = make(map[string]chan *Message)

	r.logger.Infof("RedisBroker closed for node: %s", r.node)
	return r.client.Close()
}
