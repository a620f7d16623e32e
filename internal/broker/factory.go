package broker

import (
	"context"

	coreerrors "tieba-chat/internal/core/errors"
	corelog "tieba-chat/internal/core/log"
)

// BrokerType 消息代理类型
type BrokerType string

const (
	BrokerTypeMemory BrokerType = "memory"
	BrokerTypeRedis  BrokerType = "redis"
)

// BrokerConfig 消息代理配置
type BrokerConfig struct {
	Type  BrokerType
	Node  string
	Redis *RedisBrokerConfig
}

// NewMessageBroker 创建消息代理
func NewMessageBroker(ctx context.Context, config *BrokerConfig, logger corelog.Logger) (MessageBroker, error) {
	if config == nil {
		return nil, coreerrors.New(coreerrors.CodeConfigError, "broker config is required")
	}

	switch config.Type {
	case BrokerTypeMemory, "":
		return NewMemoryBroker(ctx, config.Node, logger), nil
	case BrokerTypeRedis:
		if config.Redis == nil {
			return nil, coreerrors.New(coreerrors.CodeConfigError, "redis config is required for redis broker")
		}
		return NewRedisBroker(ctx, config.Redis, config.Node, logger)
	default:
		return nil, coreerrors.Newf(coreerrors.CodeConfigError, "unsupported broker type: %s", config.Type)
	}
}
