package storage

import (
	"context"
	"fmt"

	coreerrors "tieba-chat/internal/core/errors"
)

// Type 存储类型
type Type string

const (
	TypeMemory Type = "memory"
	TypeRedis  Type = "redis"
)

// Builder 具体实现的构造函数，由 app 层注册，避免本包依赖实现包
type Builder func(ctx context.Context) (Storage, error)

// Factory 按类型创建存储
type Factory struct {
	builders map[Type]Builder
}

// NewFactory 创建存储工厂
func NewFactory() *Factory {
	return &Factory{builders: make(map[Type]Builder)}
}

// Register 注册某种类型的构造函数
func (f *Factory) Register(t Type, b Builder) {
	f.builders[t] = b
}

// Create 创建存储
func (f *Factory) Create(ctx context.Context, t Type) (Storage, error) {
	b, ok := f.builders[t]
	if !ok {
		return nil, coreerrors.Newf(coreerrors.CodeConfigError, "unsupported storage type: %s", t)
	}
	s, err := b(ctx)
	if err != nil {
		return nil, fmt.Errorf("create %s storage: %w", t, err)
	}
	return s, nil
}
