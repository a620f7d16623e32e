package chatserver

import (
	"context"
	"fmt"
	"io"

	"tieba-chat/internal/broker"
	"tieba-chat/internal/config/schema"
	corelog "tieba-chat/internal/core/log"
	"tieba-chat/internal/core/storage"
	"tieba-chat/internal/dao"
)

// ============================================================================
// ServerBuilder - 节点构建器
// ============================================================================

// ServerBuilder 节点构建器
// 使用 Builder 模式组装节点，测试可以注入存储、仓库与消息代理
type ServerBuilder struct {
	config     *schema.Root
	components []Component
	deps       *Dependencies
}

// NewServerBuilder 创建节点构建器
func NewServerBuilder(config *schema.Root) *ServerBuilder {
	return &ServerBuilder{
		config:     config,
		components: make([]Component, 0),
		deps:       &Dependencies{Config: config},
	}
}

// With 添加组件
func (b *ServerBuilder) With(c Component) *ServerBuilder {
	b.components = append(b.components, c)
	return b
}

// WithDefaults 添加默认组件（按依赖顺序）
//
// 停止时按逆序执行：先关接入层与 RPC，再排空路由器，最后释放存储。
func (b *ServerBuilder) WithDefaults() *ServerBuilder {
	return b.
		With(&StorageComponent{}).
		With(&DatabaseComponent{}).
		With(&PresenceComponent{}).
		With(&ChatComponent{}).
		With(&RPCComponent{}).
		With(&BrokerComponent{}).
		With(&TransportComponent{})
}

// WithLogger 使用指定 Logger，不再按配置创建
func (b *ServerBuilder) WithLogger(l corelog.Logger) *ServerBuilder {
	b.deps.Logger = l
	return b
}

// WithStorage 注入共享存储
func (b *ServerBuilder) WithStorage(s storage.Storage) *ServerBuilder {
	b.deps.Storage = s
	return b
}

// WithRepository 注入关系型仓库
func (b *ServerBuilder) WithRepository(r dao.Repository) *ServerBuilder {
	b.deps.Repository = r
	return b
}

// WithBroker 注入消息代理
func (b *ServerBuilder) WithBroker(mb broker.MessageBroker) *ServerBuilder {
	b.deps.Broker = mb
	return b
}

// Build 构建节点
// 按顺序初始化所有组件，任何组件失败都会释放已初始化的组件并返回错误
//
// 组件使用的 ctx 不随 parentCtx 取消，节点只通过 Stop 按顺序关闭。
func (b *ServerBuilder) Build(parentCtx context.Context) (*Server, error) {
	var logCloser io.Closer
	if b.deps.Logger == nil {
		closer, err := corelog.Init(corelog.Config{
			Level:  b.config.Log.Level,
			Format: b.config.Log.Format,
			File:   b.config.Log.File,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		logCloser = closer
		b.deps.Logger = corelog.Default()
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(parentCtx))
	server := &Server{
		config:    b.config,
		deps:      b.deps,
		logger:    b.deps.Logger,
		logCloser: logCloser,
		cancel:    cancel,
	}

	for _, c := range b.components {
		b.deps.Logger.Debugf("Initializing component: %s", c.Name())
		if err := c.Initialize(ctx, b.deps); err != nil {
			// 只停止已经初始化成功的组件
			_ = server.Stop()
			return nil, NewComponentError(c.Name(), err)
		}
		server.components = append(server.components, c)
		b.deps.Logger.Debugf("Component initialized: %s", c.Name())
	}

	return server, nil
}
