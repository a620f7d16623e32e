// Package chatserver 组装并运行一个聊天节点
package chatserver

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"

	"tieba-chat/internal/broker"
	"tieba-chat/internal/chat"
	"tieba-chat/internal/config/schema"
	corelog "tieba-chat/internal/core/log"
	"tieba-chat/internal/core/storage"
	"tieba-chat/internal/crossnode"
	"tieba-chat/internal/dao"
	"tieba-chat/internal/dispatch"
	"tieba-chat/internal/distributed"
	"tieba-chat/internal/presence"
	"tieba-chat/internal/session"
	"tieba-chat/internal/transport"
	"tieba-chat/internal/userinfo"
)

// ============================================================================
// 组件接口定义
// ============================================================================

// Component 节点组件接口
// 每个组件负责自己的初始化、启动和停止逻辑
type Component interface {
	// Name 返回组件名称（用于日志和错误信息）
	Name() string

	// Initialize 初始化组件，注入依赖
	// 返回 error 表示初始化失败，节点应该停止启动
	Initialize(ctx context.Context, deps *Dependencies) error

	// Start 启动组件
	Start() error

	// Stop 停止组件，按初始化的逆序调用
	Stop() error
}

// Runner 需要常驻协程的组件，Run 在 ctx 取消或出错时返回
type Runner interface {
	Run(ctx context.Context) error
}

// Dependencies 依赖容器
// 组件初始化时从这里获取依赖，初始化完成后将自己的产出注入回来
type Dependencies struct {
	Config *schema.Root
	Logger corelog.Logger

	// 基础设施层
	Storage    storage.Storage
	Repository dao.Repository

	// 集群共享状态
	Directory *presence.Directory
	Locks     *distributed.LockManager
	Users     *userinfo.Cache

	// 业务层
	Registry *session.Registry
	Router   *dispatch.Router
	Notifier *crossnode.Client
	Chat     *chat.Service

	// 对外服务
	RPCListener net.Listener
	GRPCServer  *grpc.Server
	Broker      broker.MessageBroker
	Transport   *transport.TCPServer
}

// ============================================================================
// 基础组件实现
// ============================================================================

// BaseComponent 组件基类，提供默认的 Start/Stop 实现
type BaseComponent struct{}

func (BaseComponent) Start() error {
	return nil
}

func (BaseComponent) Stop() error {
	return nil
}

// ============================================================================
// 组件初始化错误
// ============================================================================

// ComponentError 组件初始化错误
type ComponentError struct {
	ComponentName string
	Err           error
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("component %s initialization failed: %v", e.ComponentName, e.Err)
}

func (e *ComponentError) Unwrap() error {
	return e.Err
}

// NewComponentError 创建组件错误
func NewComponentError(name string, err error) *ComponentError {
	return &ComponentError{
		ComponentName: name,
		Err:           err,
	}
}
