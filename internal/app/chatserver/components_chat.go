package chatserver

import (
	"context"
	"fmt"

	"tieba-chat/internal/chat"
	"tieba-chat/internal/crossnode"
	"tieba-chat/internal/dispatch"
	"tieba-chat/internal/session"
)

// ChatComponent 路由器、本地会话表、跨节点通知客户端与聊天业务
type ChatComponent struct {
	ctx  context.Context
	deps *Dependencies
}

func (c *ChatComponent) Name() string {
	return "Chat"
}

func (c *ChatComponent) Initialize(ctx context.Context, deps *Dependencies) error {
	if deps.Directory == nil || deps.Locks == nil || deps.Users == nil {
		return fmt.Errorf("presence is required")
	}
	c.ctx = ctx
	c.deps = deps
	cfg := deps.Config

	peers := make(map[string]string, len(cfg.Peers))
	for _, p := range cfg.Peers {
		peers[p.Name] = p.Address
	}
	notifier, err := crossnode.NewClient(ctx, crossnode.ClientConfig{
		Peers:    peers,
		MaxConns: cfg.RPC.MaxConns,
		Timeout:  cfg.RPC.Timeout,
	}, deps.Logger)
	if err != nil {
		return fmt.Errorf("failed to create notifier client: %w", err)
	}
	deps.Notifier = notifier

	deps.Registry = session.NewRegistry(deps.Logger)
	deps.Router = dispatch.NewRouter(deps.Logger)
	deps.Chat = chat.NewService(chat.Config{
		NodeName:           cfg.Node.Name,
		LockHoldTTL:        cfg.Lock.HoldTTL,
		LockAcquireTimeout: cfg.Lock.AcquireTimeout,
		ApplyPageSize:      cfg.Database.ApplyPageSize,
		RPCTimeout:         cfg.RPC.Timeout,
	}, chat.Deps{
		Registry:  deps.Registry,
		Directory: deps.Directory,
		Locks:     deps.Locks,
		Users:     deps.Users,
		Notifier:  notifier,
		Logger:    deps.Logger,
	})
	if err := deps.Chat.Register(deps.Router); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}

	deps.Logger.Infof("Chat initialized: node=%s, %d static peers", cfg.Node.Name, len(peers))
	return nil
}

func (c *ChatComponent) Start() error {
	// 新进程没有任何会话，清掉上次运行遗留的登录计数
	if err := c.deps.Directory.ResetLoginCount(c.ctx, c.deps.Config.Node.Name); err != nil {
		c.deps.Logger.Warnf("Chat: reset login count: %v", err)
	}
	return c.deps.Router.Start(c.ctx)
}

// Stop 排空路由器后撤销本节点全部在线记录
//
// 调用前接入层与 RPC 服务必须已经停止，路由器排空时会处理它们提交的会话结束消息。
func (c *ChatComponent) Stop() error {
	if c.deps == nil || c.deps.Router == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), shutdownTimeout)
	defer cancel()

	err := drainAndRelease(ctx, c.deps)
	c.deps.Chat.Wait()

	if cerr := c.deps.Notifier.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// drainAndRelease 排空路由器后撤销本地在线记录
//
// 排空超时说明消费协程仍在执行处理器，本地会话表不能再有第二个写者，
// 此时跳过撤销，残留的在线记录交给 cleanup 命令处理。
func drainAndRelease(ctx context.Context, deps *Dependencies) error {
	if err := deps.Router.Stop(ctx); err != nil {
		deps.Logger.Warnf("Chat: router did not drain, presence of node %s left for cleanup: %v", deps.Config.Node.Name, err)
		return err
	}
	deps.Chat.ReleaseAll(ctx)
	return nil
}
