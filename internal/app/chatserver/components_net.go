package chatserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"google.golang.org/grpc"

	"tieba-chat/internal/broker"
	coreerrors "tieba-chat/internal/core/errors"
	"tieba-chat/internal/crossnode"
	"tieba-chat/internal/transport"
)

// ============================================================================
// RPCComponent - 跨节点通知服务端
// ============================================================================

// RPCComponent 接收其他节点的通知并转成路由器消息
type RPCComponent struct {
	deps *Dependencies
}

func (c *RPCComponent) Name() string {
	return "RPC"
}

func (c *RPCComponent) Initialize(_ context.Context, deps *Dependencies) error {
	if deps.Router == nil {
		return fmt.Errorf("router is required")
	}
	c.deps = deps

	ln, err := net.Listen("tcp", deps.Config.RPC.Listen)
	if err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeNetworkError, "listen rpc on %s", deps.Config.RPC.Listen)
	}
	deps.RPCListener = ln
	deps.GRPCServer = crossnode.NewGRPCServer(crossnode.NewServer(deps.Router, deps.Logger), deps.Logger)

	deps.Logger.Infof("RPC initialized: listening on %s, advertised as %s", ln.Addr(), c.advertise())
	return nil
}

// advertise 对外公布的 RPC 地址
func (c *RPCComponent) advertise() string {
	if c.deps.Config.RPC.Advertise != "" {
		return c.deps.Config.RPC.Advertise
	}
	return c.deps.RPCListener.Addr().String()
}

func (c *RPCComponent) Start() error {
	return nil
}

// Run 阻塞服务直到 Stop
func (c *RPCComponent) Run(_ context.Context) error {
	err := c.deps.GRPCServer.Serve(c.deps.RPCListener)
	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return coreerrors.Wrap(err, coreerrors.CodeNetworkError, "rpc server")
	}
	return nil
}

func (c *RPCComponent) Stop() error {
	if c.deps == nil || c.deps.GRPCServer == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		c.deps.GRPCServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		c.deps.Logger.Warnf("RPC: graceful stop timed out, forcing")
		c.deps.GRPCServer.Stop()
	}
	// 未进入 Serve 时 GracefulStop 不会关闭监听
	_ = c.deps.RPCListener.Close()
	return nil
}

// ============================================================================
// BrokerComponent - 节点上下线广播
// ============================================================================

// BrokerComponent 发布本节点上下线消息，并据此维护通知客户端的节点地址
type BrokerComponent struct {
	ctx     context.Context
	deps    *Dependencies
	rpcAddr string
	online  <-chan *broker.Message
	offline <-chan *broker.Message
}

func (c *BrokerComponent) Name() string {
	return "Broker"
}

func (c *BrokerComponent) Initialize(ctx context.Context, deps *Dependencies) error {
	if deps.Notifier == nil || deps.RPCListener == nil {
		return fmt.Errorf("notifier and rpc listener are required")
	}
	c.ctx = ctx
	c.deps = deps
	cfg := deps.Config

	c.rpcAddr = cfg.RPC.Advertise
	if c.rpcAddr == "" {
		c.rpcAddr = deps.RPCListener.Addr().String()
	}

	if deps.Broker == nil {
		b, err := broker.NewMessageBroker(ctx, &broker.BrokerConfig{
			Type: broker.BrokerType(cfg.Broker.Type),
			Node: cfg.Node.Name,
			Redis: &broker.RedisBrokerConfig{
				Addr:     cfg.Storage.Redis.Addr,
				Password: cfg.Storage.Redis.Password.Value(),
				DB:       cfg.Storage.Redis.DB,
				PoolSize: cfg.Storage.Redis.PoolSize,
			},
		}, deps.Logger)
		if err != nil {
			return fmt.Errorf("failed to create broker: %w", err)
		}
		deps.Broker = b
	}

	deps.Logger.Infof("Broker initialized: type=%s", cfg.Broker.Type)
	return nil
}

func (c *BrokerComponent) Start() error {
	var err error
	if c.online, err = c.deps.Broker.Subscribe(c.ctx, broker.TopicNodeOnline); err != nil {
		return err
	}
	if c.offline, err = c.deps.Broker.Subscribe(c.ctx, broker.TopicNodeShutdown); err != nil {
		return err
	}
	return c.announce()
}

func (c *BrokerComponent) announce() error {
	msg := broker.NewNodeOnline(c.deps.Config.Node.Name, c.rpcAddr)
	return broker.PublishJSON(c.ctx, c.deps.Broker, broker.TopicNodeOnline, msg)
}

// Run 处理其他节点的上下线消息
func (c *BrokerComponent) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-c.online:
			if !ok {
				return c.closedErr(ctx)
			}
			c.handleOnline(msg)
		case msg, ok := <-c.offline:
			if !ok {
				return c.closedErr(ctx)
			}
			c.handleShutdown(msg)
		}
	}
}

func (c *BrokerComponent) closedErr(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	return coreerrors.New(coreerrors.CodeServiceClosed, "broker subscription closed")
}

func (c *BrokerComponent) handleOnline(msg *broker.Message) {
	m, err := broker.Decode[broker.NodeOnlineMessage](msg)
	if err != nil {
		c.deps.Logger.Warnf("Broker: %v", err)
		return
	}
	if m.Node == c.deps.Config.Node.Name || m.RPCAddress == "" {
		return
	}

	known, ok := c.deps.Notifier.PeerAddr(m.Node)
	c.deps.Notifier.SetPeer(m.Node, m.RPCAddress)
	if ok && known == m.RPCAddress {
		return
	}
	c.deps.Logger.Infof("Broker: node %s online at %s", m.Node, m.RPCAddress)

	// 让新节点也认识自己
	if err := c.announce(); err != nil {
		c.deps.Logger.Warnf("Broker: re-announce to %s: %v", m.Node, err)
	}
}

func (c *BrokerComponent) handleShutdown(msg *broker.Message) {
	m, err := broker.Decode[broker.NodeShutdownMessage](msg)
	if err != nil {
		c.deps.Logger.Warnf("Broker: %v", err)
		return
	}
	if m.Node == c.deps.Config.Node.Name {
		return
	}
	c.deps.Notifier.RemovePeer(m.Node)
}

func (c *BrokerComponent) Stop() error {
	if c.deps == nil || c.deps.Broker == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), shutdownTimeout)
	defer cancel()

	msg := broker.NewNodeShutdown(c.deps.Config.Node.Name)
	if err := broker.PublishJSON(ctx, c.deps.Broker, broker.TopicNodeShutdown, msg); err != nil {
		c.deps.Logger.Warnf("Broker: announce shutdown: %v", err)
	}
	return c.deps.Broker.Close()
}

// ============================================================================
// TransportComponent - 客户端接入
// ============================================================================

// TransportComponent 客户端 TCP 接入
type TransportComponent struct {
	deps *Dependencies
}

func (c *TransportComponent) Name() string {
	return "Transport"
}

func (c *TransportComponent) Initialize(ctx context.Context, deps *Dependencies) error {
	if deps.Router == nil {
		return fmt.Errorf("router is required")
	}
	c.deps = deps
	cfg := deps.Config

	deps.Transport = transport.NewTCPServer(ctx, transport.Config{
		Addr:             net.JoinHostPort(cfg.Node.Host, strconv.Itoa(cfg.Node.Port)),
		MaxPayload:       cfg.Session.MaxPayload,
		SendQueueSize:    cfg.Session.SendQueueSize,
		HeartbeatTimeout: cfg.Session.HeartbeatTimeout,
		CheckInterval:    cfg.Session.CheckInterval,
	}, deps.Router, deps.Logger)
	return nil
}

func (c *TransportComponent) Start() error {
	return c.deps.Transport.Start()
}

// Stop 关闭监听与全部连接，返回时所有会话结束消息都已提交
func (c *TransportComponent) Stop() error {
	if c.deps == nil || c.deps.Transport == nil {
		return nil
	}
	return c.deps.Transport.Close()
}
