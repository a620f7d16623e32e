package crossnode

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"tieba-chat/internal/constants"
	"tieba-chat/internal/core/dispose"
	coreerrors "tieba-chat/internal/core/errors"
	corelog "tieba-chat/internal/core/log"
)

// Notifier 向其他节点发送通知
type Notifier interface {
	Notify(ctx context.Context, node string, n Notification) error
}

// ClientConfig 客户端配置
type ClientConfig struct {
	// Peers 节点名 -> gRPC 地址
	Peers map[string]string
	// MaxConns 连接池容量，超出后淘汰最久未使用的连接
	MaxConns int
	// Timeout 单次调用超时
	Timeout time.Duration
}

// Client 节点间通知客户端，按节点名维护 gRPC 连接
type Client struct {
	dispose.Dispose

	mu      sync.RWMutex
	addrs   map[string]string
	conns   *lru.Cache[string, *grpc.ClientConn]
	timeout time.Duration
	logger  corelog.Logger
}

var _ Notifier = (*Client)(nil)

// NewClient 创建客户端
func NewClient(parentCtx context.Context, cfg ClientConfig, logger corelog.Logger) (*Client, error) {
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultRPCTimeout
	}

	c := &Client{
		addrs:   make(map[string]string, len(cfg.Peers)),
		timeout: cfg.Timeout,
		logger:  corelog.OrDefault(logger),
	}
	for name, addr := range cfg.Peers {
		c.addrs[name] = addr
	}

	conns, err := lru.NewWithEvict(cfg.MaxConns, func(node string, conn *grpc.ClientConn) {
		if err := conn.Close(); err != nil {
			c.logger.Debugf("CrossNodeClient: close conn to %s: %v", node, err)
		}
	})
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeConfigError, "create connection pool")
	}
	c.conns = conns

	c.SetCtx(parentCtx, c.onClose)
	return c, nil
}

func (c *Client) onClose() error {
	c.conns.Purge()
	return nil
}

// SetPeer 设置节点地址，地址变化时丢弃旧连接
func (c *Client) SetPeer(node, addr string) {
	c.mu.Lock()
	old, ok := c.addrs[node]
	c.addrs[node] = addr
	c.mu.Unlock()

	if ok && old != addr {
		c.conns.Remove(node)
		c.logger.Infof("CrossNodeClient: peer %s moved %s -> %s", node, old, addr)
	}
}

// RemovePeer 节点下线时移除地址与连接
func (c *Client) RemovePeer(node string) {
	c.mu.Lock()
	delete(c.addrs, node)
	c.mu.Unlock()

	c.conns.Remove(node)
	c.logger.Infof("CrossNodeClient: peer %s removed", node)
}

// PeerAddr 查询节点地址
func (c *Client) PeerAddr(node string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	addr, ok := c.addrs[node]
	return addr, ok
}

func (c *Client) conn(node string) (*grpc.ClientConn, error) {
	if conn, ok := c.conns.Get(node); ok {
		return conn, nil
	}

	addr, ok := c.PeerAddr(node)
	if !ok {
		return nil, coreerrors.Newf(coreerrors.CodeNetworkError, "unknown peer node %s", node)
	}

	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, coreerrors.Wrapf(err, coreerrors.CodeNetworkError, "dial peer %s at %s", node, addr)
	}

	// 并发创建时保留先放入的连接
	if prev, ok, _ := c.conns.PeekOrAdd(node, conn); ok {
		_ = conn.Close()
		return prev, nil
	}
	return conn, nil
}

// Notify 向 node 发送一次通知，失败不重试
func (c *Client) Notify(ctx context.Context, node string, n Notification) error {
	if c.IsClosed() {
		return coreerrors.ErrServiceClosed
	}

	conn, err := c.conn(node)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rsp := n.newResponse()
	if err := conn.Invoke(ctx, n.Method(), n, rsp); err != nil {
		c.logger.Warnf("CrossNodeClient: %s to %s for uid %d failed: %v", n.Method(), node, n.TargetUID(), err)
		return coreerrors.Wrapf(err, coreerrors.CodeNetworkError, "notify %s", node)
	}
	if rsp.Code() != 0 {
		return coreerrors.Newf(coreerrors.CodeNetworkError, "peer %s answered %s with error %d", node, n.Method(), rsp.Code())
	}
	return nil
}
