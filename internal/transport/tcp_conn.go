package transport

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"tieba-chat/internal/constants"
	"tieba-chat/internal/core/dispose"
	coreerrors "tieba-chat/internal/core/errors"
	corelog "tieba-chat/internal/core/log"
	"tieba-chat/internal/packet"
	"tieba-chat/internal/session"
)

// tcpConn 一条客户端连接，写操作经发送队列由单独的协程完成
type tcpConn struct {
	dispose.Dispose
	conn         net.Conn
	sendMu       sync.Mutex
	closing      bool
	sendQ        chan []byte
	quit         chan struct{}
	writerDone   chan struct{}
	writeTimeout time.Duration
	lastActive   atomic.Int64
	logger       corelog.Logger
}

var _ session.Conn = (*tcpConn)(nil)

func newTCPConn(parentCtx context.Context, conn net.Conn, queueSize int, writeTimeout time.Duration, logger corelog.Logger) *tcpConn {
	c := &tcpConn{
		conn:         conn,
		sendQ:        make(chan []byte, queueSize),
		quit:         make(chan struct{}),
		writerDone:   make(chan struct{}),
		writeTimeout: writeTimeout,
		logger:       logger,
	}
	c.touch()
	c.SetCtx(parentCtx, c.onClose)
	return c
}

// onClose 先置关闭标记再通知写协程，之后的 Send 不会再入队
func (c *tcpConn) onClose() error {
	c.sendMu.Lock()
	c.closing = true
	c.sendMu.Unlock()
	close(c.quit)
	return nil
}

// touch 记录最近一次收到数据的时间
func (c *tcpConn) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

func (c *tcpConn) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastActive.Load()))
}

// Send 把帧放入发送队列，队列满时关闭连接
func (c *tcpConn) Send(msgID constants.MsgID, payload []byte) error {
	if c.IsClosed() {
		return coreerrors.Newf(coreerrors.CodeNetworkError, "connection %s closed", c.RemoteAddr())
	}
	buf, err := packet.Encode(msgID, payload)
	if err != nil {
		return err
	}

	// 入队与关闭互斥，写协程退出前的排空能看到所有已入队的帧
	c.sendMu.Lock()
	if c.closing {
		c.sendMu.Unlock()
		return coreerrors.Newf(coreerrors.CodeNetworkError, "connection %s closed", c.RemoteAddr())
	}
	select {
	case c.sendQ <- buf:
		c.sendMu.Unlock()
		return nil
	default:
	}
	c.sendMu.Unlock()

	c.logger.Warnf("TCPConn: send queue of %s full, dropping connection", c.RemoteAddr())
	_ = c.Close()
	return coreerrors.Newf(coreerrors.CodeNetworkError, "send queue of %s full", c.RemoteAddr())
}

func (c *tcpConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// writeLoop 顺序写出队列中的帧，关闭时先写完已排队的帧再断开
func (c *tcpConn) writeLoop() {
	defer close(c.writerDone)
	defer func() { _ = c.conn.Close() }()

	for {
		select {
		case buf := <-c.sendQ:
			if err := c.write(buf); err != nil {
				c.logger.Debugf("TCPConn: write to %s failed: %v", c.RemoteAddr(), err)
				_ = c.Close()
				return
			}
		case <-c.quit:
			for {
				select {
				case buf := <-c.sendQ:
					if err := c.write(buf); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (c *tcpConn) write(buf []byte) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := c.conn.Write(buf)
	return err
}
