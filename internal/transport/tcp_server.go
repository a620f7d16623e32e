// Package transport 客户端 TCP 接入：按帧读取请求提交给路由器，并异步写回响应
package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"tieba-chat/internal/constants"
	"tieba-chat/internal/core/dispose"
	coreerrors "tieba-chat/internal/core/errors"
	corelog "tieba-chat/internal/core/log"
	"tieba-chat/internal/dispatch"
	"tieba-chat/internal/packet"
	"tieba-chat/internal/session"
)

// Config TCP 接入配置
type Config struct {
	Addr             string
	MaxPayload       int
	SendQueueSize    int
	HeartbeatTimeout time.Duration // 超过该时长未收到任何帧即断开，<=0 不检查
	CheckInterval    time.Duration
	WriteTimeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxPayload <= 0 {
		c.MaxPayload = constants.DefaultMaxPayload
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = constants.DefaultSendQueueSize
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = constants.DefaultHeartbeatInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	return c
}

// TCPServer 客户端接入服务
type TCPServer struct {
	dispose.Dispose
	cfg       Config
	submitter dispatch.Submitter
	logger    corelog.Logger

	listener net.Listener
	mu       sync.Mutex
	conns    map[*tcpConn]struct{}
	wg       sync.WaitGroup
}

// NewTCPServer 创建接入服务，parentCtx 取消时自动关闭
func NewTCPServer(parentCtx context.Context, cfg Config, submitter dispatch.Submitter, logger corelog.Logger) *TCPServer {
	s := &TCPServer{
		cfg:       cfg.withDefaults(),
		submitter: submitter,
		logger:    corelog.OrDefault(logger),
		conns:     make(map[*tcpConn]struct{}),
	}
	s.SetCtx(parentCtx, s.onClose)
	return s
}

// Start 开始监听并在后台接受连接
func (s *TCPServer) Start() error {
	if s.IsClosed() {
		return coreerrors.ErrServiceClosed
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeNetworkError, "listen on %s", s.cfg.Addr)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Infof("TCPServer: listening on %s", ln.Addr())
	s.wg.Add(1)
	go s.acceptLoop(ln)
	if s.cfg.HeartbeatTimeout > 0 {
		go s.reapLoop()
	}
	return nil
}

// Addr 实际监听地址，未启动时为 nil
func (s *TCPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnCount 当前连接数
func (s *TCPServer) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *TCPServer) onClose() error {
	s.mu.Lock()
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	conns := make([]*tcpConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	// 等待读协程退出，保证每条连接的会话结束消息都已提交
	s.wg.Wait()
	s.logger.Infof("TCPServer: closed")
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *TCPServer) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		raw, err := ln.Accept()
		if err != nil {
			if s.IsClosed() || errors.Is(err, net.ErrClosed) {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Errorf("TCPServer: accept error: %v", err)
			return
		}

		c := newTCPConn(s.Ctx(), raw, s.cfg.SendQueueSize, s.cfg.WriteTimeout, s.logger)
		if !s.track(c) {
			_ = c.Close()
			_ = raw.Close()
			return
		}
		go c.writeLoop()
		go s.handleConnection(c)
	}
}

// track 登记连接，服务已关闭时返回 false
func (s *TCPServer) track(c *tcpConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.IsClosed() {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *TCPServer) untrack(c *tcpConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

// handleConnection 读取帧并提交给路由器，连接结束时提交会话结束消息
func (s *TCPServer) handleConnection(c *tcpConn) {
	defer s.wg.Done()
	sess := session.New(c)
	s.logger.Debugf("TCPServer: session %s accepted from %s", sess.ID(), c.RemoteAddr())

	defer func() {
		_ = c.Close()
		s.untrack(c)
		if err := s.submitter.Submit(dispatch.NewEnvelope(sess, constants.MsgInternalSessionEnd, nil)); err != nil {
			s.logger.Debugf("TCPServer: session end of %s not submitted: %v", sess.ID(), err)
		}
	}()

	for {
		frame, err := packet.ReadFrame(c.conn, s.cfg.MaxPayload)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
				s.logger.Debugf("TCPServer: session %s closed by peer", sess.ID())
			case coreerrors.IsCode(err, coreerrors.CodeInvalidPacket):
				s.logger.Warnf("TCPServer: session %s sent bad frame: %v", sess.ID(), err)
			default:
				s.logger.Debugf("TCPServer: session %s read error: %v", sess.ID(), err)
			}
			return
		}
		c.touch()

		if frame.MsgID.IsInternal() {
			s.logger.Warnf("TCPServer: session %s sent internal id %s, closing", sess.ID(), frame.MsgID)
			return
		}
		if err := s.submitter.Submit(dispatch.NewEnvelope(sess, frame.MsgID, frame.Payload)); err != nil {
			s.logger.Warnf("TCPServer: submit from session %s failed: %v", sess.ID(), err)
			return
		}
	}
}

// reapLoop 断开超过心跳超时仍无数据的连接
func (s *TCPServer) reapLoop() {
	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.Ctx().Done():
			return
		case now := <-ticker.C:
			s.mu.Lock()
			var idle []*tcpConn
			for c := range s.conns {
				if c.idleFor(now) > s.cfg.HeartbeatTimeout {
					idle = append(idle, c)
				}
			}
			s.mu.Unlock()

			for _, c := range idle {
				s.logger.Infof("TCPServer: %s idle for over %s, closing", c.RemoteAddr(), s.cfg.HeartbeatTimeout)
				_ = c.Close()
			}
		}
	}
}
