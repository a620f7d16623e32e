package chatserver

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tieba-chat/internal/config/schema"
	corelog "tieba-chat/internal/core/log"
)

const shutdownTimeout = 10 * time.Second

// Server 一个聊天节点
type Server struct {
	config     *schema.Root
	deps       *Dependencies
	components []Component
	logger     corelog.Logger
	logCloser  io.Closer
	cancel     context.CancelFunc

	startOnce sync.Once
	startErr  error
	stopOnce  sync.Once
	stopErr   error
}

// Start 按初始化顺序启动组件
func (s *Server) Start() error {
	s.startOnce.Do(func() {
		for _, c := range s.components {
			if err := c.Start(); err != nil {
				s.startErr = NewComponentError(c.Name(), err)
				return
			}
			s.logger.Debugf("Component started: %s", c.Name())
		}
		s.logger.Infof("Node %s started, clients on %s", s.config.Node.Name, s.Addr())
	})
	return s.startErr
}

// Run 启动节点并阻塞到 ctx 取消或任一常驻协程出错，返回前完成停机
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		_ = s.Stop()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range s.components {
		r, ok := c.(Runner)
		if !ok {
			continue
		}
		name := c.Name()
		g.Go(func() error {
			if err := r.Run(gctx); err != nil {
				return NewComponentError(name, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Infof("Node %s shutting down", s.config.Node.Name)
		return s.Stop()
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop 按逆序停止组件，可重复调用
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		for i := len(s.components) - 1; i >= 0; i-- {
			c := s.components[i]
			if err := c.Stop(); err != nil {
				s.logger.Warnf("Component %s stop: %v", c.Name(), err)
				if s.stopErr == nil {
					s.stopErr = err
				}
			}
		}
		s.cancel()
		s.logger.Infof("Node %s stopped", s.config.Node.Name)
		if s.logCloser != nil {
			_ = s.logCloser.Close()
		}
	})
	return s.stopErr
}

// Addr 客户端接入地址，未启动时为 nil
func (s *Server) Addr() net.Addr {
	if s.deps.Transport == nil {
		return nil
	}
	return s.deps.Transport.Addr()
}

// RPCAddr 跨节点通知服务地址
func (s *Server) RPCAddr() net.Addr {
	if s.deps.RPCListener == nil {
		return nil
	}
	return s.deps.RPCListener.Addr()
}

// Deps 已装配的依赖
func (s *Server) Deps() *Dependencies {
	return s.deps
}
