package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/eapache/queue"

	"tieba-chat/internal/constants"
	coreerrors "tieba-chat/internal/core/errors"
	corelog "tieba-chat/internal/core/log"
)

type routerState int

const (
	stateIdle routerState = iota
	stateRunning
	stateStopping
	stateStopped
)

// Router 无界 FIFO 队列加单一消费协程
//
// Submit 可被任意协程并发调用且不阻塞；处理器按提交顺序逐个执行。
// 停止时不再接收新消息，已排队的消息全部执行完后消费协程退出。
type Router struct {
	mu       sync.Mutex
	items    *queue.Queue
	notify   chan struct{}
	state    routerState
	handlers map[constants.MsgID]Handler
	done     chan struct{}
	logger   corelog.Logger
}

var _ Submitter = (*Router)(nil)

// NewRouter 创建路由
func NewRouter(logger corelog.Logger) *Router {
	return &Router{
		items:    queue.New(),
		notify:   make(chan struct{}, 1),
		handlers: make(map[constants.MsgID]Handler),
		done:     make(chan struct{}),
		logger:   corelog.OrDefault(logger),
	}
}

// Register 注册处理器，重复注册覆盖旧的；启动后分发表只读
func (r *Router) Register(id constants.MsgID, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateIdle {
		return coreerrors.Newf(coreerrors.CodeServiceClosed, "router already started, cannot register %d", id)
	}
	if _, ok := r.handlers[id]; ok {
		r.logger.Warnf("Router: handler for msg %d (%s) overwritten", id, id)
	}
	r.handlers[id] = h
	return nil
}

// Submit 追加到队尾
func (r *Router) Submit(env *Envelope) error {
	if env == nil {
		return coreerrors.New(coreerrors.CodeInvalidParam, "nil envelope")
	}

	r.mu.Lock()
	if r.state == stateStopping || r.state == stateStopped {
		r.mu.Unlock()
		return coreerrors.New(coreerrors.CodeServiceClosed, "router stopped")
	}
	r.items.Add(env)
	r.mu.Unlock()

	r.wake()
	return nil
}

// Len 队列中等待处理的消息数量
func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items.Length()
}

func (r *Router) wake() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Start 启动消费协程
//
// 处理器拿到的 ctx 不随 parent 取消，正在执行的处理器不会被中断。
func (r *Router) Start(parent context.Context) error {
	r.mu.Lock()
	if r.state != stateIdle {
		r.mu.Unlock()
		return fmt.Errorf("router already started")
	}
	r.state = stateRunning
	r.mu.Unlock()

	ctx := context.WithoutCancel(parent)
	go r.consume(ctx)
	r.logger.Infof("Router: started with %d handlers", len(r.handlers))
	return nil
}

// Stop 停止接收新消息并等待队列排空，ctx 到期时返回 ctx 的错误
func (r *Router) Stop(ctx context.Context) error {
	r.mu.Lock()
	switch r.state {
	case stateIdle:
		r.state = stateStopped
		close(r.done)
		r.mu.Unlock()
		return nil
	case stateRunning:
		r.state = stateStopping
	}
	pending := r.items.Length()
	r.mu.Unlock()

	r.logger.Infof("Router: stopping, draining %d queued messages", pending)
	r.wake()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done 消费协程退出后关闭
func (r *Router) Done() <-chan struct{} {
	return r.done
}

func (r *Router) next() (*Envelope, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.items.Length() > 0 {
		return r.items.Remove().(*Envelope), true
	}
	if r.state == stateStopping {
		r.state = stateStopped
		close(r.done)
	}
	return nil, false
}

func (r *Router) consume(ctx context.Context) {
	for {
		env, ok := r.next()
		if ok {
			r.dispatch(ctx, env)
			continue
		}

		select {
		case <-r.done:
			r.logger.Infof("Router: consumer exited")
			return
		default:
		}
		<-r.notify
	}
}

func (r *Router) dispatch(ctx context.Context, env *Envelope) {
	h, ok := r.handlers[env.MsgID]
	if !ok {
		r.logger.Warnf("Router: no handler for msg %d, dropped", env.MsgID)
		return
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Errorf("Router: handler for msg %d (%s) panicked: %v\n%s", env.MsgID, env.MsgID, p, debug.Stack())
		}
	}()
	h(ctx, env)
}
