// Package dispose 提供与 context 绑定的资源释放基类
//
// 组件嵌入 *ServiceBase 后，父 context 取消或显式 Close 时，
// 按注册顺序执行清理回调，且只执行一次。
package dispose

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DisposeError 清理过程中的错误信息
type DisposeError struct {
	HandlerIndex int
	ResourceName string
	Err          error
}

func (e *DisposeError) Error() string {
	if e.ResourceName != "" {
		return fmt.Sprintf("cleanup resource[%s] handler[%d] failed: %v", e.ResourceName, e.HandlerIndex, e.Err)
	}
	return fmt.Sprintf("cleanup handler[%d] failed: %v", e.HandlerIndex, e.Err)
}

func (e *DisposeError) Unwrap() error {
	return e.Err
}

// Dispose 资源管理结构体
type Dispose struct {
	mu            sync.Mutex
	closed        bool
	ctx           context.Context
	cancel        context.CancelFunc
	cleanHandlers []func() error
	name          string
	err           error
}

// Ctx 返回资源的生命周期 context
func (d *Dispose) Ctx() context.Context {
	return d.ctx
}

// IsClosed 是否已释放
func (d *Dispose) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// AddCleanHandler 添加清理回调
func (d *Dispose) AddCleanHandler(f func() error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cleanHandlers = append(d.cleanHandlers, f)
}

// SetCtx 绑定父 context，父 context 取消时自动释放
func (d *Dispose) SetCtx(parent context.Context, onClose func() error) {
	if d.ctx != nil {
		Warn("ctx already set")
		return
	}
	if parent == nil {
		parent = context.Background()
	}
	if onClose != nil {
		d.AddCleanHandler(onClose)
	}

	d.ctx, d.cancel = context.WithCancel(parent)
	go func() {
		<-d.ctx.Done()
		if err := d.dispose(); err != nil {
			Errorf("%s: context cancellation cleanup failed: %v", d.name, err)
		}
	}()
}

// Close 释放资源，重复调用返回第一次的结果
func (d *Dispose) Close() error {
	err := d.dispose()
	if d.cancel != nil {
		d.cancel()
	}
	return err
}

func (d *Dispose) dispose() error {
	d.mu.Lock()
	if d.closed {
		err := d.err
		d.mu.Unlock()
		return err
	}
	d.closed = true
	handlers := make([]func() error, len(d.cleanHandlers))
	copy(handlers, d.cleanHandlers)
	d.mu.Unlock()

	var errs []error
	for i, handler := range handlers {
		if err := handler(); err != nil {
			errs = append(errs, &DisposeError{HandlerIndex: i, ResourceName: d.name, Err: err})
			Errorf("%s: cleanup handler[%d] failed: %v", d.name, i, err)
		}
	}

	err := errors.Join(errs...)
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
	return err
}
