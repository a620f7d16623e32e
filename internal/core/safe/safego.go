// Package safe 带 panic 恢复的后台协程
package safe

import (
	"runtime/debug"
	"sync"
	"sync/atomic"

	corelog "tieba-chat/internal/core/log"
)

var panicCount atomic.Int64

// PanicCount 进程内已恢复的 panic 次数
func PanicCount() int64 {
	return panicCount.Load()
}

func recoverPanic(name string, logger corelog.Logger) {
	if r := recover(); r != nil {
		panicCount.Add(1)
		corelog.OrDefault(logger).Errorf("SafeGo[%s]: panic recovered: %v\n%s", name, r, debug.Stack())
	}
}

// Go 安全启动 Goroutine（带 panic 恢复）
// name 用于日志标识
func Go(name string, logger corelog.Logger, fn func()) {
	go func() {
		defer recoverPanic(name, logger)
		fn()
	}()
}

// WaitGroup 可等待的一组后台协程，单个协程 panic 不会带垮进程
type WaitGroup struct {
	wg     sync.WaitGroup
	name   string
	logger corelog.Logger
	active atomic.Int64
}

// NewWaitGroup 创建新的 WaitGroup
func NewWaitGroup(name string, logger corelog.Logger) *WaitGroup {
	return &WaitGroup{name: name, logger: logger}
}

// Go 在 WaitGroup 中安全启动 Goroutine
func (w *WaitGroup) Go(fn func()) {
	w.wg.Add(1)
	w.active.Add(1)
	go func() {
		defer func() {
			w.active.Add(-1)
			w.wg.Done()
		}()
		defer recoverPanic(w.name, w.logger)
		fn()
	}()
}

// Active 仍在运行的协程数
func (w *WaitGroup) Active() int64 {
	return w.active.Load()
}

// Wait 等待所有 Goroutine 完成
func (w *WaitGroup) Wait() {
	w.wg.Wait()
}
