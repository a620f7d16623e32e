package dispose

import (
	"context"
)

// ServiceBase 标准服务基类
type ServiceBase struct {
	Dispose
}

// NewService 创建标准服务基类，parentCtx 取消时自动释放
func NewService(name string, parentCtx context.Context) *ServiceBase {
	s := &ServiceBase{}
	s.name = name
	s.SetCtx(parentCtx, func() error {
		Debugf("%s resources cleaned up", name)
		return nil
	})
	return s
}

// Name 获取服务名称
func (s *ServiceBase) Name() string {
	return s.name
}
