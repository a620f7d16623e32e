package dispose

// dispose 包不能依赖 log 包（log 包会反向注入），日志通过 SetLogger 挂载
var (
	logFunc func(level string, format string, args ...interface{})
)

// SetLogger 设置日志函数（由 log.Init 调用）
func SetLogger(fn func(level string, format string, args ...interface{})) {
	logFunc = fn
}

func log(level string, format string, args ...interface{}) {
	if logFunc != nil {
		logFunc(level, format, args...)
	}
}

// Debugf 调试日志
func Debugf(format string, args ...interface{}) {
	log("debug", format, args...)
}

// Infof 信息日志
func Infof(format string, args ...interface{}) {
	log("info", format, args...)
}

// Warnf 警告日志
func Warnf(format string, args ...interface{}) {
	log("warn", format, args...)
}

// Errorf 错误日志
func Errorf(format string, args ...interface{}) {
	log("error", format, args...)
}

// Warn 警告消息
func Warn(msg string) {
	log("warn", "%s", msg)
}
