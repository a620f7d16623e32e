package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tieba-chat/internal/core/dispose"
)

// Config 日志配置
type Config struct {
	Level  string `json:"level" yaml:"level"`   // debug/info/warn/error
	Format string `json:"format" yaml:"format"` // text/json
	File   string `json:"file" yaml:"file"`     // 为空时输出到 stderr
}

// New 根据配置创建 logrus Logger
func New(cfg Config) (Logger, io.Closer, error) {
	l := logrus.New()

	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level: %s", cfg.Level)
		}
		level = parsed
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	default:
		return nil, nil, fmt.Errorf("invalid log format: %s", cfg.Format)
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.SetOutput(file)
		closer = file
	} else {
		l.SetOutput(os.Stderr)
	}

	return NewLogrusLogger(l), closer, nil
}

// Init 创建 Logger 并设置为默认值，同时接管 dispose 包的日志输出
func Init(cfg Config) (io.Closer, error) {
	logger, closer, err := New(cfg)
	if err != nil {
		return nil, err
	}
	SetDefault(logger)
	dispose.SetLogger(func(level string, format string, args ...interface{}) {
		l := Default()
		switch level {
		case "debug":
			l.Debugf(format, args...)
		case "warn":
			l.Warnf(format, args...)
		case "error":
			l.Errorf(format, args...)
		default:
			l.Infof(format, args...)
		}
	})
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
