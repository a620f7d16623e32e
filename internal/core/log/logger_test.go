package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNopLogger 测试静默日志
func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()

	logger.Debug("test")
	logger.Infof("test %s", "arg")
	logger.Errorf("test %s", "arg")

	_, ok := logger.WithField("key", "value").(NopLogger)
	assert.True(t, ok, "WithField should return NopLogger")
	_, ok = logger.WithError(nil).(NopLogger)
	assert.True(t, ok, "WithError should return NopLogger")
	_, ok = logger.WithContext(context.Background()).(NopLogger)
	assert.True(t, ok, "WithContext should return NopLogger")
}

type mockTestingT struct {
	logs []string
}

func (m *mockTestingT) Log(args ...interface{}) {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, toString(a))
	}
	m.logs = append(m.logs, strings.Join(parts, " "))
}

func (m *mockTestingT) Logf(format string, args ...interface{}) {
	m.logs = append(m.logs, fmt.Sprintf(format, args...))
}

// TestTestLogger 测试日志输出到 testing.T，并携带字段
func TestTestLogger(t *testing.T) {
	mt := &mockTestingT{}
	logger := NewTestLogger(mt)

	logger.Infof("login uid=%d", 42)
	logger.WithField("node", "chat-1").Warnf("kick %s", "remote")

	require.Len(t, mt.logs, 2)
	assert.Equal(t, "[INFO] login uid=42", mt.logs[0])
	assert.Contains(t, mt.logs[1], "[WARN] kick remote")
	assert.Contains(t, mt.logs[1], "node=chat-1")
}

// TestLogrusLogger_JSON 测试 JSON 格式输出带字段
func TestLogrusLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	logger := NewLogrusLogger(l)
	logger.WithFields(map[string]interface{}{"uid": 7, "msg_id": 1005}).Info("dispatch")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dispatch", entry["msg"])
	assert.Equal(t, float64(7), entry["uid"])
	assert.Equal(t, float64(1005), entry["msg_id"])
}

func TestNew_InvalidConfig(t *testing.T) {
	_, _, err := New(Config{Level: "verbose"})
	assert.Error(t, err)

	_, _, err = New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.log")
	logger, closer, err := New(Config{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug("hello")
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	mt := &mockTestingT{}
	SetDefault(NewTestLogger(mt))
	Infof("via default %d", 1)

	require.Len(t, mt.logs, 1)
	assert.Equal(t, "[INFO] via default 1", mt.logs[0])
	assert.NotNil(t, OrDefault(nil))
}
