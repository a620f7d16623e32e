package loader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tieba-chat/internal/config/source"
	coreerrors "tieba-chat/internal/core/errors"
)

func TestLoader_NewLoader(t *testing.T) {
	l := NewLoader()
	if l == nil {
		t.Fatal("NewLoader() returned nil")
	}
	if len(l.sources) != 0 {
		t.Errorf("NewLoader() sources = %d, want 0", len(l.sources))
	}
}

func TestLoader_Load_NoSources(t *testing.T) {
	_, err := NewLoader().Load()
	if err == nil {
		t.Fatal("Load() should error when no sources are registered")
	}
	if !coreerrors.IsCode(err, coreerrors.CodeConfigError) {
		t.Errorf("error code = %s, want CONFIG_ERROR", coreerrors.GetCode(err))
	}
}

func TestLoader_Load_DefaultsOnly(t *testing.T) {
	l := NewLoader()
	l.AddSource(source.NewDefaultSource())

	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Node.Port != 8090 {
		t.Errorf("Node.Port = %d, want 8090", cfg.Node.Port)
	}
}

func TestLoader_Load_PriorityOrder(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "chatserver.yaml")
	content := `
node:
  name: from-yaml
  port: 9001
lock:
  hold_ttl: 20s
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("CHAT_NODE_PORT", "9002")

	cfg, err := NewLoaderBuilder().
		WithConfigFile(configPath).
		WithCLI(source.CLIOverrides{NodeName: "from-cli"}).
		Build().
		Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Node.Name != "from-cli" {
		t.Errorf("Node.Name = %q, want from-cli", cfg.Node.Name)
	}
	if cfg.Node.Port != 9002 {
		t.Errorf("Node.Port = %d, env should override yaml", cfg.Node.Port)
	}
	if cfg.Lock.HoldTTL != 20*time.Second {
		t.Errorf("Lock.HoldTTL = %v, want 20s", cfg.Lock.HoldTTL)
	}
	if cfg.Lock.RetryInterval != 100*time.Millisecond {
		t.Errorf("Lock.RetryInterval = %v, default should survive", cfg.Lock.RetryInterval)
	}
}

func TestLoader_Load_ValidationFailure(t *testing.T) {
	t.Setenv("CHAT_DATABASE_TYPE", "postgres")
	t.Setenv("CHAT_DATABASE_DSN", "")

	_, err := NewLoaderBuilder().WithConfigFile("/nonexistent/chatserver.yaml").Build().Load()
	if err == nil {
		t.Fatal("Load() should fail when postgres has no dsn")
	}
	if !coreerrors.IsCode(err, coreerrors.CodeConfigError) {
		t.Errorf("error code = %s, want CONFIG_ERROR", coreerrors.GetCode(err))
	}

	cfg, err := NewLoaderBuilder().
		WithConfigFile("/nonexistent/chatserver.yaml").
		WithSkipValidate(true).
		Build().
		Load()
	if err != nil {
		t.Fatalf("Load() with validation skipped error = %v", err)
	}
	if cfg.Database.Type != "postgres" {
		t.Errorf("Database.Type = %q, want postgres", cfg.Database.Type)
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	path := filepath.Join("..", "..", "..", "configs", "chatserver.example.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("example config not found: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Type != "redis" || cfg.Database.Type != "postgres" {
		t.Errorf("Storage/Database = %s/%s", cfg.Storage.Type, cfg.Database.Type)
	}
	if cfg.Database.DSN.IsEmpty() {
		t.Error("Database.DSN should be loaded")
	}
	if len(cfg.Peers) != 1 || cfg.Peers[0].Name != "chat-2" {
		t.Errorf("Peers = %+v", cfg.Peers)
	}
}
