package source

import (
	"os"
	"strconv"
	"strings"
	"time"

	"tieba-chat/internal/config/schema"
)

// EnvSource loads configuration from environment variables
type EnvSource struct {
	prefix string
}

// NewEnvSource creates a new EnvSource with the specified prefix
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{
		prefix: prefix,
	}
}

// Name returns the source name
func (s *EnvSource) Name() string {
	return "env"
}

// Priority returns the source priority
func (s *EnvSource) Priority() int {
	return PriorityEnv
}

// LoadInto loads environment variables into the config structure
func (s *EnvSource) LoadInto(cfg *schema.Root) error {
	// Node
	s.loadString("NODE_NAME", &cfg.Node.Name)
	s.loadString("NODE_HOST", &cfg.Node.Host)
	s.loadInt("NODE_PORT", &cfg.Node.Port)

	// RPC
	s.loadString("RPC_LISTEN", &cfg.RPC.Listen)
	s.loadString("RPC_ADVERTISE", &cfg.RPC.Advertise)
	s.loadDuration("RPC_TIMEOUT", &cfg.RPC.Timeout)
	s.loadInt("RPC_MAX_CONNS", &cfg.RPC.MaxConns)
	s.loadPeers("PEERS", &cfg.Peers)

	// Storage
	s.loadString("STORAGE_TYPE", &cfg.Storage.Type)
	s.loadString("REDIS_ADDR", &cfg.Storage.Redis.Addr)
	s.loadSecret("REDIS_PASSWORD", &cfg.Storage.Redis.Password)
	s.loadInt("REDIS_DB", &cfg.Storage.Redis.DB)
	s.loadInt("REDIS_POOL_SIZE", &cfg.Storage.Redis.PoolSize)

	// Database
	s.loadString("DATABASE_TYPE", &cfg.Database.Type)
	s.loadSecret("DATABASE_DSN", &cfg.Database.DSN)
	s.loadInt32("DATABASE_MAX_CONNS", &cfg.Database.MaxConns)

	// Broker
	s.loadString("BROKER_TYPE", &cfg.Broker.Type)

	// Lock
	s.loadDuration("LOCK_HOLD_TTL", &cfg.Lock.HoldTTL)
	s.loadDuration("LOCK_ACQUIRE_TIMEOUT", &cfg.Lock.AcquireTimeout)
	s.loadDuration("LOCK_RETRY_INTERVAL", &cfg.Lock.RetryInterval)

	// Session
	s.loadDuration("SESSION_HEARTBEAT_TIMEOUT", &cfg.Session.HeartbeatTimeout)
	s.loadDuration("SESSION_CHECK_INTERVAL", &cfg.Session.CheckInterval)
	s.loadInt("SESSION_SEND_QUEUE_SIZE", &cfg.Session.SendQueueSize)
	s.loadInt("SESSION_MAX_PAYLOAD", &cfg.Session.MaxPayload)

	// Log
	s.loadString("LOG_LEVEL", &cfg.Log.Level)
	s.loadString("LOG_FORMAT", &cfg.Log.Format)
	s.loadString("LOG_FILE", &cfg.Log.File)

	return nil
}

// getEnv gets environment variable with the configured prefix
func (s *EnvSource) getEnv(key string) (string, bool) {
	prefixedKey := s.prefix + "_" + key
	if v := os.Getenv(prefixedKey); v != "" {
		return v, true
	}
	return "", false
}

func (s *EnvSource) loadString(key string, target *string) {
	if v, ok := s.getEnv(key); ok {
		*target = v
	}
}

func (s *EnvSource) loadSecret(key string, target *schema.Secret) {
	if v, ok := s.getEnv(key); ok {
		*target = schema.Secret(v)
	}
}

func (s *EnvSource) loadInt(key string, target *int) {
	if v, ok := s.getEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

func (s *EnvSource) loadInt32(key string, target *int32) {
	if v, ok := s.getEnv(key); ok {
		if i, err := strconv.ParseInt(v, 10, 32); err == nil {
			*target = int32(i)
		}
	}
}

func (s *EnvSource) loadDuration(key string, target *time.Duration) {
	if v, ok := s.getEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*target = d
		}
	}
}

// loadPeers parses "name=address" pairs separated by commas
func (s *EnvSource) loadPeers(key string, target *[]schema.PeerConfig) {
	v, ok := s.getEnv(key)
	if !ok {
		return
	}
	var peers []schema.PeerConfig
	for _, part := range strings.Split(v, ",") {
		name, addr, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found || name == "" || addr == "" {
			continue
		}
		peers = append(peers, schema.PeerConfig{Name: strings.TrimSpace(name), Address: strings.TrimSpace(addr)})
	}
	if len(peers) > 0 {
		*target = peers
	}
}
