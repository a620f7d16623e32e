package source

import (
	"tieba-chat/internal/config/schema"
	"tieba-chat/internal/constants"
	"tieba-chat/internal/dao"
)

// DefaultSource provides default configuration values
//
// The defaults run a single self-contained node: in-memory shared store,
// in-memory database and in-memory broker.
type DefaultSource struct{}

// NewDefaultSource creates a new DefaultSource
func NewDefaultSource() *DefaultSource {
	return &DefaultSource{}
}

// Name returns the source name
func (s *DefaultSource) Name() string {
	return "defaults"
}

// Priority returns the source priority
func (s *DefaultSource) Priority() int {
	return PriorityDefaults
}

// LoadInto loads default values into the configuration
func (s *DefaultSource) LoadInto(cfg *schema.Root) error {
	cfg.Node.Name = "chat-1"
	cfg.Node.Host = "0.0.0.0"
	cfg.Node.Port = 8090

	cfg.RPC.Listen = "127.0.0.1:50051"
	cfg.RPC.Timeout = constants.DefaultRPCTimeout
	cfg.RPC.MaxConns = 64

	cfg.Storage.Type = schema.StorageTypeMemory
	cfg.Storage.Redis.Addr = "localhost:6379"
	cfg.Storage.Redis.PoolSize = 10

	cfg.Database.Type = schema.DatabaseTypeMemory
	cfg.Database.MaxConns = 10
	cfg.Database.ApplyPageSize = dao.DefaultApplyPageSize

	cfg.Broker.Type = schema.BrokerTypeMemory

	cfg.Lock.HoldTTL = constants.DefaultLockHoldTTL
	cfg.Lock.AcquireTimeout = constants.DefaultLockAcquireWait
	cfg.Lock.RetryInterval = constants.DefaultLockRetryInterval

	cfg.Presence.IPPrefix = constants.DefaultUserIPPrefix
	cfg.Presence.TokenPrefix = constants.DefaultUserTokenPrefix
	cfg.Presence.SessionPrefix = constants.DefaultUserSessionPrefix
	cfg.Presence.LockPrefix = constants.DefaultLockPrefix
	cfg.Presence.BaseInfoPrefix = constants.DefaultUserBaseInfo
	cfg.Presence.NameInfoPrefix = constants.DefaultNameInfo
	cfg.Presence.LoginCountKey = constants.DefaultLoginCountKey

	cfg.Session.HeartbeatTimeout = constants.DefaultHeartbeatTimeout
	cfg.Session.CheckInterval = constants.DefaultHeartbeatInterval
	cfg.Session.SendQueueSize = constants.DefaultSendQueueSize
	cfg.Session.MaxPayload = constants.DefaultMaxPayload

	cfg.Cache.UserInfoTTL = constants.DefaultUserInfoCacheTTL

	cfg.Log.Level = schema.LogLevelInfo
	cfg.Log.Format = schema.LogFormatText

	return nil
}

// GetDefaultConfig returns a new configuration with all defaults applied
func GetDefaultConfig() *schema.Root {
	cfg := &schema.Root{}
	_ = NewDefaultSource().LoadInto(cfg)
	return cfg
}
