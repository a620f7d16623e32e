package schema

import "time"

// StorageConfig contains the shared store settings (presence, tokens, locks, caches)
type StorageConfig struct {
	Type  string      `yaml:"type" json:"type"` // memory/redis
	Redis RedisConfig `yaml:"redis" json:"redis"`
}

// RedisConfig contains Redis settings
type RedisConfig struct {
	Addr        string        `yaml:"addr" json:"addr"`
	Password    Secret        `yaml:"password" json:"password"`
	DB          int           `yaml:"db" json:"db"`
	PoolSize    int           `yaml:"pool_size" json:"pool_size"`
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	OpTimeout   time.Duration `yaml:"op_timeout" json:"op_timeout"`
}

// DatabaseConfig contains the relational store settings (users, applies, friends)
type DatabaseConfig struct {
	Type          string `yaml:"type" json:"type"` // memory/postgres
	DSN           Secret `yaml:"dsn" json:"dsn"`
	MaxConns      int32  `yaml:"max_conns" json:"max_conns"`
	ApplyPageSize int    `yaml:"apply_page_size" json:"apply_page_size"`
}

// BrokerConfig selects the node announcement broker
type BrokerConfig struct {
	Type string `yaml:"type" json:"type"` // memory/redis, redis reuses storage.redis
}

// LockConfig contains the per-uid login lock settings
type LockConfig struct {
	HoldTTL        time.Duration `yaml:"hold_ttl" json:"hold_ttl"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout" json:"acquire_timeout"`
	RetryInterval  time.Duration `yaml:"retry_interval" json:"retry_interval"`
}

// PresenceConfig contains the shared store key prefixes
type PresenceConfig struct {
	IPPrefix       string `yaml:"ip_prefix" json:"ip_prefix"`
	TokenPrefix    string `yaml:"token_prefix" json:"token_prefix"`
	SessionPrefix  string `yaml:"session_prefix" json:"session_prefix"`
	LockPrefix     string `yaml:"lock_prefix" json:"lock_prefix"`
	BaseInfoPrefix string `yaml:"base_info_prefix" json:"base_info_prefix"`
	NameInfoPrefix string `yaml:"name_info_prefix" json:"name_info_prefix"`
	LoginCountKey  string `yaml:"login_count_key" json:"login_count_key"`
}

// Storage, database and broker type constants
const (
	StorageTypeMemory    = "memory"
	StorageTypeRedis     = "redis"
	DatabaseTypeMemory   = "memory"
	DatabaseTypePostgres = "postgres"
	BrokerTypeMemory     = "memory"
	BrokerTypeRedis      = "redis"
)
