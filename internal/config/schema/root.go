// Package schema defines the chat node configuration structure
package schema

import "time"

// Root is the top-level configuration of one chat node
type Root struct {
	Node     NodeConfig     `yaml:"node" json:"node"`
	RPC      RPCConfig      `yaml:"rpc" json:"rpc"`
	Peers    []PeerConfig   `yaml:"peers" json:"peers"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Broker   BrokerConfig   `yaml:"broker" json:"broker"`
	Lock     LockConfig     `yaml:"lock" json:"lock"`
	Presence PresenceConfig `yaml:"presence" json:"presence"`
	Session  SessionConfig  `yaml:"session" json:"session"`
	Cache    CacheConfig    `yaml:"cache" json:"cache"`
	Log      LogConfig      `yaml:"log" json:"log"`
}

// NodeConfig identifies the node and its client-facing TCP listener
type NodeConfig struct {
	Name string `yaml:"name" json:"name"` // unique across the cluster, stored in uip_<uid>
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// RPCConfig contains the cross-node notifier settings
type RPCConfig struct {
	Listen    string        `yaml:"listen" json:"listen"`       // gRPC listen address
	Advertise string        `yaml:"advertise" json:"advertise"` // address announced to peers, defaults to listen
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	MaxConns  int           `yaml:"max_conns" json:"max_conns"` // peer connection pool size
}

// PeerConfig is a statically known peer node
type PeerConfig struct {
	Name    string `yaml:"name" json:"name"`
	Address string `yaml:"address" json:"address"`
}

// SessionConfig contains client connection settings
type SessionConfig struct {
	HeartbeatTimeout time.Duration `yaml:"heartbeat_timeout" json:"heartbeat_timeout"`
	CheckInterval    time.Duration `yaml:"check_interval" json:"check_interval"`
	SendQueueSize    int           `yaml:"send_queue_size" json:"send_queue_size"`
	MaxPayload       int           `yaml:"max_payload" json:"max_payload"`
}

// CacheConfig contains user profile cache settings
type CacheConfig struct {
	UserInfoTTL time.Duration `yaml:"user_info_ttl" json:"user_info_ttl"`
}
