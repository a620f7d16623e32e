package constants

import "time"

// 共享存储键前缀默认值，可通过配置覆盖
const (
	DefaultUserIPPrefix      = "uip_"
	DefaultUserTokenPrefix   = "utoken_"
	DefaultUserSessionPrefix = "usession_"
	DefaultLockPrefix        = "lock_"
	DefaultUserBaseInfo      = "ubaseinfo_"
	DefaultNameInfo          = "nameinfo_"
	DefaultLoginCountKey     = "logincount"
)

// 登录锁默认参数
const (
	DefaultLockHoldTTL       = 10 * time.Second
	DefaultLockAcquireWait   = 5 * time.Second
	DefaultLockRetryInterval = 100 * time.Millisecond
)

// 传输层默认参数
const (
	DefaultMaxPayload        = 64 * 1024
	DefaultSendQueueSize     = 256
	DefaultHeartbeatTimeout  = 60 * time.Second
	DefaultHeartbeatInterval = 10 * time.Second
	DefaultRPCTimeout        = 3 * time.Second
	DefaultUserInfoCacheTTL  = 10 * time.Minute
)
