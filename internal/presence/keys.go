// Package presence 集群共享的在线目录：uid 所在节点、最近会话ID与登录 token
package presence

import (
	"strconv"
	"strings"

	"tieba-chat/internal/constants"
)

// KeySchema 共享存储中的键命名
type KeySchema struct {
	IPPrefix       string `yaml:"ip_prefix" json:"ip_prefix"`
	TokenPrefix    string `yaml:"token_prefix" json:"token_prefix"`
	SessionPrefix  string `yaml:"session_prefix" json:"session_prefix"`
	LockPrefix     string `yaml:"lock_prefix" json:"lock_prefix"`
	BaseInfoPrefix string `yaml:"base_info_prefix" json:"base_info_prefix"`
	NameInfoPrefix string `yaml:"name_info_prefix" json:"name_info_prefix"`
	LoginCountKey  string `yaml:"login_count_key" json:"login_count_key"`
}

// DefaultKeySchema 与现有网关、状态服务约定的键名
func DefaultKeySchema() KeySchema {
	return KeySchema{
		IPPrefix:       constants.DefaultUserIPPrefix,
		TokenPrefix:    constants.DefaultUserTokenPrefix,
		SessionPrefix:  constants.DefaultUserSessionPrefix,
		LockPrefix:     constants.DefaultLockPrefix,
		BaseInfoPrefix: constants.DefaultUserBaseInfo,
		NameInfoPrefix: constants.DefaultNameInfo,
		LoginCountKey:  constants.DefaultLoginCountKey,
	}
}

// WithDefaults 空字段填充默认值
func (k KeySchema) WithDefaults() KeySchema {
	d := DefaultKeySchema()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&k.IPPrefix, d.IPPrefix)
	fill(&k.TokenPrefix, d.TokenPrefix)
	fill(&k.SessionPrefix, d.SessionPrefix)
	fill(&k.LockPrefix, d.LockPrefix)
	fill(&k.BaseInfoPrefix, d.BaseInfoPrefix)
	fill(&k.NameInfoPrefix, d.NameInfoPrefix)
	fill(&k.LoginCountKey, d.LoginCountKey)
	return k
}

func uidKey(prefix string, uid int64) string {
	return prefix + strconv.FormatInt(uid, 10)
}

// IPKey uid 所在节点
func (k KeySchema) IPKey(uid int64) string { return uidKey(k.IPPrefix, uid) }

// TokenKey uid 的登录 token
func (k KeySchema) TokenKey(uid int64) string { return uidKey(k.TokenPrefix, uid) }

// SessionKey uid 最近一次登录的会话ID
func (k KeySchema) SessionKey(uid int64) string { return uidKey(k.SessionPrefix, uid) }

// LockKey uid 的登录锁
func (k KeySchema) LockKey(uid int64) string { return uidKey(k.LockPrefix, uid) }

// BaseInfoKey 用户资料缓存
func (k KeySchema) BaseInfoKey(uid int64) string { return uidKey(k.BaseInfoPrefix, uid) }

// NameInfoKey 按用户名的资料缓存
func (k KeySchema) NameInfoKey(name string) string { return k.NameInfoPrefix + name }

// UIDFromIPKey 从 uip_ 键解析 uid
func (k KeySchema) UIDFromIPKey(key string) (int64, bool) {
	if !strings.HasPrefix(key, k.IPPrefix) {
		return 0, false
	}
	uid, err := strconv.ParseInt(strings.TrimPrefix(key, k.IPPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return uid, true
}
