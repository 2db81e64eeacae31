package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultWSURL              = "ws://localhost:8000"
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 30 * time.Second
	DefaultHeartbeatInterval  = 25 * time.Second
	DefaultPingTimeout        = 90 * time.Second
	DefaultHandshakeTimeout   = 10 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultConnBufferSize     = 256
	DefaultCacheBackend       = "memory"
	DefaultKeyPrefix          = "tournament"
	DefaultCacheTTL           = 5 * time.Minute
	DefaultRedisAddr          = "localhost:6379"
	DefaultRedisChannel       = "tournament:invalidate"
	DefaultBatchSize          = 500
	DefaultFlushInterval      = 1 * time.Second
	DefaultBufferSize         = 10000
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultHTTPPort           = 9090
)

func (c *WatcherConfig) applyDefaults() {
	if c.Feed.WSURL == "" {
		c.Feed.WSURL = DefaultWSURL
	}

	// Connections defaults
	if c.Connections.ReconnectBaseDelay == 0 {
		c.Connections.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Connections.ReconnectMaxDelay == 0 {
		c.Connections.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Connections.HeartbeatInterval == 0 {
		c.Connections.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Connections.PingTimeout == 0 {
		c.Connections.PingTimeout = DefaultPingTimeout
	}
	if c.Connections.HandshakeTimeout == 0 {
		c.Connections.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Connections.WriteTimeout == 0 {
		c.Connections.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connections.BufferSize == 0 {
		c.Connections.BufferSize = DefaultConnBufferSize
	}

	// Cache defaults
	if c.Cache.Backend == "" {
		c.Cache.Backend = DefaultCacheBackend
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = DefaultKeyPrefix
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Cache.Redis.Addr == "" {
		c.Cache.Redis.Addr = DefaultRedisAddr
	}
	if c.Cache.Redis.Channel == "" {
		c.Cache.Redis.Channel = DefaultRedisChannel
	}

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultBufferSize
	}

	applyDBDefaults(&c.Database.Postgres)

	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
