package config

import "time"

// WatcherConfig is the root configuration for a watcher instance.
type WatcherConfig struct {
	Instance    InstanceConfig    `yaml:"instance"`
	Feed        FeedConfig        `yaml:"feed"`
	Connections ConnectionsConfig `yaml:"connections"`
	Cache       CacheConfig       `yaml:"cache"`
	Journal     JournalConfig     `yaml:"journal"`
	Database    DatabaseConfig    `yaml:"database"`
	HTTP        HTTPConfig        `yaml:"http"`
}

// InstanceConfig identifies this watcher.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// FeedConfig holds the tournament feed settings.
type FeedConfig struct {
	WSURL       string   `yaml:"ws_url"`      // Feed origin, e.g. wss://torvi.example.com
	Token       string   `yaml:"token"`       // Access token sent as the token query parameter
	Tournaments []string `yaml:"tournaments"` // Tournament ids to watch
}

// ConnectionsConfig holds connection manager settings.
type ConnectionsConfig struct {
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	HeartbeatInterval  time.Duration `yaml:"heartbeat_interval"`
	PingTimeout        time.Duration `yaml:"ping_timeout"` // Silence before a socket is considered stale
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	BufferSize         int           `yaml:"buffer_size"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Backend   string        `yaml:"backend"` // memory or redis
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
	Redis     RedisConfig   `yaml:"redis"`
}

// RedisConfig holds the Redis connection used by the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// JournalConfig holds event journal writer settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DatabaseConfig holds the PostgreSQL connection used by the journal.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// HTTPConfig holds the status API settings.
type HTTPConfig struct {
	Port int `yaml:"port"`
}
