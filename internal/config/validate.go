package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *WatcherConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Feed.validate(); err != nil {
		return err
	}
	if err := c.Connections.validate(); err != nil {
		return err
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return errors.New("cache.redis.addr is required when cache.backend is redis")
		}
		if c.Cache.Redis.DB < 0 {
			return errors.New("cache.redis.db must be >= 0")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl must be >= 0")
	}

	if c.Journal.Enabled {
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
		if c.Journal.FlushInterval <= 0 {
			return errors.New("journal.flush_interval must be > 0")
		}
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	return nil
}

func (f *FeedConfig) validate() error {
	if !strings.HasPrefix(f.WSURL, "ws://") && !strings.HasPrefix(f.WSURL, "wss://") {
		return fmt.Errorf("feed.ws_url must start with ws:// or wss://, got %q", f.WSURL)
	}
	if len(f.Tournaments) > 0 && f.Token == "" {
		return errors.New("feed.token is required when feed.tournaments is set")
	}

	seen := make(map[string]bool, len(f.Tournaments))
	for i, id := range f.Tournaments {
		if id == "" {
			return fmt.Errorf("feed.tournaments[%d] is empty", i)
		}
		if seen[id] {
			return fmt.Errorf("feed.tournaments[%d] duplicates %q", i, id)
		}
		seen[id] = true
	}
	return nil
}

func (c *ConnectionsConfig) validate() error {
	if c.ReconnectBaseDelay <= 0 {
		return errors.New("connections.reconnect_base_delay must be > 0")
	}
	if c.ReconnectMaxDelay < c.ReconnectBaseDelay {
		return fmt.Errorf("connections.reconnect_max_delay (%v) cannot be less than reconnect_base_delay (%v)",
			c.ReconnectMaxDelay, c.ReconnectBaseDelay)
	}
	if c.HeartbeatInterval <= 0 {
		return errors.New("connections.heartbeat_interval must be > 0")
	}
	if c.PingTimeout < 0 {
		return errors.New("connections.ping_timeout must be >= 0")
	}
	if c.BufferSize < 1 {
		return errors.New("connections.buffer_size must be >= 1")
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
