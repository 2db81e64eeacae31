package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel invalidations are published on.
const DefaultChannel = "tournament:invalidate"

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Channel   string        // Pub/sub channel for invalidated ids
	KeyPrefix string        // Entry namespace
	TTL       time.Duration // Entry lifetime, 0 for none
}

// Redis is a Store shared across processes. Invalidate deletes the entry and
// publishes the tournament id so other holders of the cache can react.
type Redis struct {
	rdb    *redis.Client
	cfg    RedisConfig
	logger *slog.Logger
}

// NewRedis creates a Redis-backed cache. It does not dial; use Ping to check.
func NewRedis(cfg RedisConfig, logger *slog.Logger) *Redis {
	return NewRedisWithClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg, logger)
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(rdb *redis.Client, cfg RedisConfig, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	return &Redis{rdb: rdb, cfg: cfg, logger: logger}
}

// Ping verifies the server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", r.cfg.Addr, err)
	}
	return nil
}

// Set stores a payload with the configured TTL.
func (r *Redis) Set(ctx context.Context, tournamentID string, payload []byte) error {
	if err := r.rdb.Set(ctx, Key(r.cfg.KeyPrefix, tournamentID), payload, r.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get returns the cached payload or ErrNotFound.
func (r *Redis) Get(ctx context.Context, tournamentID string) ([]byte, error) {
	payload, err := r.rdb.Get(ctx, Key(r.cfg.KeyPrefix, tournamentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return payload, nil
}

// Invalidate deletes the entry and publishes the id in one transaction.
func (r *Redis) Invalidate(ctx context.Context, tournamentID string) error {
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, Key(r.cfg.KeyPrefix, tournamentID))
	pipe.Publish(ctx, r.cfg.Channel, tournamentID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis invalidate %s: %w", tournamentID, err)
	}
	return nil
}

// Subscribe streams invalidated ids published by any process until ctx is
// cancelled. The returned channel is closed when the subscription ends.
func (r *Redis) Subscribe(ctx context.Context) (<-chan string, error) {
	sub := r.rdb.Subscribe(ctx, r.cfg.Channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", r.cfg.Channel, err)
	}

	out := make(chan string, 64)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				default:
					r.logger.Debug("dropping invalidation notice", "tournament_id", msg.Payload)
				}
			}
		}
	}()
	return out, nil
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
