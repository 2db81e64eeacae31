package cache

import (
	"context"
	"errors"
)

// DefaultKeyPrefix is the namespace for tournament entries.
const DefaultKeyPrefix = "tournament"

// ErrNotFound is returned by Get when no entry is cached.
var ErrNotFound = errors.New("cache entry not found")

// Invalidator marks a tournament's cached data stale so the next read refetches.
type Invalidator interface {
	Invalidate(ctx context.Context, tournamentID string) error
}

// Store is an Invalidator that also holds payloads.
type Store interface {
	Invalidator
	Set(ctx context.Context, tournamentID string, payload []byte) error
	Get(ctx context.Context, tournamentID string) ([]byte, error)
}

// Key returns the cache key for a tournament.
func Key(prefix, tournamentID string) string {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return prefix + ":" + tournamentID
}
