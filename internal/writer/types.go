package writer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// WriterConfig configures batching.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// MaxRetries is how many failed flushes a batch survives before it is dropped.
	MaxRetries int
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: time.Second,
		MaxRetries:    3,
	}
}

// DB is the subset of *pgxpool.Pool the journal needs.
type DB interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// eventRow is one row of tournament_events.
type eventRow struct {
	EventID      uuid.UUID
	TournamentID string
	EventType    string
	Payload      []byte // JSONB
	ReceivedAt   time.Time
}

// WriterMetrics holds metrics for a writer.
type WriterMetrics struct {
	Inserts   int64 `json:"inserts"`
	Conflicts int64 `json:"conflicts"`
	Errors    int64 `json:"errors"`  // Failed flushes
	Dropped   int64 `json:"dropped"` // Rows abandoned after MaxRetries
	Flushes   int64 `json:"flushes"`
}
