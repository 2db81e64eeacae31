package writer

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/torvi-live/internal/router"
)

// eventNamespace scopes content-derived event ids.
var eventNamespace = uuid.MustParse("6f1d3c1e-5b7a-4f0e-9a51-2c9d7e4b8a10")

const insertEvent = `
	INSERT INTO tournament_events (event_id, tournament_id, event_type, payload, received_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (event_id) DO NOTHING
`

// JournalWriter consumes EventMsg from the router buffer and writes to tournament_events.
type JournalWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	// Input from the event router
	input *router.GrowableBuffer[router.EventMsg]

	db DB

	// Batching
	batch   []eventRow
	retry   []eventRow // Failed rows, retried ahead of the next batch
	retries int
	batchMu sync.Mutex
	flushMu sync.Mutex

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewJournalWriter creates a new JournalWriter.
func NewJournalWriter(
	cfg WriterConfig,
	input *router.GrowableBuffer[router.EventMsg],
	db DB,
	logger *slog.Logger,
) *JournalWriter {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultWriterConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	return &JournalWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]eventRow, 0, cfg.BatchSize),
		ctx:    context.Background(),
	}
}

// Start begins consuming events and writing to the database.
func (w *JournalWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(2)
	go w.consumeLoop()
	go w.flushLoop()

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts down the writer. Events still buffered are written in a final
// flush bounded by ctx.
func (w *JournalWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal writer")

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
	}

	for _, msg := range w.input.DrainTo(0) {
		w.add(msg)
	}
	w.flushWith(ctx)

	stats := w.Stats()
	w.logger.Info("journal writer stopped",
		"inserts", stats.Inserts,
		"errors", stats.Errors,
		"dropped", stats.Dropped,
	)
	return nil
}

// Stats returns current metrics.
func (w *JournalWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads from the input buffer and accumulates batches.
func (w *JournalWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		msg, ok := w.input.TryReceive()
		if !ok {
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
				continue
			}
		}

		if w.add(msg) {
			w.flush()
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *JournalWriter) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush()
		}
	}
}

// add appends an event to the batch and reports whether the batch is full.
func (w *JournalWriter) add(msg router.EventMsg) bool {
	row := transform(msg)

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, row)
	return len(w.batch) >= w.cfg.BatchSize
}

// transform converts an EventMsg to an eventRow.
func transform(msg router.EventMsg) eventRow {
	return eventRow{
		EventID:      eventID(msg),
		TournamentID: msg.TournamentID,
		EventType:    msg.EventType,
		Payload:      msg.Payload,
		ReceivedAt:   msg.ReceivedAt.UTC(),
	}
}

// eventID derives a stable id from the tournament, receive time and payload.
func eventID(msg router.EventMsg) uuid.UUID {
	key := make([]byte, 0, len(msg.TournamentID)+len(msg.Payload)+24)
	key = append(key, msg.TournamentID...)
	key = append(key, 0)
	key = strconv.AppendInt(key, msg.ReceivedAt.UnixNano(), 10)
	key = append(key, 0)
	key = append(key, msg.Payload...)
	return uuid.NewSHA1(eventNamespace, key)
}

func (w *JournalWriter) flush() {
	w.flushWith(w.ctx)
}

// flushWith writes pending retries plus the current batch.
func (w *JournalWriter) flushWith(ctx context.Context) {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.batchMu.Lock()
	rows := append(w.retry, w.batch...)
	w.retry = nil
	w.batch = make([]eventRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	if len(rows) == 0 {
		return
	}

	start := time.Now()
	conflicts, err := w.batchInsert(ctx, rows)
	if err != nil {
		w.failed(rows, err)
		return
	}

	w.batchMu.Lock()
	w.retries = 0
	w.metrics.Inserts += int64(len(rows) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed journal",
		"count", len(rows),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// failed keeps rows for the next flush until MaxRetries is exhausted.
func (w *JournalWriter) failed(rows []eventRow, err error) {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()

	w.metrics.Errors++
	w.retries++
	if w.retries > w.cfg.MaxRetries {
		w.metrics.Dropped += int64(len(rows))
		w.retries = 0
		w.logger.Error("journal batch dropped", "error", err, "count", len(rows))
		return
	}

	w.retry = rows
	w.logger.Warn("journal batch insert failed, will retry",
		"error", err,
		"count", len(rows),
		"retry", w.retries,
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *JournalWriter) batchInsert(ctx context.Context, rows []eventRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertEvent, r.EventID, r.TournamentID, r.EventType, r.Payload, r.ReceivedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
