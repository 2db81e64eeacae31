package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/torvi-live/internal/router"
)

// ---- fake database ----

type fakeDB struct {
	mu       sync.Mutex
	failures int // SendBatch calls that fail before any succeed
	rows     map[uuid.UUID]eventRow
	batches  int
	execs    []string
}

func newFakeDB() *fakeDB {
	return &fakeDB{rows: make(map[uuid.UUID]eventRow)}
}

func (f *fakeDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return &fakeResults{err: err}
	}
	if f.failures > 0 {
		f.failures--
		return &fakeResults{err: errors.New("connection reset by peer")}
	}

	f.batches++
	res := &fakeResults{}
	for _, q := range b.QueuedQueries {
		id := q.Arguments[0].(uuid.UUID)
		if _, dup := f.rows[id]; dup {
			res.affected = append(res.affected, 0)
			continue
		}
		f.rows[id] = eventRow{
			EventID:      id,
			TournamentID: q.Arguments[1].(string),
			EventType:    q.Arguments[2].(string),
			Payload:      q.Arguments[3].([]byte),
			ReceivedAt:   q.Arguments[4].(time.Time),
		}
		res.affected = append(res.affected, 1)
	}
	return res
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakeDB) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeResults struct {
	err      error
	affected []int64
}

func (r *fakeResults) Exec() (pgconn.CommandTag, error) {
	if r.err != nil {
		return pgconn.CommandTag{}, r.err
	}
	n := r.affected[0]
	r.affected = r.affected[1:]
	return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", n)), nil
}

func (r *fakeResults) Query() (pgx.Rows, error) { return nil, errors.New("not supported") }
func (r *fakeResults) QueryRow() pgx.Row        { return nil }
func (r *fakeResults) Close() error             { return r.err }

// ---- helpers ----

func eventMsg(tournamentID, eventType string, at time.Time) router.EventMsg {
	return router.EventMsg{
		TournamentID: tournamentID,
		EventType:    eventType,
		Payload:      json.RawMessage(`{"type":"` + eventType + `"}`),
		ReceivedAt:   at,
	}
}

// ---- tests ----

func TestTransform(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("EST", -5*3600))
	msg := eventMsg("t-1", "tournament_paused", at)

	row := transform(msg)

	if row.TournamentID != "t-1" || row.EventType != "tournament_paused" {
		t.Errorf("row = %+v", row)
	}
	if string(row.Payload) != `{"type":"tournament_paused"}` {
		t.Errorf("Payload = %s", row.Payload)
	}
	if row.ReceivedAt.Location() != time.UTC || !row.ReceivedAt.Equal(at) {
		t.Errorf("ReceivedAt = %v, want %v in UTC", row.ReceivedAt, at)
	}
	if row.EventID.Version() != 5 {
		t.Errorf("EventID version = %d, want 5", row.EventID.Version())
	}
}

func TestEventID(t *testing.T) {
	at := time.Now()
	base := eventMsg("t-1", "tournament_paused", at)

	if eventID(base) != eventID(base) {
		t.Error("eventID is not deterministic")
	}

	variants := map[string]router.EventMsg{
		"other tournament": eventMsg("t-2", "tournament_paused", at),
		"other time":       eventMsg("t-1", "tournament_paused", at.Add(time.Nanosecond)),
		"other payload":    eventMsg("t-1", "tournament_resumed", at),
	}
	for name, msg := range variants {
		if eventID(msg) == eventID(base) {
			t.Errorf("%s: eventID collides with base", name)
		}
	}
}

func TestJournalWriter_Flush(t *testing.T) {
	db := newFakeDB()
	w := NewJournalWriter(WriterConfig{BatchSize: 100, FlushInterval: time.Hour}, router.NewGrowableBuffer[router.EventMsg](10), db, nil)

	at := time.Now()
	w.add(eventMsg("t-1", "vote_cast", at))
	w.add(eventMsg("t-1", "vote_cast", at.Add(time.Millisecond)))
	w.add(eventMsg("t-1", "vote_cast", at)) // same content as the first
	w.flush()

	stats := w.Stats()
	if stats.Inserts != 2 || stats.Conflicts != 1 || stats.Flushes != 1 {
		t.Errorf("stats = %+v, want 2 inserts, 1 conflict, 1 flush", stats)
	}
	if db.count() != 2 {
		t.Errorf("rows = %d, want 2", db.count())
	}

	// Empty flush is a no-op.
	w.flush()
	if w.Stats().Flushes != 1 {
		t.Errorf("Flushes = %d, want 1", w.Stats().Flushes)
	}
}

func TestJournalWriter_RetriesFailedBatch(t *testing.T) {
	db := newFakeDB()
	db.failures = 1
	w := NewJournalWriter(WriterConfig{BatchSize: 100, FlushInterval: time.Hour, MaxRetries: 3}, router.NewGrowableBuffer[router.EventMsg](10), db, nil)

	w.add(eventMsg("t-1", "vote_cast", time.Now()))
	w.flush()

	if stats := w.Stats(); stats.Errors != 1 || stats.Inserts != 0 {
		t.Errorf("after failure stats = %+v", stats)
	}

	w.add(eventMsg("t-1", "tournament_paused", time.Now()))
	w.flush()

	stats := w.Stats()
	if stats.Inserts != 2 || stats.Dropped != 0 {
		t.Errorf("after retry stats = %+v, want 2 inserts", stats)
	}
}

func TestJournalWriter_DropsAfterMaxRetries(t *testing.T) {
	db := newFakeDB()
	db.failures = 10
	w := NewJournalWriter(WriterConfig{BatchSize: 100, FlushInterval: time.Hour, MaxRetries: 2}, router.NewGrowableBuffer[router.EventMsg](10), db, nil)

	w.add(eventMsg("t-1", "vote_cast", time.Now()))
	for i := 0; i < 3; i++ {
		w.flush()
	}

	stats := w.Stats()
	if stats.Errors != 3 || stats.Dropped != 1 {
		t.Errorf("stats = %+v, want 3 errors, 1 dropped", stats)
	}

	// Nothing left to retry.
	db.mu.Lock()
	db.failures = 0
	db.mu.Unlock()
	w.flush()
	if db.count() != 0 {
		t.Errorf("rows = %d, want 0", db.count())
	}
}

func TestJournalWriter_FlushesFullBatch(t *testing.T) {
	db := newFakeDB()
	input := router.NewGrowableBuffer[router.EventMsg](10)
	w := NewJournalWriter(WriterConfig{BatchSize: 2, FlushInterval: time.Hour}, input, db, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	at := time.Now()
	input.Send(eventMsg("t-1", "vote_cast", at))
	input.Send(eventMsg("t-1", "match_completed", at))

	deadline := time.Now().Add(time.Second)
	for db.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if db.count() != 2 {
		t.Errorf("rows = %d, want 2 after a full batch", db.count())
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestJournalWriter_StopWritesRemaining(t *testing.T) {
	db := newFakeDB()
	input := router.NewGrowableBuffer[router.EventMsg](10)
	w := NewJournalWriter(WriterConfig{BatchSize: 100, FlushInterval: time.Hour}, input, db, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	at := time.Now()
	for i := 0; i < 5; i++ {
		input.Send(eventMsg("t-1", "vote_cast", at.Add(time.Duration(i)*time.Millisecond)))
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}

	if db.count() != 5 {
		t.Errorf("rows = %d, want 5 after Stop", db.count())
	}
	if input.Len() != 0 {
		t.Errorf("input Len() = %d, want 0", input.Len())
	}
}

func TestEnsureSchema(t *testing.T) {
	db := newFakeDB()
	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if len(db.execs) != 1 || !strings.Contains(db.execs[0], "CREATE TABLE IF NOT EXISTS tournament_events") {
		t.Errorf("execs = %v", db.execs)
	}
}

func TestDefaultWriterConfig(t *testing.T) {
	cfg := DefaultWriterConfig()
	if cfg.BatchSize != 500 || cfg.FlushInterval != time.Second || cfg.MaxRetries != 3 {
		t.Errorf("DefaultWriterConfig() = %+v", cfg)
	}

	w := NewJournalWriter(WriterConfig{}, router.NewGrowableBuffer[router.EventMsg](1), newFakeDB(), nil)
	if w.cfg.BatchSize != 500 || w.cfg.FlushInterval != time.Second {
		t.Errorf("zero config not defaulted: %+v", w.cfg)
	}
}
