package router

import (
	"encoding/json"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/rickgao/torvi-live/internal/model"
)

// Router counts validated events and forwards them to the journal.
type Router interface {
	// Route records one event received for a tournament.
	Route(tournamentID string, ev model.Event, receivedAt time.Time)

	// Journal returns the journal buffer, or nil when journaling is off.
	Journal() *GrowableBuffer[EventMsg]

	// Stats returns current router statistics.
	Stats() RouterStats

	// TournamentStats returns counters for one tournament.
	TournamentStats(tournamentID string) (TournamentStats, bool)

	// Stop closes the journal buffer. Routing afterwards only counts.
	Stop()
}

// router is the internal implementation.
type router struct {
	cfg    RouterConfig
	logger *slog.Logger

	journal *GrowableBuffer[EventMsg]

	mu           sync.RWMutex
	routed       int64
	encodeErrors int64
	byType       map[string]int64
	tournaments  map[string]*TournamentStats
}

// NewRouter creates an event router.
func NewRouter(cfg RouterConfig, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}

	r := &router{
		cfg:         cfg,
		logger:      logger,
		byType:      make(map[string]int64),
		tournaments: make(map[string]*TournamentStats),
	}
	if cfg.Journal {
		r.journal = NewGrowableBuffer[EventMsg](cfg.JournalBufferSize)
	}
	return r
}

// Route records one event.
func (r *router) Route(tournamentID string, ev model.Event, receivedAt time.Time) {
	eventType := ev.EventType()

	r.mu.Lock()
	r.routed++
	r.byType[eventType]++
	ts, ok := r.tournaments[tournamentID]
	if !ok {
		ts = &TournamentStats{ByType: make(map[string]int64)}
		r.tournaments[tournamentID] = ts
	}
	ts.Events++
	ts.ByType[eventType]++
	ts.LastEventAt = receivedAt
	r.mu.Unlock()

	if r.journal == nil {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		r.mu.Lock()
		r.encodeErrors++
		r.mu.Unlock()
		r.logger.Warn("encode event for journal", "tournament_id", tournamentID, "event_type", eventType, "error", err)
		return
	}

	if !r.journal.Send(EventMsg{
		TournamentID: tournamentID,
		EventType:    eventType,
		Payload:      payload,
		ReceivedAt:   receivedAt,
	}) {
		r.logger.Debug("journal closed, event not recorded", "tournament_id", tournamentID, "event_type", eventType)
	}
}

// Journal returns the journal buffer.
func (r *router) Journal() *GrowableBuffer[EventMsg] {
	return r.journal
}

// Stats returns current router statistics.
func (r *router) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RouterStats{
		EventsRouted: r.routed,
		EncodeErrors: r.encodeErrors,
		ByType:       maps.Clone(r.byType),
		Tournaments:  len(r.tournaments),
	}
	if r.journal != nil {
		stats.JournalBuffer = r.journal.Stats()
	}
	return stats
}

// TournamentStats returns counters for one tournament.
func (r *router) TournamentStats(tournamentID string) (TournamentStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ts, ok := r.tournaments[tournamentID]
	if !ok {
		return TournamentStats{}, false
	}
	out := *ts
	out.ByType = maps.Clone(ts.ByType)
	return out, true
}

// Stop closes the journal buffer.
func (r *router) Stop() {
	if r.journal != nil {
		r.journal.Close()
	}
	r.logger.Info("event router stopped", "events_routed", r.Stats().EventsRouted)
}
