package metrics

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rickgao/torvi-live/internal/router"
	"github.com/rickgao/torvi-live/internal/version"
	"github.com/rickgao/torvi-live/internal/watch"
	"github.com/rickgao/torvi-live/internal/writer"
)

// StatusSource reports watched tournaments.
type StatusSource interface {
	Statuses() []watch.Status
	Status(id string) (watch.Status, bool)
}

// EventStats reports routed event counters.
type EventStats interface {
	Stats() router.RouterStats
	TournamentStats(id string) (router.TournamentStats, bool)
}

// JournalStats reports journal writer counters.
type JournalStats interface {
	Stats() writer.WriterMetrics
}

type tournamentResponse struct {
	ID          string           `json:"id"`
	Connected   bool             `json:"connected"`
	Events      int64            `json:"events"`
	ByType      map[string]int64 `json:"by_type,omitempty"`
	LastEventAt *time.Time       `json:"last_event_at,omitempty"`
}

type statsResponse struct {
	Tournaments  int                   `json:"tournaments"`
	Connected    int                   `json:"connected"`
	EventsRouted int64                 `json:"events_routed"`
	EncodeErrors int64                 `json:"encode_errors"`
	ByType       map[string]int64      `json:"by_type"`
	JournalQueue *router.BufferStats   `json:"journal_queue,omitempty"`
	Journal      *writer.WriterMetrics `json:"journal,omitempty"`
}

type handlers struct {
	statuses StatusSource
	events   EventStats
	journal  JournalStats
	started  time.Time
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *handlers) listTournaments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.statuses.Statuses())
}

func (h *handlers) getTournament(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	st, ok := h.statuses.Status(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "tournament not watched"})
		return
	}

	resp := tournamentResponse{ID: st.ID, Connected: st.Connected}
	if h.events != nil {
		if ts, ok := h.events.TournamentStats(id); ok {
			resp.Events = ts.Events
			resp.ByType = ts.ByType
			last := ts.LastEventAt.UTC()
			resp.LastEventAt = &last
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	statuses := h.statuses.Statuses()
	resp := statsResponse{
		Tournaments: len(statuses),
		ByType:      map[string]int64{},
	}
	for _, st := range statuses {
		if st.Connected {
			resp.Connected++
		}
	}

	if h.events != nil {
		rs := h.events.Stats()
		resp.EventsRouted = rs.EventsRouted
		resp.EncodeErrors = rs.EncodeErrors
		resp.ByType = rs.ByType
		if h.journal != nil {
			q := rs.JournalBuffer
			resp.JournalQueue = &q
		}
	}
	if h.journal != nil {
		js := h.journal.Stats()
		resp.Journal = &js
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
