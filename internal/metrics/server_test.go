package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rickgao/torvi-live/internal/router"
	"github.com/rickgao/torvi-live/internal/version"
	"github.com/rickgao/torvi-live/internal/watch"
	"github.com/rickgao/torvi-live/internal/writer"
)

type fakeStatuses []watch.Status

func (f fakeStatuses) Statuses() []watch.Status { return f }

func (f fakeStatuses) Status(id string) (watch.Status, bool) {
	for _, st := range f {
		if st.ID == id {
			return st, true
		}
	}
	return watch.Status{}, false
}

type fakeEvents struct {
	stats router.RouterStats
	byID  map[string]router.TournamentStats
}

func (f fakeEvents) Stats() router.RouterStats { return f.stats }

func (f fakeEvents) TournamentStats(id string) (router.TournamentStats, bool) {
	ts, ok := f.byID[id]
	return ts, ok
}

type fakeJournal writer.WriterMetrics

func (f fakeJournal) Stats() writer.WriterMetrics { return writer.WriterMetrics(f) }

var statuses = fakeStatuses{
	{ID: "t-1", Connected: true},
	{ID: "t-2", Connected: false},
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	rec := get(t, NewRouter(statuses), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	decode(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestListTournaments(t *testing.T) {
	rec := get(t, NewRouter(statuses), "/tournaments")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body []watch.Status
	decode(t, rec, &body)
	if len(body) != 2 || body[0].ID != "t-1" || !body[0].Connected || body[1].Connected {
		t.Errorf("body = %+v", body)
	}
}

func TestGetTournament(t *testing.T) {
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := fakeEvents{byID: map[string]router.TournamentStats{
		"t-1": {Events: 3, ByType: map[string]int64{"vote_cast": 3}, LastEventAt: last},
	}}
	h := NewRouter(statuses, WithEventStats(events))

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantEvents int64
		wantLast   bool
	}{
		{"with events", "/tournaments/t-1", http.StatusOK, 3, true},
		{"no events yet", "/tournaments/t-2", http.StatusOK, 0, false},
		{"not watched", "/tournaments/t-9", http.StatusNotFound, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.path)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var body tournamentResponse
			decode(t, rec, &body)
			if body.Events != tt.wantEvents {
				t.Errorf("Events = %d, want %d", body.Events, tt.wantEvents)
			}
			if (body.LastEventAt != nil) != tt.wantLast {
				t.Errorf("LastEventAt = %v", body.LastEventAt)
			}
			if tt.wantLast && !body.LastEventAt.Equal(last) {
				t.Errorf("LastEventAt = %v, want %v", body.LastEventAt, last)
			}
		})
	}
}

func TestStats(t *testing.T) {
	events := fakeEvents{stats: router.RouterStats{
		EventsRouted:  7,
		ByType:        map[string]int64{"vote_cast": 5, "match_completed": 2},
		JournalBuffer: router.BufferStats{Count: 1, Capacity: 16},
	}}
	journal := fakeJournal{Inserts: 6, Flushes: 2}

	rec := get(t, NewRouter(statuses, WithEventStats(events), WithJournalStats(journal)), "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body statsResponse
	decode(t, rec, &body)
	if body.Tournaments != 2 || body.Connected != 1 {
		t.Errorf("tournaments = %d, connected = %d", body.Tournaments, body.Connected)
	}
	if body.EventsRouted != 7 || body.ByType["vote_cast"] != 5 {
		t.Errorf("events = %d, by_type = %v", body.EventsRouted, body.ByType)
	}
	if body.Journal == nil || body.Journal.Inserts != 6 {
		t.Errorf("journal = %+v", body.Journal)
	}
	if body.JournalQueue == nil || body.JournalQueue.Capacity != 16 {
		t.Errorf("journal_queue = %+v", body.JournalQueue)
	}
}

func TestStats_WithoutJournal(t *testing.T) {
	rec := get(t, NewRouter(statuses), "/stats")

	var body statsResponse
	decode(t, rec, &body)
	if body.Journal != nil || body.JournalQueue != nil {
		t.Errorf("unexpected journal fields: %+v", body)
	}
}

func TestVersion(t *testing.T) {
	rec := get(t, NewRouter(statuses), "/version")

	var body version.Info
	decode(t, rec, &body)
	if body != version.Get() {
		t.Errorf("body = %+v, want %+v", body, version.Get())
	}
}

func TestUnknownRoute(t *testing.T) {
	rec := get(t, NewRouter(statuses), "/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
