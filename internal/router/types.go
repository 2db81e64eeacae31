package router

import (
	"encoding/json"
	"time"
)

// RouterConfig holds configuration for the event router.
type RouterConfig struct {
	Journal           bool // Push routed events into the journal buffer
	JournalBufferSize int  // Initial journal buffer capacity. Default: 10000
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		JournalBufferSize: 10000,
	}
}

// EventMsg is one validated event bound for the journal.
type EventMsg struct {
	TournamentID string
	EventType    string
	Payload      json.RawMessage // Canonical wire encoding of the event
	ReceivedAt   time.Time
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	EventsRouted  int64
	EncodeErrors  int64
	ByType        map[string]int64
	Tournaments   int
	JournalBuffer BufferStats
}

// TournamentStats contains per-tournament counters.
type TournamentStats struct {
	Events      int64
	ByType      map[string]int64
	LastEventAt time.Time
}
