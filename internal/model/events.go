package model

import "encoding/json"

// Wire tags for tournament events.
const (
	TypeVoteCast            = "vote_cast"
	TypeMatchCompleted      = "match_completed"
	TypeRoundCompleted      = "round_completed"
	TypeTournamentCompleted = "tournament_completed"
	TypeParticipantJoined   = "participant_joined"
	TypeTournamentPaused    = "tournament_paused"
	TypeTournamentResumed   = "tournament_resumed"
	TypeError               = "error"
)

// Wire tags for client keepalive messages.
const (
	TypePing = "ping"
	TypePong = "pong"
)

// Event is a validated inbound tournament event.
// The set of implementations is closed; use a type switch to inspect one.
type Event interface {
	// EventType returns the wire tag of the variant.
	EventType() string

	isEvent()
}

// -----------------------------------------------------------------------------
// Variants
// -----------------------------------------------------------------------------

// VoteCast reports the running tally of a match after a vote.
type VoteCast struct {
	MatchID     string         `json:"match_id"`
	VoteCounts  map[string]int `json:"vote_counts"` // choice id → votes
	TotalNeeded int            `json:"total_needed"`
}

// MatchCompleted reports the winner and final tally of a match.
type MatchCompleted struct {
	MatchID    string         `json:"match_id"`
	WinnerID   string         `json:"winner_id"`
	FinalVotes map[string]int `json:"final_votes"`
}

// RoundCompleted reports that a round closed and the next one was generated.
type RoundCompleted struct {
	RoundNumber      int `json:"round_number"`
	NextRoundMatches int `json:"next_round_matches"`
}

// TournamentCompleted reports the overall winner.
type TournamentCompleted struct {
	WinnerID string `json:"winner_id"`
}

// ParticipantJoined reports a new voter joining the tournament.
type ParticipantJoined struct {
	DisplayName      string `json:"display_name"`
	ParticipantCount int    `json:"participant_count"`
}

// TournamentPaused carries no payload.
type TournamentPaused struct{}

// TournamentResumed carries no payload.
type TournamentResumed struct{}

// ErrorEvent is a server-reported error. It is still a valid event.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (VoteCast) EventType() string            { return TypeVoteCast }
func (MatchCompleted) EventType() string      { return TypeMatchCompleted }
func (RoundCompleted) EventType() string      { return TypeRoundCompleted }
func (TournamentCompleted) EventType() string { return TypeTournamentCompleted }
func (ParticipantJoined) EventType() string   { return TypeParticipantJoined }
func (TournamentPaused) EventType() string    { return TypeTournamentPaused }
func (TournamentResumed) EventType() string   { return TypeTournamentResumed }
func (ErrorEvent) EventType() string          { return TypeError }

func (VoteCast) isEvent()            {}
func (MatchCompleted) isEvent()      {}
func (RoundCompleted) isEvent()      {}
func (TournamentCompleted) isEvent() {}
func (ParticipantJoined) isEvent()   {}
func (TournamentPaused) isEvent()    {}
func (TournamentResumed) isEvent()   {}
func (ErrorEvent) isEvent()          {}

// -----------------------------------------------------------------------------
// Wire encoding
// -----------------------------------------------------------------------------

// Each variant encodes with its "type" tag first so a delivered event
// re-encodes to the frame it was parsed from.

func (e VoteCast) MarshalJSON() ([]byte, error) {
	type payload VoteCast
	return json.Marshal(struct {
		Type string `json:"type"`
		payload
	}{TypeVoteCast, payload(e)})
}

func (e MatchCompleted) MarshalJSON() ([]byte, error) {
	type payload MatchCompleted
	return json.Marshal(struct {
		Type string `json:"type"`
		payload
	}{TypeMatchCompleted, payload(e)})
}

func (e RoundCompleted) MarshalJSON() ([]byte, error) {
	type payload RoundCompleted
	return json.Marshal(struct {
		Type string `json:"type"`
		payload
	}{TypeRoundCompleted, payload(e)})
}

func (e TournamentCompleted) MarshalJSON() ([]byte, error) {
	type payload TournamentCompleted
	return json.Marshal(struct {
		Type string `json:"type"`
		payload
	}{TypeTournamentCompleted, payload(e)})
}

func (e ParticipantJoined) MarshalJSON() ([]byte, error) {
	type payload ParticipantJoined
	return json.Marshal(struct {
		Type string `json:"type"`
		payload
	}{TypeParticipantJoined, payload(e)})
}

func (TournamentPaused) MarshalJSON() ([]byte, error) {
	return tagOnly(TypeTournamentPaused)
}

func (TournamentResumed) MarshalJSON() ([]byte, error) {
	return tagOnly(TypeTournamentResumed)
}

func (e ErrorEvent) MarshalJSON() ([]byte, error) {
	type payload ErrorEvent
	return json.Marshal(struct {
		Type string `json:"type"`
		payload
	}{TypeError, payload(e)})
}

func tagOnly(tag string) ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{tag})
}

// -----------------------------------------------------------------------------
// Client messages
// -----------------------------------------------------------------------------

// ClientMessage is a message sent from the client to the feed.
type ClientMessage struct {
	Type string `json:"type"`
}

// Ping is the heartbeat message: {"type":"ping"}.
var Ping = ClientMessage{Type: TypePing}
