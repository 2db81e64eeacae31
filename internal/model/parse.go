package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Errors returned by ParseEvent.
var (
	ErrMalformedEvent   = errors.New("malformed event")
	ErrUnknownEventType = errors.New("unknown event type")
)

// fields is a decoded JSON object whose members are decoded on demand.
type fields map[string]json.RawMessage

// ParseEvent validates a raw frame against the tournament event union.
// It returns exactly one variant or an error wrapping ErrMalformedEvent or
// ErrUnknownEventType. Unknown extra members are ignored.
func ParseEvent(data []byte) (Event, error) {
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if f == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedEvent)
	}

	var tag string
	if err := f.decode("type", &tag); err != nil {
		return nil, err
	}

	switch tag {
	case TypeVoteCast:
		var e VoteCast
		if err := f.decode("match_id", &e.MatchID); err != nil {
			return nil, err
		}
		if err := f.decodeCounts("vote_counts", &e.VoteCounts); err != nil {
			return nil, err
		}
		if err := f.decode("total_needed", &e.TotalNeeded); err != nil {
			return nil, err
		}
		return e, nil

	case TypeMatchCompleted:
		var e MatchCompleted
		if err := f.decode("match_id", &e.MatchID); err != nil {
			return nil, err
		}
		if err := f.decode("winner_id", &e.WinnerID); err != nil {
			return nil, err
		}
		if err := f.decodeCounts("final_votes", &e.FinalVotes); err != nil {
			return nil, err
		}
		return e, nil

	case TypeRoundCompleted:
		var e RoundCompleted
		if err := f.decode("round_number", &e.RoundNumber); err != nil {
			return nil, err
		}
		if err := f.decode("next_round_matches", &e.NextRoundMatches); err != nil {
			return nil, err
		}
		return e, nil

	case TypeTournamentCompleted:
		var e TournamentCompleted
		if err := f.decode("winner_id", &e.WinnerID); err != nil {
			return nil, err
		}
		return e, nil

	case TypeParticipantJoined:
		var e ParticipantJoined
		if err := f.decode("display_name", &e.DisplayName); err != nil {
			return nil, err
		}
		if err := f.decode("participant_count", &e.ParticipantCount); err != nil {
			return nil, err
		}
		return e, nil

	case TypeTournamentPaused:
		return TournamentPaused{}, nil

	case TypeTournamentResumed:
		return TournamentResumed{}, nil

	case TypeError:
		var e ErrorEvent
		if err := f.decode("message", &e.Message); err != nil {
			return nil, err
		}
		return e, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, tag)
}

// decode unmarshals a required member. A missing or null member is an error.
func (f fields) decode(name string, dst any) error {
	raw, ok := f[name]
	if !ok || isNull(raw) {
		return fmt.Errorf("%w: missing %q", ErrMalformedEvent, name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: field %q: %v", ErrMalformedEvent, name, err)
	}
	return nil
}

// decodeCounts unmarshals a required choice id → count object.
// Null counts are rejected rather than decoded as zero.
func (f fields) decodeCounts(name string, dst *map[string]int) error {
	var counts map[string]*int
	if err := f.decode(name, &counts); err != nil {
		return err
	}

	out := make(map[string]int, len(counts))
	for choice, n := range counts {
		if n == nil {
			return fmt.Errorf("%w: field %q: null count for %q", ErrMalformedEvent, name, choice)
		}
		out[choice] = *n
	}
	*dst = out
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
