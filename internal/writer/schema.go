package writer

import (
	"context"
	"fmt"
)

// Schema is the DDL for the event journal.
const Schema = `
CREATE TABLE IF NOT EXISTS tournament_events (
	event_id      UUID PRIMARY KEY,
	tournament_id TEXT        NOT NULL,
	event_type    TEXT        NOT NULL,
	payload       JSONB       NOT NULL,
	received_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS tournament_events_tournament_received_idx
	ON tournament_events (tournament_id, received_at);
`

// EnsureSchema creates the journal table if it does not exist.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure journal schema: %w", err)
	}
	return nil
}
