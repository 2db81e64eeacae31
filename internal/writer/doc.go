// Package writer persists validated feed events to PostgreSQL.
//
// The JournalWriter drains router.EventMsg values from a growable buffer,
// batches them, and inserts them into tournament_events with
// ON CONFLICT DO NOTHING. Event ids are derived from the event content, so a
// retried batch never produces duplicate rows.
package writer
