// Package model defines the tournament event types shared across torvi-live.
//
// Inbound events are a tagged union discriminated by the "type" field. Each
// variant is a plain struct implementing Event; ParseEvent is the only way
// raw frames become events.
//
// Conventions:
//   - Wire tags: snake_case strings (e.g. "vote_cast")
//   - Counts and round numbers: JSON integers, decoded as int
//   - IDs: opaque strings (tournament, match, and choice ids)
package model
