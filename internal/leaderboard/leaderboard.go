// Package leaderboard is the durable append-and-ranked-read store for
// retired players' final statistics.
package leaderboard

import "context"

// DefaultLimit and MaxLimit bound a single Query call; the core rejects
// anything above MaxLimit before it ever reaches a Store.
const (
	DefaultLimit = 100
	MaxLimit     = 100
)

// Record is one immutable retired-player row.
type Record struct {
	Name           string
	Score          int
	PlayTimeMillis int64
}

// Store is the abstract ordered-record backend. Save appends one row;
// Query returns rows ordered by (score DESC, playTimeMs ASC, name ASC).
type Store interface {
	Save(ctx context.Context, rec Record) error
	Query(ctx context.Context, offset, limit int) ([]Record, error)
	Close() error
}
