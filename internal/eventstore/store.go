// Package eventstore journals assembly runs into an append-only event log.
package eventstore

import (
	"context"
	"time"
)

// Store persists journal entries.
type Store interface {
	// Append stores e and returns its sequence number. A zero At is set to
	// the current time.
	Append(ctx context.Context, e Entry) (int64, error)

	// Run returns the entries of runID in append order.
	Run(ctx context.Context, runID string) ([]Entry, error)

	// Between returns the entries appended within [from, to].
	Between(ctx context.Context, from, to time.Time) ([]Entry, error)

	// RecentRuns lists up to limit run identifiers, most recent first.
	RecentRuns(ctx context.Context, limit int) ([]string, error)

	Close() error
}
