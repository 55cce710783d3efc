// Package store persists confirmed health records.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tbxark/healthagent/engine"
	"github.com/tbxark/healthagent/types"
)

// DefaultListLimit caps ListRecords when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Repository stores committed records.
type Repository interface {
	// SaveRecord inserts a record. The record must carry an ID.
	SaveRecord(ctx context.Context, record *types.Record) error

	// ListRecords returns the newest records first. An empty kind lists every kind.
	ListRecords(ctx context.Context, kind types.RecordKind, limit int) ([]types.Record, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Committer adapts a Repository to engine.Committer. It assigns an id and a
// confirmation time when the record has none.
func Committer(repo Repository) engine.Committer {
	return engine.CommitterFunc(func(ctx context.Context, record *types.Record) error {
		if record == nil {
			return fmt.Errorf("nil record: %w", types.ErrInvariantViolation)
		}
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		if record.ConfirmedAt.IsZero() {
			record.ConfirmedAt = time.Now()
		}
		return repo.SaveRecord(ctx, record)
	})
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
