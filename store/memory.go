package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/tbxark/healthagent/types"
)

// MemoryStore keeps records in process memory, oldest first.
type MemoryStore struct {
	mu      sync.RWMutex
	records []types.Record
	ids     map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

func (m *MemoryStore) SaveRecord(ctx context.Context, record *types.Record) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("record without id: %w", types.ErrInvariantViolation)
	}
	if !record.Kind.Valid() {
		return fmt.Errorf("unknown record kind %q: %w", record.Kind, types.ErrInvariantViolation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[record.ID]; ok {
		return fmt.Errorf("record %s already exists", record.ID)
	}
	rec := cloneRecord(*record)
	m.records = append(m.records, rec)
	m.ids[rec.ID] = struct{}{}
	return nil
}

func (m *MemoryStore) ListRecords(ctx context.Context, kind types.RecordKind, limit int) ([]types.Record, error) {
	limit = normalizeLimit(limit)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.Record
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := m.records[i]
		if kind != "" && rec.Kind != kind {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func cloneRecord(rec types.Record) types.Record {
	rec.Slots = rec.Slots.Clone()
	if rec.Derived.Macros != nil {
		macros := *rec.Derived.Macros
		rec.Derived.Macros = &macros
	}
	return rec
}
