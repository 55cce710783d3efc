package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tbxark/healthagent/types"
	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	var dsn string
	if dbPath == MemoryDSN {
		dsn = MemoryDSN
	} else {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == MemoryDSN {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		summary TEXT NOT NULL,
		slots_json TEXT NOT NULL,
		derived_json TEXT NOT NULL,
		confirmed_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_kind_confirmed ON records(kind, confirmed_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveRecord(ctx context.Context, record *types.Record) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("record without id: %w", types.ErrInvariantViolation)
	}
	if !record.Kind.Valid() {
		return fmt.Errorf("unknown record kind %q: %w", record.Kind, types.ErrInvariantViolation)
	}
	slotsJSON, err := sonic.MarshalString(record.Slots)
	if err != nil {
		return fmt.Errorf("marshal slots: %w", err)
	}
	derivedJSON, err := sonic.MarshalString(record.Derived)
	if err != nil {
		return fmt.Errorf("marshal derived: %w", err)
	}
	query := `
	INSERT INTO records (id, kind, summary, slots_json, derived_json, confirmed_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		record.ID, string(record.Kind), record.Summary,
		slotsJSON, derivedJSON,
		record.ConfirmedAt.UnixMilli(), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	slog.Debug("Record saved", "id", record.ID, "kind", record.Kind)
	return nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context, kind types.RecordKind, limit int) ([]types.Record, error) {
	query := `SELECT id, kind, summary, slots_json, derived_json, confirmed_at FROM records`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY confirmed_at DESC, rowid DESC LIMIT ?`
	args = append(args, normalizeLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []types.Record
	for rows.Next() {
		var (
			rec                    types.Record
			recKind                string
			slotsJSON, derivedJSON string
			confirmedAt            int64
		)
		if err := rows.Scan(&rec.ID, &recKind, &rec.Summary, &slotsJSON, &derivedJSON, &confirmedAt); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		rec.Kind = types.RecordKind(recKind)
		if err := sonic.UnmarshalString(slotsJSON, &rec.Slots); err != nil {
			return nil, fmt.Errorf("decode slots of %s: %w", rec.ID, err)
		}
		if err := sonic.UnmarshalString(derivedJSON, &rec.Derived); err != nil {
			return nil, fmt.Errorf("decode derived of %s: %w", rec.ID, err)
		}
		rec.ConfirmedAt = time.UnixMilli(confirmedAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
