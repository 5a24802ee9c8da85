// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ward-dev/ward/internal/store"
)

// Compile-time interface check.
var _ store.AuditStore = (*AuditStore)(nil)

// AuditStore implements store.AuditStore backed by a single SQLite database.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore opens (or creates) a SQLite database at dbPath and
// initialises the audit_log table.
func NewAuditStore(dbPath string) (*AuditStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening audit db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging audit db: %w", err)
	}

	if err := migrateAudit(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating audit db: %w", err)
	}

	return &AuditStore{db: db}, nil
}

func migrateAudit(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS audit_log (
	id        TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	action    TEXT NOT NULL DEFAULT '',
	actor     TEXT NOT NULL DEFAULT '',
	plugin    TEXT NOT NULL DEFAULT '',
	details   TEXT NOT NULL DEFAULT '{}',
	result    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp ON audit_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_log_action    ON audit_log(action);
CREATE INDEX IF NOT EXISTS idx_audit_log_plugin    ON audit_log(plugin);
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the underlying database connection.
func (s *AuditStore) Close() error { return s.db.Close() }

func (s *AuditStore) Append(ctx context.Context, entry *store.AuditEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	details := "{}"
	if entry.Details != nil {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshalling audit details: %w", err)
		}
		details = string(b)
	}

	const q = `INSERT INTO audit_log (id, timestamp, action, actor, plugin, details, result)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		entry.ID, formatTime(entry.Timestamp), entry.Action, entry.Actor,
		entry.Plugin, details, entry.Result,
	)
	if err != nil {
		return fmt.Errorf("appending audit entry %s: %w", entry.ID, err)
	}
	return nil
}

func (s *AuditStore) Query(ctx context.Context, filter store.AuditFilter) ([]*store.AuditEntry, error) {
	var qb strings.Builder
	qb.WriteString(`SELECT id, timestamp, action, actor, plugin, details, result FROM audit_log`)

	var conditions []string
	var args []any

	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.Actor != "" {
		conditions = append(conditions, "actor = ?")
		args = append(args, filter.Actor)
	}
	if filter.Plugin != "" {
		conditions = append(conditions, "plugin = ?")
		args = append(args, filter.Plugin)
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "timestamp < ?")
		args = append(args, formatTime(filter.To))
	}

	if len(conditions) > 0 {
		qb.WriteString(" WHERE ")
		qb.WriteString(strings.Join(conditions, " AND "))
	}

	qb.WriteString(" ORDER BY timestamp ASC")

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	qb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close() //nolint:errcheck // error on read-path close is not actionable

	var entries []*store.AuditEntry
	for rows.Next() {
		var e store.AuditEntry
		var ts, detailsJSON string
		if err := rows.Scan(
			&e.ID, &ts, &e.Action, &e.Actor, &e.Plugin, &detailsJSON, &e.Result,
		); err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		var err error
		e.Timestamp, err = parseTime(ts)
		if err != nil {
			return nil, fmt.Errorf("parsing audit entry %s timestamp: %w", e.ID, err)
		}
		if detailsJSON != "" && detailsJSON != "{}" {
			if err := json.Unmarshal([]byte(detailsJSON), &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshalling audit details: %w", err)
			}
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}
	return entries, nil
}

// formatTime serialises a time for TEXT storage, sortable and stable.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
