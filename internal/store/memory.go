// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package store

import (
	"context"
	"slices"
	"sync"
)

func init() {
	RegisterBackend("memory", func(string) (AuditStore, error) {
		return NewMemoryAuditStore(), nil
	})
}

// MemoryAuditStore is an in-memory AuditStore. It backs the "memory"
// backend and the subsystem tests; entries do not survive a restart.
type MemoryAuditStore struct {
	mu      sync.Mutex
	entries []*AuditEntry
}

var _ AuditStore = (*MemoryAuditStore)(nil)

// NewMemoryAuditStore returns an empty in-memory audit store.
func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

func (s *MemoryAuditStore) Append(_ context.Context, entry *AuditEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	cp := *entry
	if entry.Details != nil {
		cp.Details = make(map[string]any, len(entry.Details))
		for k, v := range entry.Details {
			cp.Details[k] = v
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *MemoryAuditStore) Query(_ context.Context, filter AuditFilter) ([]*AuditEntry, error) {
	s.mu.Lock()
	entries := slices.Clone(s.entries)
	s.mu.Unlock()

	var matched []*AuditEntry
	for _, e := range entries {
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.Actor != "" && e.Actor != filter.Actor {
			continue
		}
		if filter.Plugin != "" && e.Plugin != filter.Plugin {
			continue
		}
		if !filter.From.IsZero() && e.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !e.Timestamp.Before(filter.To) {
			continue
		}
		matched = append(matched, e)
	}

	slices.SortStableFunc(matched, func(a, b *AuditEntry) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	offset := filter.Offset
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryAuditStore) Close() error { return nil }
