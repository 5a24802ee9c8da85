// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

// Package store persists Ward's audit trail: every trust decision and
// every dispatched tool call, queryable for operator review.
package store

import "context"

// AuditStore manages the audit trail.
type AuditStore interface {
	Append(ctx context.Context, entry *AuditEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]*AuditEntry, error)
	Close() error
}
