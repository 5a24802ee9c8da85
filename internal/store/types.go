// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package store

import (
	"fmt"
	"time"
)

// Audit actions recorded by the plugin subsystem.
const (
	ActionApprovalGranted = "approval.granted"
	ActionApprovalDenied  = "approval.denied"
	ActionPluginLoaded    = "plugin.loaded"
	ActionPluginFailed    = "plugin.load_failed"
	ActionSandboxFallback = "sandbox.fallback"
	ActionToolCalled      = "tool.called"
)

// Audit results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// AuditEntry records one security-relevant event.
type AuditEntry struct {
	ID        string
	Timestamp time.Time
	// Action is one of the Action* constants.
	Action string
	// Actor is who triggered the event: "user" for consent decisions,
	// "host" for startup loads, or the caller-supplied identity.
	Actor string
	// Plugin is the plugin id the event concerns; empty for host-level events.
	Plugin string
	// Details carries action-specific context (tool name, risk level, error).
	Details map[string]any
	// Result is ResultOK or ResultError.
	Result string
}

// AuditFilter specifies criteria for querying audit entries.
// Zero-value fields match everything.
type AuditFilter struct {
	Action string
	Actor  string
	Plugin string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// Validate checks that the entry carries the fields every backend requires.
func (e *AuditEntry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("audit entry id: %w", ErrInvalidInput)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("audit entry timestamp: %w", ErrInvalidInput)
	}
	if e.Action == "" {
		return fmt.Errorf("audit entry action: %w", ErrInvalidInput)
	}
	return nil
}
