// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

// Package sqlite is the SQLite-backed audit store. Importing it registers
// the "sqlite" backend with the store factory.
package sqlite

import (
	"path/filepath"

	"github.com/ward-dev/ward/internal/store"
)

func init() {
	store.RegisterBackend("sqlite", newAuditStore)
}

func newAuditStore(dataPath string) (store.AuditStore, error) {
	return NewAuditStore(filepath.Join(dataPath, "audit.db"))
}
