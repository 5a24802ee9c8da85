// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package store

import (
	"sync"

	warderr "github.com/ward-dev/ward/pkg/errors"
)

// Factory creates an AuditStore given the directory for backend data files.
type Factory func(dataPath string) (AuditStore, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory function for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// NewAuditStore creates the audit store for the named backend. An empty
// backend name selects sqlite.
func NewAuditStore(backend, dataPath string) (AuditStore, error) {
	if backend == "" {
		backend = "sqlite"
	}

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, warderr.Errorf(warderr.CodeStoreBackendUnsupported,
			"unsupported storage backend: %q", backend)
	}

	return factory(dataPath)
}
