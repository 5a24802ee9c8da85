// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ward-dev/ward/internal/store"
)

func TestRegisteredBackend_CreatesAuditDB(t *testing.T) {
	dir := testDir(t)

	as, err := store.NewAuditStore("sqlite", dir)
	require.NoError(t, err)
	defer as.Close() //nolint:errcheck

	require.NoError(t, as.Append(context.Background(), &store.AuditEntry{
		ID:        "e1",
		Timestamp: time.Now(),
		Action:    store.ActionPluginLoaded,
	}))

	_, err = os.Stat(filepath.Join(dir, "audit.db"))
	assert.NoError(t, err, "backend derives audit.db under the data path")
}

func TestRegisteredBackend_OpenFailure(t *testing.T) {
	dir := testDir(t)
	// Make audit.db a directory so opening the database fails.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "audit.db"), 0o755))

	_, err := store.NewAuditStore("sqlite", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit db")
}
