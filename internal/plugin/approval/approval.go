// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

// Package approval tracks which plugins the user has consented to run.
// Decisions live in a JSON file; a plugin whose declared permissions
// change after approval drops back to needing consent, detected by
// comparing permission hashes.
package approval

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	warderr "github.com/ward-dev/ward/pkg/errors"
	"github.com/ward-dev/ward/pkg/plugin"
)

// Filename is the approval store file under the ward config directory.
const Filename = "plugin-approvals.json"

// Status is the consent state of one plugin.
type Status string

const (
	StatusApproved           Status = "approved"
	StatusDenied             Status = "denied"
	StatusNeedsApproval      Status = "needs-approval"
	StatusPermissionsChanged Status = "permissions-changed"
)

// ApprovalRecord captures one granted consent: the plugin version it was
// granted against and the hash of the permissions the user saw.
type ApprovalRecord struct {
	Version         string `json:"version"`
	PermissionsHash string `json:"permissions_hash"`
	ApprovedAt      string `json:"approved_at"`
}

// DenialRecord captures one refusal.
type DenialRecord struct {
	DeniedAt string `json:"denied_at"`
}

type storeData struct {
	Approved map[string]ApprovalRecord `json:"approved"`
	Denied   map[string]DenialRecord   `json:"denied"`
}

// Store holds consent decisions and persists every mutation before
// reporting success. A lost approval re-prompts; a lost denial would
// re-load without consent, so persistence failures always propagate.
type Store struct {
	path string

	mu       sync.Mutex
	approved map[string]ApprovalRecord
	denied   map[string]DenialRecord
}

// now allows tests to pin timestamps.
var now = time.Now

// DefaultPath places the store under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", warderr.Wrap(err, warderr.CodeApprovalPersistFailure, "resolving config directory")
	}
	return filepath.Join(dir, "ward", Filename), nil
}

// Open loads the store at path. A missing or unreadable file yields an
// empty store: the safe failure direction is re-prompting, never
// silently approving.
func Open(path string) *Store {
	s := &Store{
		path:     path,
		approved: make(map[string]ApprovalRecord),
		denied:   make(map[string]DenialRecord),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("cannot read approval store, starting empty", "path", path, "error", err)
		}
		return s
	}

	var raw storeData
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("approval store is corrupt, starting empty", "path", path, "error", err)
		return s
	}
	if raw.Approved != nil {
		s.approved = raw.Approved
	}
	if raw.Denied != nil {
		s.denied = raw.Denied
	}
	return s
}

// Check computes the consent state for a manifest. Denial is checked
// first and is sticky: it wins even when an approval record exists.
func (s *Store) Check(m *plugin.Manifest) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.denied[m.ID]; ok {
		return StatusDenied
	}
	if rec, ok := s.approved[m.ID]; ok {
		if rec.PermissionsHash == m.Permissions.Hash() {
			return StatusApproved
		}
		return StatusPermissionsChanged
	}
	return StatusNeedsApproval
}

// RecordApproval clears any denial, stores an approval for the
// manifest's current version and permissions, and persists.
func (s *Store) RecordApproval(m *plugin.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.denied, m.ID)
	s.approved[m.ID] = ApprovalRecord{
		Version:         m.Version,
		PermissionsHash: m.Permissions.Hash(),
		ApprovedAt:      timestamp(),
	}
	return s.persistLocked()
}

// RecordDenial clears any approval, stores a denial, and persists.
func (s *Store) RecordDenial(pluginID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.approved, pluginID)
	s.denied[pluginID] = DenialRecord{DeniedAt: timestamp()}
	return s.persistLocked()
}

// Approvals returns a copy of the recorded approvals.
func (s *Store) Approvals() map[string]ApprovalRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]ApprovalRecord, len(s.approved))
	for id, rec := range s.approved {
		out[id] = rec
	}
	return out
}

// Denials returns a copy of the recorded denials.
func (s *Store) Denials() map[string]DenialRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]DenialRecord, len(s.denied))
	for id, rec := range s.denied {
		out[id] = rec
	}
	return out
}

func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return warderr.Wrapf(err, warderr.CodeApprovalPersistFailure, "creating approval store directory")
	}

	data, err := json.MarshalIndent(storeData{Approved: s.approved, Denied: s.denied}, "", "  ")
	if err != nil {
		return warderr.Wrapf(err, warderr.CodeApprovalPersistFailure, "encoding approval store")
	}

	if err := os.WriteFile(s.path, append(data, '\n'), 0o600); err != nil {
		return warderr.Wrapf(err, warderr.CodeApprovalPersistFailure, "writing approval store")
	}
	return nil
}

func timestamp() string {
	return fmt.Sprintf("unix:%d", now().Unix())
}
