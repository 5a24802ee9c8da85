// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

// Package configstore persists user-supplied values for the settings a
// plugin declares in its manifest. Plain values live in one JSON file
// per plugin under the ward config directory; secret-typed values go to
// the OS keyring and the JSON file only carries a keyring:// reference.
package configstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ward-dev/ward/internal/secrets"
	warderr "github.com/ward-dev/ward/pkg/errors"
	"github.com/ward-dev/ward/pkg/plugin"
)

// DirName is the per-plugin config directory under the ward config
// directory.
const DirName = "plugin-config"

// DefaultDir places the store under the user config directory.
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", warderr.Wrap(err, warderr.CodePluginConfigLoadFailure, "resolving config directory")
	}
	return filepath.Join(dir, "ward", DirName), nil
}

// keyringService namespaces one plugin's secrets in the OS keyring.
func keyringService(pluginID string) string {
	return "ward-plugin-" + pluginID
}

// Store reads and writes per-plugin configuration values. Every
// mutation persists before reporting success.
type Store struct {
	dir     string
	secrets secrets.Store

	mu sync.Mutex
}

// New returns a store rooted at dir. Secret-typed fields round-trip
// through sec; pass a KeyringStore in production.
func New(dir string, sec secrets.Store) *Store {
	return &Store{dir: dir, secrets: sec}
}

func (s *Store) path(pluginID string) string {
	return filepath.Join(s.dir, pluginID+".json")
}

// load reads one plugin's value file. A missing or corrupt file yields
// an empty map: config values are presentation-layer state, so the safe
// failure direction is asking the user again.
func (s *Store) load(pluginID string) map[string]string {
	values := map[string]string{}
	raw, err := os.ReadFile(s.path(pluginID))
	if err != nil {
		return values
	}
	if err := json.Unmarshal(raw, &values); err != nil {
		return map[string]string{}
	}
	return values
}

func (s *Store) persist(pluginID string, values map[string]string) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return warderr.Wrap(err, warderr.CodePluginConfigPersistFailure, "creating plugin config directory",
			warderr.FieldPlugin(pluginID))
	}
	raw, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return warderr.Wrap(err, warderr.CodePluginConfigPersistFailure, "encoding plugin config",
			warderr.FieldPlugin(pluginID))
	}
	path := s.path(pluginID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return warderr.Wrap(err, warderr.CodePluginConfigPersistFailure, "writing plugin config",
			warderr.FieldPlugin(pluginID))
	}
	if err := os.Rename(tmp, path); err != nil {
		return warderr.Wrap(err, warderr.CodePluginConfigPersistFailure, "replacing plugin config",
			warderr.FieldPlugin(pluginID))
	}
	return nil
}

// isSecretField reports whether the manifest declares field as secret.
func isSecretField(m *plugin.Manifest, field string) bool {
	if m == nil {
		return false
	}
	f, ok := m.Configuration[field]
	return ok && f.Type == "secret"
}

// Set stores one value. Secret-typed fields (per the manifest) are
// written to the keyring and referenced by URI in the JSON file.
func (s *Store) Set(m *plugin.Manifest, pluginID, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.load(pluginID)
	if isSecretField(m, field) {
		service := keyringService(pluginID)
		if err := s.secrets.Store(service, field, value); err != nil {
			return warderr.Wrap(err, warderr.CodePluginConfigPersistFailure, "storing secret config value",
				warderr.FieldPlugin(pluginID), warderr.Field("field", field))
		}
		values[field] = fmt.Sprintf("keyring://%s/%s", service, field)
	} else {
		values[field] = value
	}
	return s.persist(pluginID, values)
}

// Get returns one value, resolving keyring references to the stored
// secret. A field that was never set is ("", false, nil).
func (s *Store) Get(pluginID, field string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.load(pluginID)
	v, ok := values[field]
	if !ok {
		return "", false, nil
	}
	if secrets.IsKeyringURI(v) {
		resolved, err := secrets.ResolveKeyringURI(s.secrets, v)
		if err != nil {
			return "", false, warderr.Wrap(err, warderr.CodePluginConfigLoadFailure, "resolving secret config value",
				warderr.FieldPlugin(pluginID), warderr.Field("field", field))
		}
		return resolved, true, nil
	}
	return v, true, nil
}

// All returns every stored value for the plugin with secrets resolved.
func (s *Store) All(pluginID string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.load(pluginID)
	out := make(map[string]string, len(values))
	for field, v := range values {
		if secrets.IsKeyringURI(v) {
			resolved, err := secrets.ResolveKeyringURI(s.secrets, v)
			if err != nil {
				return nil, warderr.Wrap(err, warderr.CodePluginConfigLoadFailure, "resolving secret config value",
					warderr.FieldPlugin(pluginID), warderr.Field("field", field))
			}
			out[field] = resolved
			continue
		}
		out[field] = v
	}
	return out, nil
}

// Delete removes one field. Secret references also drop the keyring
// entry; a secret already gone from the keyring is not an error.
func (s *Store) Delete(pluginID, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.load(pluginID)
	v, ok := values[field]
	if !ok {
		return nil
	}
	if secrets.IsKeyringURI(v) {
		service, key, err := secrets.ParseKeyringURI(v)
		if err == nil {
			if delErr := s.secrets.Delete(service, key); delErr != nil && !warderr.HasCode(delErr, warderr.CodeSecretNotFound) {
				return warderr.Wrap(delErr, warderr.CodePluginConfigPersistFailure, "deleting secret config value",
					warderr.FieldPlugin(pluginID), warderr.Field("field", field))
			}
		}
	}
	delete(values, field)
	return s.persist(pluginID, values)
}

// DeleteAll removes every stored value and the value file itself, used
// when a plugin is uninstalled.
func (s *Store) DeleteAll(pluginID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.load(pluginID)
	for _, v := range values {
		if !secrets.IsKeyringURI(v) {
			continue
		}
		service, key, err := secrets.ParseKeyringURI(v)
		if err != nil {
			continue
		}
		if delErr := s.secrets.Delete(service, key); delErr != nil && !warderr.HasCode(delErr, warderr.CodeSecretNotFound) {
			return warderr.Wrap(delErr, warderr.CodePluginConfigPersistFailure, "deleting secret config value",
				warderr.FieldPlugin(pluginID))
		}
	}
	if err := os.Remove(s.path(pluginID)); err != nil && !os.IsNotExist(err) {
		return warderr.Wrap(err, warderr.CodePluginConfigPersistFailure, "removing plugin config file",
			warderr.FieldPlugin(pluginID))
	}
	return nil
}
