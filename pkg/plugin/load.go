// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"

	warderr "github.com/ward-dev/ward/pkg/errors"
)

// Parse decodes manifest JSON without the on-disk checks performed by Load.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, warderr.Wrapf(err, warderr.CodeManifestMalformed, "parsing manifest")
	}
	return &m, nil
}

// Load reads and validates the manifest in the given plugin directory.
// A missing descriptor file, unparsable JSON, and failed validation are
// reported with distinct error codes so the scanner can log each class.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFilename)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, warderr.Wrapf(err, warderr.CodeManifestNotFound,
			"reading manifest %s", path)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, warderr.With(err, warderr.FieldPath(path))
	}

	if errs := m.Validate(dir); len(errs) > 0 {
		// Return the first validation error for simplicity.
		return nil, errs[0]
	}

	return m, nil
}
