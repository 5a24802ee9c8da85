// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package plugin

import (
	"os"
	"path/filepath"
	"strings"

	warderr "github.com/ward-dev/ward/pkg/errors"
)

// validRuntimes enumerates recognized plugin runtimes.
var validRuntimes = map[Runtime]bool{
	RuntimeNode:   true,
	RuntimePython: true,
	RuntimeBinary: true,
}

// validAccessModes enumerates recognized filesystem access modes.
var validAccessModes = map[FSAccess]bool{
	AccessRead:      true,
	AccessWrite:     true,
	AccessReadWrite: true,
}

// checkEntryExists reports whether a resolved entry path exists on disk.
// Package variable so tests can stub filesystem checks.
var checkEntryExists = func(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Validate checks that the Manifest is well-formed. dir is the plugin
// directory the entry point resolves against. It returns all validation
// errors found rather than stopping at the first one.
func (m *Manifest) Validate(dir string) []error {
	var errs []error

	if strings.TrimSpace(m.ID) == "" {
		errs = append(errs, warderr.Errorf(warderr.CodeManifestValidateInvalid,
			"manifest validation: id must not be empty"))
	} else if !strings.Contains(m.ID, ".") {
		errs = append(errs, warderr.Errorf(warderr.CodeManifestValidateInvalid,
			"manifest validation: id must be reverse-domain form (contain a dot), got %q", m.ID))
	}

	if strings.TrimSpace(m.Name) == "" {
		errs = append(errs, warderr.Errorf(warderr.CodeManifestValidateInvalid,
			"manifest validation: name must not be empty"))
	}

	if strings.TrimSpace(m.Version) == "" {
		errs = append(errs, warderr.Errorf(warderr.CodeManifestValidateInvalid,
			"manifest validation: version must not be empty"))
	}

	if !validRuntimes[m.Runtime] {
		errs = append(errs, warderr.Errorf(warderr.CodeManifestValidateInvalid,
			"manifest validation: runtime must be one of [node, python, binary], got %q", m.Runtime))
	}

	errs = append(errs, m.validateEntry(dir)...)
	errs = append(errs, m.Permissions.validate()...)

	return errs
}

func (m *Manifest) validateEntry(dir string) []error {
	var errs []error

	if strings.TrimSpace(m.Entry) == "" {
		errs = append(errs, warderr.Errorf(warderr.CodeManifestValidateInvalid,
			"manifest validation: entry must not be empty"))
		return errs
	}

	if strings.Contains(m.Entry, "..") {
		errs = append(errs, warderr.Errorf(warderr.CodeManifestValidateInvalid,
			"manifest validation: entry must not contain a parent-directory segment, got %q", m.Entry))
		return errs
	}

	if dir != "" && !checkEntryExists(filepath.Join(dir, m.Entry)) {
		errs = append(errs, warderr.Errorf(warderr.CodeManifestValidateInvalid,
			"manifest validation: entry %q does not exist in plugin directory", m.Entry))
	}

	return errs
}

func (p Permissions) validate() []error {
	var errs []error

	for i, fs := range p.Filesystem {
		if strings.TrimSpace(fs.Path) == "" {
			errs = append(errs, warderr.Errorf(warderr.CodeManifestValidateInvalid,
				"manifest validation: filesystem[%d]: path must not be empty", i))
		}
		if !validAccessModes[fs.Access] {
			errs = append(errs, warderr.Errorf(warderr.CodeManifestValidateInvalid,
				"manifest validation: filesystem[%d]: access must be one of [read, write, read-write], got %q", i, fs.Access))
		}
	}

	if p.Shell != nil {
		for i, cmd := range p.Shell.Commands {
			if strings.TrimSpace(cmd) == "" {
				errs = append(errs, warderr.Errorf(warderr.CodeManifestValidateInvalid,
					"manifest validation: shell.commands[%d] must not be empty", i))
			}
		}
	}

	return errs
}
