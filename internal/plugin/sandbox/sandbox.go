// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

// Package sandbox confines plugin processes. It resolves the runtime
// command for a manifest, filters the environment the process inherits,
// and on platforms with an OS confinement mechanism wraps the launch in
// a synthesized policy. Plugin stdout feeds back into the host, so user
// files a plugin can read are user files it can exfiltrate; the default
// posture is deny.
package sandbox

import (
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	warderr "github.com/ward-dev/ward/pkg/errors"
	"github.com/ward-dev/ward/pkg/plugin"
)

var (
	sandboxExecPath = "sandbox-exec"

	// targetOS allows tests to override the OS for cross-platform testing.
	targetOS = runtime.GOOS

	// lookPath allows tests to stub executable resolution.
	lookPath = exec.LookPath
)

func init() {
	if p, err := exec.LookPath("sandbox-exec"); err == nil {
		sandboxExecPath = p
	}
}

// dangerousPathChars matches characters that enable Seatbelt profile
// injection: quotes, parens, backslash, semicolons, control chars.
var dangerousPathChars = regexp.MustCompile(`["\\();\x00-\x1f]`)

// Launch describes how to start a plugin process: the resolved command,
// its arguments, and the working directory. Dir is always the plugin's
// own directory; a confined runtime may be unable to read the host's
// working directory and most runtimes query theirs at startup.
type Launch struct {
	Command string
	Args    []string
	Dir     string
}

// Confiner wraps a plugin launch in a platform confinement mechanism.
type Confiner interface {
	// Name identifies the mechanism in logs.
	Name() string

	// Confine rewrites launch so the process starts inside the sandbox.
	// It also creates the plugin's private temp directory.
	Confine(m *plugin.Manifest, pluginDir string, launch Launch) (Launch, error)
}

// NewConfiner selects the confinement mechanism for the host platform:
// Seatbelt on macOS, environment filtering only everywhere else.
func NewConfiner() Confiner {
	if targetOS == "darwin" {
		return Seatbelt{}
	}
	return Passthrough{OS: targetOS}
}

// TempDir returns the plugin-private temporary directory. Each plugin
// gets its own subtree so temp files never cross plugin boundaries.
func TempDir(pluginID string) string {
	return "/tmp/ward-" + pluginID
}

func ensureTempDir(pluginID string) error {
	if err := os.MkdirAll(TempDir(pluginID), 0o700); err != nil {
		return warderr.Wrapf(err, warderr.CodeSandboxSetupFailure, "creating plugin temp directory")
	}
	return nil
}

// validatePluginID rejects ids that would escape the per-plugin temp and
// profile paths or inject into the profile text.
func validatePluginID(id string) error {
	if id == "" {
		return warderr.New(warderr.CodeSandboxPathInvalid, "plugin id must not be empty")
	}
	if strings.Contains(id, "/") || strings.Contains(id, "..") {
		return warderr.Errorf(warderr.CodeSandboxPathInvalid, "plugin id %q contains path traversal", id)
	}
	if dangerousPathChars.MatchString(id) {
		return warderr.Errorf(warderr.CodeSandboxPathInvalid, "plugin id %q contains disallowed characters", id)
	}
	return nil
}

// validateSandboxPath rejects paths containing characters that could be
// used for injection in Seatbelt profiles.
func validateSandboxPath(path string) error {
	if path == "" {
		return warderr.New(warderr.CodeSandboxPathInvalid, "invalid path: must not be empty")
	}
	if strings.HasPrefix(path, "-") {
		return warderr.Errorf(warderr.CodeSandboxPathInvalid, "invalid path %q: must not start with dash", path)
	}
	if dangerousPathChars.MatchString(path) {
		return warderr.Errorf(warderr.CodeSandboxPathInvalid, "invalid path %q: contains disallowed characters", path)
	}
	return nil
}

// expandPath expands a leading ~/ to the user's home directory. Bare ~
// and ~user forms pass through unchanged; the manifest schema documents
// only the ~/ shorthand.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", warderr.Wrapf(err, warderr.CodeSandboxSetupFailure, "expanding %q: home directory unavailable", path)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
	}
	return path, nil
}
