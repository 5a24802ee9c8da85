// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package sandbox

import (
	"os"
	"path/filepath"

	warderr "github.com/ward-dev/ward/pkg/errors"
	"github.com/ward-dev/ward/pkg/plugin"
)

// ResolveCommand resolves the command line that starts a plugin's entry
// point under its declared runtime. Interpreter runtimes resolve through
// PATH; the binary runtime runs the entry directly and requires the
// executable bit.
func ResolveCommand(m *plugin.Manifest, pluginDir string) (Launch, error) {
	entry := filepath.Join(pluginDir, m.Entry)

	switch m.Runtime {
	case plugin.RuntimeNode:
		bin, err := lookPath("node")
		if err != nil {
			return Launch{}, warderr.Wrap(err, warderr.CodeSandboxRuntimeNotFound, "node runtime not found in PATH")
		}
		return Launch{Command: bin, Args: []string{entry}, Dir: pluginDir}, nil

	case plugin.RuntimePython:
		bin, err := lookPath("python3")
		if err != nil {
			bin, err = lookPath("python")
		}
		if err != nil {
			return Launch{}, warderr.Wrap(err, warderr.CodeSandboxRuntimeNotFound, "python runtime not found in PATH")
		}
		return Launch{Command: bin, Args: []string{entry}, Dir: pluginDir}, nil

	case plugin.RuntimeBinary:
		info, err := os.Stat(entry)
		if err != nil {
			return Launch{}, warderr.Wrapf(err, warderr.CodeSandboxEntryNotRunnable, "binary entry %q", m.Entry)
		}
		if targetOS != "windows" && info.Mode()&0o111 == 0 {
			return Launch{}, warderr.Errorf(warderr.CodeSandboxEntryNotRunnable, "binary entry %q is not executable", m.Entry)
		}
		return Launch{Command: entry, Dir: pluginDir}, nil

	default:
		return Launch{}, warderr.Errorf(warderr.CodeSandboxUnsupported, "unknown runtime %q", m.Runtime)
	}
}

// runtimePrefix returns the installation prefix of an interpreter: the
// parent of its bin directory. For ~/.nvm/versions/node/v24/bin/node
// the prefix is ~/.nvm/versions/node/v24.
func runtimePrefix(binary string) string {
	return filepath.Dir(filepath.Dir(binary))
}
