// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package sandbox

import (
	"fmt"
	"os"
	"strings"

	warderr "github.com/ward-dev/ward/pkg/errors"
	"github.com/ward-dev/ward/pkg/plugin"
)

// userDataRoot is the subtree the profile walls off. Everything under it
// is unreadable unless a later rule re-opens a declared subpath.
const userDataRoot = "/Users"

// Seatbelt confines plugins with macOS sandbox-exec and a synthesized
// profile.
type Seatbelt struct{}

func (Seatbelt) Name() string { return "seatbelt" }

// Confine writes the profile for m and rewrites launch to start through
// sandbox-exec. The profile file and the temp directory persist until
// the next launch of the same plugin overwrites them.
func (Seatbelt) Confine(m *plugin.Manifest, pluginDir string, launch Launch) (Launch, error) {
	if err := validatePluginID(m.ID); err != nil {
		return Launch{}, err
	}

	profile, err := synthesizeProfile(m, pluginDir, launch.Command)
	if err != nil {
		return Launch{}, err
	}

	if err := ensureTempDir(m.ID); err != nil {
		return Launch{}, err
	}

	path := profilePath(m.ID)
	if err := os.WriteFile(path, []byte(profile), 0o600); err != nil {
		return Launch{}, warderr.Wrapf(err, warderr.CodeSandboxSetupFailure, "writing seatbelt profile")
	}

	args := append([]string{"-f", path, "--", launch.Command}, launch.Args...)
	return Launch{Command: sandboxExecPath, Args: args, Dir: pluginDir}, nil
}

func profilePath(pluginID string) string {
	return "/tmp/ward-sandbox-" + pluginID + ".sb"
}

// privateTempDir is the symlink-resolved form of TempDir. Seatbelt
// matches subpath filters against resolved paths and /tmp is a symlink
// to /private/tmp on macOS.
func privateTempDir(pluginID string) string {
	return "/private/tmp/ward-" + pluginID
}

// synthesizeProfile builds the Seatbelt policy for one plugin. Rules are
// last-match-wins: broad system reads come first, the user data wall
// overrides them, and declared re-allows land after the wall so they
// re-open exactly the approved subpaths.
func synthesizeProfile(m *plugin.Manifest, pluginDir, runtimeBinary string) (string, error) {
	if err := validatePluginID(m.ID); err != nil {
		return "", err
	}
	for _, p := range []string{pluginDir, runtimeBinary} {
		if err := validateSandboxPath(p); err != nil {
			return "", err
		}
	}
	tempDir := privateTempDir(m.ID)

	var b strings.Builder
	b.WriteString("(version 1)\n(deny default)\n\n")

	b.WriteString(";; Broad system reads: runtimes touch hundreds of incidental paths at start.\n")
	b.WriteString("(allow file-read* (subpath \"/\"))\n\n")

	b.WriteString(";; Wall off user data.\n")
	fmt.Fprintf(&b, "(deny file-read* (subpath \"%s\"))\n\n", userDataRoot)

	b.WriteString(";; Re-allow the runtime installation and the plugin's own directory.\n")
	if m.Runtime != plugin.RuntimeBinary {
		prefix := runtimePrefix(runtimeBinary)
		if err := validateSandboxPath(prefix); err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "(allow file-read* (subpath \"%s\"))\n", prefix)
	}
	fmt.Fprintf(&b, "(allow file-read* (subpath \"%s\"))\n\n", pluginDir)

	fmt.Fprintf(&b, "(allow process-exec (literal \"%s\"))\n\n", runtimeBinary)

	b.WriteString(";; Protocol transport.\n")
	for _, dev := range []string{"/dev/stdout", "/dev/stderr", "/dev/null"} {
		fmt.Fprintf(&b, "(allow file-write* (literal \"%s\"))\n", dev)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "(allow file-read* (subpath \"%s\"))\n", tempDir)
	fmt.Fprintf(&b, "(allow file-write* (subpath \"%s\"))\n\n", tempDir)

	b.WriteString("(allow sysctl-read)\n\n")

	if len(m.Permissions.Network) > 0 {
		b.WriteString(";; Coarse network: Seatbelt cannot filter by domain.\n")
		b.WriteString("(allow network-outbound)\n(allow network-inbound)\n")
		b.WriteString("(allow network* (local ip \"localhost:*\"))\n\n")
	}

	if len(m.Permissions.Filesystem) > 0 {
		b.WriteString(";; Declared filesystem access.\n")
		for _, fp := range m.Permissions.Filesystem {
			expanded, err := expandPath(fp.Path)
			if err != nil {
				return "", err
			}
			if err := validateSandboxPath(expanded); err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "(allow file-read* (subpath \"%s\"))\n", expanded)
			if fp.Access == plugin.AccessWrite || fp.Access == plugin.AccessReadWrite {
				fmt.Fprintf(&b, "(allow file-write* (subpath \"%s\"))\n", expanded)
			}
		}
		b.WriteString("\n")
	}

	if m.Permissions.Shell != nil {
		b.WriteString(";; Declared shell commands, resolved to literals so PATH order\n")
		b.WriteString(";; cannot substitute a different binary. Commands absent from\n")
		b.WriteString(";; PATH are omitted.\n")
		b.WriteString("(allow process-fork)\n")
		b.WriteString("(allow process-exec (literal \"/bin/sh\"))\n")
		b.WriteString("(allow process-exec (literal \"/bin/bash\"))\n")
		fmt.Fprintf(&b, "(allow file-write* (subpath \"%s\"))\n", tempDir)
		for _, cmd := range m.Permissions.Shell.Commands {
			resolved, err := lookPath(cmd)
			if err != nil {
				continue
			}
			if err := validateSandboxPath(resolved); err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "(allow process-exec (literal \"%s\"))\n", resolved)
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}
