// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package sandbox

import (
	"os"

	"github.com/ward-dev/ward/pkg/plugin"
)

// PluginIDVar carries the plugin's own id into the spawned process.
const PluginIDVar = "WARD_PLUGIN_ID"

// essentialVars are the host variables every runtime needs to start:
// path search, home, user, locale, terminal, shell, and the module
// search paths of the supported interpreters.
var essentialVars = []string{
	"PATH", "HOME", "USER", "LANG", "TERM", "SHELL",
	"NODE_PATH",
	"PYTHONPATH",
}

// FilterEnv builds the exact environment for a plugin process. It copies
// the essential allowlist from the host if present, injects the plugin
// identity and a plugin-private TMPDIR, then copies only the variables
// the plugin declared. No other host variable is ever visible to the
// process: this is a hard default-deny, not a denylist of known secrets.
func FilterEnv(perms plugin.Permissions, pluginID string) map[string]string {
	env := make(map[string]string, len(essentialVars)+len(perms.Environment)+2)

	for _, key := range essentialVars {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}

	env[PluginIDVar] = pluginID
	env["TMPDIR"] = TempDir(pluginID)

	for _, name := range perms.Environment {
		if v, ok := os.LookupEnv(name); ok {
			env[name] = v
		}
	}

	return env
}
