// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package sandbox

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	warderr "github.com/ward-dev/ward/pkg/errors"
	"github.com/ward-dev/ward/pkg/plugin"
)

const (
	testPluginDir = "/tmp/ward-test-plugin"
	testNodeBin   = "/opt/node/v24/bin/node"
)

func TestSynthesizeProfile_WallsOffUserData(t *testing.T) {
	profile, err := synthesizeProfile(testManifest(plugin.Permissions{}), testPluginDir, testNodeBin)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(profile, "(version 1)\n(deny default)"))
	assert.Contains(t, profile, `(allow file-read* (subpath "/"))`)
	assert.Contains(t, profile, `(deny file-read* (subpath "/Users"))`)
}

func TestSynthesizeProfile_ReAllowsAfterWall(t *testing.T) {
	profile, err := synthesizeProfile(testManifest(plugin.Permissions{}), testPluginDir, testNodeBin)
	require.NoError(t, err)

	wall := strings.Index(profile, `(deny file-read* (subpath "/Users"))`)
	prefix := strings.Index(profile, `(allow file-read* (subpath "/opt/node/v24"))`)
	dir := strings.Index(profile, `(allow file-read* (subpath "`+testPluginDir+`"))`)
	require.GreaterOrEqual(t, wall, 0)
	require.GreaterOrEqual(t, prefix, 0)
	require.GreaterOrEqual(t, dir, 0)

	assert.Greater(t, prefix, wall, "runtime prefix re-allow must come after the user data wall")
	assert.Greater(t, dir, wall, "plugin dir re-allow must come after the user data wall")
}

func TestSynthesizeProfile_RuntimeExecLiteral(t *testing.T) {
	profile, err := synthesizeProfile(testManifest(plugin.Permissions{}), testPluginDir, testNodeBin)
	require.NoError(t, err)
	assert.Contains(t, profile, `(allow process-exec (literal "`+testNodeBin+`"))`)
}

func TestSynthesizeProfile_BinaryRuntimeSkipsPrefix(t *testing.T) {
	m := testManifest(plugin.Permissions{})
	m.Runtime = plugin.RuntimeBinary
	m.Entry = "tool"

	profile, err := synthesizeProfile(m, testPluginDir, testPluginDir+"/tool")
	require.NoError(t, err)

	// runtimePrefix of the entry would be /tmp; only the plugin dir itself
	// may be re-allowed.
	assert.NotContains(t, profile, `(allow file-read* (subpath "/tmp"))`)
	assert.Contains(t, profile, `(allow file-read* (subpath "`+testPluginDir+`"))`)
	assert.Contains(t, profile, `(allow process-exec (literal "`+testPluginDir+`/tool"))`)
}

func TestSynthesizeProfile_StdioTempAndSysctl(t *testing.T) {
	profile, err := synthesizeProfile(testManifest(plugin.Permissions{}), testPluginDir, testNodeBin)
	require.NoError(t, err)

	assert.Contains(t, profile, `(allow file-write* (literal "/dev/stdout"))`)
	assert.Contains(t, profile, `(allow file-write* (literal "/dev/stderr"))`)
	assert.Contains(t, profile, `(allow file-write* (literal "/dev/null"))`)

	assert.Contains(t, profile, `(allow file-read* (subpath "/private/tmp/ward-com.test.sandbox"))`)
	assert.Contains(t, profile, `(allow file-write* (subpath "/private/tmp/ward-com.test.sandbox"))`)

	assert.Contains(t, profile, "(allow sysctl-read)")
}

func TestSynthesizeProfile_NetworkRules(t *testing.T) {
	tests := []struct {
		name    string
		network []string
		want    bool
	}{
		{"absent grants nothing", nil, false},
		{"declared empty grants nothing", []string{}, false},
		{"declared domain grants coarse access", []string{"api.example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := synthesizeProfile(testManifest(plugin.Permissions{Network: tt.network}), testPluginDir, testNodeBin)
			require.NoError(t, err)
			if tt.want {
				assert.Contains(t, profile, "(allow network-outbound)")
				assert.Contains(t, profile, "(allow network-inbound)")
				assert.Contains(t, profile, `(allow network* (local ip "localhost:*"))`)
			} else {
				assert.NotContains(t, profile, "network-outbound")
				assert.NotContains(t, profile, "network-inbound")
			}
		})
	}
}

func TestSynthesizeProfile_DeclaredFilesystem(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	perms := plugin.Permissions{
		Filesystem: []plugin.FSPermission{
			{Path: "~/Documents", Access: plugin.AccessRead},
			{Path: "/var/exports", Access: plugin.AccessWrite},
			{Path: "/var/cache/ward", Access: plugin.AccessReadWrite},
		},
	}
	profile, err := synthesizeProfile(testManifest(perms), testPluginDir, testNodeBin)
	require.NoError(t, err)

	// Tilde expands; read-only entries get no write rule.
	assert.Contains(t, profile, `(allow file-read* (subpath "`+home+`/Documents"))`)
	assert.NotContains(t, profile, `(allow file-write* (subpath "`+home+`/Documents"))`)
	assert.NotContains(t, profile, `"~/`)

	// write and read-write entries get both.
	assert.Contains(t, profile, `(allow file-read* (subpath "/var/exports"))`)
	assert.Contains(t, profile, `(allow file-write* (subpath "/var/exports"))`)
	assert.Contains(t, profile, `(allow file-write* (subpath "/var/cache/ward"))`)

	// Declared entries land after the wall so they re-open the subpath.
	wall := strings.Index(profile, `(deny file-read* (subpath "/Users"))`)
	declared := strings.Index(profile, `(allow file-read* (subpath "`+home+`/Documents"))`)
	assert.Greater(t, declared, wall)
}

func TestSynthesizeProfile_ShellCommands(t *testing.T) {
	stubLookPath(t, map[string]string{"jq": "/usr/bin/jq"})

	perms := plugin.Permissions{
		Shell: &plugin.ShellPermission{Commands: []string{"jq", "no-such-tool"}},
	}
	profile, err := synthesizeProfile(testManifest(perms), testPluginDir, testNodeBin)
	require.NoError(t, err)

	assert.Contains(t, profile, "(allow process-fork)")
	assert.Contains(t, profile, `(allow process-exec (literal "/bin/sh"))`)
	assert.Contains(t, profile, `(allow process-exec (literal "/bin/bash"))`)
	assert.Contains(t, profile, `(allow process-exec (literal "/usr/bin/jq"))`)
	assert.NotContains(t, profile, "no-such-tool")
}

func TestSynthesizeProfile_NoShellRulesWhenUndeclared(t *testing.T) {
	profile, err := synthesizeProfile(testManifest(plugin.Permissions{}), testPluginDir, testNodeBin)
	require.NoError(t, err)
	assert.NotContains(t, profile, "process-fork")
	assert.NotContains(t, profile, "/bin/bash")
}

func TestSynthesizeProfile_PathInjection(t *testing.T) {
	tests := []struct {
		name string
		call func() (string, error)
	}{
		{
			name: "declared path with quote",
			call: func() (string, error) {
				perms := plugin.Permissions{
					Filesystem: []plugin.FSPermission{
						{Path: `/tmp") (allow default) (deny file-read* (path "/x`, Access: plugin.AccessRead},
					},
				}
				return synthesizeProfile(testManifest(perms), testPluginDir, testNodeBin)
			},
		},
		{
			name: "plugin dir with paren",
			call: func() (string, error) {
				return synthesizeProfile(testManifest(plugin.Permissions{}), "/tmp/(allow default)", testNodeBin)
			},
		},
		{
			name: "runtime binary with semicolon",
			call: func() (string, error) {
				return synthesizeProfile(testManifest(plugin.Permissions{}), testPluginDir, "/opt/node;rm")
			},
		},
		{
			name: "plugin id with quote",
			call: func() (string, error) {
				m := testManifest(plugin.Permissions{})
				m.ID = `com."test".sandbox`
				return synthesizeProfile(m, testPluginDir, testNodeBin)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := tt.call()
			require.Error(t, err)
			assert.True(t, warderr.HasCode(err, warderr.CodeSandboxPathInvalid))
			assert.Empty(t, profile)
		})
	}
}

func TestSeatbeltConfine_WrapsLaunch(t *testing.T) {
	m := testManifest(plugin.Permissions{})
	launch := Launch{Command: testNodeBin, Args: []string{testPluginDir + "/index.js"}, Dir: testPluginDir}

	confined, err := Seatbelt{}.Confine(m, testPluginDir, launch)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = os.Remove(profilePath(m.ID))
		_ = os.RemoveAll(TempDir(m.ID))
	})

	assert.Equal(t, sandboxExecPath, confined.Command)
	require.Len(t, confined.Args, 5)
	assert.Equal(t, "-f", confined.Args[0])
	assert.Equal(t, "--", confined.Args[2])
	assert.Equal(t, testNodeBin, confined.Args[3])
	assert.Equal(t, testPluginDir+"/index.js", confined.Args[4])
	assert.Equal(t, testPluginDir, confined.Dir)

	content, err := os.ReadFile(confined.Args[1])
	require.NoError(t, err)
	assert.Contains(t, string(content), "(deny default)")

	info, err := os.Stat(TempDir(m.ID))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPassthroughConfine_KeepsLaunch(t *testing.T) {
	m := testManifest(plugin.Permissions{})
	m.ID = "com.test.passthrough"
	launch := Launch{Command: "/usr/bin/node", Args: []string{"/p/index.js"}, Dir: "/p"}

	confined, err := Passthrough{OS: "linux"}.Confine(m, "/p", launch)
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(TempDir(m.ID)) })

	assert.Equal(t, launch, confined)

	info, err := os.Stat(TempDir(m.ID))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
