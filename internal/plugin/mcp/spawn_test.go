// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package mcp

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	warderr "github.com/ward-dev/ward/pkg/errors"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("spawn tests use unix shell tooling")
	}
}

func TestSpawn_ExactEnvironment(t *testing.T) {
	requireUnix(t)

	c, err := Spawn("com.test.env", "cat", nil, SpawnOptions{
		Env: map[string]string{"B_VAR": "2", "A_VAR": "1"},
		Dir: t.TempDir(),
	})
	require.NoError(t, err)
	defer c.Shutdown(time.Second)

	assert.Equal(t, []string{"A_VAR=1", "B_VAR=2"}, c.cmd.Env)
}

func TestSpawn_EmptyEnvDoesNotInheritHost(t *testing.T) {
	requireUnix(t)

	c, err := Spawn("com.test.noenv", "cat", nil, SpawnOptions{Dir: t.TempDir()})
	require.NoError(t, err)
	defer c.Shutdown(time.Second)

	require.NotNil(t, c.cmd.Env, "nil Env would inherit the host environment")
	assert.Empty(t, c.cmd.Env)
}

func TestSpawn_CommandMissing(t *testing.T) {
	_, err := Spawn("com.test.missing", "/no/such/interpreter", nil, SpawnOptions{})
	require.Error(t, err)
	assert.True(t, warderr.HasCode(err, warderr.CodeMCPSpawnFailure))
}

func TestShutdown_GracefulOnStdinClose(t *testing.T) {
	requireUnix(t)

	c, err := Spawn("com.test.graceful", "cat", nil, SpawnOptions{})
	require.NoError(t, err)

	start := time.Now()
	c.Shutdown(5 * time.Second)
	assert.Less(t, time.Since(start), 3*time.Second, "cat exits on stdin EOF without needing a kill")

	// Second call is a no-op.
	c.Shutdown(5 * time.Second)
}

func TestShutdown_KillsStubbornProcess(t *testing.T) {
	requireUnix(t)

	c, err := Spawn("com.test.stubborn", "sleep", []string{"30"}, SpawnOptions{})
	require.NoError(t, err)

	start := time.Now()
	c.Shutdown(200 * time.Millisecond)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCallTool_EchoServerIsProtocolInvalid(t *testing.T) {
	requireUnix(t)

	// cat echoes the request back: the id matches but the envelope has
	// neither result nor error.
	c, err := Spawn("com.test.echo", "cat", nil, SpawnOptions{RequestTimeout: 2 * time.Second})
	require.NoError(t, err)
	defer c.Shutdown(time.Second)

	_, err = c.CallTool(context.Background(), "anything", nil)
	require.Error(t, err)
	assert.True(t, warderr.HasCode(err, warderr.CodeMCPProtocolInvalid))
}

// scriptedServer answers the exact initialize → tools/list → tools/call
// sequence with fixed responses.
const scriptedServer = `#!/bin/sh
read req
printf '%s\n' '{"id":1,"result":{"protocolVersion":"2024-11-05","serverInfo":{"name":"scripted","version":"0.1.0"}}}'
read notif
read req
printf '%s\n' 'booting tool table...'
printf '%s\n' '{"id":2,"result":{"tools":[{"name":"pong","description":"Replies pong"}]}}'
read req
printf '%s\n' '{"id":3,"result":{"content":[{"type":"text","text":"pong"}],"isError":false}}'
`

func TestFullLifecycleAgainstScriptedServer(t *testing.T) {
	requireUnix(t)

	dir := t.TempDir()
	script := filepath.Join(dir, "server.sh")
	require.NoError(t, os.WriteFile(script, []byte(scriptedServer), 0o755))

	c, err := Spawn("com.test.scripted", "/bin/sh", []string{script}, SpawnOptions{
		Env: map[string]string{"PATH": os.Getenv("PATH")},
		Dir: dir,
	})
	require.NoError(t, err)
	defer c.Shutdown(time.Second)

	ctx := context.Background()

	info, err := c.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "scripted", info.Name)

	tools, err := c.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "pong", tools[0].Name)

	res, err := c.CallTool(ctx, "pong", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "pong", res.Text())
	assert.False(t, res.IsError)
}
