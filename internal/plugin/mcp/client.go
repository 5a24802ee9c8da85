// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

// Package mcp implements the client half of the Model Context Protocol
// over newline-delimited JSON on a child process's stdin/stdout. One
// Client wraps one process; calls through it are serialized, so there is
// never more than one outstanding request per plugin.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	warderr "github.com/ward-dev/ward/pkg/errors"
)

// protocolVersion is the MCP revision this client speaks.
const protocolVersion = "2024-11-05"

const (
	// DefaultRequestTimeout bounds any single request. A request that
	// expires leaves the process running; only Shutdown terminates it.
	DefaultRequestTimeout = 15 * time.Second

	// DefaultShutdownGrace is how long Shutdown waits after closing
	// stdin before killing the process.
	DefaultShutdownGrace = 3 * time.Second
)

// ClientVersion is stamped into the initialize handshake. The build
// overrides it via main's ldflags wiring.
var ClientVersion = "dev"

// noisePreview caps how much of a non-protocol stdout line is logged.
const noisePreview = 100

// Client is an active connection to one plugin process. Spawn starts the
// process; Initialize must complete before tool calls.
type Client struct {
	pluginID string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	lines  chan []byte

	// mu serializes request/response cycles on the single channel.
	mu     sync.Mutex
	closed bool
	nextID atomic.Int64

	requestTimeout time.Duration
}

// SpawnOptions configures how the plugin process starts.
type SpawnOptions struct {
	// Env is the complete environment for the process, used exactly as
	// given. The host environment is never inherited.
	Env map[string]string

	// Dir is the working directory, normally the plugin's own directory.
	// Confined runtimes may be unable to read any other directory.
	Dir string

	// RequestTimeout overrides DefaultRequestTimeout when positive.
	RequestTimeout time.Duration

	// Stderr receives the process's stderr; os.Stderr when nil. Stderr
	// is not part of the protocol channel.
	Stderr io.Writer
}

// Spawn starts command with args and prepares the protocol channel. It
// does not perform the initialize handshake.
func Spawn(pluginID, command string, args []string, opts SpawnOptions) (*Client, error) {
	cmd := exec.Command(command, args...)
	cmd.Dir = opts.Dir

	// An empty non-nil slice, never nil: nil would inherit the host
	// environment wholesale.
	env := make([]string, 0, len(opts.Env))
	for k, v := range opts.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	cmd.Env = env

	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	} else {
		cmd.Stderr = os.Stderr
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, warderr.Wrapf(err, warderr.CodeMCPSpawnFailure, "stdin pipe for plugin %q", pluginID)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, warderr.Wrapf(err, warderr.CodeMCPSpawnFailure, "stdout pipe for plugin %q", pluginID)
	}
	if err := cmd.Start(); err != nil {
		return nil, warderr.Wrapf(err, warderr.CodeMCPSpawnFailure, "starting plugin %q (%s)", pluginID, command)
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	c := &Client{
		pluginID:       pluginID,
		cmd:            cmd,
		stdin:          stdin,
		stdout:         bufio.NewReader(stdout),
		lines:          make(chan []byte, 32),
		requestTimeout: timeout,
	}
	go c.readLoop()
	return c, nil
}

// PluginID returns the id of the plugin this client talks to.
func (c *Client) PluginID() string { return c.pluginID }

// Initialize performs the versioned handshake and sends the initialized
// notification. Failure is fatal to this plugin's load.
func (c *Client) Initialize(ctx context.Context) (ServerInfo, error) {
	params := initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo:      clientInfo{Name: "ward", Version: ClientVersion},
	}

	raw, err := c.request(ctx, "initialize", params)
	if err != nil {
		return ServerInfo{}, warderr.Wrap(err, warderr.CodeMCPHandshakeFailure, "initialize handshake failed")
	}

	// Servers that omit serverInfo still initialize; the identity is
	// informational.
	var res initializeResult
	_ = json.Unmarshal(raw, &res)

	if err := c.notify("notifications/initialized", nil); err != nil {
		return ServerInfo{}, warderr.Wrap(err, warderr.CodeMCPHandshakeFailure, "sending initialized notification")
	}

	slog.Info("plugin initialized",
		"plugin", c.pluginID, "server", res.ServerInfo.Name, "server_version", res.ServerInfo.Version)
	return res.ServerInfo, nil
}

// ListTools discovers the tools the plugin exposes.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	raw, err := c.request(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}

	var res toolsListResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, warderr.Wrapf(err, warderr.CodeMCPProtocolInvalid, "malformed tools/list result from plugin %q", c.pluginID)
	}

	slog.Info("plugin exposes tools", "plugin", c.pluginID, "count", len(res.Tools))
	return res.Tools, nil
}

// CallTool invokes one tool by name. arguments must marshal to a JSON
// object.
func (c *Client) CallTool(ctx context.Context, name string, arguments any) (ToolResult, error) {
	params := map[string]any{"name": name, "arguments": arguments}

	raw, err := c.request(ctx, "tools/call", params)
	if err != nil {
		return ToolResult{}, err
	}

	var res ToolResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return ToolResult{}, warderr.Wrapf(err, warderr.CodeMCPProtocolInvalid, "malformed tools/call result from plugin %q", c.pluginID)
	}
	return res, nil
}

// Shutdown closes the plugin's stdin to signal end of input, waits up to
// grace for a voluntary exit, then kills the process. It is safe to call
// more than once; a timed-out in-flight call delays it at most until
// that call's deadline.
func (c *Client) Shutdown(grace time.Duration) {
	if grace <= 0 {
		grace = DefaultShutdownGrace
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true

	_ = c.stdin.Close()

	// Unblock the read loop if it is parked on a full channel.
	go func() {
		for range c.lines {
		}
	}()

	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()

	select {
	case <-done:
		slog.Info("plugin exited", "plugin", c.pluginID)
	case <-time.After(grace):
		slog.Warn("plugin did not exit after stdin close, killing", "plugin", c.pluginID)
		_ = c.cmd.Process.Kill()
		<-done
	}
}

// request performs one JSON-RPC round trip. The lock spans the cycle so
// a second call waits for the first to complete or time out.
func (c *Client) request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, warderr.Errorf(warderr.CodeMCPProcessExited, "plugin %q already shut down", c.pluginID)
	}

	id := c.nextID.Add(1)
	if err := c.send(request{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return nil, err
	}
	return c.await(ctx, id, method)
}

// notify sends a fire-and-forget notification.
func (c *Client) notify(method string, params any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(notification{JSONRPC: "2.0", Method: method, Params: params})
}

// send writes one NDJSON line to the plugin's stdin. Callers hold mu.
func (c *Client) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return warderr.Wrapf(err, warderr.CodeMCPProtocolInvalid, "encoding request for plugin %q", c.pluginID)
	}
	data = append(data, '\n')

	if _, err := c.stdin.Write(data); err != nil {
		return warderr.Wrapf(err, warderr.CodeMCPProcessExited, "writing to plugin %q stdin", c.pluginID)
	}
	return nil
}

// await reads lines until the response matching id arrives. Lines that
// are not protocol messages are the plugin's log noise; responses with a
// different id are strays from an earlier timed-out call. Both are
// discarded without failing the call.
func (c *Client) await(ctx context.Context, id int64, method string) (json.RawMessage, error) {
	timer := time.NewTimer(c.requestTimeout)
	defer timer.Stop()

	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				return nil, warderr.Errorf(warderr.CodeMCPProcessExited,
					"plugin %q closed its output before responding to %s", c.pluginID, method)
			}

			var resp response
			if err := json.Unmarshal(line, &resp); err != nil {
				c.logNoise(line)
				continue
			}
			if resp.ID == nil || *resp.ID != id {
				continue
			}
			if resp.Error != nil {
				return nil, warderr.Wrapf(resp.Error, warderr.CodeMCPCallFailure,
					"plugin %q rejected %s", c.pluginID, method)
			}
			if resp.Result == nil {
				return nil, warderr.Errorf(warderr.CodeMCPProtocolInvalid,
					"plugin %q response to %s carried neither result nor error", c.pluginID, method)
			}
			return resp.Result, nil

		case <-timer.C:
			return nil, warderr.Errorf(warderr.CodeMCPTimeout,
				"plugin %q did not answer %s within %s", c.pluginID, method, c.requestTimeout)

		case <-ctx.Done():
			return nil, warderr.Wrapf(ctx.Err(), warderr.CodeMCPCallFailure, "%s canceled", method)
		}
	}
}

// readLoop feeds stdout lines into c.lines until EOF or read error,
// then closes the channel. ReadBytes imposes no line length limit.
func (c *Client) readLoop() {
	defer close(c.lines)
	for {
		line, err := c.stdout.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			c.lines <- trimmed
		}
		if err != nil {
			return
		}
	}
}

func (c *Client) logNoise(line []byte) {
	if len(line) > noisePreview {
		line = line[:noisePreview]
	}
	slog.Debug("ignoring non-protocol output from plugin", "plugin", c.pluginID, "line", string(line))
}
