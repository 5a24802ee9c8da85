// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

// Package registry is the central directory for all dispatchable tools:
// built-in tools handled in-process and plugin tools forwarded to a live
// protocol client per plugin. Tools are keyed by qualified name
// ("plugin_id:name") so two plugins may expose the same bare name.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ward-dev/ward/internal/plugin/mcp"
	warderr "github.com/ward-dev/ward/pkg/errors"
)

// BuiltinPluginID is the sentinel owner id for tools dispatched in-process
// rather than through a plugin server.
const BuiltinPluginID = "builtin"

// RegisteredTool is one dispatchable tool, whether built-in or plugin-provided.
type RegisteredTool struct {
	// PluginID is the owning plugin, or BuiltinPluginID for internal tools.
	PluginID string `json:"plugin_id"`
	// Name is the bare tool name as exposed by the plugin server.
	Name string `json:"name"`
	// DisplayName is the human-readable label shown in menus and prompts.
	DisplayName string `json:"display_name"`
	// Description is what the tool does, injected into classifier prompts.
	Description string `json:"description"`
	// InputSchema is the tool's JSON Schema for arguments, if it declares one.
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// Qualified returns the tool's unique "plugin_id:name" key.
func (t RegisteredTool) Qualified() string {
	return QualifiedName(t.PluginID, t.Name)
}

// QualifiedName builds the compound key that makes tool names unique
// across plugins.
func QualifiedName(pluginID, toolName string) string {
	return pluginID + ":" + toolName
}

// BuiltinHandler executes a built-in tool in-process.
type BuiltinHandler func(ctx context.Context, arguments map[string]any) (mcp.ToolResult, error)

// Server is the live protocol-client surface the registry dispatches
// plugin calls through.
type Server interface {
	CallTool(ctx context.Context, name string, arguments any) (mcp.ToolResult, error)
	Shutdown(grace time.Duration)
}

// Compile-time check that the protocol client satisfies Server.
var _ Server = (*mcp.Client)(nil)

// Registry holds every registered tool plus the live server handle for
// each running plugin. A server entry exists only while its process runs;
// tools stay registered after a crash so callers get a "no running server"
// error instead of a silent miss.
//
// The mutex guards single lookups and mutations only. It is never held
// across a call into a plugin process or any other blocking I/O.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]RegisteredTool
	order    []string // qualified names in registration order
	servers  map[string]Server
	builtins map[string]BuiltinHandler

	shutdownGrace time.Duration
}

// NewRegistry creates an empty Registry. A non-positive shutdownGrace
// falls back to the protocol client's default.
func NewRegistry(shutdownGrace time.Duration) *Registry {
	if shutdownGrace <= 0 {
		shutdownGrace = mcp.DefaultShutdownGrace
	}
	return &Registry{
		tools:         make(map[string]RegisteredTool),
		servers:       make(map[string]Server),
		builtins:      make(map[string]BuiltinHandler),
		shutdownGrace: shutdownGrace,
	}
}

// Register records the tools discovered from one plugin together with the
// live server handle that dispatches them. Re-registering a plugin id
// replaces its previous tools and server; the caller is responsible for
// shutting down any prior server first (see RemovePlugin).
func (r *Registry) Register(pluginID string, tools []mcp.Tool, srv Server) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tool := range tools {
		r.insertLocked(RegisteredTool{
			PluginID:    pluginID,
			Name:        tool.Name,
			DisplayName: displayName(tool.Name),
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	if srv != nil {
		r.servers[pluginID] = srv
	}

	slog.Info("plugin tools registered", "plugin", pluginID, "tools", len(tools))
}

// RegisterBuiltin records one built-in tool and its in-process handler.
// Registering the same tool again replaces the handler, which is how an
// embedding application overrides a default built-in.
func (r *Registry) RegisterBuiltin(tool RegisteredTool, handler BuiltinHandler) {
	if tool.PluginID == "" {
		tool.PluginID = BuiltinPluginID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.insertLocked(tool)
	r.builtins[tool.Qualified()] = handler
}

// insertLocked adds or replaces a tool, keeping registration order stable.
// Caller must hold r.mu.
func (r *Registry) insertLocked(tool RegisteredTool) {
	qname := tool.Qualified()
	if _, exists := r.tools[qname]; !exists {
		r.order = append(r.order, qname)
	}
	r.tools[qname] = tool
}

// Tool looks up a tool by its exact qualified name.
func (r *Registry) Tool(qualified string) (RegisteredTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[qualified]
	return t, ok
}

// Resolve maps an action id to a registered tool. The id may be a fully
// qualified name or a bare tool name; bare names resolve to the first
// match in registration order, so callers that need determinism across
// plugins should prefer qualified names.
func (r *Registry) Resolve(actionID string) (RegisteredTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolveLocked(actionID)
}

// resolveLocked is Resolve without locking. Caller must hold r.mu.
func (r *Registry) resolveLocked(actionID string) (RegisteredTool, bool) {
	if t, ok := r.tools[actionID]; ok {
		return t, true
	}
	for _, qname := range r.order {
		if t := r.tools[qname]; t.Name == actionID {
			return t, true
		}
	}
	return RegisteredTool{}, false
}

// IsPluginAction reports whether an action id dispatches to a plugin
// rather than a built-in. Resolution follows the same first-match rule
// as Resolve, so the answer always agrees with what CallTool would do.
func (r *Registry) IsPluginAction(actionID string) bool {
	t, ok := r.Resolve(actionID)
	return ok && t.PluginID != BuiltinPluginID
}

// CallTool resolves an action id and dispatches it: built-ins run their
// in-process handler, plugin tools are forwarded to the plugin's live
// server. The registry lock is released before any handler or server
// call; a second call to the same plugin then serializes on that plugin's
// client, not on the registry.
func (r *Registry) CallTool(ctx context.Context, actionID string, arguments map[string]any) (mcp.ToolResult, error) {
	r.mu.RLock()
	tool, ok := r.resolveLocked(actionID)
	var handler BuiltinHandler
	var srv Server
	if ok {
		if tool.PluginID == BuiltinPluginID {
			handler = r.builtins[tool.Qualified()]
		} else {
			srv = r.servers[tool.PluginID]
		}
	}
	r.mu.RUnlock()

	if !ok {
		return mcp.ToolResult{}, warderr.New(
			warderr.CodeRegistryToolNotFound,
			"tool not found in registry: "+actionID,
			warderr.FieldTool(actionID),
		)
	}

	if tool.PluginID == BuiltinPluginID {
		if handler == nil {
			return mcp.ToolResult{}, warderr.New(
				warderr.CodeRegistryServerUnavailable,
				"no in-process handler for builtin tool: "+tool.Name,
				warderr.FieldTool(tool.Name),
			)
		}
		return handler(ctx, arguments)
	}

	if srv == nil {
		return mcp.ToolResult{}, warderr.New(
			warderr.CodeRegistryServerUnavailable,
			"no running server for plugin: "+tool.PluginID,
			warderr.FieldPlugin(tool.PluginID),
			warderr.FieldTool(tool.Name),
		)
	}
	return srv.CallTool(ctx, tool.Name, arguments)
}

// AllTools returns every registered tool in registration order.
func (r *Registry) AllTools() []RegisteredTool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RegisteredTool, 0, len(r.order))
	for _, qname := range r.order {
		out = append(out, r.tools[qname])
	}
	return out
}

// PluginIDs returns the ids of all plugins with a live server, sorted.
func (r *Registry) PluginIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.servers))
	for id := range r.servers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ToolsForPrompt renders all plugin-provided tools as one line each, in
// the shape an external classifier prompt expects. Built-ins are excluded;
// the host advertises those itself. Returns "" when no plugin tools are
// registered.
func (r *Registry) ToolsForPrompt() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	for _, qname := range r.order {
		t := r.tools[qname]
		if t.PluginID == BuiltinPluginID {
			continue
		}
		fmt.Fprintf(&b, "- id: %q, label: %q, description: %q\n", qname, t.DisplayName, t.Description)
	}
	return b.String()
}

// RemovePlugin forgets a plugin's tools and shuts down its server if one
// is running. Safe to call for an unknown id.
func (r *Registry) RemovePlugin(pluginID string) {
	r.mu.Lock()
	srv := r.servers[pluginID]
	delete(r.servers, pluginID)
	kept := r.order[:0]
	for _, qname := range r.order {
		if r.tools[qname].PluginID == pluginID {
			delete(r.tools, qname)
			continue
		}
		kept = append(kept, qname)
	}
	r.order = kept
	r.mu.Unlock()

	if srv != nil {
		srv.Shutdown(r.shutdownGrace)
	}
}

// ShutdownAll drains every live server and shuts them down concurrently,
// so one process refusing to exit cannot block the rest. Idempotent: a
// second call finds no servers and returns immediately. Registered tools
// stay listed; subsequent plugin calls fail with "no running server".
func (r *Registry) ShutdownAll() {
	r.mu.Lock()
	servers := r.servers
	r.servers = make(map[string]Server)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for id, srv := range servers {
		wg.Add(1)
		go func(id string, srv Server) {
			defer wg.Done()
			slog.Info("shutting down plugin server", "plugin", id)
			srv.Shutdown(r.shutdownGrace)
		}(id, srv)
	}
	wg.Wait()
}

// displayName derives a menu label from a snake_case tool name.
func displayName(toolName string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(toolName, "_", " "))
}
