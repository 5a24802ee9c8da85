// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package server

import (
	"context"

	warderr "github.com/ward-dev/ward/pkg/errors"
	"github.com/ward-dev/ward/pkg/plugin"
)

// IsNotFound reports whether err carries the server.entity.not_found
// code. Service implementations should return
// warderr.Errorf(warderr.CodeServerEntityNotFound, ...) so handlers can
// distinguish "not found" from internal failures.
func IsNotFound(err error) bool {
	return warderr.HasCode(err, warderr.CodeServerEntityNotFound)
}

// Services holds dependencies injected into route handlers. Each field
// is an interface so subsystems can be mocked in tests. Use the
// NewServices constructor to ensure all required services are provided.
type Services struct {
	plugins   PluginService
	approvals ApprovalService
	tools     ToolService
}

// NewServices creates a Services instance with validation. Returns an
// error if any required service is nil.
func NewServices(plugins PluginService, approvals ApprovalService, tools ToolService) (*Services, error) {
	if plugins == nil {
		return nil, warderr.New(warderr.CodeServerConfigInvalid, "plugin service is required")
	}
	if approvals == nil {
		return nil, warderr.New(warderr.CodeServerConfigInvalid, "approval service is required")
	}
	if tools == nil {
		return nil, warderr.New(warderr.CodeServerConfigInvalid, "tool service is required")
	}
	return &Services{plugins: plugins, approvals: approvals, tools: tools}, nil
}

// Plugins returns the plugin service.
func (s *Services) Plugins() PluginService {
	return s.plugins
}

// Approvals returns the approval service.
func (s *Services) Approvals() ApprovalService {
	return s.approvals
}

// Tools returns the tool service.
func (s *Services) Tools() ToolService {
	return s.tools
}

// PluginService provides plugin inspection operations for REST handlers.
type PluginService interface {
	List(ctx context.Context) ([]PluginSummary, error)
	Get(ctx context.Context, id string) (*PluginDetail, error)
	// Reload rescans the plugins directory, loading newly approved
	// plugins and restarting running ones.
	Reload(ctx context.Context) error
}

// ApprovalService provides consent operations for REST handlers.
type ApprovalService interface {
	Pending(ctx context.Context) ([]PendingApproval, error)
	// Decide records the user's verdict for a pending plugin and, on
	// approval, loads it.
	Decide(ctx context.Context, pluginID string, approved bool) error
}

// ToolService provides tool invocation for REST handlers.
type ToolService interface {
	List(ctx context.Context) ([]ToolSummary, error)
	Call(ctx context.Context, name string, args map[string]any) (*ToolCallResult, error)
}

// PluginSummary is the REST representation of a plugin in list results.
type PluginSummary struct {
	ID      string           `json:"id" doc:"Plugin identifier"`
	Name    string           `json:"name" doc:"Display name"`
	Version string           `json:"version" doc:"Plugin version"`
	State   string           `json:"state" doc:"Lifecycle state (running, awaiting-approval, denied, failed)"`
	Risk    plugin.RiskLevel `json:"risk" doc:"Permission risk level (low, medium, high)"`
}

// PluginDetail is the full REST representation of a plugin.
type PluginDetail struct {
	ID          string           `json:"id" doc:"Plugin identifier"`
	Name        string           `json:"name" doc:"Display name"`
	Version     string           `json:"version" doc:"Plugin version"`
	Description string           `json:"description,omitempty" doc:"What the plugin does"`
	Runtime     string           `json:"runtime" doc:"Runtime (node, python, binary)"`
	State       string           `json:"state" doc:"Lifecycle state"`
	Risk        plugin.RiskLevel `json:"risk" doc:"Permission risk level"`
	Permissions []string         `json:"permissions" doc:"Human-readable permission grants"`
	Tools       []string         `json:"tools" doc:"Qualified tool names exposed by the plugin"`
	Error       string           `json:"error,omitempty" doc:"Load error, when state is failed"`
}

// PendingApproval is one plugin awaiting a consent decision.
type PendingApproval struct {
	ID          string           `json:"id" doc:"Plugin identifier"`
	Name        string           `json:"name" doc:"Display name"`
	Version     string           `json:"version" doc:"Plugin version"`
	Risk        plugin.RiskLevel `json:"risk" doc:"Permission risk level"`
	Permissions []string         `json:"permissions" doc:"Human-readable permission grants"`
	Update      bool             `json:"update" doc:"True when a previously approved plugin changed its permissions"`
}

// ToolSummary is the REST representation of a registered tool.
type ToolSummary struct {
	Name        string `json:"name" doc:"Qualified tool name (plugin_id:tool)"`
	PluginID    string `json:"plugin_id" doc:"Owning plugin"`
	DisplayName string `json:"display_name" doc:"Human-readable label"`
	Description string `json:"description,omitempty" doc:"What the tool does"`
}

// ToolCallResult is the outcome of one tool invocation.
type ToolCallResult struct {
	Text    string `json:"text" doc:"Rendered text output"`
	IsError bool   `json:"is_error" doc:"True when the tool reported a failure"`
}

// NewServicesForTest creates a Services instance for testing. It
// delegates to NewServices to enforce the same validation invariants as
// production code and panics if any required service is nil.
func NewServicesForTest(plugins PluginService, approvals ApprovalService, tools ToolService) *Services {
	svc, err := NewServices(plugins, approvals, tools)
	if err != nil {
		panic(err)
	}
	return svc
}
