// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	warderr "github.com/ward-dev/ward/pkg/errors"
)

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	// Plugin endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "list-plugins",
		Method:      http.MethodGet,
		Path:        "/api/v1/plugins",
		Summary:     "List installed plugins",
		Tags:        []string{"plugins"},
	}, s.handleListPlugins)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-plugin",
		Method:      http.MethodGet,
		Path:        "/api/v1/plugins/{id}",
		Summary:     "Get plugin details",
		Tags:        []string{"plugins"},
	}, s.handleGetPlugin)

	huma.Register(s.api, huma.Operation{
		OperationID: "reload-plugins",
		Method:      http.MethodPost,
		Path:        "/api/v1/plugins/reload",
		Summary:     "Rescan the plugins directory",
		Tags:        []string{"plugins"},
	}, s.handleReloadPlugins)

	// Approval endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "list-pending-approvals",
		Method:      http.MethodGet,
		Path:        "/api/v1/approvals",
		Summary:     "List plugins awaiting consent",
		Tags:        []string{"approvals"},
	}, s.handleListApprovals)

	huma.Register(s.api, huma.Operation{
		OperationID: "decide-approval",
		Method:      http.MethodPost,
		Path:        "/api/v1/approvals/{id}",
		Summary:     "Approve or deny a pending plugin",
		Tags:        []string{"approvals"},
	}, s.handleDecideApproval)

	// Tool endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "list-tools",
		Method:      http.MethodGet,
		Path:        "/api/v1/tools",
		Summary:     "List registered tools",
		Tags:        []string{"tools"},
	}, s.handleListTools)

	huma.Register(s.api, huma.Operation{
		OperationID: "call-tool",
		Method:      http.MethodPost,
		Path:        "/api/v1/tools/{name}/call",
		Summary:     "Invoke a tool",
		Tags:        []string{"tools"},
	}, s.handleCallTool)

	// Status endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "host-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Host status",
		Tags:        []string{"system"},
	}, s.handleStatus)
}

// --- Request/Response types for huma ---

type listPluginsOutput struct {
	Body struct {
		Plugins []PluginSummary `json:"plugins"`
	}
}

type pluginIDInput struct {
	ID string `path:"id"`
}
type getPluginOutput struct {
	Body PluginDetail
}

type reloadPluginsOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

type listApprovalsOutput struct {
	Body struct {
		Pending []PendingApproval `json:"pending"`
	}
}

type decideApprovalInput struct {
	ID   string `path:"id"`
	Body struct {
		Approved bool `json:"approved" doc:"True to grant consent, false to deny"`
	}
}
type decideApprovalOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

type listToolsOutput struct {
	Body struct {
		Tools []ToolSummary `json:"tools"`
	}
}

type callToolInput struct {
	Name string `path:"name"`
	Body struct {
		Arguments map[string]any `json:"arguments,omitempty" doc:"Tool arguments"`
	}
}
type callToolOutput struct {
	Body ToolCallResult
}

type statusOutput struct {
	Body struct {
		Status  string `json:"status" example:"ok" doc:"Host status"`
		Plugins int    `json:"plugins" doc:"Number of discovered plugins"`
		Pending int    `json:"pending" doc:"Plugins awaiting consent"`
		Tools   int    `json:"tools" doc:"Registered tools"`
	}
}

// --- Handlers ---

func (s *Server) handleListPlugins(ctx context.Context, _ *struct{}) (*listPluginsOutput, error) {
	plugins, err := s.services.Plugins().List(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing plugins", err)
	}
	out := &listPluginsOutput{}
	out.Body.Plugins = plugins
	return out, nil
}

func (s *Server) handleGetPlugin(ctx context.Context, input *pluginIDInput) (*getPluginOutput, error) {
	p, err := s.services.Plugins().Get(ctx, input.ID)
	if err != nil {
		if IsNotFound(err) {
			return nil, huma.Error404NotFound(fmt.Sprintf("plugin %q not found", input.ID))
		}
		return nil, huma.Error500InternalServerError("getting plugin", err)
	}
	return &getPluginOutput{Body: *p}, nil
}

func (s *Server) handleReloadPlugins(ctx context.Context, _ *struct{}) (*reloadPluginsOutput, error) {
	if err := s.services.Plugins().Reload(ctx); err != nil {
		return nil, huma.Error500InternalServerError("reloading plugins", err)
	}
	out := &reloadPluginsOutput{}
	out.Body.Status = "reloaded"
	return out, nil
}

func (s *Server) handleListApprovals(ctx context.Context, _ *struct{}) (*listApprovalsOutput, error) {
	pending, err := s.services.Approvals().Pending(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing pending approvals", err)
	}
	out := &listApprovalsOutput{}
	out.Body.Pending = pending
	return out, nil
}

func (s *Server) handleDecideApproval(ctx context.Context, input *decideApprovalInput) (*decideApprovalOutput, error) {
	if err := s.services.Approvals().Decide(ctx, input.ID, input.Body.Approved); err != nil {
		if IsNotFound(err) || warderr.HasCode(err, warderr.CodeApprovalNotPending) {
			return nil, huma.Error404NotFound(fmt.Sprintf("plugin %q is not awaiting approval", input.ID))
		}
		return nil, huma.Error500InternalServerError("recording approval decision", err)
	}
	out := &decideApprovalOutput{}
	if input.Body.Approved {
		out.Body.Status = "approved"
	} else {
		out.Body.Status = "denied"
	}
	return out, nil
}

func (s *Server) handleListTools(ctx context.Context, _ *struct{}) (*listToolsOutput, error) {
	tools, err := s.services.Tools().List(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing tools", err)
	}
	out := &listToolsOutput{}
	out.Body.Tools = tools
	return out, nil
}

func (s *Server) handleCallTool(ctx context.Context, input *callToolInput) (*callToolOutput, error) {
	res, err := s.services.Tools().Call(ctx, input.Name, input.Body.Arguments)
	if err != nil {
		if IsNotFound(err) || warderr.HasCode(err, warderr.CodeRegistryToolNotFound) {
			return nil, huma.Error404NotFound(fmt.Sprintf("tool %q not found", input.Name))
		}
		if warderr.HasCode(err, warderr.CodeMCPTimeout) {
			return nil, huma.Error504GatewayTimeout(fmt.Sprintf("tool %q timed out", input.Name))
		}
		return nil, huma.Error502BadGateway(fmt.Sprintf("calling tool %q", input.Name), err)
	}
	return &callToolOutput{Body: *res}, nil
}

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	out := &statusOutput{}
	out.Body.Status = "ok"

	if plugins, err := s.services.Plugins().List(ctx); err == nil {
		out.Body.Plugins = len(plugins)
	}
	if pending, err := s.services.Approvals().Pending(ctx); err == nil {
		out.Body.Pending = len(pending)
	}
	if tools, err := s.services.Tools().List(ctx); err == nil {
		out.Body.Tools = len(tools)
	}
	return out, nil
}
