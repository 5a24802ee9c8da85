// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ward-dev/ward/internal/server"
	warderr "github.com/ward-dev/ward/pkg/errors"
	"github.com/ward-dev/ward/pkg/plugin"
)

// Mock service implementations for testing.

type mockPluginService struct {
	reloaded  bool
	reloadErr error
}

func (m *mockPluginService) List(_ context.Context) ([]server.PluginSummary, error) {
	return []server.PluginSummary{
		{ID: "com.example.notes", Name: "Notes", Version: "1.2.0", State: "running", Risk: plugin.RiskMedium},
		{ID: "com.example.deploy", Name: "Deploy", Version: "0.3.0", State: "awaiting-approval", Risk: plugin.RiskHigh},
	}, nil
}

func (m *mockPluginService) Get(_ context.Context, id string) (*server.PluginDetail, error) {
	if id != "com.example.notes" {
		return nil, warderr.Errorf(warderr.CodeServerEntityNotFound, "plugin %q not found", id)
	}
	return &server.PluginDetail{
		ID:          "com.example.notes",
		Name:        "Notes",
		Version:     "1.2.0",
		Runtime:     "node",
		State:       "running",
		Risk:        plugin.RiskMedium,
		Permissions: []string{"Read files under ~/notes"},
		Tools:       []string{"com.example.notes:search_notes"},
	}, nil
}

func (m *mockPluginService) Reload(_ context.Context) error {
	if m.reloadErr != nil {
		return m.reloadErr
	}
	m.reloaded = true
	return nil
}

type mockApprovalService struct {
	decisions map[string]bool
}

func (m *mockApprovalService) Pending(_ context.Context) ([]server.PendingApproval, error) {
	return []server.PendingApproval{
		{
			ID:          "com.example.deploy",
			Name:        "Deploy",
			Version:     "0.3.0",
			Risk:        plugin.RiskHigh,
			Permissions: []string{"Execute commands: kubectl"},
		},
	}, nil
}

func (m *mockApprovalService) Decide(_ context.Context, pluginID string, approved bool) error {
	if pluginID != "com.example.deploy" {
		return warderr.Errorf(warderr.CodeApprovalNotPending, "plugin %s has no pending approval", pluginID)
	}
	if m.decisions == nil {
		m.decisions = map[string]bool{}
	}
	m.decisions[pluginID] = approved
	return nil
}

type mockToolService struct{}

func (m *mockToolService) List(_ context.Context) ([]server.ToolSummary, error) {
	return []server.ToolSummary{
		{Name: "com.example.notes:search_notes", PluginID: "com.example.notes", DisplayName: "Search Notes"},
	}, nil
}

func (m *mockToolService) Call(_ context.Context, name string, args map[string]any) (*server.ToolCallResult, error) {
	switch name {
	case "search_notes", "com.example.notes:search_notes":
		q, _ := args["query"].(string)
		return &server.ToolCallResult{Text: "results for " + q}, nil
	case "slow_tool":
		return nil, warderr.Errorf(warderr.CodeMCPTimeout, "request timed out")
	default:
		return nil, warderr.Errorf(warderr.CodeRegistryToolNotFound, "no tool %q", name)
	}
}

func newMockServices() *server.Services {
	return server.NewServicesForTest(&mockPluginService{}, &mockApprovalService{}, &mockToolService{})
}

func newTestServerWithData(t *testing.T) *server.Server {
	t.Helper()
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	srv.RegisterServices(newMockServices())
	return srv
}

func TestRoutes_ListPlugins(t *testing.T) {
	srv := newTestServerWithData(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plugins", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Plugins []server.PluginSummary `json:"plugins"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Plugins, 2)
	assert.Equal(t, "com.example.notes", resp.Plugins[0].ID)
	assert.Equal(t, plugin.RiskHigh, resp.Plugins[1].Risk)
}

func TestRoutes_GetPlugin(t *testing.T) {
	srv := newTestServerWithData(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plugins/com.example.notes", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Read files under ~/notes")
}

func TestRoutes_GetPlugin_NotFound(t *testing.T) {
	srv := newTestServerWithData(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plugins/com.example.ghost", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_ReloadPlugins(t *testing.T) {
	plugins := &mockPluginService{}
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	srv.RegisterServices(server.NewServicesForTest(plugins, &mockApprovalService{}, &mockToolService{}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/plugins/reload", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, plugins.reloaded)
}

func TestRoutes_ReloadPlugins_InternalError(t *testing.T) {
	plugins := &mockPluginService{
		reloadErr: warderr.New(warderr.CodeLoaderLoadFailure, "scan failed"),
	}
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	srv.RegisterServices(server.NewServicesForTest(plugins, &mockApprovalService{}, &mockToolService{}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/plugins/reload", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRoutes_ListApprovals(t *testing.T) {
	srv := newTestServerWithData(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/approvals", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Pending []server.PendingApproval `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Pending, 1)
	assert.Equal(t, "com.example.deploy", resp.Pending[0].ID)
	assert.Equal(t, []string{"Execute commands: kubectl"}, resp.Pending[0].Permissions)
}

func TestRoutes_DecideApproval(t *testing.T) {
	approvals := &mockApprovalService{}
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	srv.RegisterServices(server.NewServicesForTest(&mockPluginService{}, approvals, &mockToolService{}))

	body := `{"approved": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/approvals/com.example.deploy", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "approved")
	assert.Equal(t, map[string]bool{"com.example.deploy": true}, approvals.decisions)
}

func TestRoutes_DecideApproval_Deny(t *testing.T) {
	approvals := &mockApprovalService{}
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	srv.RegisterServices(server.NewServicesForTest(&mockPluginService{}, approvals, &mockToolService{}))

	body := `{"approved": false}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/approvals/com.example.deploy", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "denied")
	assert.Equal(t, map[string]bool{"com.example.deploy": false}, approvals.decisions)
}

func TestRoutes_DecideApproval_NotPending(t *testing.T) {
	srv := newTestServerWithData(t)

	body := `{"approved": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/approvals/com.example.ghost", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_ListTools(t *testing.T) {
	srv := newTestServerWithData(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "com.example.notes:search_notes")
}

func TestRoutes_CallTool(t *testing.T) {
	srv := newTestServerWithData(t)

	body := `{"arguments": {"query": "groceries"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/search_notes/call", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp server.ToolCallResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "results for groceries", resp.Text)
	assert.False(t, resp.IsError)
}

func TestRoutes_CallTool_NotFound(t *testing.T) {
	srv := newTestServerWithData(t)

	body := `{"arguments": {}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/missing_tool/call", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_CallTool_Timeout(t *testing.T) {
	srv := newTestServerWithData(t)

	body := `{"arguments": {}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/slow_tool/call", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestRoutes_Status(t *testing.T) {
	srv := newTestServerWithData(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status  string `json:"status"`
		Plugins int    `json:"plugins"`
		Pending int    `json:"pending"`
		Tools   int    `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Plugins)
	assert.Equal(t, 1, resp.Pending)
	assert.Equal(t, 1, resp.Tools)
}
