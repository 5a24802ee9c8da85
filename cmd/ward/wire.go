// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package main

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ward-dev/ward/internal/config"
	"github.com/ward-dev/ward/internal/plugin/approval"
	"github.com/ward-dev/ward/internal/plugin/loader"
	"github.com/ward-dev/ward/internal/plugin/registry"
	"github.com/ward-dev/ward/internal/plugin/sandbox"
	"github.com/ward-dev/ward/internal/server"
	"github.com/ward-dev/ward/internal/store"
	_ "github.com/ward-dev/ward/internal/store/sqlite" // register sqlite backend
	warderr "github.com/ward-dev/ward/pkg/errors"
)

// Host holds all wired subsystems and manages their lifecycle.
type Host struct {
	Server   *server.Server
	Loader   *loader.Loader
	Registry *registry.Registry
	Audit    store.AuditStore
}

// WireHost creates all subsystems and wires them together.
func WireHost(cfg *config.Config) (*Host, error) {
	dataPath, err := cfg.StoragePath()
	if err != nil {
		return nil, warderr.Wrap(err, warderr.CodeCLISetupFailure, "resolving storage path")
	}

	audit, err := store.NewAuditStore(cfg.Storage.Backend, dataPath)
	if err != nil {
		return nil, warderr.Wrap(err, warderr.CodeCLISetupFailure, "creating audit store")
	}

	approvalPath, err := approval.DefaultPath()
	if err != nil {
		_ = audit.Close()
		return nil, warderr.Wrap(err, warderr.CodeCLISetupFailure, "resolving approval store path")
	}
	approvals := approval.Open(approvalPath)

	reg := registry.NewRegistry(cfg.MCP.ShutdownGrace)
	registry.RegisterBuiltins(reg)

	ld := loader.New(loader.Options{
		PluginsDir:      cfg.Plugins.Dir,
		Approvals:       approvals,
		Registry:        reg,
		Confiner:        sandbox.NewConfiner(),
		AllowUnconfined: cfg.Sandbox.AllowUnconfined,
		RequestTimeout:  cfg.MCP.RequestTimeout,
		Audit:           audit,
	})

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.ListenAddr,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	if err != nil {
		_ = audit.Close()
		return nil, warderr.Wrap(err, warderr.CodeCLISetupFailure, "creating server")
	}

	services, err := server.NewServices(
		&pluginServiceAdapter{loader: ld, registry: reg},
		&approvalServiceAdapter{loader: ld},
		&toolServiceAdapter{registry: reg, audit: audit},
	)
	if err != nil {
		_ = audit.Close()
		return nil, warderr.Wrap(err, warderr.CodeCLISetupFailure, "creating services")
	}
	srv.RegisterServices(services)

	return &Host{
		Server:   srv,
		Loader:   ld,
		Registry: reg,
		Audit:    audit,
	}, nil
}

// Start loads all plugins and runs the HTTP server until the context is
// cancelled.
func (h *Host) Start(ctx context.Context) error {
	if err := h.Loader.LoadAll(ctx); err != nil {
		return err
	}
	return h.Server.Start(ctx)
}

// Close stops all running plugins and releases resources.
func (h *Host) Close() error {
	h.Loader.Shutdown()

	var errs []error
	if h.Audit != nil {
		if err := h.Audit.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// --- Service adapters ---

type pluginServiceAdapter struct {
	loader   *loader.Loader
	registry *registry.Registry
}

func (a *pluginServiceAdapter) List(_ context.Context) ([]server.PluginSummary, error) {
	instances := a.loader.Instances()
	out := make([]server.PluginSummary, 0, len(instances))
	for _, inst := range instances {
		m := inst.Manifest()
		out = append(out, server.PluginSummary{
			ID:      inst.ID(),
			Name:    m.Name,
			Version: m.Version,
			State:   inst.State().String(),
			Risk:    m.Permissions.Risk(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (a *pluginServiceAdapter) Get(_ context.Context, id string) (*server.PluginDetail, error) {
	inst, err := a.loader.Get(id)
	if err != nil {
		return nil, warderr.Errorf(warderr.CodeServerEntityNotFound, "plugin %q not found", id)
	}

	m := inst.Manifest()
	detail := &server.PluginDetail{
		ID:          inst.ID(),
		Name:        m.Name,
		Version:     m.Version,
		Description: m.Description,
		Runtime:     string(m.Runtime),
		State:       inst.State().String(),
		Risk:        m.Permissions.Risk(),
		Permissions: m.Permissions.Describe(),
	}
	for _, t := range a.registry.AllTools() {
		if t.PluginID == inst.ID() {
			detail.Tools = append(detail.Tools, t.PluginID+":"+t.Name)
		}
	}
	if loadErr := inst.Err(); loadErr != nil {
		detail.Error = loadErr.Error()
	}
	return detail, nil
}

func (a *pluginServiceAdapter) Reload(ctx context.Context) error {
	return a.loader.Reload(ctx)
}

type approvalServiceAdapter struct {
	loader *loader.Loader
}

func (a *approvalServiceAdapter) Pending(_ context.Context) ([]server.PendingApproval, error) {
	pending := a.loader.Pending()
	out := make([]server.PendingApproval, 0, len(pending))
	for _, p := range pending {
		out = append(out, server.PendingApproval{
			ID:          p.Manifest.ID,
			Name:        p.Manifest.Name,
			Version:     p.Manifest.Version,
			Risk:        p.Manifest.Permissions.Risk(),
			Permissions: p.Manifest.Permissions.Describe(),
			Update:      p.IsUpdate,
		})
	}
	return out, nil
}

func (a *approvalServiceAdapter) Decide(ctx context.Context, pluginID string, approved bool) error {
	return a.loader.Approve(ctx, pluginID, approved)
}

type toolServiceAdapter struct {
	registry *registry.Registry
	audit    store.AuditStore
}

func (a *toolServiceAdapter) List(_ context.Context) ([]server.ToolSummary, error) {
	tools := a.registry.AllTools()
	out := make([]server.ToolSummary, 0, len(tools))
	for _, t := range tools {
		out = append(out, server.ToolSummary{
			Name:        t.PluginID + ":" + t.Name,
			PluginID:    t.PluginID,
			DisplayName: t.DisplayName,
			Description: t.Description,
		})
	}
	return out, nil
}

func (a *toolServiceAdapter) Call(ctx context.Context, name string, args map[string]any) (*server.ToolCallResult, error) {
	res, err := a.registry.CallTool(ctx, name, args)

	result := store.ResultOK
	details := map[string]any{"tool": name}
	if err != nil {
		result = store.ResultError
		details["error"] = err.Error()
	} else if res.IsError {
		result = store.ResultError
	}
	pluginID := ""
	if tool, ok := a.registry.Resolve(name); ok {
		pluginID = tool.PluginID
	}
	_ = a.audit.Append(ctx, &store.AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Action:    store.ActionToolCalled,
		Actor:     "api",
		Plugin:    pluginID,
		Details:   details,
		Result:    result,
	})

	if err != nil {
		return nil, err
	}
	return &server.ToolCallResult{Text: res.Text(), IsError: res.IsError}, nil
}
