// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

// Package loader orchestrates the plugin lifecycle: scan the plugins
// directory, gate each plugin on recorded user consent, then for approved
// plugins build the filtered environment, confine the launch, spawn the
// process, run the protocol handshake, and register the discovered tools.
// One bad plugin never takes down the scan; every failure is contained to
// its own instance.
package loader

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ward-dev/ward/internal/plugin/approval"
	"github.com/ward-dev/ward/internal/plugin/mcp"
	"github.com/ward-dev/ward/internal/plugin/registry"
	"github.com/ward-dev/ward/internal/plugin/sandbox"
	"github.com/ward-dev/ward/internal/store"
	warderr "github.com/ward-dev/ward/pkg/errors"
	"github.com/ward-dev/ward/pkg/plugin"
)

// server is the protocol-client surface the loader drives during a load.
// *mcp.Client satisfies it; tests substitute fakes through spawnServer.
type server interface {
	Initialize(ctx context.Context) (mcp.ServerInfo, error)
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	registry.Server
}

// spawnServer starts a plugin process and wraps it in a protocol client.
var spawnServer = func(pluginID, command string, args []string, opts mcp.SpawnOptions) (server, error) {
	return mcp.Spawn(pluginID, command, args, opts)
}

// PendingPlugin is one plugin awaiting a user decision before it may run.
type PendingPlugin struct {
	Manifest *plugin.Manifest
	Dir      string
	// IsUpdate marks a previously approved plugin whose declared
	// permissions changed, which demands re-consent.
	IsUpdate bool
}

// Options configures a Loader.
type Options struct {
	// PluginsDir is the root holding one subdirectory per plugin.
	PluginsDir string
	// Approvals is the persisted consent store.
	Approvals *approval.Store
	// Registry receives discovered tools and live clients.
	Registry *registry.Registry
	// Confiner wraps plugin launches in the platform sandbox. Nil selects
	// the platform default.
	Confiner sandbox.Confiner
	// AllowUnconfined launches a plugin without confinement when profile
	// synthesis fails. Off by default: a sandbox error refuses the load.
	AllowUnconfined bool
	// RequestTimeout overrides the protocol client's per-request timeout.
	RequestTimeout time.Duration
	// Audit receives trust decisions and load outcomes. Nil disables
	// auditing; appends are best-effort and never fail a load.
	Audit store.AuditStore
}

// Loader scans, gates, and starts plugins, tracking one Instance per
// discovered plugin id.
type Loader struct {
	dir             string
	approvals       *approval.Store
	reg             *registry.Registry
	confiner        sandbox.Confiner
	allowUnconfined bool
	requestTimeout  time.Duration
	auditLog        store.AuditStore

	mu        sync.Mutex
	instances map[string]*Instance
	pending   []PendingPlugin
}

// New creates a Loader. Registry and Approvals must be non-nil.
func New(opts Options) *Loader {
	confiner := opts.Confiner
	if confiner == nil {
		confiner = sandbox.NewConfiner()
	}
	return &Loader{
		dir:             opts.PluginsDir,
		approvals:       opts.Approvals,
		reg:             opts.Registry,
		confiner:        confiner,
		allowUnconfined: opts.AllowUnconfined,
		requestTimeout:  opts.RequestTimeout,
		auditLog:        opts.Audit,
		instances:       make(map[string]*Instance),
	}
}

// audit appends an entry to the audit trail when one is configured.
// Auditing never blocks or fails plugin work; append errors are logged.
func (l *Loader) audit(ctx context.Context, action, actor, pluginID, result string, details map[string]any) {
	if l.auditLog == nil {
		return
	}
	err := l.auditLog.Append(ctx, &store.AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Action:    action,
		Actor:     actor,
		Plugin:    pluginID,
		Details:   details,
		Result:    result,
	})
	if err != nil {
		slog.Warn("audit append failed", "action", action, "plugin", pluginID, "error", err)
	}
}

// LoadAll scans the plugins directory and processes every subdirectory:
// approved plugins load immediately, denied plugins are skipped, and
// plugins needing consent go on the pending queue. Plugins load
// concurrently in independent failure domains. A missing plugins
// directory is not an error; a plugin host with no plugins is fine.
func (l *Loader) LoadAll(ctx context.Context) error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("plugins directory does not exist", "path", l.dir)
			return nil
		}
		return warderr.Wrap(err, warderr.CodeLoaderDiscoveryFailure, "reading plugins directory", warderr.FieldPath(l.dir))
	}

	var (
		wg      sync.WaitGroup
		scanMu  sync.Mutex
		scanned []*Instance
	)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(l.dir, entry.Name())
		wg.Add(1)
		go func() {
			defer wg.Done()
			if inst := l.scanDirectory(ctx, dir); inst != nil {
				scanMu.Lock()
				scanned = append(scanned, inst)
				scanMu.Unlock()
			}
		}()
	}
	wg.Wait()

	var loaded, pending, denied, failed int
	for _, inst := range scanned {
		switch inst.State() {
		case StateRunning:
			loaded++
		case StateAwaitingApproval:
			pending++
		case StateDenied:
			denied++
		case StateFailed:
			failed++
		}
	}
	slog.Info("plugin scan complete",
		"loaded", loaded, "pending", pending, "denied", denied, "failed", failed)
	return nil
}

// scanDirectory processes one plugin directory end to end. Returns the
// tracked instance, or nil when the directory was skipped.
func (l *Loader) scanDirectory(ctx context.Context, dir string) *Instance {
	m, err := plugin.Load(dir)
	if err != nil {
		slog.Warn("skipping plugin: invalid manifest", "path", dir, "error", err)
		return nil
	}

	inst := NewInstance(m, dir)
	l.mu.Lock()
	if _, exists := l.instances[m.ID]; exists {
		l.mu.Unlock()
		slog.Warn("skipping plugin: duplicate id", "plugin", m.ID, "path", dir)
		return nil
	}
	l.instances[m.ID] = inst
	l.mu.Unlock()

	switch status := l.approvals.Check(m); status {
	case approval.StatusDenied:
		_ = inst.TransitionTo(StateDenied)
		slog.Debug("plugin denied, skipping", "plugin", m.ID)

	case approval.StatusApproved:
		// loadSequence records and logs any failure on the instance.
		_ = l.loadSequence(ctx, inst)

	case approval.StatusNeedsApproval, approval.StatusPermissionsChanged:
		isUpdate := status == approval.StatusPermissionsChanged
		_ = inst.TransitionTo(StateAwaitingApproval)
		l.mu.Lock()
		l.pending = append(l.pending, PendingPlugin{Manifest: m, Dir: dir, IsUpdate: isUpdate})
		l.mu.Unlock()
		slog.Info("plugin awaiting approval",
			"plugin", m.ID, "risk", m.Permissions.Risk(), "update", isUpdate)
	}
	return inst
}

// loadSequence takes an approved instance all the way to running:
// resolve runtime, filter environment, confine, spawn, handshake,
// discover tools, register. Any failure parks the instance in
// StateFailed and aborts only this plugin.
func (l *Loader) loadSequence(ctx context.Context, inst *Instance) error {
	m := inst.Manifest()
	if err := inst.TransitionTo(StateLoading); err != nil {
		return err
	}

	fail := func(err error) error {
		err = warderr.Wrapf(err, warderr.CodeLoaderLoadFailure, "loading plugin %s", m.ID)
		inst.Fail(err)
		slog.Warn("plugin failed to load", "plugin", m.ID, "error", err)
		l.audit(ctx, store.ActionPluginFailed, "host", m.ID, store.ResultError,
			map[string]any{"error": err.Error()})
		return err
	}

	launch, err := sandbox.ResolveCommand(m, inst.Dir())
	if err != nil {
		return fail(err)
	}

	env := sandbox.FilterEnv(m.Permissions, m.ID)

	confined, err := l.confiner.Confine(m, inst.Dir(), launch)
	if err != nil {
		if !l.allowUnconfined {
			return fail(err)
		}
		slog.Warn("sandbox unavailable, launching plugin unconfined",
			"plugin", m.ID, "error", err)
		l.audit(ctx, store.ActionSandboxFallback, "host", m.ID, store.ResultOK,
			map[string]any{"reason": err.Error()})
		confined = launch
	}

	srv, err := spawnServer(m.ID, confined.Command, confined.Args, mcp.SpawnOptions{
		Env:            env,
		Dir:            confined.Dir,
		RequestTimeout: l.requestTimeout,
	})
	if err != nil {
		return fail(err)
	}

	info, err := srv.Initialize(ctx)
	if err != nil {
		srv.Shutdown(0)
		return fail(err)
	}

	tools, err := srv.ListTools(ctx)
	if err != nil {
		srv.Shutdown(0)
		return fail(err)
	}

	l.reg.Register(m.ID, tools, srv)
	if err := inst.TransitionTo(StateRunning); err != nil {
		return err
	}

	slog.Info("plugin loaded", "plugin", m.ID, "version", m.Version,
		"server", info.Name, "sandbox", l.confiner.Name(), "tools", len(tools))
	l.audit(ctx, store.ActionPluginLoaded, "host", m.ID, store.ResultOK,
		map[string]any{"version": m.Version, "tools": len(tools), "sandbox": l.confiner.Name()})
	return nil
}

// Pending returns a snapshot of the plugins awaiting a user decision.
func (l *Loader) Pending() []PendingPlugin {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.pending)
}

// Approve consumes the pending entry for a plugin id. Approval records
// consent and then runs the exact same load sequence as a startup load;
// denial records the refusal and discards the entry. The decision is
// persisted before anything else happens, and a persistence failure
// leaves the entry queued so the user can retry.
func (l *Loader) Approve(ctx context.Context, pluginID string, approved bool) error {
	l.mu.Lock()
	idx := slices.IndexFunc(l.pending, func(p PendingPlugin) bool {
		return p.Manifest.ID == pluginID
	})
	if idx < 0 {
		l.mu.Unlock()
		return warderr.New(warderr.CodeApprovalNotPending,
			"plugin not awaiting approval: "+pluginID, warderr.FieldPlugin(pluginID))
	}
	entry := l.pending[idx]
	l.pending = slices.Delete(l.pending, idx, idx+1)
	inst := l.instances[pluginID]
	l.mu.Unlock()

	if inst == nil {
		inst = NewInstance(entry.Manifest, entry.Dir)
		_ = inst.TransitionTo(StateAwaitingApproval)
		l.mu.Lock()
		l.instances[pluginID] = inst
		l.mu.Unlock()
	}

	if !approved {
		if err := l.approvals.RecordDenial(pluginID); err != nil {
			l.requeue(entry)
			return err
		}
		_ = inst.TransitionTo(StateDenied)
		slog.Info("plugin denied by user", "plugin", pluginID)
		l.audit(ctx, store.ActionApprovalDenied, "user", pluginID, store.ResultOK, nil)
		return nil
	}

	if err := l.approvals.RecordApproval(entry.Manifest); err != nil {
		l.requeue(entry)
		return err
	}
	slog.Info("plugin approved by user", "plugin", pluginID, "update", entry.IsUpdate)
	l.audit(ctx, store.ActionApprovalGranted, "user", pluginID, store.ResultOK, map[string]any{
		"version": entry.Manifest.Version,
		"risk":    string(entry.Manifest.Permissions.Risk()),
		"update":  entry.IsUpdate,
	})
	return l.loadSequence(ctx, inst)
}

func (l *Loader) requeue(entry PendingPlugin) {
	l.mu.Lock()
	l.pending = append(l.pending, entry)
	l.mu.Unlock()
}

// Instances returns all tracked instances sorted by plugin id.
func (l *Loader) Instances() []*Instance {
	l.mu.Lock()
	defer l.mu.Unlock()

	list := make([]*Instance, 0, len(l.instances))
	for _, inst := range l.instances {
		list = append(list, inst)
	}
	slices.SortFunc(list, func(a, b *Instance) int {
		return strings.Compare(a.ID(), b.ID())
	})
	return list
}

// Get returns the instance for a plugin id.
func (l *Loader) Get(pluginID string) (*Instance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	inst, ok := l.instances[pluginID]
	if !ok {
		return nil, warderr.Errorf(warderr.CodePluginNotFound, "plugin %q not found", pluginID)
	}
	return inst, nil
}

// Reload stops every running plugin, forgets all instances and pending
// entries, and scans the plugins directory again. Approval state is
// durable, so previously approved plugins come straight back up.
func (l *Loader) Reload(ctx context.Context) error {
	l.mu.Lock()
	ids := make([]string, 0, len(l.instances))
	for id := range l.instances {
		ids = append(ids, id)
	}
	l.instances = make(map[string]*Instance)
	l.pending = nil
	l.mu.Unlock()

	for _, id := range ids {
		l.reg.RemovePlugin(id)
	}
	return l.LoadAll(ctx)
}

// Shutdown stops all running plugin processes and marks their instances
// stopped. Safe to call more than once.
func (l *Loader) Shutdown() {
	l.reg.ShutdownAll()

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, inst := range l.instances {
		if inst.State() == StateRunning {
			_ = inst.TransitionTo(StateStopped)
		}
	}
}
