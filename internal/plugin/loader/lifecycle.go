// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package loader

import (
	"sync"

	warderr "github.com/ward-dev/ward/pkg/errors"
	"github.com/ward-dev/ward/pkg/plugin"
)

// State represents the lifecycle state of a plugin instance.
type State int

const (
	StateDiscovered State = iota
	StateAwaitingApproval
	StateDenied
	StateLoading
	StateRunning
	StateFailed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateAwaitingApproval:
		return "awaiting-approval"
	case StateDenied:
		return "denied"
	case StateLoading:
		return "loading"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// validTransitions defines allowed state transitions as an adjacency list.
// Denied, failed, and stopped are terminal for a session; a reload builds
// fresh instances instead of reviving old ones.
var validTransitions = map[State]map[State]bool{
	StateDiscovered: {
		StateAwaitingApproval: true,
		StateDenied:           true,
		StateLoading:          true,
	},
	StateAwaitingApproval: {
		StateLoading: true,
		StateDenied:  true,
	},
	StateDenied: {},
	StateLoading: {
		StateRunning: true,
		StateFailed:  true,
	},
	StateRunning: {
		StateStopped: true,
		StateFailed:  true,
	},
	StateFailed:  {},
	StateStopped: {},
}

// ValidTransition returns true if transitioning from one state to another is allowed.
func ValidTransition(from, to State) bool {
	allowed, exists := validTransitions[from][to]
	return exists && allowed
}

// Instance is one discovered plugin and its lifecycle state. The manifest
// and directory are immutable for the life of the instance.
type Instance struct {
	mu       sync.RWMutex
	manifest *plugin.Manifest
	dir      string
	state    State
	err      error
}

// NewInstance creates an instance in StateDiscovered.
func NewInstance(m *plugin.Manifest, dir string) *Instance {
	return &Instance{
		manifest: m,
		dir:      dir,
		state:    StateDiscovered,
	}
}

// ID returns the plugin id from the manifest.
func (i *Instance) ID() string {
	return i.manifest.ID
}

// Manifest returns the parsed manifest this instance was built from.
func (i *Instance) Manifest() *plugin.Manifest {
	return i.manifest
}

// Dir returns the plugin's installation directory.
func (i *Instance) Dir() string {
	return i.dir
}

// State returns the current lifecycle state.
func (i *Instance) State() State {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// Err returns the error that moved the instance into StateFailed, if any.
func (i *Instance) Err() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.err
}

// TransitionTo attempts to transition to a new state. Returns an error if
// the transition is not valid.
func (i *Instance) TransitionTo(newState State) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !ValidTransition(i.state, newState) {
		return warderr.Errorf(warderr.CodeLifecycleTransitionInvalid,
			"invalid state transition: %s -> %s", i.state, newState)
	}

	i.state = newState
	return nil
}

// Fail forces the instance into StateFailed and records the cause. Unlike
// TransitionTo it never rejects, so every load-path error has somewhere
// to land.
func (i *Instance) Fail(err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = StateFailed
	i.err = err
}
