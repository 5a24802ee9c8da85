// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package sandbox

import (
	"log/slog"

	"github.com/ward-dev/ward/pkg/plugin"
)

// Passthrough starts plugin processes directly. Environment filtering is
// the only boundary on platforms without an OS confinement mechanism.
type Passthrough struct {
	// OS is the platform that lacked a mechanism, for the warning log.
	OS string
}

func (Passthrough) Name() string { return "passthrough" }

func (p Passthrough) Confine(m *plugin.Manifest, pluginDir string, launch Launch) (Launch, error) {
	if err := validatePluginID(m.ID); err != nil {
		return Launch{}, err
	}
	if err := ensureTempDir(m.ID); err != nil {
		return Launch{}, err
	}

	slog.Warn("no OS sandbox on this platform, plugin runs with environment filtering only",
		"plugin", m.ID, "os", p.OS)

	return launch, nil
}
