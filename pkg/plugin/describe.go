// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package plugin

import (
	"fmt"
	"strings"
)

// Describe renders the permission set as one human-readable line per
// grant, in a fixed order, for consent prompts and inspection surfaces.
// An empty set yields a single "no permissions requested" line.
func (p Permissions) Describe() []string {
	var lines []string

	if p.Clipboard {
		lines = append(lines, "Read and write the system clipboard")
	}
	if len(p.Network) > 0 {
		lines = append(lines, fmt.Sprintf("Network access to: %s", strings.Join(p.Network, ", ")))
	}
	for _, fs := range p.Filesystem {
		switch fs.Access {
		case AccessRead:
			lines = append(lines, fmt.Sprintf("Read files under %s", fs.Path))
		case AccessWrite:
			lines = append(lines, fmt.Sprintf("Write files under %s", fs.Path))
		default:
			lines = append(lines, fmt.Sprintf("Read and write files under %s", fs.Path))
		}
	}
	for _, v := range p.Environment {
		lines = append(lines, fmt.Sprintf("Read environment variable %s", v))
	}
	if p.Shell != nil {
		if len(p.Shell.Commands) == 0 {
			lines = append(lines, "Execute shell commands")
		} else {
			lines = append(lines, fmt.Sprintf("Execute commands: %s", strings.Join(p.Shell.Commands, ", ")))
		}
	}

	if len(lines) == 0 {
		return []string{"No permissions requested"}
	}
	return lines
}
