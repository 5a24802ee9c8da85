// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

// Package plugin provides the public manifest types for Ward plugins.
// A plugin ships a ward.plugin.json descriptor declaring its identity,
// entry point, and requested capability set; everything not declared
// there is denied.
package plugin

// ManifestFilename is the descriptor file name expected in every plugin directory.
const ManifestFilename = "ward.plugin.json"

// Runtime identifies how a plugin's entry point is executed.
type Runtime string

const (
	RuntimeNode   Runtime = "node"
	RuntimePython Runtime = "python"
	RuntimeBinary Runtime = "binary"
)

// FSAccess is the access mode of a declared filesystem grant.
type FSAccess string

const (
	AccessRead      FSAccess = "read"
	AccessWrite     FSAccess = "write"
	AccessReadWrite FSAccess = "read-write"
)

// Manifest describes a plugin's identity, entry point, and requested permissions.
// Unknown top-level fields are ignored for forward compatibility.
type Manifest struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Version       string                 `json:"version"`
	Description   string                 `json:"description,omitempty"`
	Runtime       Runtime                `json:"runtime"`
	Entry         string                 `json:"entry"`
	Permissions   Permissions            `json:"permissions"`
	Configuration map[string]ConfigField `json:"configuration,omitempty"`
}

// Permissions is a plugin's declared capability set. A nil collection means
// the capability class was not declared at all, which is distinct from an
// empty declaration; both the consent hash and the sandbox honor that
// difference. The zero value is maximally restrictive.
type Permissions struct {
	Clipboard   bool             `json:"clipboard"`
	Network     []string         `json:"network"`
	Filesystem  []FSPermission   `json:"filesystem"`
	Environment []string         `json:"environment"`
	Shell       *ShellPermission `json:"shell"`
}

// FSPermission grants access to one filesystem path. A leading "~/" in Path
// is expanded to the user's home directory when the sandbox profile is built.
type FSPermission struct {
	Path   string   `json:"path"`
	Access FSAccess `json:"access"`
}

// ShellPermission grants execution of the named commands, resolved to
// absolute paths at sandbox-build time.
type ShellPermission struct {
	Commands []string `json:"commands"`
}

// ConfigField describes one user-supplied setting the plugin accepts.
// These are presentation hints for a settings surface and have no effect
// on sandboxing. A field of type "secret" is stored in the OS keyring
// rather than in the plain-text config file.
type ConfigField struct {
	Type        string `json:"type"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
	Help        string `json:"help,omitempty"`
}

// DeclaresAny reports whether any capability class is declared at all.
func (p Permissions) DeclaresAny() bool {
	return p.Clipboard || p.Network != nil || p.Filesystem != nil || p.Environment != nil || p.Shell != nil
}
