// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package plugin

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash returns a stable digest of the permission set, used by the consent
// store to detect capability changes between installs. Serialization is
// canonical: struct field order is fixed, and nil collections encode as
// null rather than disappearing, so "not declared" and "declared empty"
// hash differently.
func (p Permissions) Hash() string {
	// Marshal of a plain struct with these field types cannot fail.
	data, _ := json.Marshal(p)
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}
