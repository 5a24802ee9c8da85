// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package plugin

// RiskLevel is the coarse classification of a permission set shown on
// consent surfaces.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Additive weights per capability class. Write access weighs double read
// access; shell execution dominates everything else on its own.
const (
	weightClipboard = 1
	weightNetwork   = 2
	weightFSRead    = 2
	weightFSWrite   = 4
	weightEnvVar    = 2
	weightShell     = 5
)

// RiskScore sums the weights of every declared capability. The result
// depends only on the set of grants, never on declaration order.
func (p Permissions) RiskScore() int {
	score := 0

	if p.Clipboard {
		score += weightClipboard
	}

	if len(p.Network) > 0 {
		score += weightNetwork
	}

	for _, fs := range p.Filesystem {
		if fs.Access == AccessRead {
			score += weightFSRead
		} else {
			score += weightFSWrite
		}
	}

	score += len(p.Environment) * weightEnvVar

	if p.Shell != nil {
		score += weightShell
	}

	return score
}

// Risk maps the additive score onto the three user-facing levels.
func (p Permissions) Risk() RiskLevel {
	switch score := p.RiskScore(); {
	case score <= 1:
		return RiskLow
	case score <= 4:
		return RiskMedium
	default:
		return RiskHigh
	}
}
