package domain

import (
	"strings"
	"time"
)

// ConfidenceTier is the trust level of a news group, derived from the number
// of distinct source domains among its members.
type ConfidenceTier string

const (
	TierUnverified ConfidenceTier = "unverified"
	TierMedium     ConfidenceTier = "medium"
	TierHigh       ConfidenceTier = "high"
)

const (
	mediumTierMinSources = 2
	highTierMinSources   = 4
)

// TierForSourceCount maps a distinct source-domain count to a tier:
// 1 -> unverified, 2-3 -> medium, 4+ -> high.
func TierForSourceCount(distinctDomains int) ConfidenceTier {
	switch {
	case distinctDomains >= highTierMinSources:
		return TierHigh
	case distinctDomains >= mediumTierMinSources:
		return TierMedium
	default:
		return TierUnverified
	}
}

// TierForDomains computes the tier from member source domains, counting each
// domain once regardless of how many members it contributed.
func TierForDomains(domains []string) ConfidenceTier {
	seen := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		seen[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return TierForSourceCount(len(seen))
}

// Conflict records two member sources asserting materially different values
// for the same fact slot. Conflicts are advisory annotations for the human
// editor; they never block grouping or drafting.
type Conflict struct {
	FactType string `db:"fact_type" json:"fact_type"`
	ValueA   string `db:"value_a"   json:"value_a"`
	SourceA  string `db:"source_a"  json:"source_a"`
	ValueB   string `db:"value_b"   json:"value_b"`
	SourceB  string `db:"source_b"  json:"source_b"`
}

// Key returns an order-insensitive identity for deduplicating conflicts, so
// re-scoring a group after a membership change is idempotent.
func (c Conflict) Key() string {
	a, b := c.ValueA, c.ValueB
	if a > b {
		a, b = b, a
	}
	return c.FactType + "\x00" + a + "\x00" + b
}

// NewsGroup clusters items believed to describe the same real-world event.
type NewsGroup struct {
	ID             string         `db:"id"              json:"id"`
	WorkspaceID    string         `db:"workspace_id"    json:"workspace_id"`
	ConfidenceTier ConfidenceTier `db:"confidence_tier" json:"confidence_tier"`
	OpenedAt       time.Time      `db:"opened_at"       json:"opened_at"`

	// Loaded from the membership and conflict tables, not columns.
	MemberIDs []string   `db:"-" json:"member_ids"`
	Conflicts []Conflict `db:"-" json:"conflicts"`
}
