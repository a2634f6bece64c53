// Package scorer assigns confidence tiers to news groups and detects
// factual conflicts between member sources.
package scorer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jonesrussell/newsroom/internal/database"
	"github.com/jonesrussell/newsroom/internal/domain"
	"github.com/jonesrussell/newsroom/internal/logger"
)

// GroupStore is the slice of group persistence the scorer needs.
type GroupStore interface {
	MemberDomains(ctx context.Context, groupID string) ([]string, error)
	SetTier(ctx context.Context, groupID string, tier domain.ConfidenceTier) error
	ReplaceConflicts(ctx context.Context, groupID string, conflicts []domain.Conflict) error
}

// FactStore loads the extracted fact slots for a group's members.
type FactStore interface {
	FactsForGroup(ctx context.Context, groupID string) ([]database.MemberFact, error)
}

type Scorer struct {
	groups GroupStore
	facts  FactStore
	logger logger.Logger
}

func NewScorer(groups GroupStore, facts FactStore, log logger.Logger) *Scorer {
	return &Scorer{
		groups: groups,
		facts:  facts,
		logger: log,
	}
}

// Rescore recomputes the group's confidence tier from its current member
// domains and rebuilds its conflict list from the stored fact slots. It is
// safe to call repeatedly; the outcome depends only on current membership.
func (s *Scorer) Rescore(ctx context.Context, groupID string) (domain.ConfidenceTier, []domain.Conflict, error) {
	domains, err := s.groups.MemberDomains(ctx, groupID)
	if err != nil {
		return "", nil, fmt.Errorf("load member domains: %w", err)
	}

	tier := domain.TierForDomains(domains)
	if err := s.groups.SetTier(ctx, groupID, tier); err != nil {
		return "", nil, fmt.Errorf("set tier: %w", err)
	}

	facts, err := s.facts.FactsForGroup(ctx, groupID)
	if err != nil {
		return "", nil, fmt.Errorf("load group facts: %w", err)
	}

	conflicts := DetectConflicts(facts)
	if err := s.groups.ReplaceConflicts(ctx, groupID, conflicts); err != nil {
		return "", nil, fmt.Errorf("replace conflicts: %w", err)
	}

	s.logger.Debug("Group rescored",
		logger.String("group_id", groupID),
		logger.String("tier", string(tier)),
		logger.Int("source_count", len(domains)),
		logger.Int("conflict_count", len(conflicts)),
	)

	return tier, conflicts, nil
}

// DetectConflicts compares fact slots of the same type across different
// source domains. Two sources reporting different normalized values for the
// same slot produce one conflict; each unordered pair is reported once.
func DetectConflicts(facts []database.MemberFact) []domain.Conflict {
	byType := make(map[string][]database.MemberFact)
	for _, fact := range facts {
		byType[fact.FactType] = append(byType[fact.FactType], fact)
	}

	seen := make(map[string]struct{})
	var conflicts []domain.Conflict

	for factType, slots := range byType {
		for i := 0; i < len(slots); i++ {
			for j := i + 1; j < len(slots); j++ {
				a, b := slots[i], slots[j]
				if normalizeValue(a.SourceDomain) == normalizeValue(b.SourceDomain) {
					continue
				}
				if normalizeValue(a.Value) == normalizeValue(b.Value) {
					continue
				}

				conflict := domain.Conflict{
					FactType: factType,
					ValueA:   a.Value,
					SourceA:  a.SourceDomain,
					ValueB:   b.Value,
					SourceB:  b.SourceDomain,
				}
				if _, dup := seen[conflict.Key()]; dup {
					continue
				}
				seen[conflict.Key()] = struct{}{}
				conflicts = append(conflicts, conflict)
			}
		}
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].FactType != conflicts[j].FactType {
			return conflicts[i].FactType < conflicts[j].FactType
		}
		return conflicts[i].Key() < conflicts[j].Key()
	})

	return conflicts
}

func normalizeValue(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
