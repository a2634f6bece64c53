package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/newsroom/internal/domain"
)

func TestTierForSourceCount(t *testing.T) {
	t.Helper()

	tests := []struct {
		name  string
		count int
		want  domain.ConfidenceTier
	}{
		{"single source is unverified", 1, domain.TierUnverified},
		{"zero sources is unverified", 0, domain.TierUnverified},
		{"two sources is medium", 2, domain.TierMedium},
		{"three sources is medium", 3, domain.TierMedium},
		{"four sources is high", 4, domain.TierHigh},
		{"many sources is high", 9, domain.TierHigh},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.TierForSourceCount(tc.count))
		})
	}
}

func TestTierForDomains_CountsDistinctOnly(t *testing.T) {
	t.Helper()

	// Three members from the same outlet still count as one source.
	tier := domain.TierForDomains([]string{"bbc.com", "BBC.com", " bbc.com "})
	assert.Equal(t, domain.TierUnverified, tier)

	tier = domain.TierForDomains([]string{"bbc.com", "reuters.com", "apnews.com", "cnn.com"})
	assert.Equal(t, domain.TierHigh, tier)
}

func TestConflict_Key_OrderInsensitive(t *testing.T) {
	t.Helper()

	a := domain.Conflict{FactType: "date", ValueA: "Tuesday", SourceA: "bbc.com", ValueB: "Wednesday", SourceB: "cnn.com"}
	b := domain.Conflict{FactType: "date", ValueA: "Wednesday", SourceA: "cnn.com", ValueB: "Tuesday", SourceB: "bbc.com"}

	assert.Equal(t, a.Key(), b.Key())
}
