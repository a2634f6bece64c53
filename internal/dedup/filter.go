package dedup

import (
	"strings"
	"time"
	"unicode"

	"github.com/jonesrussell/newsroom/internal/domain"
)

// Rejection reasons reported back to callers and counted by metrics.
const (
	ReasonDuplicateURL  = "duplicate_url"
	ReasonNearDuplicate = "near_duplicate"
)

// Decision is the outcome of running one candidate through the filter.
type Decision struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	// MatchedID is the existing item that caused a near-duplicate rejection.
	MatchedID string `json:"matched_id,omitempty"`
}

// Filter rejects exact URL repeats and near-duplicate headlines. It holds
// no I/O of its own; callers supply the recent items to compare against.
type Filter struct {
	threshold float64
	lookback  time.Duration
}

func NewFilter(threshold float64, lookback time.Duration) *Filter {
	return &Filter{
		threshold: threshold,
		lookback:  lookback,
	}
}

// Check decides whether the candidate should enter the pipeline. seenURL is
// the result of the URL lookup (cache or database); recent holds items
// fetched within the lookback window, already scoped to the workspace.
func (f *Filter) Check(candidate *domain.NewsItem, seenURL bool, recent []*domain.NewsItem, now time.Time) Decision {
	if seenURL {
		return Decision{Reason: ReasonDuplicateURL}
	}

	cutoff := now.Add(-f.lookback)
	candidateTokens := tokenize(candidate.Headline)

	for _, item := range recent {
		if item.FetchedAt.Before(cutoff) {
			continue
		}
		if item.SourceURL == candidate.SourceURL {
			return Decision{Reason: ReasonDuplicateURL, MatchedID: item.ID}
		}
		if overlap(candidateTokens, tokenize(item.Headline)) >= f.threshold {
			return Decision{Reason: ReasonNearDuplicate, MatchedID: item.ID}
		}
	}

	return Decision{Accepted: true}
}

// tokenize lowercases the headline, strips punctuation, and returns the set
// of remaining words.
func tokenize(headline string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(headline), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		tokens[field] = struct{}{}
	}

	return tokens
}

// overlap is the Jaccard similarity of two token sets.
func overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	shared := 0
	for token := range a {
		if _, ok := b[token]; ok {
			shared++
		}
	}

	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}
