// Package grouper clusters ingested items into event groups by embedding
// similarity.
package grouper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/newsroom/internal/collaborators"
	"github.com/jonesrussell/newsroom/internal/database"
	"github.com/jonesrussell/newsroom/internal/domain"
	"github.com/jonesrussell/newsroom/internal/logger"
)

// GroupStore is the group persistence the grouper needs.
type GroupStore interface {
	Open(ctx context.Context, group *domain.NewsGroup) error
	AddMember(ctx context.Context, groupID, newsID string, similarity float64, embedding []float64) error
	OpenVectors(ctx context.Context, workspaceID string, since time.Time) ([]database.GroupVectors, error)
}

// ItemStore marks items grouped once they are placed.
type ItemStore interface {
	SetGrouped(ctx context.Context, newsID, groupID string) error
}

type Grouper struct {
	groups    GroupStore
	items     ItemStore
	threshold float64
	window    time.Duration
	logger    logger.Logger
}

func NewGrouper(groups GroupStore, items ItemStore, threshold float64, window time.Duration, log logger.Logger) *Grouper {
	return &Grouper{
		groups:    groups,
		items:     items,
		threshold: threshold,
		window:    window,
		logger:    log,
	}
}

// Placement describes where an item landed.
type Placement struct {
	GroupID    string
	Created    bool
	Similarity float64
}

// Assign places the item in the best matching open group, or opens a new
// one. Candidate groups are those opened within the window; the item joins
// the group whose member centroid is most similar, provided the similarity
// clears the threshold. Ties go to the earliest-opened group. A missing
// embedding always yields a singleton group.
func (g *Grouper) Assign(ctx context.Context, item *domain.NewsItem, embedding []float64, now time.Time) (Placement, error) {
	if len(embedding) == 0 {
		placement, err := g.open(ctx, item, nil, now)
		if err != nil {
			return Placement{}, err
		}
		g.logger.Warn("Item placed in singleton group without embedding",
			logger.String("news_id", item.ID),
			logger.String("group_id", placement.GroupID),
		)
		return placement, nil
	}

	candidates, err := g.groups.OpenVectors(ctx, item.WorkspaceID, now.Add(-g.window))
	if err != nil {
		return Placement{}, fmt.Errorf("load open groups: %w", err)
	}

	bestID := ""
	bestSim := 0.0
	for _, candidate := range candidates {
		sim := collaborators.CosineSimilarity(embedding, centroid(candidate.Embeddings))
		// Candidates arrive ordered by opened_at, so a strict comparison
		// keeps the earliest group on a tie.
		if sim >= g.threshold && sim > bestSim {
			bestID = candidate.GroupID
			bestSim = sim
		}
	}

	if bestID == "" {
		return g.open(ctx, item, embedding, now)
	}

	if err := g.groups.AddMember(ctx, bestID, item.ID, bestSim, embedding); err != nil {
		return Placement{}, fmt.Errorf("add member: %w", err)
	}
	if err := g.items.SetGrouped(ctx, item.ID, bestID); err != nil {
		return Placement{}, fmt.Errorf("mark grouped: %w", err)
	}

	g.logger.Debug("Item joined existing group",
		logger.String("news_id", item.ID),
		logger.String("group_id", bestID),
		logger.Float64("similarity", bestSim),
	)

	return Placement{GroupID: bestID, Similarity: bestSim}, nil
}

func (g *Grouper) open(ctx context.Context, item *domain.NewsItem, embedding []float64, now time.Time) (Placement, error) {
	group := &domain.NewsGroup{
		ID:             uuid.New().String(),
		WorkspaceID:    item.WorkspaceID,
		ConfidenceTier: domain.TierUnverified,
		OpenedAt:       now,
	}

	if err := g.groups.Open(ctx, group); err != nil {
		return Placement{}, fmt.Errorf("open group: %w", err)
	}
	if err := g.groups.AddMember(ctx, group.ID, item.ID, 1.0, embedding); err != nil {
		return Placement{}, fmt.Errorf("add founding member: %w", err)
	}
	if err := g.items.SetGrouped(ctx, item.ID, group.ID); err != nil {
		return Placement{}, fmt.Errorf("mark grouped: %w", err)
	}

	g.logger.Debug("Opened new group",
		logger.String("news_id", item.ID),
		logger.String("group_id", group.ID),
	)

	return Placement{GroupID: group.ID, Created: true, Similarity: 1.0}, nil
}

// centroid averages the member embeddings elementwise. Members persisted
// without an embedding are skipped.
func centroid(embeddings [][]float64) []float64 {
	var sum []float64
	count := 0

	for _, emb := range embeddings {
		if len(emb) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(emb))
		}
		if len(emb) != len(sum) {
			continue
		}
		for i, v := range emb {
			sum[i] += v
		}
		count++
	}

	if count == 0 {
		return nil
	}
	for i := range sum {
		sum[i] /= float64(count)
	}
	return sum
}
