// Package ingest runs the per-workspace ingestion batch: dedup, persist,
// group, score, sweep.
package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonesrussell/newsroom/internal/collaborators"
	"github.com/jonesrussell/newsroom/internal/dedup"
	"github.com/jonesrussell/newsroom/internal/domain"
	"github.com/jonesrussell/newsroom/internal/grouper"
	"github.com/jonesrussell/newsroom/internal/logger"
	"github.com/jonesrussell/newsroom/internal/workspace"
)

// IncomingItem is one fetched headline before it enters the pipeline.
type IncomingItem struct {
	SourceURL    string    `json:"source_url"`
	SourceDomain string    `json:"source_domain"`
	Headline     string    `json:"headline"`
	Summary      string    `json:"summary"`
	ImageURL     string    `json:"image_url,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// AcceptedItem reports where an accepted item landed.
type AcceptedItem struct {
	NewsID     string  `json:"news_id"`
	GroupID    string  `json:"group_id"`
	NewGroup   bool    `json:"new_group"`
	Similarity float64 `json:"similarity"`
}

// RejectedItem reports why an item was filtered out.
type RejectedItem struct {
	SourceURL string `json:"source_url"`
	Reason    string `json:"reason"`
	MatchedID string `json:"matched_id,omitempty"`
}

// BatchResult summarizes one ingestion batch.
type BatchResult struct {
	Accepted []AcceptedItem `json:"accepted"`
	Rejected []RejectedItem `json:"rejected"`
	Swept    int64          `json:"swept"`
}

// ItemStore is the item persistence the batch needs.
type ItemStore interface {
	Insert(ctx context.Context, item *domain.NewsItem) error
	ExistsBySourceURL(ctx context.Context, workspaceID, sourceURL string) (bool, error)
	RecentItems(ctx context.Context, workspaceID string, since time.Time) ([]domain.NewsItem, error)
	SaveFacts(ctx context.Context, newsID string, facts []collaborators.FactSlot) error
}

// SeenCache is the fast-path URL existence check.
type SeenCache interface {
	HasSeen(ctx context.Context, workspaceID, sourceURL string) bool
	MarkSeen(ctx context.Context, workspaceID, sourceURL string) error
}

// Assigner places an accepted item into a group.
type Assigner interface {
	Assign(ctx context.Context, item *domain.NewsItem, embedding []float64, now time.Time) (grouper.Placement, error)
}

// Rescorer recomputes a group's tier and conflicts after membership changes.
type Rescorer interface {
	Rescore(ctx context.Context, groupID string) (domain.ConfidenceTier, []domain.Conflict, error)
}

// Sweeper removes expired items at the end of a batch.
type Sweeper interface {
	Sweep(ctx context.Context, workspaceID string, now time.Time) (int64, error)
}

type Service struct {
	items     ItemStore
	seen      SeenCache
	filter    *dedup.Filter
	assigner  Assigner
	rescorer  Rescorer
	sweeper   Sweeper
	embedder  collaborators.EmbeddingOracle
	extractor collaborators.FactExtractor
	locks     *workspace.Locks
	gates     *workspace.Locks
	lookback  time.Duration
	tracer    trace.Tracer
	logger    logger.Logger
}

func NewService(
	items ItemStore,
	seen SeenCache,
	filter *dedup.Filter,
	assigner Assigner,
	rescorer Rescorer,
	sweeper Sweeper,
	embedder collaborators.EmbeddingOracle,
	extractor collaborators.FactExtractor,
	locks *workspace.Locks,
	lookback time.Duration,
	log logger.Logger,
) *Service {
	return &Service{
		items:     items,
		seen:      seen,
		filter:    filter,
		assigner:  assigner,
		rescorer:  rescorer,
		sweeper:   sweeper,
		embedder:  embedder,
		extractor: extractor,
		locks:     locks,
		gates:     workspace.NewLocks(),
		lookback:  lookback,
		tracer:    otel.Tracer("newsroom/ingest"),
		logger:    log,
	}
}

// candidate carries an accepted item between the batch phases.
type candidate struct {
	item      *domain.NewsItem
	embedding []float64
	facts     []collaborators.FactSlot
}

// Ingest runs one batch for a workspace. Whole batches for the same
// workspace serialize on a gate held for the full call, so a second batch
// cannot pass dedup before this one has persisted. The state lock is still
// dropped while the embedding and fact extraction calls run, so slow
// collaborators never stall other components' writes.
func (s *Service) Ingest(ctx context.Context, workspaceID string, incoming []IncomingItem) (*BatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "ingest.batch", trace.WithAttributes(
		attribute.String("workspace_id", workspaceID),
		attribute.Int("batch_size", len(incoming)),
	))
	defer span.End()

	gate := s.gates.Get(workspaceID)
	gate.Lock()
	defer gate.Unlock()

	now := time.Now().UTC()
	sort.SliceStable(incoming, func(i, j int) bool {
		return incoming[i].FetchedAt.Before(incoming[j].FetchedAt)
	})

	lock := s.locks.Get(workspaceID)

	// Phase 1: dedup against the workspace and within the batch itself.
	lock.Lock()
	accepted, rejected, err := s.filterBatch(ctx, workspaceID, incoming, now)
	lock.Unlock()
	if err != nil {
		return nil, err
	}

	// Phase 2: collaborator calls with no lock held. Failures here are
	// soft; an item without an embedding still enters as a singleton.
	if err := s.enrich(ctx, accepted); err != nil {
		return nil, err
	}

	// Phase 3: persist, group, score, sweep.
	lock.Lock()
	defer lock.Unlock()

	result := &BatchResult{Rejected: rejected}
	for _, cand := range accepted {
		placed, err := s.place(ctx, workspaceID, cand, now)
		if err != nil {
			return nil, err
		}
		result.Accepted = append(result.Accepted, placed)
	}

	swept, err := s.sweeper.Sweep(ctx, workspaceID, now)
	if err != nil {
		return nil, fmt.Errorf("janitor sweep: %w", err)
	}
	result.Swept = swept

	s.logger.Info("Ingestion batch complete",
		logger.String("workspace_id", workspaceID),
		logger.Int("accepted", len(result.Accepted)),
		logger.Int("rejected", len(result.Rejected)),
		logger.Int64("swept", swept),
	)

	return result, nil
}

func (s *Service) filterBatch(ctx context.Context, workspaceID string, incoming []IncomingItem, now time.Time) ([]*candidate, []RejectedItem, error) {
	recent, err := s.items.RecentItems(ctx, workspaceID, now.Add(-s.lookback))
	if err != nil {
		return nil, nil, fmt.Errorf("load recent items: %w", err)
	}

	window := make([]*domain.NewsItem, 0, len(recent)+len(incoming))
	for i := range recent {
		window = append(window, &recent[i])
	}

	var accepted []*candidate
	var rejected []RejectedItem

	for _, in := range incoming {
		item := &domain.NewsItem{
			ID:           uuid.New().String(),
			WorkspaceID:  workspaceID,
			SourceURL:    in.SourceURL,
			SourceDomain: in.SourceDomain,
			Headline:     in.Headline,
			Summary:      in.Summary,
			FetchedAt:    in.FetchedAt,
			Status:       domain.ItemStatusNew,
		}
		if in.ImageURL != "" {
			imageURL := in.ImageURL
			item.ImageURL = &imageURL
		}
		if item.FetchedAt.IsZero() {
			item.FetchedAt = now
		}

		seen := s.seen.HasSeen(ctx, workspaceID, in.SourceURL)
		if !seen {
			seen, err = s.items.ExistsBySourceURL(ctx, workspaceID, in.SourceURL)
			if err != nil {
				return nil, nil, fmt.Errorf("check source url: %w", err)
			}
		}

		decision := s.filter.Check(item, seen, window, now)
		if !decision.Accepted {
			rejected = append(rejected, RejectedItem{
				SourceURL: in.SourceURL,
				Reason:    decision.Reason,
				MatchedID: decision.MatchedID,
			})
			continue
		}

		// Later batch entries dedup against earlier ones too.
		window = append(window, item)
		accepted = append(accepted, &candidate{item: item})
	}

	return accepted, rejected, nil
}

func (s *Service) enrich(ctx context.Context, accepted []*candidate) error {
	ctx, span := s.tracer.Start(ctx, "ingest.enrich", trace.WithAttributes(
		attribute.Int("accepted", len(accepted)),
	))
	defer span.End()

	for _, cand := range accepted {
		if err := ctx.Err(); err != nil {
			return err
		}

		text := cand.item.Headline + "\n" + cand.item.Summary
		embedding, err := s.embedder.Embed(ctx, text)
		if err != nil {
			s.logger.Warn("Embedding failed, item will form a singleton group",
				logger.String("news_id", cand.item.ID),
				logger.Error(err),
			)
		} else {
			cand.embedding = embedding
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		facts, err := s.extractor.Extract(ctx, text)
		if err != nil {
			s.logger.Warn("Fact extraction failed, item enters without facts",
				logger.String("news_id", cand.item.ID),
				logger.Error(err),
			)
		} else {
			cand.facts = facts
		}
	}

	return nil
}

func (s *Service) place(ctx context.Context, workspaceID string, cand *candidate, now time.Time) (AcceptedItem, error) {
	if err := s.items.Insert(ctx, cand.item); err != nil {
		return AcceptedItem{}, fmt.Errorf("insert item: %w", err)
	}

	if err := s.seen.MarkSeen(ctx, workspaceID, cand.item.SourceURL); err != nil {
		// Cache misses just mean an extra database check next batch.
		s.logger.Warn("Failed to cache seen URL",
			logger.String("source_url", cand.item.SourceURL),
			logger.Error(err),
		)
	}

	if len(cand.facts) > 0 {
		if err := s.items.SaveFacts(ctx, cand.item.ID, cand.facts); err != nil {
			return AcceptedItem{}, fmt.Errorf("save facts: %w", err)
		}
	}

	placement, err := s.assigner.Assign(ctx, cand.item, cand.embedding, now)
	if err != nil {
		return AcceptedItem{}, fmt.Errorf("assign group: %w", err)
	}

	if _, _, err := s.rescorer.Rescore(ctx, placement.GroupID); err != nil {
		return AcceptedItem{}, fmt.Errorf("rescore group: %w", err)
	}

	return AcceptedItem{
		NewsID:     cand.item.ID,
		GroupID:    placement.GroupID,
		NewGroup:   placement.Created,
		Similarity: placement.Similarity,
	}, nil
}
