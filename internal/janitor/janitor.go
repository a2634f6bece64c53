// Package janitor sweeps expired, ungrouped items out of the database.
package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/newsroom/internal/logger"
)

// ItemStore deletes items past their TTL. The store itself guards against
// removing anything referenced by a draft.
type ItemStore interface {
	DeleteStale(ctx context.Context, workspaceID string, cutoff time.Time) (int64, error)
}

type Janitor struct {
	items  ItemStore
	ttl    time.Duration
	logger logger.Logger
}

func NewJanitor(items ItemStore, ttl time.Duration, log logger.Logger) *Janitor {
	return &Janitor{
		items:  items,
		ttl:    ttl,
		logger: log,
	}
}

// Sweep removes items fetched before now minus the TTL. Only items still in
// the entry state are eligible; grouped and drafted items age out through
// the draft lifecycle instead.
func (j *Janitor) Sweep(ctx context.Context, workspaceID string, now time.Time) (int64, error) {
	cutoff := now.Add(-j.ttl)

	removed, err := j.items.DeleteStale(ctx, workspaceID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale items: %w", err)
	}

	if removed > 0 {
		j.logger.Info("Swept stale items",
			logger.String("workspace_id", workspaceID),
			logger.Int64("removed", removed),
			logger.Time("cutoff", cutoff),
		)
	}

	return removed, nil
}
