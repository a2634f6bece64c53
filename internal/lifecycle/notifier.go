package lifecycle

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/newsroom/internal/domain"
	"github.com/jonesrussell/newsroom/internal/logger"
)

// Notifier announces lifecycle events to interested consumers.
type Notifier interface {
	DraftReady(ctx context.Context, draft *domain.Draft)
}

// RedisNotifier publishes "draft ready" events on a Redis channel when a
// draft reaches APPROVED. Delivery is best effort: a failed publish is
// logged and never fails the approval.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  logger.Logger
}

func NewRedisNotifier(client *redis.Client, channel string, log logger.Logger) *RedisNotifier {
	return &RedisNotifier{
		client:  client,
		channel: channel,
		logger:  log,
	}
}

type draftReadyEvent struct {
	DraftID     string `json:"draft_id"`
	WorkspaceID string `json:"workspace_id"`
	Title       string `json:"title"`
	Language    string `json:"language"`
}

func (n *RedisNotifier) DraftReady(ctx context.Context, draft *domain.Draft) {
	payload, err := json.Marshal(draftReadyEvent{
		DraftID:     draft.ID,
		WorkspaceID: draft.WorkspaceID,
		Title:       draft.Title,
		Language:    draft.Language,
	})
	if err != nil {
		n.logger.Error("Failed to encode draft ready event",
			logger.String("draft_id", draft.ID),
			logger.Error(err),
		)
		return
	}

	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.logger.Error("Failed to publish draft ready event",
			logger.String("draft_id", draft.ID),
			logger.String("channel", n.channel),
			logger.Error(err),
		)
		return
	}

	n.logger.Debug("Draft ready event published",
		logger.String("draft_id", draft.ID),
		logger.String("channel", n.channel),
	)
}

// NopNotifier discards events; used in tests and when Redis is absent.
type NopNotifier struct{}

func (NopNotifier) DraftReady(context.Context, *domain.Draft) {}
