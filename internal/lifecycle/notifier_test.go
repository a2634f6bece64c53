package lifecycle

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/newsroom/internal/domain"
	"github.com/jonesrussell/newsroom/internal/logger"
)

func TestRedisNotifier_DraftReady(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	sub := client.Subscribe(ctx, "drafts:ready")
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	notifier := NewRedisNotifier(client, "drafts:ready", logger.NewNopLogger())
	notifier.DraftReady(ctx, &domain.Draft{
		ID:          "draft-1",
		WorkspaceID: "ws-1",
		Title:       "A reworked headline",
		Language:    "eng_Latn",
	})

	select {
	case msg := <-sub.Channel():
		var event map[string]string
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, "draft-1", event["draft_id"])
		assert.Equal(t, "ws-1", event["workspace_id"])
	case <-time.After(time.Second):
		t.Fatal("no draft ready event received")
	}
}

func TestRedisNotifier_FailureIsSilent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	notifier := NewRedisNotifier(client, "drafts:ready", logger.NewNopLogger())
	// Must not panic or error; approval continues regardless.
	notifier.DraftReady(context.Background(), &domain.Draft{ID: "draft-1"})
}
