package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ItemsIngested.WithLabelValues("ws-1", "accepted").Add(3)
	m.ItemsIngested.WithLabelValues("ws-1", "duplicate_url").Inc()
	m.GroupsOpened.WithLabelValues("ws-1").Inc()
	m.ItemsSwept.WithLabelValues("ws-1").Add(5)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ItemsIngested.WithLabelValues("ws-1", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemsIngested.WithLabelValues("ws-1", "duplicate_url")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GroupsOpened.WithLabelValues("ws-1")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.ItemsSwept.WithLabelValues("ws-1")))
}

func TestMetrics_RecordDraftOp(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordDraftOp("approve", nil)
	m.RecordDraftOp("approve", nil)
	m.RecordDraftOp("publish", errors.New("sink down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DraftOperations.WithLabelValues("approve", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DraftOperations.WithLabelValues("publish", "error")))
}

func TestMetrics_ObserveCollaborator(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCollaborator("embedding", time.Now().Add(-10*time.Millisecond))

	count, err := testutil.GatherAndCount(reg, "newsroom_collaborator_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	// A second registration on the same registry would panic via promauto.
	assert.Panics(t, func() { New(reg) })
}
