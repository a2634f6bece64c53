package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
database:
  host: localhost
  dbname: newsroom
redis:
  url: localhost:6379
collaborators:
  generator_url: http://localhost:9001
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Helper()

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.InDelta(t, 0.85, cfg.Pipeline.DedupThreshold, 0.001)
	assert.Equal(t, 24*time.Hour, cfg.Pipeline.DedupLookback)
	assert.InDelta(t, 0.70, cfg.Pipeline.GroupingThreshold, 0.001)
	assert.Equal(t, 72*time.Hour, cfg.Pipeline.GroupWindow)
	assert.Equal(t, 48*time.Hour, cfg.Pipeline.ItemTTL)
	assert.Equal(t, 15*time.Minute, cfg.Pipeline.SweepInterval)
	assert.Equal(t, 300, cfg.Drafts.MinWordCount)
	assert.Equal(t, "drafts:ready", cfg.Drafts.NotifyChannel)
	assert.NotEmpty(t, cfg.Drafts.StripHeadings)
	assert.Equal(t, ":8090", cfg.Server.Address)
	assert.Equal(t, "5432", cfg.Database.Port)
}

func TestLoad_ExplicitThresholds(t *testing.T) {
	t.Helper()

	cfg, err := Load(writeConfig(t, minimalConfig+`
pipeline:
  dedup_threshold: 0.9
  grouping_threshold: 0.65
  item_ttl: 24h
drafts:
  min_word_count: 150
`))
	require.NoError(t, err)

	assert.InDelta(t, 0.9, cfg.Pipeline.DedupThreshold, 0.001)
	assert.InDelta(t, 0.65, cfg.Pipeline.GroupingThreshold, 0.001)
	assert.Equal(t, 24*time.Hour, cfg.Pipeline.ItemTTL)
	assert.Equal(t, 150, cfg.Drafts.MinWordCount)
}

func TestLoad_ValidationErrors(t *testing.T) {
	t.Helper()

	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing database host",
			content: "redis:\n  url: localhost:6379\ncollaborators:\n  generator_url: http://x\n",
		},
		{
			name:    "missing redis url",
			content: "database:\n  host: localhost\n  dbname: newsroom\ncollaborators:\n  generator_url: http://x\n",
		},
		{
			name:    "missing generator url",
			content: "database:\n  host: localhost\n  dbname: newsroom\nredis:\n  url: localhost:6379\n",
		},
		{
			name:    "dedup threshold out of range",
			content: minimalConfig + "pipeline:\n  dedup_threshold: 1.5\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Helper()

	t.Setenv("APP_DEBUG", "yes")
	t.Setenv("NEWSROOM_PORT", "9999")
	t.Setenv("REDIS_URL", "redis-prod:6379")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, "redis-prod:6379", cfg.Redis.URL)
}
