// Package config loads and validates the newsroom service configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultReadTimeoutSeconds  = 10
	defaultWriteTimeoutSeconds = 30

	defaultDedupThreshold    = 0.85
	defaultDedupLookback     = 24 * time.Hour
	defaultGroupingThreshold = 0.70
	defaultGroupWindow       = 72 * time.Hour
	defaultItemTTL           = 48 * time.Hour
	defaultSeenURLTTL        = 7 * 24 * time.Hour
	defaultSweepInterval     = 15 * time.Minute
	defaultMinWordCount      = 300
	defaultCollaboratorRate  = 5.0
)

type Config struct {
	Debug         bool                `yaml:"debug"` // controls log level and format
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Drafts        DraftConfig         `yaml:"drafts"`
	Collaborators CollaboratorsConfig `yaml:"collaborators"`
}

type ServerConfig struct {
	Address      string        `yaml:"address"`       // e.g., ":8090"
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 30s
	CORSOrigins  []string      `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PipelineConfig holds the ingestion tunables. Every threshold the pipeline
// uses is explicit here; none are hard-coded elsewhere.
type PipelineConfig struct {
	// DedupThreshold is the headline token-overlap above which an item is
	// rejected as a literal re-fetch. Tuned high so cross-source paraphrases
	// still pass through to the grouper.
	DedupThreshold float64 `yaml:"dedup_threshold"`

	// DedupLookback bounds how far back the near-duplicate check compares
	// headlines.
	DedupLookback time.Duration `yaml:"dedup_lookback"`

	// GroupingThreshold is the minimum cosine similarity for an item to join
	// an open group.
	GroupingThreshold float64 `yaml:"grouping_threshold"`

	// GroupWindow is how long a group stays open for new membership.
	GroupWindow time.Duration `yaml:"group_window"`

	// ItemTTL is the retention for never-promoted items; the janitor deletes
	// items with status "new" older than this.
	ItemTTL time.Duration `yaml:"item_ttl"`

	// SeenURLTTL is the Redis seen-URL cache expiry.
	SeenURLTTL time.Duration `yaml:"seen_url_ttl"`

	// SweepInterval is how often the background sweep worker runs; sweeps
	// also happen opportunistically at the end of each ingest batch.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// DraftConfig holds the draft lifecycle tunables.
type DraftConfig struct {
	// MinWordCount is the minimum word count required to approve a draft.
	MinWordCount int `yaml:"min_word_count"`

	// StripHeadings lists section headings after which generated text is
	// trimmed (model boilerplate like "Sources:" trailers). Policy data,
	// not logic.
	StripHeadings []string `yaml:"strip_headings"`

	// Languages optionally restricts the translation allow-list to a subset
	// of the translator's supported codes. Empty means the full table.
	Languages []string `yaml:"languages"`

	// NotifyChannel is the Redis channel for "draft ready" notifications
	// fired on approve.
	NotifyChannel string `yaml:"notify_channel"`
}

// CollaboratorsConfig holds endpoints for the external model and publish
// services.
type CollaboratorsConfig struct {
	EmbeddingURL     string  `yaml:"embedding_url"`
	GeneratorURL     string  `yaml:"generator_url"`
	TranslatorURL    string  `yaml:"translator_url"`
	FactExtractorURL string  `yaml:"fact_extractor_url"`
	ImageStoreDir    string  `yaml:"image_store_dir"`
	PublishURL       string  `yaml:"publish_url"`
	PublishToken     string  `yaml:"publish_token"`
	RatePerSecond    float64 `yaml:"rate_per_second"` // model-call rate limit
}

// Validate checks if the server configuration is valid and sets defaults.
func (c *ServerConfig) Validate() error {
	if c.Address == "" {
		c.Address = ":8090"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeoutSeconds * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeoutSeconds * time.Second
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"http://localhost:3000"}
	}
	return nil
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Pipeline.DedupThreshold <= 0 || c.Pipeline.DedupThreshold > 1 {
		return fmt.Errorf("pipeline.dedup_threshold must be in (0, 1], got %v", c.Pipeline.DedupThreshold)
	}
	if c.Pipeline.GroupingThreshold <= 0 || c.Pipeline.GroupingThreshold > 1 {
		return fmt.Errorf("pipeline.grouping_threshold must be in (0, 1], got %v", c.Pipeline.GroupingThreshold)
	}
	if c.Pipeline.ItemTTL <= 0 {
		return fmt.Errorf("pipeline.item_ttl must be positive, got %v", c.Pipeline.ItemTTL)
	}
	if c.Drafts.MinWordCount <= 0 {
		return fmt.Errorf("drafts.min_word_count must be positive, got %d", c.Drafts.MinWordCount)
	}
	if c.Collaborators.GeneratorURL == "" {
		return errors.New("collaborators.generator_url is required")
	}
	return nil
}

// setDefaults sets default values for configuration fields
func setDefaults(cfg *Config) {
	if cfg.Database.Port == "" {
		cfg.Database.Port = "5432"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Pipeline.DedupThreshold == 0 {
		cfg.Pipeline.DedupThreshold = defaultDedupThreshold
	}
	if cfg.Pipeline.DedupLookback == 0 {
		cfg.Pipeline.DedupLookback = defaultDedupLookback
	}
	if cfg.Pipeline.GroupingThreshold == 0 {
		cfg.Pipeline.GroupingThreshold = defaultGroupingThreshold
	}
	if cfg.Pipeline.GroupWindow == 0 {
		cfg.Pipeline.GroupWindow = defaultGroupWindow
	}
	if cfg.Pipeline.ItemTTL == 0 {
		cfg.Pipeline.ItemTTL = defaultItemTTL
	}
	if cfg.Pipeline.SeenURLTTL == 0 {
		cfg.Pipeline.SeenURLTTL = defaultSeenURLTTL
	}
	if cfg.Pipeline.SweepInterval == 0 {
		cfg.Pipeline.SweepInterval = defaultSweepInterval
	}
	if cfg.Drafts.MinWordCount == 0 {
		cfg.Drafts.MinWordCount = defaultMinWordCount
	}
	if len(cfg.Drafts.StripHeadings) == 0 {
		cfg.Drafts.StripHeadings = []string{"Sources:", "References:", "Disclaimer:", "Note to editor:"}
	}
	if cfg.Drafts.NotifyChannel == "" {
		cfg.Drafts.NotifyChannel = "drafts:ready"
	}
	if cfg.Collaborators.RatePerSecond == 0 {
		cfg.Collaborators.RatePerSecond = defaultCollaboratorRate
	}
}

// overrideWithEnvVars overrides configuration with environment variables
func overrideWithEnvVars(cfg *Config) {
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		cfg.Database.Password = dbPassword
	}
	if publishToken := os.Getenv("PUBLISH_TOKEN"); publishToken != "" {
		cfg.Collaborators.PublishToken = publishToken
	}
	if appDebug := os.Getenv("APP_DEBUG"); appDebug != "" {
		cfg.Debug = parseBool(appDebug)
	}
	if port := os.Getenv("NEWSROOM_PORT"); port != "" {
		cfg.Server.Address = ":" + port
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		parts := strings.Split(origins, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.Server.CORSOrigins = parts
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)
	overrideWithEnvVars(&cfg)

	if err := cfg.Server.Validate(); err != nil {
		return nil, fmt.Errorf("server config validation: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// parseBool parses a string value as a boolean.
// Returns true for "true", "1", "yes" (case-insensitive), false otherwise.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}
