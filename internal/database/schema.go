package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is the bootstrap DDL. Applied idempotently at startup; production
// deployments run the same statements through their migration tooling.
const schema = `
CREATE TABLE IF NOT EXISTS workspaces (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS news_items (
	id            TEXT PRIMARY KEY,
	workspace_id  TEXT NOT NULL REFERENCES workspaces(id),
	source_url    TEXT NOT NULL,
	source_domain TEXT NOT NULL,
	headline      TEXT NOT NULL,
	summary       TEXT NOT NULL DEFAULT '',
	image_url     TEXT,
	fetched_at    TIMESTAMPTZ NOT NULL,
	status        TEXT NOT NULL DEFAULT 'new',
	group_id      TEXT,
	UNIQUE (workspace_id, source_url)
);

CREATE INDEX IF NOT EXISTS idx_news_items_workspace_fetched
	ON news_items (workspace_id, fetched_at DESC);

CREATE TABLE IF NOT EXISTS news_groups (
	id              TEXT PRIMARY KEY,
	workspace_id    TEXT NOT NULL REFERENCES workspaces(id),
	confidence_tier TEXT NOT NULL DEFAULT 'unverified',
	opened_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
	group_id   TEXT NOT NULL REFERENCES news_groups(id),
	news_id    TEXT NOT NULL REFERENCES news_items(id),
	similarity DOUBLE PRECISION NOT NULL DEFAULT 0,
	embedding  DOUBLE PRECISION[],
	PRIMARY KEY (group_id, news_id)
);

CREATE TABLE IF NOT EXISTS group_conflicts (
	group_id  TEXT NOT NULL REFERENCES news_groups(id),
	fact_type TEXT NOT NULL,
	value_a   TEXT NOT NULL,
	source_a  TEXT NOT NULL,
	value_b   TEXT NOT NULL,
	source_b  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS item_facts (
	news_id   TEXT NOT NULL REFERENCES news_items(id),
	fact_type TEXT NOT NULL,
	value     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS drafts (
	id                TEXT PRIMARY KEY,
	workspace_id      TEXT NOT NULL REFERENCES workspaces(id),
	origin_news_id    TEXT REFERENCES news_items(id),
	origin_group_id   TEXT REFERENCES news_groups(id),
	parent_draft_id   TEXT REFERENCES drafts(id),
	language          TEXT NOT NULL,
	title             TEXT NOT NULL,
	body              TEXT NOT NULL,
	generated_title   TEXT NOT NULL,
	image_local_path  TEXT,
	image_source_url  TEXT,
	status            TEXT NOT NULL,
	edited_by_human   BOOLEAN NOT NULL DEFAULT FALSE,
	word_count        INTEGER NOT NULL DEFAULT 0,
	external_post_ref TEXT,
	version           BIGINT NOT NULL DEFAULT 1,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema applies the bootstrap DDL.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
