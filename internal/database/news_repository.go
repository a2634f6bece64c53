package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/newsroom/internal/collaborators"
	"github.com/jonesrussell/newsroom/internal/domain"
)

// newsSelectList is the column list for SELECT on news_items (single source
// for schema changes)
const newsSelectList = `id, workspace_id, source_url, source_domain, headline,
		summary, image_url, fetched_at, status, group_id`

// NewsRepository manages news items in PostgreSQL.
type NewsRepository struct {
	db *sqlx.DB
}

// NewNewsRepository creates a new repository
func NewNewsRepository(db *sqlx.DB) *NewsRepository {
	return &NewsRepository{db: db}
}

// Insert stores a news item.
func (r *NewsRepository) Insert(ctx context.Context, item *domain.NewsItem) error {
	query := `
		INSERT INTO news_items (id, workspace_id, source_url, source_domain,
			headline, summary, image_url, fetched_at, status, group_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.WorkspaceID, item.SourceURL, item.SourceDomain,
		item.Headline, item.Summary, item.ImageURL, item.FetchedAt,
		item.Status, item.GroupID,
	)
	if err != nil {
		return fmt.Errorf("insert news item: %w", err)
	}
	return nil
}

// ExistsBySourceURL reports whether the workspace already holds an item with
// this source URL, regardless of status.
func (r *NewsRepository) ExistsBySourceURL(ctx context.Context, workspaceID, sourceURL string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM news_items WHERE workspace_id = $1 AND source_url = $2)`,
		workspaceID, sourceURL).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists by source url: %w", err)
	}
	return exists, nil
}

// RecentItems returns items in the workspace fetched at or after since,
// newest first. The dedup filter compares incoming headlines against these.
func (r *NewsRepository) RecentItems(ctx context.Context, workspaceID string, since time.Time) ([]domain.NewsItem, error) {
	query := `SELECT ` + newsSelectList + `
		FROM news_items
		WHERE workspace_id = $1 AND fetched_at >= $2
		ORDER BY fetched_at DESC`

	var items []domain.NewsItem
	if err := r.db.SelectContext(ctx, &items, query, workspaceID, since); err != nil {
		return nil, fmt.Errorf("recent items: %w", err)
	}
	return items, nil
}

// GetByID retrieves a single news item.
func (r *NewsRepository) GetByID(ctx context.Context, id string) (*domain.NewsItem, error) {
	var item domain.NewsItem
	err := r.db.GetContext(ctx, &item,
		`SELECT `+newsSelectList+` FROM news_items WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get news item: %w", err)
	}
	return &item, nil
}

// SetGrouped moves an item new -> grouped and records its group. The status
// guard keeps the transition monotonic even under concurrent batches.
func (r *NewsRepository) SetGrouped(ctx context.Context, newsID, groupID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE news_items SET status = 'grouped', group_id = $2 WHERE id = $1 AND status = 'new'`,
		newsID, groupID)
	if err != nil {
		return fmt.Errorf("set grouped: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetDrafted promotes group members grouped -> drafted once a draft exists.
func (r *NewsRepository) SetDrafted(ctx context.Context, groupID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE news_items SET status = 'drafted' WHERE group_id = $1 AND status = 'grouped'`,
		groupID)
	if err != nil {
		return fmt.Errorf("set drafted: %w", err)
	}
	return nil
}

// SetDraftedByID promotes a single item to drafted, passing through grouped
// when the draft was created straight from an ungrouped item.
func (r *NewsRepository) SetDraftedByID(ctx context.Context, newsID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE news_items SET status = 'drafted' WHERE id = $1 AND status IN ('new', 'grouped')`,
		newsID)
	if err != nil {
		return fmt.Errorf("set drafted by id: %w", err)
	}
	return nil
}

// DeleteStale expires items with status 'new' fetched before the cutoff:
// they transition to 'stale' and the stale rows are deleted in the same
// transaction. Items referenced by any draft are kept regardless of age;
// items promoted past 'new' are never eligible.
func (r *NewsRepository) DeleteStale(ctx context.Context, workspaceID string, cutoff time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete stale: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	mark := `
		UPDATE news_items
		SET status = 'stale'
		WHERE workspace_id = $1
		  AND status = 'new'
		  AND fetched_at < $2
		  AND NOT EXISTS (
			SELECT 1 FROM drafts d WHERE d.origin_news_id = news_items.id
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM group_members gm
			JOIN drafts d ON d.origin_group_id = gm.group_id
			WHERE gm.news_id = news_items.id
		  )`
	if _, err := tx.ExecContext(ctx, mark, workspaceID, cutoff); err != nil {
		return 0, fmt.Errorf("mark stale: %w", err)
	}

	// Also catches stale rows left behind by an earlier interrupted sweep.
	result, err := tx.ExecContext(ctx,
		`DELETE FROM news_items WHERE workspace_id = $1 AND status = 'stale'`, workspaceID)
	if err != nil {
		return 0, fmt.Errorf("delete stale: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete stale rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete stale: %w", err)
	}
	return removed, nil
}

// SaveFacts replaces the extracted fact slots for an item.
func (r *NewsRepository) SaveFacts(ctx context.Context, newsID string, facts []collaborators.FactSlot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save facts: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_facts WHERE news_id = $1`, newsID); err != nil {
		return fmt.Errorf("clear item facts: %w", err)
	}
	for _, fact := range facts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_facts (news_id, fact_type, value) VALUES ($1, $2, $3)`,
			newsID, fact.FactType, fact.Value); err != nil {
			return fmt.Errorf("insert item fact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save facts: %w", err)
	}
	return nil
}

// MemberFact is one fact slot together with the domain that asserted it.
type MemberFact struct {
	NewsID       string `db:"news_id"`
	SourceDomain string `db:"source_domain"`
	FactType     string `db:"fact_type"`
	Value        string `db:"value"`
}

// FactsForGroup returns every member's fact slots for a group, for conflict
// detection and generator prompting.
func (r *NewsRepository) FactsForGroup(ctx context.Context, groupID string) ([]MemberFact, error) {
	query := `
		SELECT f.news_id, n.source_domain, f.fact_type, f.value
		FROM item_facts f
		JOIN news_items n ON n.id = f.news_id
		JOIN group_members gm ON gm.news_id = f.news_id
		WHERE gm.group_id = $1
		ORDER BY f.fact_type, n.source_domain`

	var facts []MemberFact
	if err := r.db.SelectContext(ctx, &facts, query, groupID); err != nil {
		return nil, fmt.Errorf("facts for group: %w", err)
	}
	return facts, nil
}

// FactsForItem returns the fact slots extracted for a single item.
func (r *NewsRepository) FactsForItem(ctx context.Context, newsID string) ([]collaborators.FactSlot, error) {
	var facts []collaborators.FactSlot
	err := r.db.SelectContext(ctx, &facts,
		`SELECT fact_type, value FROM item_facts WHERE news_id = $1`, newsID)
	if err != nil {
		return nil, fmt.Errorf("facts for item: %w", err)
	}
	return facts, nil
}

// CountByStatus returns item counts per status for a workspace.
func (r *NewsRepository) CountByStatus(ctx context.Context, workspaceID string) (map[domain.ItemStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM news_items WHERE workspace_id = $1 GROUP BY status`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ItemStatus]int64)
	for rows.Next() {
		var status domain.ItemStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
