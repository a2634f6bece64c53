package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/newsroom/internal/domain"
)

// GroupRepository manages news groups, their membership, and their conflict
// annotations in PostgreSQL.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository creates a new repository
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Open inserts a new group.
func (r *GroupRepository) Open(ctx context.Context, group *domain.NewsGroup) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO news_groups (id, workspace_id, confidence_tier, opened_at) VALUES ($1, $2, $3, $4)`,
		group.ID, group.WorkspaceID, group.ConfidenceTier, group.OpenedAt)
	if err != nil {
		return fmt.Errorf("open group: %w", err)
	}
	return nil
}

// AddMember records an item's membership together with the similarity score
// that admitted it and its embedding for future centroid computation.
func (r *GroupRepository) AddMember(ctx context.Context, groupID, newsID string, similarity float64, embedding []float64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, news_id, similarity, embedding) VALUES ($1, $2, $3, $4)`,
		groupID, newsID, similarity, pq.Array(embedding))
	if err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// GroupVectors describes an open group for the grouper: its identity, age,
// and the embeddings of its members.
type GroupVectors struct {
	GroupID    string
	OpenedAt   time.Time
	Embeddings [][]float64
}

// OpenVectors returns groups opened at or after since, oldest first, with
// their member embeddings. Groups older than the window are closed to new
// membership and excluded.
func (r *GroupRepository) OpenVectors(ctx context.Context, workspaceID string, since time.Time) ([]GroupVectors, error) {
	query := `
		SELECT g.id, g.opened_at, gm.embedding
		FROM news_groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE g.workspace_id = $1 AND g.opened_at >= $2
		ORDER BY g.opened_at ASC, g.id`

	rows, err := r.db.QueryContext(ctx, query, workspaceID, since)
	if err != nil {
		return nil, fmt.Errorf("open vectors: %w", err)
	}
	defer rows.Close()

	var groups []GroupVectors
	index := make(map[string]int)
	for rows.Next() {
		var groupID string
		var openedAt time.Time
		var embedding pq.Float64Array
		if err := rows.Scan(&groupID, &openedAt, &embedding); err != nil {
			return nil, fmt.Errorf("scan open vectors: %w", err)
		}

		i, ok := index[groupID]
		if !ok {
			groups = append(groups, GroupVectors{GroupID: groupID, OpenedAt: openedAt})
			i = len(groups) - 1
			index[groupID] = i
		}
		if len(embedding) > 0 {
			groups[i].Embeddings = append(groups[i].Embeddings, embedding)
		}
	}
	return groups, rows.Err()
}

// MemberDomains returns the source domains of a group's members, one entry
// per member.
func (r *GroupRepository) MemberDomains(ctx context.Context, groupID string) ([]string, error) {
	var domains []string
	err := r.db.SelectContext(ctx, &domains, `
		SELECT n.source_domain
		FROM group_members gm
		JOIN news_items n ON n.id = gm.news_id
		WHERE gm.group_id = $1`, groupID)
	if err != nil {
		return nil, fmt.Errorf("member domains: %w", err)
	}
	return domains, nil
}

// SetTier updates a group's confidence tier.
func (r *GroupRepository) SetTier(ctx context.Context, groupID string, tier domain.ConfidenceTier) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE news_groups SET confidence_tier = $2 WHERE id = $1`, groupID, tier)
	if err != nil {
		return fmt.Errorf("set tier: %w", err)
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

// ReplaceConflicts swaps a group's conflict annotations for the freshly
// detected set.
func (r *GroupRepository) ReplaceConflicts(ctx context.Context, groupID string, conflicts []domain.Conflict) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace conflicts: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM group_conflicts WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("clear conflicts: %w", err)
	}
	for _, c := range conflicts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_conflicts (group_id, fact_type, value_a, source_a, value_b, source_b)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			groupID, c.FactType, c.ValueA, c.SourceA, c.ValueB, c.SourceB); err != nil {
			return fmt.Errorf("insert conflict: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace conflicts: %w", err)
	}
	return nil
}

// GetByID retrieves a group with its member ids and conflicts loaded.
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*domain.NewsGroup, error) {
	var group domain.NewsGroup
	err := r.db.GetContext(ctx, &group,
		`SELECT id, workspace_id, confidence_tier, opened_at FROM news_groups WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}

	if err := r.db.SelectContext(ctx, &group.MemberIDs,
		`SELECT news_id FROM group_members WHERE group_id = $1 ORDER BY news_id`, id); err != nil {
		return nil, fmt.Errorf("get group members: %w", err)
	}

	if err := r.db.SelectContext(ctx, &group.Conflicts,
		`SELECT fact_type, value_a, source_a, value_b, source_b
		 FROM group_conflicts WHERE group_id = $1`, id); err != nil {
		return nil, fmt.Errorf("get group conflicts: %w", err)
	}

	return &group, nil
}

// List returns groups in a workspace, newest first.
func (r *GroupRepository) List(ctx context.Context, workspaceID string, limit int) ([]domain.NewsGroup, error) {
	var groups []domain.NewsGroup
	err := r.db.SelectContext(ctx, &groups, `
		SELECT id, workspace_id, confidence_tier, opened_at
		FROM news_groups
		WHERE workspace_id = $1
		ORDER BY opened_at DESC
		LIMIT $2`, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}
