package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/newsroom/internal/domain"
)

// draftSelectList is the column list for SELECT on drafts (single source for
// schema changes)
const draftSelectList = `id, workspace_id, origin_news_id, origin_group_id,
		parent_draft_id, language, title, body, generated_title,
		image_local_path, image_source_url, status, edited_by_human,
		word_count, external_post_ref, version, created_at, updated_at`

// DraftRepository manages drafts in PostgreSQL. Drafts are never deleted;
// the row history backs the audit trail.
type DraftRepository struct {
	db *sqlx.DB
}

// NewDraftRepository creates a new repository
func NewDraftRepository(db *sqlx.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

// Insert stores a new draft at version 1.
func (r *DraftRepository) Insert(ctx context.Context, draft *domain.Draft) error {
	query := `
		INSERT INTO drafts (id, workspace_id, origin_news_id, origin_group_id,
			parent_draft_id, language, title, body, generated_title,
			image_local_path, image_source_url, status, edited_by_human,
			word_count, external_post_ref, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.db.ExecContext(ctx, query,
		draft.ID, draft.WorkspaceID, draft.OriginNewsID, draft.OriginGroupID,
		draft.ParentDraftID, draft.Language, draft.Title, draft.Body, draft.GeneratedTitle,
		draft.ImageLocalPath, draft.ImageSourceURL, draft.Status, draft.EditedByHuman,
		draft.WordCount, draft.ExternalPostRef, draft.Version, draft.CreatedAt, draft.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert draft: %w", err)
	}
	return nil
}

// GetByID retrieves a single draft.
func (r *DraftRepository) GetByID(ctx context.Context, id string) (*domain.Draft, error) {
	var draft domain.Draft
	err := r.db.GetContext(ctx, &draft,
		`SELECT `+draftSelectList+` FROM drafts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return &draft, nil
}

// List returns drafts in a workspace, newest first.
func (r *DraftRepository) List(ctx context.Context, workspaceID string, limit int) ([]domain.Draft, error) {
	var drafts []domain.Draft
	err := r.db.SelectContext(ctx, &drafts,
		`SELECT `+draftSelectList+`
		 FROM drafts
		 WHERE workspace_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	return drafts, nil
}

// UpdateWithVersion persists the draft's mutable fields, guarded by the
// version the caller read before any external call. A version mismatch
// means another operation transitioned the draft while this one was in
// flight; the caller receives a VersionError rather than corrupted state.
func (r *DraftRepository) UpdateWithVersion(ctx context.Context, draft *domain.Draft, expectedVersion int64) error {
	query := `
		UPDATE drafts
		SET title = $3,
		    body = $4,
		    image_local_path = $5,
		    status = $6,
		    edited_by_human = $7,
		    word_count = $8,
		    external_post_ref = $9,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND version = $2`

	result, err := r.db.ExecContext(ctx, query,
		draft.ID, expectedVersion,
		draft.Title, draft.Body, draft.ImageLocalPath,
		draft.Status, draft.EditedByHuman, draft.WordCount,
		draft.ExternalPostRef,
	)
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if rows == 1 {
		draft.Version = expectedVersion + 1
		return nil
	}

	// Zero rows: distinguish a missing draft from a version conflict.
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM drafts WHERE id = $1)`, draft.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check draft existence: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return &domain.VersionError{DraftID: draft.ID, ExpectedVersion: expectedVersion}
}

// CountByStatus returns draft counts per status for a workspace.
func (r *DraftRepository) CountByStatus(ctx context.Context, workspaceID string) (map[domain.DraftStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM drafts WHERE workspace_id = $1 GROUP BY status`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("count drafts by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.DraftStatus]int64)
	for rows.Next() {
		var status domain.DraftStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan draft status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
