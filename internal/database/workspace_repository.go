package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Workspace is a named tenant for feeds, items, groups, and drafts.
type Workspace struct {
	ID        string    `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// WorkspaceRepository manages workspaces in PostgreSQL.
type WorkspaceRepository struct {
	db *sqlx.DB
}

// NewWorkspaceRepository creates a new repository
func NewWorkspaceRepository(db *sqlx.DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

// Ensure creates the workspace if it does not exist yet.
func (r *WorkspaceRepository) Ensure(ctx context.Context, id, name string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		id, name)
	if err != nil {
		return fmt.Errorf("ensure workspace: %w", err)
	}
	return nil
}

// List returns all workspaces.
func (r *WorkspaceRepository) List(ctx context.Context) ([]Workspace, error) {
	var workspaces []Workspace
	err := r.db.SelectContext(ctx, &workspaces,
		`SELECT id, name, created_at FROM workspaces ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	return workspaces, nil
}
