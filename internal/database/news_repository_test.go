package database_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/newsroom/internal/database"
	"github.com/jonesrussell/newsroom/internal/domain"
)

func TestNewsRepository_ExistsBySourceURL(t *testing.T) {
	t.Helper()

	db, mock := newMockDB(t)
	repo := database.NewNewsRepository(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("ws-1", "https://example.com/story").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsBySourceURL(context.Background(), "ws-1", "https://example.com/story")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewsRepository_SetGrouped(t *testing.T) {
	t.Helper()

	testCases := []struct {
		name         string
		rowsAffected int64
		wantErr      error
	}{
		{
			name:         "marks a new item grouped",
			rowsAffected: 1,
		},
		{
			name:         "item already past new is not re-marked",
			rowsAffected: 0,
			wantErr:      domain.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := database.NewNewsRepository(db)

			mock.ExpectExec("UPDATE news_items").
				WithArgs("group-1", "item-1").
				WillReturnResult(sqlmock.NewResult(0, tc.rowsAffected))

			err := repo.SetGrouped(context.Background(), "item-1", "group-1")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestNewsRepository_DeleteStale(t *testing.T) {
	t.Helper()

	db, mock := newMockDB(t)
	repo := database.NewNewsRepository(db)

	cutoff := time.Now().Add(-48 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE news_items").
		WithArgs("ws-1", cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM news_items").
		WithArgs("ws-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	removed, err := repo.DeleteStale(context.Background(), "ws-1", cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewsRepository_DeleteStale_MarkError(t *testing.T) {
	t.Helper()

	db, mock := newMockDB(t)
	repo := database.NewNewsRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE news_items").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.DeleteStale(context.Background(), "ws-1", time.Now())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
