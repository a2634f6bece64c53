package translate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/newsroom/internal/collaborators"
	"github.com/jonesrussell/newsroom/internal/domain"
	"github.com/jonesrussell/newsroom/internal/logger"
)

// DraftStore persists forked drafts.
type DraftStore interface {
	Insert(ctx context.Context, draft *domain.Draft) error
}

// Forker builds a sibling draft in the target language. The source draft is
// read, never written; concurrent forks to different languages are
// independent rows.
type Forker struct {
	drafts     DraftStore
	translator collaborators.Translator
	logger     logger.Logger
}

func NewForker(drafts DraftStore, translator collaborators.Translator, log logger.Logger) *Forker {
	return &Forker{
		drafts:     drafts,
		translator: translator,
		logger:     log,
	}
}

// Fork translates the source's title and body independently and persists the
// result as a new GENERATED draft pointing back at the source. The source
// must have been edited by a human first.
func (f *Forker) Fork(ctx context.Context, source *domain.Draft, targetLanguage string) (*domain.Draft, error) {
	if err := ValidateLanguage(targetLanguage); err != nil {
		return nil, err
	}
	if !source.Status.AtLeast(domain.DraftStatusHumanEdited) {
		return nil, &domain.StateError{
			DraftID:  source.ID,
			Op:       "translate",
			Expected: []domain.DraftStatus{domain.DraftStatusHumanEdited, domain.DraftStatusApproved, domain.DraftStatusPublished},
			Actual:   source.Status,
		}
	}
	if targetLanguage == source.Language {
		return nil, fmt.Errorf("%w: draft %s is already in %s", domain.ErrValidation, source.ID, targetLanguage)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	title, err := f.translator.Translate(ctx, source.Title, targetLanguage)
	if err != nil {
		return nil, fmt.Errorf("translate title: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := f.translator.Translate(ctx, source.Body, targetLanguage)
	if err != nil {
		return nil, fmt.Errorf("translate body: %w", err)
	}

	now := time.Now().UTC()
	parentID := source.ID
	fork := &domain.Draft{
		ID:             uuid.New().String(),
		WorkspaceID:    source.WorkspaceID,
		OriginNewsID:   source.OriginNewsID,
		OriginGroupID:  source.OriginGroupID,
		ParentDraftID:  &parentID,
		Language:       targetLanguage,
		Title:          title,
		Body:           body,
		GeneratedTitle: title,
		ImageLocalPath: source.ImageLocalPath,
		ImageSourceURL: source.ImageSourceURL,
		Status:         domain.DraftStatusGenerated,
		WordCount:      domain.CountWords(body),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := f.drafts.Insert(ctx, fork); err != nil {
		return nil, fmt.Errorf("persist translated draft: %w", err)
	}

	f.logger.Info("Draft forked for translation",
		logger.String("source_draft_id", source.ID),
		logger.String("fork_draft_id", fork.ID),
		logger.String("language", targetLanguage),
	)

	return fork, nil
}
