// Package lifecycle drives drafts through the GENERATED, HUMAN_EDITED,
// APPROVED, PUBLISHED review states. All state checks go through the
// transition table in the domain package; nothing here compares raw status
// strings.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/newsroom/internal/collaborators"
	"github.com/jonesrussell/newsroom/internal/database"
	"github.com/jonesrussell/newsroom/internal/domain"
	"github.com/jonesrussell/newsroom/internal/logger"
	"github.com/jonesrussell/newsroom/internal/retry"
	"github.com/jonesrussell/newsroom/internal/translate"
	"github.com/jonesrussell/newsroom/internal/workspace"
)

// DraftStore is the draft persistence the machine needs.
type DraftStore interface {
	Insert(ctx context.Context, draft *domain.Draft) error
	GetByID(ctx context.Context, id string) (*domain.Draft, error)
	UpdateWithVersion(ctx context.Context, draft *domain.Draft, expectedVersion int64) error
}

// ItemStore loads origin items and marks them drafted.
type ItemStore interface {
	GetByID(ctx context.Context, id string) (*domain.NewsItem, error)
	SetDrafted(ctx context.Context, groupID string) error
	SetDraftedByID(ctx context.Context, newsID string) error
}

// GroupStore loads origin groups with their membership.
type GroupStore interface {
	GetByID(ctx context.Context, id string) (*domain.NewsGroup, error)
}

// FactStore loads extracted facts for generator prompting.
type FactStore interface {
	FactsForGroup(ctx context.Context, groupID string) ([]database.MemberFact, error)
	FactsForItem(ctx context.Context, newsID string) ([]collaborators.FactSlot, error)
}

// Deps bundles the machine's collaborators.
type Deps struct {
	Drafts    DraftStore
	Items     ItemStore
	Groups    GroupStore
	Facts     FactStore
	Generator collaborators.Generator
	Images    collaborators.ImageStore
	Sink      collaborators.PublishSink
	Forker    *translate.Forker
	Notifier  Notifier
	Locks     *workspace.Locks
	Stripper  *TrailerStripper
	Logger    logger.Logger

	// MinWordCount gates approval.
	MinWordCount int
	// DefaultLanguage is used when draft creation names no language.
	DefaultLanguage string
	// AllowedLanguages optionally restricts drafts to a subset of the
	// translator's supported codes. Empty means the full table.
	AllowedLanguages []string
}

type Machine struct {
	deps Deps
}

func NewMachine(deps Deps) *Machine {
	if deps.Notifier == nil {
		deps.Notifier = NopNotifier{}
	}
	if deps.Stripper == nil {
		deps.Stripper = NewTrailerStripper(nil)
	}
	if deps.DefaultLanguage == "" {
		deps.DefaultLanguage = "eng_Latn"
	}
	return &Machine{deps: deps}
}

// CreateResult carries the new draft plus the generator's alternative
// headlines, which are offered to the editor but not persisted.
type CreateResult struct {
	Draft            *domain.Draft
	TitleSuggestions []string
}

// CreateFromGroup generates a draft for a whole group. The group's earliest
// member supplies the headline, summary, and image; all members' facts feed
// the prompt. Generator unavailability fails the creation outright.
func (m *Machine) CreateFromGroup(ctx context.Context, workspaceID, groupID, language string) (*CreateResult, error) {
	lock := m.deps.Locks.Get(workspaceID)

	lock.Lock()
	group, err := m.deps.Groups.GetByID(ctx, groupID)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("load group: %w", err)
	}
	if group.WorkspaceID != workspaceID {
		lock.Unlock()
		return nil, fmt.Errorf("%w: group %s", domain.ErrNotFound, groupID)
	}
	if len(group.MemberIDs) == 0 {
		lock.Unlock()
		return nil, fmt.Errorf("%w: group %s has no members", domain.ErrValidation, groupID)
	}

	item, err := m.deps.Items.GetByID(ctx, group.MemberIDs[0])
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("load representative item: %w", err)
	}

	memberFacts, err := m.deps.Facts.FactsForGroup(ctx, groupID)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("load group facts: %w", err)
	}
	lock.Unlock()

	facts := make([]collaborators.FactSlot, 0, len(memberFacts))
	for _, f := range memberFacts {
		facts = append(facts, collaborators.FactSlot{FactType: f.FactType, Value: f.Value})
	}

	draft, suggestions, err := m.generate(ctx, workspaceID, language, item, facts)
	if err != nil {
		return nil, err
	}
	draft.OriginGroupID = &group.ID

	lock.Lock()
	defer lock.Unlock()
	if err := m.deps.Drafts.Insert(ctx, draft); err != nil {
		return nil, fmt.Errorf("persist draft: %w", err)
	}
	if err := m.deps.Items.SetDrafted(ctx, groupID); err != nil {
		return nil, fmt.Errorf("mark group drafted: %w", err)
	}

	m.deps.Logger.Info("Draft created from group",
		logger.String("draft_id", draft.ID),
		logger.String("group_id", groupID),
		logger.Int("word_count", draft.WordCount),
	)

	return &CreateResult{Draft: draft, TitleSuggestions: suggestions}, nil
}

// CreateFromItem generates a draft for a single ungrouped item.
func (m *Machine) CreateFromItem(ctx context.Context, workspaceID, newsID, language string) (*CreateResult, error) {
	lock := m.deps.Locks.Get(workspaceID)

	lock.Lock()
	item, err := m.deps.Items.GetByID(ctx, newsID)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("load item: %w", err)
	}
	if item.WorkspaceID != workspaceID {
		lock.Unlock()
		return nil, fmt.Errorf("%w: news item %s", domain.ErrNotFound, newsID)
	}
	if item.Status == domain.ItemStatusStale || item.Status == domain.ItemStatusDrafted {
		lock.Unlock()
		return nil, fmt.Errorf("%w: news item %s is %s", domain.ErrValidation, newsID, item.Status)
	}

	facts, err := m.deps.Facts.FactsForItem(ctx, newsID)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("load item facts: %w", err)
	}
	lock.Unlock()

	draft, suggestions, err := m.generate(ctx, workspaceID, language, item, facts)
	if err != nil {
		return nil, err
	}
	draft.OriginNewsID = &item.ID

	lock.Lock()
	defer lock.Unlock()
	if err := m.deps.Drafts.Insert(ctx, draft); err != nil {
		return nil, fmt.Errorf("persist draft: %w", err)
	}
	if err := m.deps.Items.SetDraftedByID(ctx, newsID); err != nil {
		return nil, fmt.Errorf("mark item drafted: %w", err)
	}

	m.deps.Logger.Info("Draft created from item",
		logger.String("draft_id", draft.ID),
		logger.String("news_id", newsID),
		logger.Int("word_count", draft.WordCount),
	)

	return &CreateResult{Draft: draft, TitleSuggestions: suggestions}, nil
}

// generate runs the external calls with no lock held.
func (m *Machine) generate(ctx context.Context, workspaceID, language string, item *domain.NewsItem, facts []collaborators.FactSlot) (*domain.Draft, []string, error) {
	if language == "" {
		language = m.deps.DefaultLanguage
	}
	if err := translate.ValidateLanguage(language); err != nil {
		return nil, nil, err
	}
	if !m.languageAllowed(language) {
		return nil, nil, fmt.Errorf("%w: language %s is not enabled for this deployment", domain.ErrConfiguration, language)
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	result, err := m.deps.Generator.Generate(ctx, collaborators.GenerateRequest{
		Headline: item.Headline,
		Summary:  item.Summary,
		Facts:    facts,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("generate draft: %w", err)
	}

	var imagePath *string
	if item.ImageURL != nil && *item.ImageURL != "" {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if path, fetchErr := m.deps.Images.Fetch(ctx, *item.ImageURL); fetchErr == nil && path != "" {
			imagePath = &path
		}
	}

	body := m.deps.Stripper.Strip(result.Body)
	now := time.Now().UTC()

	draft := &domain.Draft{
		ID:             uuid.New().String(),
		WorkspaceID:    workspaceID,
		Language:       language,
		Title:          result.Title,
		Body:           body,
		GeneratedTitle: result.Title,
		ImageLocalPath: imagePath,
		ImageSourceURL: item.ImageURL,
		Status:         domain.DraftStatusGenerated,
		WordCount:      domain.CountWords(body),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	return draft, result.TitleSuggestions, nil
}

// Edit applies a human revision. Allowed from GENERATED and HUMAN_EDITED;
// the draft lands in HUMAN_EDITED either way and the word count is
// recomputed from the new body.
func (m *Machine) Edit(ctx context.Context, draftID, title, body string) (*domain.Draft, error) {
	draft, err := m.deps.Drafts.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}

	lock := m.deps.Locks.Get(draft.WorkspaceID)
	lock.Lock()
	defer lock.Unlock()

	draft, err = m.deps.Drafts.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}

	if !draft.Status.CanTransition(domain.DraftStatusHumanEdited) {
		return nil, &domain.StateError{
			DraftID:  draftID,
			Op:       "edit",
			Expected: []domain.DraftStatus{domain.DraftStatusGenerated, domain.DraftStatusHumanEdited},
			Actual:   draft.Status,
		}
	}
	if title == "" || body == "" {
		return nil, fmt.Errorf("%w: edit requires a title and a body", domain.ErrValidation)
	}

	draft.Title = title
	draft.Body = body
	draft.Status = domain.DraftStatusHumanEdited
	draft.EditedByHuman = true
	draft.WordCount = domain.CountWords(body)

	if err := m.deps.Drafts.UpdateWithVersion(ctx, draft, draft.Version); err != nil {
		return nil, err
	}

	m.deps.Logger.Info("Draft edited",
		logger.String("draft_id", draftID),
		logger.Int("word_count", draft.WordCount),
	)

	return draft, nil
}

// Approve gates on the human-review invariants: the draft was edited by a
// human, carries at least the minimum word count, and no longer uses the
// generated title verbatim. Success fires a draft ready notification.
func (m *Machine) Approve(ctx context.Context, draftID string) (*domain.Draft, error) {
	draft, err := m.deps.Drafts.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}

	lock := m.deps.Locks.Get(draft.WorkspaceID)
	lock.Lock()

	draft, err = m.deps.Drafts.GetByID(ctx, draftID)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	if !draft.Status.CanTransition(domain.DraftStatusApproved) {
		lock.Unlock()
		return nil, &domain.StateError{
			DraftID:  draftID,
			Op:       "approve",
			Expected: []domain.DraftStatus{domain.DraftStatusHumanEdited},
			Actual:   draft.Status,
		}
	}
	if !draft.EditedByHuman {
		lock.Unlock()
		return nil, fmt.Errorf("%w: draft %s has not been edited by a human", domain.ErrValidation, draftID)
	}
	if draft.WordCount < m.deps.MinWordCount {
		lock.Unlock()
		return nil, fmt.Errorf("%w: draft %s has %d words, minimum is %d",
			domain.ErrValidation, draftID, draft.WordCount, m.deps.MinWordCount)
	}
	if draft.Title == draft.GeneratedTitle {
		lock.Unlock()
		return nil, fmt.Errorf("%w: draft %s still uses the generated title", domain.ErrValidation, draftID)
	}

	draft.Status = domain.DraftStatusApproved
	if err := m.deps.Drafts.UpdateWithVersion(ctx, draft, draft.Version); err != nil {
		lock.Unlock()
		return nil, err
	}
	lock.Unlock()

	m.deps.Notifier.DraftReady(ctx, draft)

	m.deps.Logger.Info("Draft approved",
		logger.String("draft_id", draftID),
		logger.String("workspace_id", draft.WorkspaceID),
	)

	return draft, nil
}

// Publish sends an APPROVED draft to the external sink. The workspace lock
// is released for the duration of the sink call; the result is persisted
// under an optimistic version check, so a concurrent mutation surfaces as a
// conflict and the sink result is discarded. Transient sink failures get
// exactly one automatic retry. On any failure the draft stays APPROVED.
func (m *Machine) Publish(ctx context.Context, draftID string) (*domain.Draft, error) {
	draft, err := m.deps.Drafts.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}

	lock := m.deps.Locks.Get(draft.WorkspaceID)
	lock.Lock()

	draft, err = m.deps.Drafts.GetByID(ctx, draftID)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	if !draft.Status.CanTransition(domain.DraftStatusPublished) {
		lock.Unlock()
		return nil, &domain.StateError{
			DraftID:  draftID,
			Op:       "publish",
			Expected: []domain.DraftStatus{domain.DraftStatusApproved},
			Actual:   draft.Status,
		}
	}
	if m.deps.Sink == nil {
		lock.Unlock()
		return nil, fmt.Errorf("%w: no publish sink configured", domain.ErrConfiguration)
	}

	post := collaborators.Post{
		Title: draft.Title,
		Body:  draft.Body,
		Metadata: map[string]string{
			"draft_id": draft.ID,
			"language": draft.Language,
		},
	}
	if draft.ImageLocalPath != nil {
		post.ImageLocalPath = *draft.ImageLocalPath
	}
	expectedVersion := draft.Version
	lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ref *collaborators.PostRef
	publishOnce := func() error {
		var sinkErr error
		ref, sinkErr = m.deps.Sink.Publish(ctx, post)
		return sinkErr
	}
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = 2
	if err := retry.Retry(ctx, retryCfg, publishOnce); err != nil {
		return nil, fmt.Errorf("publish draft %s: %w", draftID, err)
	}

	lock.Lock()
	defer lock.Unlock()

	externalRef := ref.ExternalID
	if ref.ExternalURL != "" {
		externalRef = ref.ExternalURL
	}
	draft.Status = domain.DraftStatusPublished
	draft.ExternalPostRef = &externalRef

	if err := m.deps.Drafts.UpdateWithVersion(ctx, draft, expectedVersion); err != nil {
		return nil, err
	}

	m.deps.Logger.Info("Draft published",
		logger.String("draft_id", draftID),
		logger.String("external_ref", externalRef),
	)

	return draft, nil
}

// Translate forks the draft into a sibling in the target language. The
// source draft is only read; the translator runs with no lock held and the
// fork is inserted as an independent row.
func (m *Machine) Translate(ctx context.Context, draftID, targetLanguage string) (*domain.Draft, error) {
	if !m.languageAllowed(targetLanguage) {
		return nil, fmt.Errorf("%w: language %s is not enabled for this deployment", domain.ErrConfiguration, targetLanguage)
	}

	draft, err := m.deps.Drafts.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return m.deps.Forker.Fork(ctx, draft, targetLanguage)
}

func (m *Machine) languageAllowed(code string) bool {
	if len(m.deps.AllowedLanguages) == 0 {
		return true
	}
	for _, allowed := range m.deps.AllowedLanguages {
		if allowed == code {
			return true
		}
	}
	return false
}
