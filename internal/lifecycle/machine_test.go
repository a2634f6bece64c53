package lifecycle

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/newsroom/internal/collaborators"
	"github.com/jonesrussell/newsroom/internal/database"
	"github.com/jonesrussell/newsroom/internal/domain"
	"github.com/jonesrussell/newsroom/internal/logger"
	"github.com/jonesrussell/newsroom/internal/translate"
	"github.com/jonesrussell/newsroom/internal/workspace"
)

type fakeDraftStore struct {
	drafts map[string]*domain.Draft
}

func newFakeDraftStore(drafts ...*domain.Draft) *fakeDraftStore {
	store := &fakeDraftStore{drafts: make(map[string]*domain.Draft)}
	for _, d := range drafts {
		clone := *d
		store.drafts[d.ID] = &clone
	}
	return store
}

func (f *fakeDraftStore) Insert(_ context.Context, draft *domain.Draft) error {
	clone := *draft
	f.drafts[draft.ID] = &clone
	return nil
}

func (f *fakeDraftStore) GetByID(_ context.Context, id string) (*domain.Draft, error) {
	stored, ok := f.drafts[id]
	if !ok {
		return nil, fmt.Errorf("%w: draft %s", domain.ErrNotFound, id)
	}
	clone := *stored
	return &clone, nil
}

func (f *fakeDraftStore) UpdateWithVersion(_ context.Context, draft *domain.Draft, expectedVersion int64) error {
	stored, ok := f.drafts[draft.ID]
	if !ok {
		return fmt.Errorf("%w: draft %s", domain.ErrNotFound, draft.ID)
	}
	if stored.Version != expectedVersion {
		return &domain.VersionError{DraftID: draft.ID, ExpectedVersion: expectedVersion}
	}
	draft.Version = expectedVersion + 1
	clone := *draft
	f.drafts[draft.ID] = &clone
	return nil
}

type fakeItemStore struct {
	items          map[string]*domain.NewsItem
	draftedGroups  []string
	draftedItemIDs []string
}

func newFakeItemStore(items ...*domain.NewsItem) *fakeItemStore {
	store := &fakeItemStore{items: make(map[string]*domain.NewsItem)}
	for _, it := range items {
		store.items[it.ID] = it
	}
	return store
}

func (f *fakeItemStore) GetByID(_ context.Context, id string) (*domain.NewsItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: news item %s", domain.ErrNotFound, id)
	}
	return item, nil
}

func (f *fakeItemStore) SetDrafted(_ context.Context, groupID string) error {
	f.draftedGroups = append(f.draftedGroups, groupID)
	return nil
}

func (f *fakeItemStore) SetDraftedByID(_ context.Context, newsID string) error {
	f.draftedItemIDs = append(f.draftedItemIDs, newsID)
	return nil
}

type fakeGroupStore struct {
	groups map[string]*domain.NewsGroup
}

func (f *fakeGroupStore) GetByID(_ context.Context, id string) (*domain.NewsGroup, error) {
	group, ok := f.groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: group %s", domain.ErrNotFound, id)
	}
	return group, nil
}

type fakeFactStore struct {
	groupFacts []database.MemberFact
	itemFacts  []collaborators.FactSlot
}

func (f *fakeFactStore) FactsForGroup(_ context.Context, _ string) ([]database.MemberFact, error) {
	return f.groupFacts, nil
}

func (f *fakeFactStore) FactsForItem(_ context.Context, _ string) ([]collaborators.FactSlot, error) {
	return f.itemFacts, nil
}

type fakeGenerator struct {
	result *collaborators.GenerateResult
	err    error
	reqs   []collaborators.GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req collaborators.GenerateRequest) (*collaborators.GenerateResult, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeImageStore struct {
	path string
	urls []string
}

func (f *fakeImageStore) Fetch(_ context.Context, imageURL string) (string, error) {
	f.urls = append(f.urls, imageURL)
	return f.path, nil
}

type fakeSink struct {
	fn    func(post collaborators.Post) (*collaborators.PostRef, error)
	calls int
}

func (f *fakeSink) Publish(_ context.Context, post collaborators.Post) (*collaborators.PostRef, error) {
	f.calls++
	return f.fn(post)
}

type recordingNotifier struct {
	ready []string
}

func (r *recordingNotifier) DraftReady(_ context.Context, draft *domain.Draft) {
	r.ready = append(r.ready, draft.ID)
}

type machineFixture struct {
	machine  *Machine
	drafts   *fakeDraftStore
	items    *fakeItemStore
	gen      *fakeGenerator
	images   *fakeImageStore
	sink     *fakeSink
	notifier *recordingNotifier
}

func newFixture(t *testing.T, mutate func(deps *Deps)) *machineFixture {
	t.Helper()

	drafts := newFakeDraftStore()
	items := newFakeItemStore()
	gen := &fakeGenerator{result: &collaborators.GenerateResult{
		Title: "Generated headline",
		Body:  "Generated body text.\n\nSources:\n- https://a.example",
	}}
	images := &fakeImageStore{}
	sink := &fakeSink{fn: func(collaborators.Post) (*collaborators.PostRef, error) {
		return &collaborators.PostRef{ExternalID: "42", ExternalURL: "https://site.example/p/42"}, nil
	}}
	notifier := &recordingNotifier{}

	deps := Deps{
		Drafts:       drafts,
		Items:        items,
		Groups:       &fakeGroupStore{groups: map[string]*domain.NewsGroup{}},
		Facts:        &fakeFactStore{},
		Generator:    gen,
		Images:       images,
		Sink:         sink,
		Notifier:     notifier,
		Locks:        workspace.NewLocks(),
		Stripper:     NewTrailerStripper([]string{"Sources:"}),
		Logger:       logger.NewNopLogger(),
		MinWordCount: 5,
	}
	if mutate != nil {
		mutate(&deps)
	}

	fixture := &machineFixture{
		drafts:   drafts,
		items:    items,
		gen:      gen,
		images:   images,
		sink:     sink,
		notifier: notifier,
	}
	fixture.machine = NewMachine(deps)
	return fixture
}

func seededDraft(status domain.DraftStatus) *domain.Draft {
	return &domain.Draft{
		ID:             "draft-1",
		WorkspaceID:    "ws-1",
		Language:       "eng_Latn",
		Title:          "A reworked headline",
		Body:           "one two three four five six seven eight",
		GeneratedTitle: "Generated headline",
		Status:         status,
		EditedByHuman:  status != domain.DraftStatusGenerated,
		WordCount:      8,
		Version:        2,
	}
}

func TestMachine_Edit(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.drafts.Insert(context.Background(), seededDraft(domain.DraftStatusGenerated)))

	draft, err := fx.machine.Edit(context.Background(), "draft-1", "New title", "a much better body with more words")
	require.NoError(t, err)

	assert.Equal(t, domain.DraftStatusHumanEdited, draft.Status)
	assert.True(t, draft.EditedByHuman)
	assert.Equal(t, 7, draft.WordCount)
	assert.Equal(t, int64(3), draft.Version)

	stored, _ := fx.drafts.GetByID(context.Background(), "draft-1")
	assert.Equal(t, domain.DraftStatusHumanEdited, stored.Status)
}

func TestMachine_Edit_RepeatedEditsAllowed(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.drafts.Insert(context.Background(), seededDraft(domain.DraftStatusHumanEdited)))

	_, err := fx.machine.Edit(context.Background(), "draft-1", "Second pass", "revised body once more with feeling")
	assert.NoError(t, err)
}

func TestMachine_Edit_Guards(t *testing.T) {
	testCases := []struct {
		name   string
		status domain.DraftStatus
		title  string
		body   string
	}{
		{"approved draft rejects edits", domain.DraftStatusApproved, "t", "b"},
		{"published draft rejects edits", domain.DraftStatusPublished, "t", "b"},
		{"empty title", domain.DraftStatusGenerated, "", "b"},
		{"empty body", domain.DraftStatusGenerated, "t", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t, nil)
			require.NoError(t, fx.drafts.Insert(context.Background(), seededDraft(tc.status)))

			_, err := fx.machine.Edit(context.Background(), "draft-1", tc.title, tc.body)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestMachine_Approve(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.drafts.Insert(context.Background(), seededDraft(domain.DraftStatusHumanEdited)))

	draft, err := fx.machine.Approve(context.Background(), "draft-1")
	require.NoError(t, err)

	assert.Equal(t, domain.DraftStatusApproved, draft.Status)
	assert.Equal(t, []string{"draft-1"}, fx.notifier.ready)
}

func TestMachine_Approve_Guards(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(d *domain.Draft)
	}{
		{
			name:   "wrong state",
			mutate: func(d *domain.Draft) { d.Status = domain.DraftStatusGenerated },
		},
		{
			name:   "not edited by a human",
			mutate: func(d *domain.Draft) { d.EditedByHuman = false },
		},
		{
			name:   "below minimum word count",
			mutate: func(d *domain.Draft) { d.WordCount = 3 },
		},
		{
			name:   "generated title unchanged",
			mutate: func(d *domain.Draft) { d.Title = d.GeneratedTitle },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t, nil)
			draft := seededDraft(domain.DraftStatusHumanEdited)
			tc.mutate(draft)
			require.NoError(t, fx.drafts.Insert(context.Background(), draft))

			_, err := fx.machine.Approve(context.Background(), "draft-1")
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Empty(t, fx.notifier.ready)

			stored, _ := fx.drafts.GetByID(context.Background(), "draft-1")
			assert.NotEqual(t, domain.DraftStatusApproved, stored.Status)
		})
	}
}

func TestMachine_Publish(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.drafts.Insert(context.Background(), seededDraft(domain.DraftStatusApproved)))

	draft, err := fx.machine.Publish(context.Background(), "draft-1")
	require.NoError(t, err)

	assert.Equal(t, domain.DraftStatusPublished, draft.Status)
	require.NotNil(t, draft.ExternalPostRef)
	assert.Equal(t, "https://site.example/p/42", *draft.ExternalPostRef)
	assert.Equal(t, 1, fx.sink.calls)
}

func TestMachine_Publish_RetriesTransientOnce(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.drafts.Insert(context.Background(), seededDraft(domain.DraftStatusApproved)))

	attempts := 0
	fx.sink.fn = func(collaborators.Post) (*collaborators.PostRef, error) {
		attempts++
		if attempts == 1 {
			return nil, fmt.Errorf("%w: 502 from sink", domain.ErrTransient)
		}
		return &collaborators.PostRef{ExternalID: "42"}, nil
	}

	draft, err := fx.machine.Publish(context.Background(), "draft-1")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, domain.DraftStatusPublished, draft.Status)
}

func TestMachine_Publish_FailureLeavesApproved(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.drafts.Insert(context.Background(), seededDraft(domain.DraftStatusApproved)))

	fx.sink.fn = func(collaborators.Post) (*collaborators.PostRef, error) {
		return nil, fmt.Errorf("%w: sink is down", domain.ErrTransient)
	}

	_, err := fx.machine.Publish(context.Background(), "draft-1")
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, 2, fx.sink.calls)

	stored, _ := fx.drafts.GetByID(context.Background(), "draft-1")
	assert.Equal(t, domain.DraftStatusApproved, stored.Status)
	assert.Nil(t, stored.ExternalPostRef)
}

func TestMachine_Publish_WrongState(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.drafts.Insert(context.Background(), seededDraft(domain.DraftStatusHumanEdited)))

	_, err := fx.machine.Publish(context.Background(), "draft-1")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, fx.sink.calls)
}

func TestMachine_Publish_ConcurrentEditConflicts(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.drafts.Insert(context.Background(), seededDraft(domain.DraftStatusApproved)))

	// Another writer bumps the version while the sink call is in flight.
	fx.sink.fn = func(collaborators.Post) (*collaborators.PostRef, error) {
		fx.drafts.drafts["draft-1"].Version++
		return &collaborators.PostRef{ExternalID: "42"}, nil
	}

	_, err := fx.machine.Publish(context.Background(), "draft-1")
	assert.ErrorIs(t, err, domain.ErrConflict)

	stored, _ := fx.drafts.GetByID(context.Background(), "draft-1")
	assert.Equal(t, domain.DraftStatusApproved, stored.Status)
}

func TestMachine_CreateFromItem(t *testing.T) {
	imageURL := "https://img.example/a.jpg"
	item := &domain.NewsItem{
		ID:          "item-1",
		WorkspaceID: "ws-1",
		Headline:    "Flooding in the delta",
		Summary:     "Rivers crested overnight.",
		ImageURL:    &imageURL,
		Status:      domain.ItemStatusNew,
	}

	fx := newFixture(t, func(deps *Deps) {
		deps.Items = newFakeItemStore(item)
		deps.Facts = &fakeFactStore{itemFacts: []collaborators.FactSlot{
			{FactType: "location", Value: "delta region"},
		}}
	})
	fx.images.path = "/images/a.jpg"

	result, err := fx.machine.CreateFromItem(context.Background(), "ws-1", "item-1", "")
	require.NoError(t, err)

	draft := result.Draft
	assert.Equal(t, domain.DraftStatusGenerated, draft.Status)
	assert.Equal(t, "eng_Latn", draft.Language)
	assert.Equal(t, "Generated headline", draft.GeneratedTitle)
	// The sources trailer is stripped before persisting.
	assert.Equal(t, "Generated body text.", draft.Body)
	assert.Equal(t, 3, draft.WordCount)
	require.NotNil(t, draft.OriginNewsID)
	assert.Equal(t, "item-1", *draft.OriginNewsID)
	require.NotNil(t, draft.ImageLocalPath)
	assert.Equal(t, "/images/a.jpg", *draft.ImageLocalPath)
	assert.Equal(t, int64(1), draft.Version)

	require.Len(t, fx.gen.reqs, 1)
	assert.Equal(t, "Flooding in the delta", fx.gen.reqs[0].Headline)
	assert.Len(t, fx.gen.reqs[0].Facts, 1)

	_, stored := fx.drafts.drafts[draft.ID]
	assert.True(t, stored)
}

func TestMachine_CreateFromGroup(t *testing.T) {
	item := &domain.NewsItem{
		ID:          "item-1",
		WorkspaceID: "ws-1",
		Headline:    "Flooding in the delta",
		Summary:     "Rivers crested overnight.",
		Status:      domain.ItemStatusGrouped,
	}
	group := &domain.NewsGroup{
		ID:          "group-1",
		WorkspaceID: "ws-1",
		MemberIDs:   []string{"item-1", "item-2"},
	}

	var items *fakeItemStore
	fx := newFixture(t, func(deps *Deps) {
		items = newFakeItemStore(item)
		deps.Items = items
		deps.Groups = &fakeGroupStore{groups: map[string]*domain.NewsGroup{"group-1": group}}
		deps.Facts = &fakeFactStore{groupFacts: []database.MemberFact{
			{NewsID: "item-1", SourceDomain: "a.example", FactType: "death_toll", Value: "12"},
			{NewsID: "item-2", SourceDomain: "b.example", FactType: "death_toll", Value: "15"},
		}}
	})

	result, err := fx.machine.CreateFromGroup(context.Background(), "ws-1", "group-1", "eng_Latn")
	require.NoError(t, err)

	draft := result.Draft
	require.NotNil(t, draft.OriginGroupID)
	assert.Equal(t, "group-1", *draft.OriginGroupID)
	assert.Equal(t, []string{"group-1"}, items.draftedGroups)
	require.Len(t, fx.gen.reqs, 1)
	assert.Len(t, fx.gen.reqs[0].Facts, 2)
}

func TestMachine_Create_GeneratorUnavailable(t *testing.T) {
	item := &domain.NewsItem{ID: "item-1", WorkspaceID: "ws-1", Status: domain.ItemStatusNew}
	fx := newFixture(t, func(deps *Deps) {
		deps.Items = newFakeItemStore(item)
	})
	fx.gen.err = fmt.Errorf("%w: model unavailable", domain.ErrConfiguration)

	_, err := fx.machine.CreateFromItem(context.Background(), "ws-1", "item-1", "")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Empty(t, fx.drafts.drafts)
	assert.Empty(t, fx.items.draftedItemIDs)
}

func TestMachine_Create_UnsupportedLanguage(t *testing.T) {
	item := &domain.NewsItem{ID: "item-1", WorkspaceID: "ws-1", Status: domain.ItemStatusNew}
	fx := newFixture(t, func(deps *Deps) {
		deps.Items = newFakeItemStore(item)
	})

	_, err := fx.machine.CreateFromItem(context.Background(), "ws-1", "item-1", "klingon")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Empty(t, fx.gen.reqs)
}

func TestMachine_Create_StaleItemRejected(t *testing.T) {
	item := &domain.NewsItem{ID: "item-1", WorkspaceID: "ws-1", Status: domain.ItemStatusStale}
	fx := newFixture(t, func(deps *Deps) {
		deps.Items = newFakeItemStore(item)
	})

	_, err := fx.machine.CreateFromItem(context.Background(), "ws-1", "item-1", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMachine_Create_CancelledContext(t *testing.T) {
	item := &domain.NewsItem{ID: "item-1", WorkspaceID: "ws-1", Status: domain.ItemStatusNew}
	fx := newFixture(t, func(deps *Deps) {
		deps.Items = newFakeItemStore(item)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.machine.CreateFromItem(ctx, "ws-1", "item-1", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fx.gen.reqs)
}

func TestMachine_Translate(t *testing.T) {
	fx := newFixture(t, nil)
	source := seededDraft(domain.DraftStatusHumanEdited)
	require.NoError(t, fx.drafts.Insert(context.Background(), source))

	translator := &staticTranslator{}
	machine := NewMachine(Deps{
		Drafts:       fx.drafts,
		Items:        fx.items,
		Groups:       &fakeGroupStore{},
		Facts:        &fakeFactStore{},
		Generator:    fx.gen,
		Images:       fx.images,
		Sink:         fx.sink,
		Forker:       translate.NewForker(fx.drafts, translator, logger.NewNopLogger()),
		Locks:        workspace.NewLocks(),
		Logger:       logger.NewNopLogger(),
		MinWordCount: 5,
	})

	fork, err := machine.Translate(context.Background(), "draft-1", "ben_Beng")
	require.NoError(t, err)

	assert.Equal(t, "ben_Beng", fork.Language)
	require.NotNil(t, fork.ParentDraftID)
	assert.Equal(t, "draft-1", *fork.ParentDraftID)

	stored, _ := fx.drafts.GetByID(context.Background(), "draft-1")
	assert.Equal(t, domain.DraftStatusHumanEdited, stored.Status)
}

func TestMachine_Translate_DisabledLanguage(t *testing.T) {
	fx := newFixture(t, func(deps *Deps) {
		deps.AllowedLanguages = []string{"eng_Latn"}
	})
	source := seededDraft(domain.DraftStatusHumanEdited)
	require.NoError(t, fx.drafts.Insert(context.Background(), source))

	_, err := fx.machine.Translate(context.Background(), "draft-1", "ben_Beng")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

type staticTranslator struct{}

func (staticTranslator) Translate(_ context.Context, text, _ string) (string, error) {
	return text, nil
}
