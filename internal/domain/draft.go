package domain

import (
	"strings"
	"time"
)

// DraftStatus represents the state of a draft in its review lifecycle.
type DraftStatus string

const (
	DraftStatusGenerated   DraftStatus = "GENERATED"
	DraftStatusHumanEdited DraftStatus = "HUMAN_EDITED"
	DraftStatusApproved    DraftStatus = "APPROVED"
	DraftStatusPublished   DraftStatus = "PUBLISHED"
)

// draftTransitions is the closed transition table for the draft lifecycle.
// Edit keeps a HUMAN_EDITED draft in place, hence the self-transition.
var draftTransitions = map[DraftStatus][]DraftStatus{
	DraftStatusGenerated:   {DraftStatusHumanEdited},
	DraftStatusHumanEdited: {DraftStatusHumanEdited, DraftStatusApproved},
	DraftStatusApproved:    {DraftStatusPublished},
	DraftStatusPublished:   {},
}

// draftStatusRank orders states along the lifecycle for >= comparisons.
var draftStatusRank = map[DraftStatus]int{
	DraftStatusGenerated:   0,
	DraftStatusHumanEdited: 1,
	DraftStatusApproved:    2,
	DraftStatusPublished:   3,
}

// CanTransition reports whether moving from s to next is permitted.
func (s DraftStatus) CanTransition(next DraftStatus) bool {
	for _, allowed := range draftTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AtLeast reports whether s is at or past min in the lifecycle.
func (s DraftStatus) AtLeast(min DraftStatus) bool {
	return draftStatusRank[s] >= draftStatusRank[min]
}

// Valid reports whether s is a known draft status.
func (s DraftStatus) Valid() bool {
	_, ok := draftTransitions[s]
	return ok
}

// Draft is an article draft moving through the human-review lifecycle.
// A draft is never deleted; the full history is retained for audit.
type Draft struct {
	ID            string  `db:"id"              json:"id"`
	WorkspaceID   string  `db:"workspace_id"    json:"workspace_id"`
	OriginNewsID  *string `db:"origin_news_id"  json:"origin_news_id,omitempty"`
	OriginGroupID *string `db:"origin_group_id" json:"origin_group_id,omitempty"`

	// ParentDraftID is set only on translation forks and points at the
	// draft this one was forked from. The parent is never mutated by a fork.
	ParentDraftID *string `db:"parent_draft_id" json:"parent_draft_id,omitempty"`
	Language      string  `db:"language"        json:"language"`

	Title string `db:"title" json:"title"`
	Body  string `db:"body"  json:"body"`

	// GeneratedTitle is the title as produced by the generator, kept to
	// enforce the approve gate that the human changed it.
	GeneratedTitle string `db:"generated_title" json:"generated_title"`

	ImageLocalPath *string `db:"image_local_path" json:"image_local_path,omitempty"`
	ImageSourceURL *string `db:"image_source_url" json:"image_source_url,omitempty"`

	Status        DraftStatus `db:"status"          json:"status"`
	EditedByHuman bool        `db:"edited_by_human" json:"edited_by_human"`
	WordCount     int         `db:"word_count"      json:"word_count"`

	ExternalPostRef *string `db:"external_post_ref" json:"external_post_ref,omitempty"`

	// Version increments on every persisted mutation and backs the
	// optimistic check after long external calls.
	Version   int64     `db:"version"    json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CountWords returns the whitespace-delimited word count of text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
