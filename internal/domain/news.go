// Package domain contains the core domain models for the newsroom service.
package domain

import (
	"fmt"
	"time"
)

// ItemStatus represents the lifecycle state of an ingested news item.
type ItemStatus string

const (
	ItemStatusNew     ItemStatus = "new"
	ItemStatusGrouped ItemStatus = "grouped"
	ItemStatusDrafted ItemStatus = "drafted"
	ItemStatusStale   ItemStatus = "stale"
)

// itemTransitions is the closed transition table for news items.
// Transitions are monotonic: new→grouped→drafted, stale only from new.
var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemStatusNew:     {ItemStatusGrouped, ItemStatusStale},
	ItemStatusGrouped: {ItemStatusDrafted},
	ItemStatusDrafted: {},
	ItemStatusStale:   {},
}

// CanTransition reports whether moving from s to next is permitted.
func (s ItemStatus) CanTransition(next ItemStatus) bool {
	for _, allowed := range itemTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known item status.
func (s ItemStatus) Valid() bool {
	_, ok := itemTransitions[s]
	return ok
}

// NewsItem is a single ingested headline from one source.
type NewsItem struct {
	ID           string     `db:"id"            json:"id"`
	WorkspaceID  string     `db:"workspace_id"  json:"workspace_id"`
	SourceURL    string     `db:"source_url"    json:"source_url"`
	SourceDomain string     `db:"source_domain" json:"source_domain"`
	Headline     string     `db:"headline"      json:"headline"`
	Summary      string     `db:"summary"       json:"summary"`
	ImageURL     *string    `db:"image_url"     json:"image_url,omitempty"`
	FetchedAt    time.Time  `db:"fetched_at"    json:"fetched_at"`
	Status       ItemStatus `db:"status"        json:"status"`
	GroupID      *string    `db:"group_id"      json:"group_id,omitempty"`
}

// Transition moves the item to next, enforcing the transition table.
func (n *NewsItem) Transition(next ItemStatus) error {
	if !n.Status.CanTransition(next) {
		return fmt.Errorf("%w: news item %s cannot move %s -> %s",
			ErrValidation, n.ID, n.Status, next)
	}
	n.Status = next
	return nil
}
