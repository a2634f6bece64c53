// Package collaborators defines the contracts for the external services the
// pipeline depends on (embedding, generation, translation, fact extraction,
// image storage, publishing) and provides HTTP clients for them.
//
// Only the input/output contracts matter to the pipeline; model internals
// live behind these interfaces.
package collaborators

import (
	"context"
	"time"
)

// EmbeddingOracle maps text to a fixed-dimension vector comparable by cosine
// similarity. A failure makes the affected item a singleton group; it is
// logged and never fatal to ingestion.
type EmbeddingOracle interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// GenerateRequest carries the inputs for draft generation: the group's
// headline, summary, and the verified facts to include.
type GenerateRequest struct {
	Headline string     `json:"headline"`
	Summary  string     `json:"summary"`
	Facts    []FactSlot `json:"facts,omitempty"`
}

// GenerateResult is the generator's output.
type GenerateResult struct {
	Title string `json:"title"`
	Body  string `json:"body"`

	// TitleSuggestions are alternative headlines offered to the editor.
	TitleSuggestions []string `json:"title_suggestions,omitempty"`
}

// Generator produces draft text. An unavailable backend is a configuration
// error: draft creation fails outright rather than falling back to template
// content, so every draft body is attributable to the model or to a human.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// Translator translates text into the language identified by an NLLB-style
// code (e.g. "ben_Beng"). Codes are validated against the allow-list before
// invocation.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// FactSlot is one extracted fact: a slot type (date, figure, entity) and its
// asserted value.
type FactSlot struct {
	FactType string `db:"fact_type" json:"fact_type"`
	Value    string `db:"value"     json:"value"`
}

// FactExtractor pulls fact slots out of item text for conflict detection and
// generator prompting.
type FactExtractor interface {
	Extract(ctx context.Context, text string) ([]FactSlot, error)
}

// ImageStore fetches a remote image to local storage. An empty path with a
// nil error means the image was unavailable; drafts proceed without one.
type ImageStore interface {
	Fetch(ctx context.Context, imageURL string) (localPath string, err error)
}

// Post is the payload handed to the publish sink.
type Post struct {
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	ImageLocalPath string            `json:"image_local_path,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// PostRef identifies a published post on the external site.
type PostRef struct {
	ExternalID  string `json:"external_id"`
	ExternalURL string `json:"external_url"`
}

// PublishSink publishes an approved draft. Failures are surfaced verbatim;
// the caller retries at most once for transient errors.
type PublishSink interface {
	Publish(ctx context.Context, post Post) (*PostRef, error)
}

const defaultHTTPTimeout = 60 * time.Second
