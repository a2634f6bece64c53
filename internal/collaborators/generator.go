package collaborators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jonesrussell/newsroom/internal/domain"
)

// GeneratorClient calls the draft-text generation service over HTTP.
type GeneratorClient struct {
	baseURL string
	client  *http.Client
}

// NewGeneratorClient creates a generator client.
func NewGeneratorClient(baseURL string) *GeneratorClient {
	return &GeneratorClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
}

type generateResponse struct {
	Title            string   `json:"title"`
	Body             string   `json:"body"`
	TitleSuggestions []string `json:"title_suggestions"`
	ErrorCode        string   `json:"error_code"`
	ErrorMessage     string   `json:"error_message"`
}

// Generate requests draft text for the given headline, summary, and facts.
// A "model_unavailable" response is a configuration error and fails draft
// creation outright; other generation failures are transient.
func (c *GeneratorClient) Generate(ctx context.Context, genReq GenerateRequest) (*GenerateResult, error) {
	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: generate request: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, fmt.Errorf("%w: generation backend unavailable", domain.ErrConfiguration)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: generate status %d: %s", domain.ErrTransient, resp.StatusCode, string(msg))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode generate response: %v", domain.ErrTransient, err)
	}

	switch result.ErrorCode {
	case "":
	case "model_unavailable":
		return nil, fmt.Errorf("%w: generation backend unavailable: %s", domain.ErrConfiguration, result.ErrorMessage)
	default:
		return nil, fmt.Errorf("%w: generation failed (%s): %s", domain.ErrTransient, result.ErrorCode, result.ErrorMessage)
	}

	if result.Body == "" {
		return nil, fmt.Errorf("%w: generator returned empty text", domain.ErrTransient)
	}

	return &GenerateResult{
		Title:            result.Title,
		Body:             result.Body,
		TitleSuggestions: result.TitleSuggestions,
	}, nil
}
