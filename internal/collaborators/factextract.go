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

// FactExtractorClient calls the fact-extraction service over HTTP.
type FactExtractorClient struct {
	baseURL string
	client  *http.Client
}

// NewFactExtractorClient creates a fact extractor client.
func NewFactExtractorClient(baseURL string) *FactExtractorClient {
	return &FactExtractorClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
}

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	Facts []FactSlot `json:"facts"`
}

// Extract pulls fact slots (dates, quoted figures, named entities) from text.
func (c *FactExtractorClient) Extract(ctx context.Context, text string) ([]FactSlot, error) {
	body, err := json.Marshal(extractRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: extract request: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: extract status %d: %s", domain.ErrTransient, resp.StatusCode, string(msg))
	}

	var result extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode extract response: %v", domain.ErrTransient, err)
	}

	return result.Facts, nil
}
