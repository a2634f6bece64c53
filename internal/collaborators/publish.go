package collaborators

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jonesrussell/newsroom/internal/domain"
)

// PublishClient posts approved drafts to the external publish sink.
type PublishClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewPublishClient creates a publish sink client.
func NewPublishClient(baseURL, token string) (*PublishClient, error) {
	if baseURL == "" {
		return nil, errors.New("publish URL is required")
	}
	return &PublishClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}, nil
}

type publishResponse struct {
	ExternalID  string `json:"external_id"`
	ExternalURL string `json:"external_url"`
	Error       string `json:"error"`
}

// Publish sends the post to the sink and returns the external reference.
// Auth failures are configuration errors; network and 5xx responses are
// transient and the lifecycle service retries them exactly once.
func (c *PublishClient) Publish(ctx context.Context, post Post) (*PostRef, error) {
	body, err := json.Marshal(post)
	if err != nil {
		return nil, fmt.Errorf("marshal post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/posts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: publish request: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: publish sink rejected credentials (status %d)", domain.ErrConfiguration, resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: publish status %d: %s", domain.ErrTransient, resp.StatusCode, string(msg))
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: publish status %d: %s", domain.ErrValidation, resp.StatusCode, string(msg))
	}

	var result publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode publish response: %v", domain.ErrTransient, err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("%w: publish sink error: %s", domain.ErrTransient, result.Error)
	}
	if result.ExternalID == "" {
		return nil, fmt.Errorf("%w: publish sink returned no post id", domain.ErrTransient)
	}

	return &PostRef{ExternalID: result.ExternalID, ExternalURL: result.ExternalURL}, nil
}
