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

// TranslatorClient calls the translation service over HTTP.
type TranslatorClient struct {
	baseURL string
	client  *http.Client
}

// NewTranslatorClient creates a translator client.
func NewTranslatorClient(baseURL string) *TranslatorClient {
	return &TranslatorClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
}

type translateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
}

type translateResponse struct {
	Translation string `json:"translation"`
}

// Translate requests a translation of text into targetLanguage. The language
// code must already have passed allow-list validation.
func (c *TranslatorClient) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	body, err := json.Marshal(translateRequest{Text: text, TargetLanguage: targetLanguage})
	if err != nil {
		return "", fmt.Errorf("marshal translate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: translate request: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: translate status %d: %s", domain.ErrTransient, resp.StatusCode, string(msg))
	}

	var result translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decode translate response: %v", domain.ErrTransient, err)
	}
	if result.Translation == "" {
		return "", fmt.Errorf("%w: empty translation returned", domain.ErrTransient)
	}

	return result.Translation, nil
}
