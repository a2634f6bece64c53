package collaborators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/newsroom/internal/domain"
)

// EmbeddingClient calls an embedding inference endpoint over HTTP.
type EmbeddingClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewEmbeddingClient creates an embedding client. ratePerSecond bounds
// request throughput toward the model host; burst matches the rate.
func NewEmbeddingClient(baseURL string, ratePerSecond float64) *EmbeddingClient {
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}
	return &EmbeddingClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), int(ratePerSecond)+1),
	}
}

type embeddingRequest struct {
	Text string `json:"text"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed requests a vector for text. Network and server failures are
// transient; the caller degrades to a singleton group.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrValidation)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: embedding rate wait: %v", domain.ErrTransient, err)
	}

	body, err := json.Marshal(embeddingRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding request: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: embedding status %d: %s", domain.ErrTransient, resp.StatusCode, string(msg))
	}

	var result embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode embedding response: %v", domain.ErrTransient, err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", domain.ErrTransient)
	}

	return result.Embedding, nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is zero or the dimensions differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
