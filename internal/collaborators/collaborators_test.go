package collaborators_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/newsroom/internal/collaborators"
	"github.com/jonesrussell/newsroom/internal/domain"
)

func TestCosineSimilarity(t *testing.T) {
	t.Helper()

	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical vectors", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal vectors", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite vectors", []float64{1, 0}, []float64{-1, 0}, -1},
		{"dimension mismatch", []float64{1, 2}, []float64{1, 2, 3}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
		{"empty vectors", nil, nil, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, collaborators.CosineSimilarity(tc.a, tc.b), 1e-9)
		})
	}
}

func TestEmbeddingClient_Embed(t *testing.T) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embedding": [0.1, 0.2, 0.3]}`))
	}))
	defer server.Close()

	client := collaborators.NewEmbeddingClient(server.URL, 100)
	vec, err := client.Embed(context.Background(), "Fed raises interest rates")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
}

func TestEmbeddingClient_ServerErrorIsTransient(t *testing.T) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := collaborators.NewEmbeddingClient(server.URL, 100)
	_, err := client.Embed(context.Background(), "headline")
	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestGeneratorClient_ModelUnavailable(t *testing.T) {
	t.Helper()

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantErr  error
		wantText bool
	}{
		{
			name: "successful generation",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"title": "Rate hike", "body": "The central bank raised rates."}`))
			},
			wantText: true,
		},
		{
			name: "model unavailable response is a configuration error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"error_code": "model_unavailable", "error_message": "no backend"}`))
			},
			wantErr: domain.ErrConfiguration,
		},
		{
			name: "service unavailable status is a configuration error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			wantErr: domain.ErrConfiguration,
		},
		{
			name: "generation error is transient",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"error_code": "generation_error", "error_message": "oom"}`))
			},
			wantErr: domain.ErrTransient,
		},
		{
			name: "empty body is transient",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"title": "t", "body": ""}`))
			},
			wantErr: domain.ErrTransient,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			client := collaborators.NewGeneratorClient(server.URL)
			result, err := client.Generate(context.Background(), collaborators.GenerateRequest{Headline: "h"})

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			if tc.wantText {
				assert.NotEmpty(t, result.Body)
			}
		})
	}
}

func TestPublishClient_StatusMapping(t *testing.T) {
	t.Helper()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"created", http.StatusCreated, `{"external_id": "42", "external_url": "https://site/42"}`, nil},
		{"unauthorized is configuration", http.StatusUnauthorized, `{}`, domain.ErrConfiguration},
		{"server error is transient", http.StatusInternalServerError, `{}`, domain.ErrTransient},
		{"bad request is validation", http.StatusBadRequest, `{}`, domain.ErrValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client, err := collaborators.NewPublishClient(server.URL, "token")
			require.NoError(t, err)

			ref, err := client.Publish(context.Background(), collaborators.Post{Title: "t", Body: "b"})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "42", ref.ExternalID)
		})
	}
}
