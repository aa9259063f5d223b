package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qaerrors "github.com/docqa/docqa/internal/errors"
)

// newOllamaServer builds an httptest server that answers /api/tags with the
// given installed models and /api/embed with fixed-dimension vectors.
func newOllamaServer(t *testing.T, installed []string, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			models := make([]OllamaModelInfo, len(installed))
			for i, name := range installed {
				models[i] = OllamaModelInfo{Name: name}
			}
			_ = json.NewEncoder(w).Encode(OllamaModelListResponse{Models: models})

		case "/api/embed":
			var req OllamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			count := 1
			if texts, ok := req.Input.([]any); ok {
				count = len(texts)
			}
			embeddings := make([][]float64, count)
			for i := range embeddings {
				vec := make([]float64, dims)
				vec[0] = 1.0
				embeddings[i] = vec
			}
			_ = json.NewEncoder(w).Encode(OllamaEmbedResponse{
				Model:      req.Model,
				Embeddings: embeddings,
			})

		default:
			http.NotFound(w, r)
		}
	}))
}

func TestOllamaEmbedder_HealthCheckAndDimensions(t *testing.T) {
	srv := newOllamaServer(t, []string{"all-minilm:latest"}, 384)
	defer srv.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL

	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "all-minilm:latest", e.ModelName())
	assert.Equal(t, 384, e.Dimensions())
	assert.True(t, e.Available(context.Background()))
}

func TestOllamaEmbedder_ConfiguredModelNotInstalled(t *testing.T) {
	srv := newOllamaServer(t, []string{"nomic-embed-text:latest", "mxbai-embed-large:latest"}, 768)
	defer srv.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL
	cfg.Model = "all-minilm"

	_, err := NewOllamaEmbedder(context.Background(), cfg)
	require.Error(t, err, "other embedding models must not be substituted")
	assert.Equal(t, qaerrors.ErrCodeBackendUnavailable, qaerrors.GetCode(err))
	assert.Contains(t, err.Error(), "all-minilm")
}

func TestOllamaEmbedder_NoModelAvailable(t *testing.T) {
	srv := newOllamaServer(t, []string{"tinyllama:latest"}, 0)
	defer srv.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL

	_, err := NewOllamaEmbedder(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, qaerrors.ErrCodeBackendUnavailable, qaerrors.GetCode(err))
}

func TestOllamaEmbedder_BackendDown(t *testing.T) {
	srv := newOllamaServer(t, []string{"all-minilm"}, 384)
	srv.Close() // Refuse connections

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL

	_, err := NewOllamaEmbedder(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, qaerrors.ErrCodeBackendUnavailable, qaerrors.GetCode(err))
	assert.True(t, qaerrors.IsRetryable(err))
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	srv := newOllamaServer(t, []string{"all-minilm"}, 384)
	defer srv.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL

	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	vec, err := e.Embed(context.Background(), "how do I export a report")
	require.NoError(t, err)
	assert.Len(t, vec, 384)
	assert.InDelta(t, 1.0, float64(vec[0]), 0.001, "server vector is pre-normalized")
}

func TestOllamaEmbedder_EmbedEmptyInput(t *testing.T) {
	srv := newOllamaServer(t, []string{"all-minilm"}, 384)
	defer srv.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL

	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	require.Len(t, vec, 384)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestOllamaEmbedder_EmbedBatch(t *testing.T) {
	srv := newOllamaServer(t, []string{"all-minilm"}, 384)
	defer srv.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL
	cfg.BatchSize = 2

	var completed atomic.Int64
	cfg.ProgressFunc = func(done, total int) {
		completed.Store(int64(done))
	}

	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	results, err := e.EmbedBatch(context.Background(), []string{"a", "b", "", "d"})
	require.NoError(t, err)
	require.Len(t, results, 4)

	for _, v := range results[2] {
		assert.Zero(t, v, "empty text gets a zero vector without an API call")
	}
	assert.Equal(t, int64(3), completed.Load(), "progress reports non-empty texts")
}

func TestOllamaEmbedder_RetryOnTransientFailure(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(OllamaEmbedResponse{
			Embeddings: [][]float64{{1, 0, 0}},
		})
	}))
	defer srv.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL
	cfg.SkipHealthCheck = true
	cfg.Dimensions = 3

	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	vec, err := e.Embed(context.Background(), "retry me")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
	assert.Equal(t, int64(2), calls.Load())
}

func TestOllamaEmbedder_ExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL
	cfg.SkipHealthCheck = true
	cfg.Dimensions = 3
	cfg.MaxRetries = 2

	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, err = e.Embed(context.Background(), "doomed")
	require.Error(t, err)
	assert.Equal(t, qaerrors.ErrCodeBackendUnavailable, qaerrors.GetCode(err))
}

func TestOllamaEmbedder_ContextCancelled(t *testing.T) {
	cfg := DefaultOllamaConfig()
	cfg.Host = "http://localhost:1" // Nothing listening
	cfg.SkipHealthCheck = true
	cfg.Dimensions = 3

	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Embed(ctx, "cancelled")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOllamaEmbedder_ClosedRejectsCalls(t *testing.T) {
	cfg := DefaultOllamaConfig()
	cfg.SkipHealthCheck = true
	cfg.Dimensions = 3

	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, e.Close())

	_, err = e.Embed(context.Background(), "closed")
	assert.Error(t, err)
	assert.False(t, e.Available(context.Background()))
}
