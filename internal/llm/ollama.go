package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	qaerrors "github.com/docqa/docqa/internal/errors"
)

// OllamaClient generates completions via Ollama's /api/generate endpoint.
type OllamaClient struct {
	client    *http.Client
	transport *http.Transport
	config    OllamaConfig

	mu     sync.RWMutex
	closed bool
}

// OllamaConfig configures the Ollama generation client.
type OllamaConfig struct {
	// BackendURL is the Ollama API endpoint (default: http://localhost:11434)
	BackendURL string

	// Model is the generation model (default: tinyllama)
	Model string

	// Timeout bounds a single generation request (default: 120s)
	Timeout time.Duration
}

// DefaultOllamaConfig returns sensible defaults.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		BackendURL: DefaultBackendURL,
		Model:      DefaultModel,
		Timeout:    120 * time.Second,
	}
}

// ollamaGenerateRequest is the /api/generate request body.
type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// ollamaGenerateResponse is the /api/generate response body (stream=false).
type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// ollamaTagsResponse is the /api/tags response body.
type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

var _ Client = (*OllamaClient)(nil)

// NewOllamaClient creates a generation client. No health check happens
// here; backends are probed lazily so the CLI can report a precise error
// at the point of use.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.BackendURL == "" {
		cfg.BackendURL = DefaultBackendURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        2,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}

	// Per-request timeouts come from contexts in Generate, not from
	// http.Client.Timeout.
	return &OllamaClient{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
	}
}

// Generate returns the model's completion for the prompt.
// Failure modes are discriminated: unreachable backend, generation
// timeout, and malformed responses each carry their own error code so the
// caller can decide whether a retry is worthwhile.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return "", fmt.Errorf("llm client is closed")
	}
	c.mu.RUnlock()

	reqBody := ollamaGenerateRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: false,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", qaerrors.InternalError("failed to marshal generation request", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	url := c.config.BackendURL + "/api/generate"
	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", qaerrors.InternalError("failed to build generation request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", c.classifyTransportError(ctx, timeoutCtx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", qaerrors.New(qaerrors.ErrCodeBackendResponse,
			fmt.Sprintf("generation failed with status %d: %s",
				resp.StatusCode, strings.TrimSpace(string(respBody))), nil)
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", qaerrors.New(qaerrors.ErrCodeBackendResponse,
			"backend returned an undecodable generation response", err)
	}

	slog.Debug("generation_complete",
		slog.String("model", c.config.Model),
		slog.Duration("duration", time.Since(start)),
		slog.Int("response_chars", len(result.Response)))

	return strings.TrimSpace(result.Response), nil
}

// classifyTransportError maps a transport failure to the right error code.
// A deadline on the generation timeout context is a timeout; everything
// else (refused connections, DNS failures) means the backend is down.
func (c *OllamaClient) classifyTransportError(parent, timeoutCtx context.Context, err error) error {
	// Caller cancellation is not a backend failure
	if parent.Err() != nil {
		return parent.Err()
	}

	var netErr net.Error
	timedOut := errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout())
	if timedOut {
		return qaerrors.GenerationTimeout(
			fmt.Sprintf("generation did not finish within %s", c.config.Timeout), err).
			WithSuggestion("increase llm.timeout_seconds or use a smaller model")
	}

	return qaerrors.BackendUnavailable(
		fmt.Sprintf("cannot reach LLM backend at %s", c.config.BackendURL), err).
		WithSuggestion("check that ollama is running ('ollama serve')")
}

// Available reports whether the backend answers /api/tags and the
// configured model is installed.
func (c *OllamaClient) Available(ctx context.Context) bool {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return false
	}
	c.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, c.config.BackendURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}

	modelLower := strings.ToLower(c.config.Model)
	for _, m := range tags.Models {
		name := strings.ToLower(m.Name)
		if name == modelLower || strings.Split(name, ":")[0] == modelLower {
			return true
		}
	}
	return false
}

// ModelName returns the generation model identifier.
func (c *OllamaClient) ModelName() string {
	return c.config.Model
}

// Close releases resources.
func (c *OllamaClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return nil
}
