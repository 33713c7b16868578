// Package ollama talks to a local Ollama-compatible daemon over its
// /api/generate endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/resumehq/resume-evaluator/internal/adapter/ai"
	"github.com/resumehq/resume-evaluator/internal/adapter/observability"
	"github.com/resumehq/resume-evaluator/internal/config"
	"github.com/resumehq/resume-evaluator/internal/domain"
	obs "github.com/resumehq/resume-evaluator/internal/observability"
)

// Client implements domain.Provider against a local model daemon.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	cfg        config.Config
}

// New creates an Ollama client from configuration. The HTTP client timeout is
// the per-attempt budget; retries on top of it are governed by the shared
// backoff policy.
func New(cfg config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.OllamaTimeout},
		baseURL:    strings.TrimRight(cfg.OllamaBaseURL, "/"),
		model:      cfg.OllamaModel,
		cfg:        cfg,
	}
}

// Name returns the provider tag.
func (c *Client) Name() string { return domain.ProviderOllama }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate runs a single-shot completion. Transient failures (timeouts,
// connection resets, 429 and 5xx responses) are retried with exponential
// backoff; anything else fails permanently on the first attempt.
func (c *Client) Generate(ctx domain.Context, prompt string) (domain.ProviderResult, error) {
	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return domain.ProviderResult{}, fmt.Errorf("op=ollama.Generate marshal: %w", err)
	}

	log := obs.LoggerFromContext(ctx)
	start := time.Now()

	var result domain.ProviderResult
	op := func() error {
		res, opErr := c.doGenerate(ctx, body)
		if opErr != nil {
			return opErr
		}
		result = res
		return nil
	}
	err = backoff.Retry(op, ai.NewBackOff(ctx, c.cfg))
	observability.ObserveAICall(domain.ProviderOllama, ai.Outcome(err), time.Since(start))
	if err != nil {
		log.Warn("ollama generate failed", "error", err, "model", c.model)
		return domain.ProviderResult{}, fmt.Errorf("op=ollama.Generate: %w", err)
	}
	return result, nil
}

func (c *Client) doGenerate(ctx context.Context, body []byte) (domain.ProviderResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return domain.ProviderResult{}, backoff.Permanent(fmt.Errorf("%w: build request: %v", domain.ErrProviderError, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ProviderResult{}, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return domain.ProviderResult{}, fmt.Errorf("%w: read response: %v", domain.ErrProviderError, err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.ProviderResult{}, classifyStatus(resp.StatusCode, raw)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.ProviderResult{}, backoff.Permanent(fmt.Errorf("%w: decode response: %v", domain.ErrProviderError, err))
	}
	return domain.ProviderResult{Text: out.Response, Raw: json.RawMessage(raw)}, nil
}

// classifyTransportError maps connection-level failures. An unreachable
// daemon is a configuration problem and not worth retrying; timeouts and
// resets are transient.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrProviderTimeout, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrProviderTimeout, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err))
	}
	return fmt.Errorf("%w: %v", domain.ErrProviderError, err)
}

func classifyStatus(code int, body []byte) error {
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	switch {
	case code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: status=%d body=%q", domain.ErrProviderBusy, code, snippet)
	case code >= 500:
		return fmt.Errorf("%w: status=%d body=%q", domain.ErrProviderError, code, snippet)
	case code == http.StatusNotFound:
		// Unknown model name is the common cause here.
		return backoff.Permanent(fmt.Errorf("%w: status=%d body=%q", domain.ErrProviderUnavailable, code, snippet))
	default:
		return backoff.Permanent(fmt.Errorf("%w: status=%d body=%q", domain.ErrProviderError, code, snippet))
	}
}
