// Package gemini adapts the Google Gemini API behind the provider port.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/genai"

	"github.com/resumehq/resume-evaluator/internal/adapter/ai"
	"github.com/resumehq/resume-evaluator/internal/adapter/observability"
	"github.com/resumehq/resume-evaluator/internal/config"
	"github.com/resumehq/resume-evaluator/internal/domain"
	obs "github.com/resumehq/resume-evaluator/internal/observability"
)

// contentGenerator is the slice of *genai.Models we call, kept as an
// interface so tests can inject canned responses and APIError values.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements domain.Provider against the hosted Gemini API.
type Client struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	cfg     config.Config
}

// New creates a Gemini client. A missing API key makes the provider
// unavailable at construction time rather than on first call.
func New(ctx context.Context, cfg config.Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is not configured", domain.ErrProviderUnavailable)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("op=gemini.New: %w", err)
	}

	return &Client{
		models:  client.Models,
		model:   cfg.GeminiModel,
		timeout: cfg.GeminiTimeout,
		cfg:     cfg,
	}, nil
}

// Name returns the provider tag.
func (c *Client) Name() string { return domain.ProviderGemini }

// Generate sends the prompt as a single user turn and joins the text parts of
// the first candidate set. Quota and overload responses are retried with
// backoff and surface as busy when the budget runs out.
func (c *Client) Generate(ctx domain.Context, prompt string) (domain.ProviderResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log := obs.LoggerFromContext(ctx)
	start := time.Now()

	var result domain.ProviderResult
	op := func() error {
		resp, err := c.models.GenerateContent(callCtx, c.model, genai.Text(prompt), nil)
		if err != nil {
			return classifyError(err)
		}
		text := joinCandidates(resp)
		if text == "" {
			return backoff.Permanent(fmt.Errorf("%w: empty gemini response", domain.ErrProviderError))
		}
		raw, err := json.Marshal(resp)
		if err != nil {
			raw = nil
		}
		result = domain.ProviderResult{Text: text, Raw: raw}
		return nil
	}
	err := backoff.Retry(op, ai.NewBackOff(callCtx, c.cfg))
	observability.ObserveAICall(domain.ProviderGemini, ai.Outcome(err), time.Since(start))
	if err != nil {
		log.Warn("gemini generate failed", "error", err, "model", c.model)
		return domain.ProviderResult{}, fmt.Errorf("op=gemini.Generate: %w", err)
	}
	return result, nil
}

func joinCandidates(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || strings.TrimSpace(part.Text) == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(strings.TrimSpace(part.Text))
		}
	}
	return strings.TrimSpace(b.String())
}

// classifyError maps genai API errors onto the provider error taxonomy.
// Overload (503), resource exhaustion (429) and internal errors are retried;
// auth and request errors are permanent.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrProviderTimeout, err))
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code == http.StatusServiceUnavailable:
			return fmt.Errorf("%w: %v", domain.ErrProviderBusy, err)
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err))
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: %v", domain.ErrProviderError, err)
		default:
			return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrProviderError, err))
		}
	}

	if strings.Contains(strings.ToLower(err.Error()), "overloaded") {
		return fmt.Errorf("%w: %v", domain.ErrProviderBusy, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrProviderError, err)
}
