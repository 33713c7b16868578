// Package openai adapts OpenAI-compatible chat-completion endpoints behind
// the provider port.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/resumehq/resume-evaluator/internal/adapter/ai"
	"github.com/resumehq/resume-evaluator/internal/adapter/observability"
	"github.com/resumehq/resume-evaluator/internal/config"
	"github.com/resumehq/resume-evaluator/internal/domain"
	obs "github.com/resumehq/resume-evaluator/internal/observability"
)

// Client implements domain.Provider against the OpenAI chat completion API.
// A custom BaseURL makes it work with any compatible gateway.
type Client struct {
	client  *goopenai.Client
	model   string
	timeout time.Duration
	cfg     config.Config
}

// New creates an OpenAI client from configuration.
func New(cfg config.Config) (*Client, error) {
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return nil, fmt.Errorf("%w: openai api key is not configured", domain.ErrProviderUnavailable)
	}

	clientCfg := goopenai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.OpenAIBaseURL, "/")
	}

	return &Client{
		client:  goopenai.NewClientWithConfig(clientCfg),
		model:   cfg.OpenAIModel,
		timeout: cfg.OpenAITimeout,
		cfg:     cfg,
	}, nil
}

// Name returns the provider tag.
func (c *Client) Name() string { return domain.ProviderOpenAI }

// Generate sends the prompt as a single user message and returns the first
// choice. Rate limits and server errors are retried with backoff.
func (c *Client) Generate(ctx domain.Context, prompt string) (domain.ProviderResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log := obs.LoggerFromContext(ctx)
	start := time.Now()

	req := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var result domain.ProviderResult
	op := func() error {
		resp, err := c.client.CreateChatCompletion(callCtx, req)
		if err != nil {
			return classifyError(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("%w: no choices in openai response", domain.ErrProviderError))
		}
		raw, err := json.Marshal(resp)
		if err != nil {
			raw = nil
		}
		result = domain.ProviderResult{
			Text: strings.TrimSpace(resp.Choices[0].Message.Content),
			Raw:  raw,
		}
		return nil
	}
	err := backoff.Retry(op, ai.NewBackOff(callCtx, c.cfg))
	observability.ObserveAICall(domain.ProviderOpenAI, ai.Outcome(err), time.Since(start))
	if err != nil {
		log.Warn("openai generate failed", "error", err, "model", c.model)
		return domain.ProviderResult{}, fmt.Errorf("op=openai.Generate: %w", err)
	}
	return result, nil
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrProviderTimeout, err))
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode == http.StatusServiceUnavailable:
			return fmt.Errorf("%w: %v", domain.ErrProviderBusy, err)
		case apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden:
			return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err))
		case apiErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: %v", domain.ErrProviderError, err)
		default:
			return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrProviderError, err))
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrProviderError, err)
}
