package ai

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"

	"github.com/resumehq/resume-evaluator/internal/config"
	"github.com/resumehq/resume-evaluator/internal/domain"
)

// NewBackOff builds the shared retry policy for provider calls: exponential
// backoff bounded by the configured elapsed-time ceiling and capped at
// AIMaxAttempts total attempts. Adapters mark non-transient failures with
// backoff.Permanent so only busy, timeout and server-side errors are retried.
func NewBackOff(ctx context.Context, cfg config.Config) backoff.BackOff {
	maxElapsed, initial, maxInterval, multiplier := cfg.GetAIBackoffConfig()
	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime = maxElapsed
	expo.InitialInterval = initial
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier

	var bo backoff.BackOff = expo
	if cfg.AIMaxAttempts > 0 {
		bo = backoff.WithMaxRetries(bo, uint64(cfg.AIMaxAttempts-1))
	}
	return backoff.WithContext(bo, ctx)
}

// Outcome buckets a provider-call error into the label set used by the
// ai_requests_total metric.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrProviderBusy):
		return "busy"
	case errors.Is(err, domain.ErrProviderTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
