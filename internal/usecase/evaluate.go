// Package usecase contains the application services that sequence prompt
// construction, provider calls, parsing and persistence.
package usecase

import (
	"fmt"
	"time"

	adapterai "github.com/resumehq/resume-evaluator/internal/adapter/ai"
	"github.com/resumehq/resume-evaluator/internal/adapter/observability"
	"github.com/resumehq/resume-evaluator/internal/config"
	"github.com/resumehq/resume-evaluator/internal/domain"
	obs "github.com/resumehq/resume-evaluator/internal/observability"
	"github.com/resumehq/resume-evaluator/internal/prompt"
	"github.com/resumehq/resume-evaluator/internal/service/ratelimiter"
	"github.com/resumehq/resume-evaluator/pkg/textx"
)

// EvaluateService runs the resume evaluation pipeline: resolve a provider,
// build the prompt, call the model, parse and validate its reply.
type EvaluateService struct {
	cfg      config.Config
	registry *adapterai.Registry
	users    domain.UserRepository
	limiter  ratelimiter.Limiter
}

// NewEvaluateService wires an EvaluateService.
func NewEvaluateService(cfg config.Config, registry *adapterai.Registry, users domain.UserRepository, limiter ratelimiter.Limiter) EvaluateService {
	return EvaluateService{cfg: cfg, registry: registry, users: users, limiter: limiter}
}

// Evaluate analyzes resumeText against role and returns the validated record.
// requestedProvider may be empty; selection falls back to the user's stored
// preference and then the system default. The record is not persisted here;
// storing it is the caller's job.
func (s EvaluateService) Evaluate(ctx domain.Context, userID, resumeText, role, requestedProvider string) (domain.Evaluation, error) {
	if textx.Sanitize(resumeText) == "" {
		return domain.Evaluation{}, fmt.Errorf("op=evaluate: %w: empty resume text", domain.ErrInvalidArgument)
	}
	if role == "" {
		return domain.Evaluation{}, fmt.Errorf("op=evaluate: %w: empty role", domain.ErrInvalidArgument)
	}

	provider, err := s.resolveProvider(ctx, userID, requestedProvider)
	if err != nil {
		return domain.Evaluation{}, err
	}

	if err := s.acquire(ctx, provider.Name()); err != nil {
		return domain.Evaluation{}, err
	}

	p := prompt.BuildEvaluation(resumeText, role, s.cfg.MaxCharsFor(provider.Name()))
	observability.PromptTokensHistogram.WithLabelValues("evaluation").Observe(float64(prompt.TokenEstimate(p)))

	log := obs.LoggerFromContext(ctx)
	start := time.Now()
	res, err := provider.Generate(ctx, p)
	if err != nil {
		observability.EvaluationsTotal.WithLabelValues(provider.Name(), "rejected").Inc()
		return domain.Evaluation{}, fmt.Errorf("op=evaluate: %w", err)
	}

	eval := adapterai.ParseEvaluation(res.Text)
	if eval.Empty() {
		observability.EvaluationsTotal.WithLabelValues(provider.Name(), "rejected").Inc()
		log.Warn("model reply yielded no evaluation fields",
			"provider", provider.Name(), "reply_snippet", textx.Snippet(res.Text, 200))
		return domain.Evaluation{}, fmt.Errorf("op=evaluate: %w: provider=%s", domain.ErrAnalysisFailed, provider.Name())
	}

	eval.UserID = userID
	eval.ResumeText = resumeText
	eval.Role = role
	eval.Provider = provider.Name()

	observability.EvaluationsTotal.WithLabelValues(provider.Name(), "validated").Inc()
	observability.EvaluationScoreHistogram.Observe(eval.Score)
	log.Info("evaluation completed",
		"provider", provider.Name(), "score", eval.Score,
		"strengths", len(eval.Strengths), "weaknesses", len(eval.Weaknesses),
		"duration_ms", time.Since(start).Milliseconds())
	return eval, nil
}

// resolveProvider applies the selection precedence: request tag, then stored
// preference, then default. The user lookup is skipped when the request
// already names a provider.
func (s EvaluateService) resolveProvider(ctx domain.Context, userID, requested string) (domain.Provider, error) {
	preference := ""
	if requested == "" && userID != "" {
		u, err := s.users.Get(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("op=evaluate.resolve_provider: %w", err)
		}
		preference = u.ModelPreference
	}
	provider, err := s.registry.ResolveFor(requested, preference)
	if err != nil {
		return nil, fmt.Errorf("op=evaluate.resolve_provider: %w", err)
	}
	return provider, nil
}

func (s EvaluateService) acquire(ctx domain.Context, tag string) error {
	if s.limiter == nil {
		return nil
	}
	allowed, retryAfter, err := s.limiter.Allow(ctx, "ai:"+tag)
	if err != nil {
		// Limiter failures already logged; the call proceeds.
		return nil
	}
	if !allowed {
		return fmt.Errorf("op=evaluate.acquire: %w: provider=%s retry_after=%s", domain.ErrRateLimited, tag, retryAfter)
	}
	return nil
}
