package usecase

import (
	"errors"
	"fmt"
	"strings"

	adapterai "github.com/resumehq/resume-evaluator/internal/adapter/ai"
	"github.com/resumehq/resume-evaluator/internal/adapter/observability"
	"github.com/resumehq/resume-evaluator/internal/config"
	"github.com/resumehq/resume-evaluator/internal/domain"
	"github.com/resumehq/resume-evaluator/internal/prompt"
	"github.com/resumehq/resume-evaluator/internal/service/ratelimiter"
)

// ChatService continues a grounded conversation about the user's most recent
// evaluation.
type ChatService struct {
	cfg      config.Config
	registry *adapterai.Registry
	users    domain.UserRepository
	evals    domain.EvaluationRepository
	chats    domain.ChatRepository
	limiter  ratelimiter.Limiter
}

// NewChatService wires a ChatService.
func NewChatService(cfg config.Config, registry *adapterai.Registry, users domain.UserRepository, evals domain.EvaluationRepository, chats domain.ChatRepository, limiter ratelimiter.Limiter) ChatService {
	return ChatService{cfg: cfg, registry: registry, users: users, evals: evals, chats: chats, limiter: limiter}
}

// Chat sends the user's message with transcript context and returns the bot
// reply. Both turns are persisted only after the provider call succeeds, so a
// failed call leaves the transcript untouched.
func (s ChatService) Chat(ctx domain.Context, userID, message, requestedProvider string) (domain.ChatMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.ChatMessage{}, fmt.Errorf("op=chat: %w: empty message", domain.ErrInvalidArgument)
	}

	preference := ""
	if requestedProvider == "" {
		u, err := s.users.Get(ctx, userID)
		if err != nil {
			return domain.ChatMessage{}, fmt.Errorf("op=chat: %w", err)
		}
		preference = u.ModelPreference
	}
	provider, err := s.registry.ResolveFor(requestedProvider, preference)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("op=chat: %w", err)
	}

	if s.limiter != nil {
		allowed, retryAfter, lerr := s.limiter.Allow(ctx, "ai:"+provider.Name())
		if lerr == nil && !allowed {
			return domain.ChatMessage{}, fmt.Errorf("op=chat: %w: provider=%s retry_after=%s", domain.ErrRateLimited, provider.Name(), retryAfter)
		}
	}

	history, err := s.chats.ListByUser(ctx, userID, s.cfg.ChatHistoryLimit)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("op=chat: %w", err)
	}

	grounding, err := s.latestEvaluation(ctx, userID)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	p := prompt.BuildChat(history, message, grounding)
	observability.PromptTokensHistogram.WithLabelValues("chat").Observe(float64(prompt.TokenEstimate(p)))

	res, err := provider.Generate(ctx, p)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("op=chat: %w", err)
	}
	reply := strings.TrimSpace(res.Text)
	if reply == "" {
		return domain.ChatMessage{}, fmt.Errorf("op=chat: %w: provider=%s", domain.ErrAnalysisFailed, provider.Name())
	}

	if _, err := s.chats.Append(ctx, domain.ChatMessage{UserID: userID, Sender: domain.SenderUser, Text: message}); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("op=chat: %w", err)
	}
	botTurn := domain.ChatMessage{UserID: userID, Sender: domain.SenderBot, Text: reply}
	id, err := s.chats.Append(ctx, botTurn)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("op=chat: %w", err)
	}
	botTurn.ID = id
	return botTurn, nil
}

// History returns the user's transcript, oldest first.
func (s ChatService) History(ctx domain.Context, userID string) ([]domain.ChatMessage, error) {
	msgs, err := s.chats.ListByUser(ctx, userID, s.cfg.ChatHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("op=chat.history: %w", err)
	}
	return msgs, nil
}

// latestEvaluation fetches grounding context; a user with no evaluations yet
// simply chats ungrounded.
func (s ChatService) latestEvaluation(ctx domain.Context, userID string) (*domain.Evaluation, error) {
	e, err := s.evals.LatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("op=chat.latest_evaluation: %w", err)
	}
	return &e, nil
}
