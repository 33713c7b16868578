// Package domain defines the core entities, error taxonomy, and ports of the
// resume evaluator service.
package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrRateLimited     = errors.New("rate limited")
	// ErrProviderUnavailable covers missing credentials or an unreachable
	// backend; never retried.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrProviderTimeout covers calls exceeding their wall-clock budget.
	ErrProviderTimeout = errors.New("provider timeout")
	// ErrProviderBusy is the single user-facing translation of vendor
	// rate-limit/overload vocabularies ("service busy, retry shortly").
	ErrProviderBusy = errors.New("provider busy")
	// ErrProviderError covers other non-success responses and malformed payloads.
	ErrProviderError = errors.New("provider error")
	// ErrAnalysisFailed signals the model produced no usable evaluation output.
	ErrAnalysisFailed = errors.New("analysis failed")
	ErrInternal       = errors.New("internal error")
)

// Provider tags recognized by the registry.
const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// User is an account holder. ModelPreference stores the provider tag used when
// a request carries none.
type User struct {
	ID              string
	Email           string
	PasswordHash    string
	ModelPreference string
	CreatedAt       time.Time
}

// Evaluation is the structured record produced by the response parser.
// Invariants: Score in [0,10] with 0 meaning "not extracted"; Strengths and
// Weaknesses are never nil; immutable once persisted.
type Evaluation struct {
	ID         string
	UserID     string
	ResumeText string
	Role       string
	Provider   string
	Score      float64
	Strengths  []string
	Weaknesses []string
	Comments   string
	CreatedAt  time.Time
}

// Empty reports whether every extractable field is simultaneously absent,
// which callers treat as total analysis failure rather than partial data.
func (e Evaluation) Empty() bool {
	return e.Score == 0 && len(e.Strengths) == 0 && len(e.Weaknesses) == 0 && e.Comments == ""
}

// ProviderResult is the normalized shape every adapter returns. Raw keeps the
// vendor payload for diagnostics only; nothing downstream parses it.
type ProviderResult struct {
	Text string
	Raw  json.RawMessage
}

// ChatSender enumerates transcript roles.
type ChatSender string

// Transcript roles.
const (
	SenderUser ChatSender = "user"
	SenderBot  ChatSender = "bot"
)

// ChatMessage is one turn of a persisted, append-only transcript.
type ChatMessage struct {
	ID        string
	UserID    string
	Sender    ChatSender
	Text      string
	CreatedAt time.Time
}

// Repositories (ports)

type UserRepository interface {
	Create(ctx Context, u User) (string, error)
	Get(ctx Context, id string) (User, error)
	GetByEmail(ctx Context, email string) (User, error)
	UpdateModelPreference(ctx Context, id, preference string) error
}

type EvaluationRepository interface {
	Create(ctx Context, e Evaluation) (string, error)
	Get(ctx Context, id string) (Evaluation, error)
	LatestByUser(ctx Context, userID string) (Evaluation, error)
}

type ChatRepository interface {
	Append(ctx Context, m ChatMessage) (string, error)
	ListByUser(ctx Context, userID string, limit int) ([]ChatMessage, error)
}

// Provider (port)
//
// Generate sends one prompt to an LLM backend and returns its normalized
// reply. Implementations own their timeout and retry policy and must not
// mutate shared state.
type Provider interface {
	Name() string
	Generate(ctx Context, prompt string) (ProviderResult, error)
}

// TextExtractor (port)
// Extract returns sanitized plain text from an uploaded document.
type TextExtractor interface {
	Extract(ctx Context, filename string, data []byte) (string, error)
}

// Context is an alias so the domain does not import std context everywhere;
// adapters and usecases pass context.Context through.
type Context = context.Context
