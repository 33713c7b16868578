package httpserver

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/resumehq/resume-evaluator/internal/adapter/ai"
	"github.com/resumehq/resume-evaluator/internal/config"
	"github.com/resumehq/resume-evaluator/internal/domain"
	"github.com/resumehq/resume-evaluator/internal/usecase"
)

const testModelReply = `Score: (8.0 out of 10)

Strengths:
- Strong fundamentals
- Relevant experience

Weaknesses:
- Needs more metrics

Comments: Good candidate overall.`

type memUserRepo struct {
	users map[string]domain.User
}

func newMemUserRepo() *memUserRepo { return &memUserRepo{users: map[string]domain.User{}} }

func (r *memUserRepo) Create(_ domain.Context, u domain.User) (string, error) {
	for _, e := range r.users {
		if e.Email == u.Email {
			return "", fmt.Errorf("op=user.create: %w", domain.ErrConflict)
		}
	}
	if u.ID == "" {
		u.ID = "user-" + strconv.Itoa(len(r.users)+1)
	}
	r.users[u.ID] = u
	return u.ID, nil
}

func (r *memUserRepo) Get(_ domain.Context, id string) (domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("op=user.get: %w", domain.ErrNotFound)
	}
	return u, nil
}

func (r *memUserRepo) GetByEmail(_ domain.Context, email string) (domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, fmt.Errorf("op=user.get_by_email: %w", domain.ErrNotFound)
}

func (r *memUserRepo) UpdateModelPreference(_ domain.Context, id, pref string) error {
	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("op=user.update_model_preference: %w", domain.ErrNotFound)
	}
	u.ModelPreference = pref
	r.users[id] = u
	return nil
}

type memEvalRepo struct {
	evals []domain.Evaluation
}

func (r *memEvalRepo) Create(_ domain.Context, e domain.Evaluation) (string, error) {
	e.ID = "eval-" + strconv.Itoa(len(r.evals)+1)
	e.CreatedAt = time.Now().UTC()
	r.evals = append(r.evals, e)
	return e.ID, nil
}

func (r *memEvalRepo) Get(_ domain.Context, id string) (domain.Evaluation, error) {
	for _, e := range r.evals {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.Evaluation{}, fmt.Errorf("op=evaluation.get: %w", domain.ErrNotFound)
}

func (r *memEvalRepo) LatestByUser(_ domain.Context, userID string) (domain.Evaluation, error) {
	for i := len(r.evals) - 1; i >= 0; i-- {
		if r.evals[i].UserID == userID {
			return r.evals[i], nil
		}
	}
	return domain.Evaluation{}, fmt.Errorf("op=evaluation.latest_by_user: %w", domain.ErrNotFound)
}

type memChatRepo struct {
	msgs []domain.ChatMessage
}

func (r *memChatRepo) Append(_ domain.Context, m domain.ChatMessage) (string, error) {
	m.ID = "msg-" + strconv.Itoa(len(r.msgs)+1)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	r.msgs = append(r.msgs, m)
	return m.ID, nil
}

func (r *memChatRepo) ListByUser(_ domain.Context, userID string, limit int) ([]domain.ChatMessage, error) {
	out := make([]domain.ChatMessage, 0)
	for _, m := range r.msgs {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type stubProvider struct {
	name  string
	reply string
	err   error
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Generate(_ domain.Context, _ string) (domain.ProviderResult, error) {
	if p.err != nil {
		return domain.ProviderResult{}, p.err
	}
	return domain.ProviderResult{Text: p.reply}, nil
}

type passthroughExtractor struct{}

func (passthroughExtractor) Extract(_ domain.Context, _ string, data []byte) (string, error) {
	return string(data), nil
}

type testEnv struct {
	server *Server
	users  *memUserRepo
	evals  *memEvalRepo
	chats  *memChatRepo
}

func newTestEnv(providers ...domain.Provider) *testEnv {
	cfg := config.Config{
		AppEnv:          "test",
		JWTSecret:       "test-secret",
		TokenTTL:        time.Hour,
		DefaultProvider: domain.ProviderOllama,
		MaxUploadMB:     5,
		ChatHistoryLimit: 50,
	}
	if len(providers) == 0 {
		providers = []domain.Provider{&stubProvider{name: domain.ProviderOllama, reply: testModelReply}}
	}
	registry := ai.NewRegistry(domain.ProviderOllama)
	for _, p := range providers {
		registry.Register(p)
	}

	users := newMemUserRepo()
	evals := &memEvalRepo{}
	chats := &memChatRepo{}

	auth := usecase.NewAuthService(cfg, users)
	userSvc := usecase.NewUserService(users, registry)
	evalSvc := usecase.NewEvaluateService(cfg, registry, users, nil)
	chatSvc := usecase.NewChatService(cfg, registry, users, evals, chats, nil)

	srv := NewServer(cfg, auth, userSvc, evalSvc, chatSvc, evals, passthroughExtractor{}, nil, nil)
	return &testEnv{server: srv, users: users, evals: evals, chats: chats}
}

func (e *testEnv) registerUser(email string) (string, string) {
	u, err := e.server.Auth.Register(context.Background(), email, "long enough password")
	if err != nil {
		panic(err)
	}
	token, err := e.server.Auth.IssueToken(u)
	if err != nil {
		panic(err)
	}
	return u.ID, token
}
