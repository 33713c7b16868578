package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/resumehq/resume-evaluator/internal/domain"
)

type fakeUserRepo struct {
	users map[string]domain.User
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]domain.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ domain.Context, u domain.User) (string, error) {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return "", fmt.Errorf("op=user.create: %w", domain.ErrConflict)
		}
	}
	if u.ID == "" {
		u.ID = "user-" + strconv.Itoa(len(r.users)+1)
	}
	r.users[u.ID] = u
	return u.ID, nil
}

func (r *fakeUserRepo) Get(_ domain.Context, id string) (domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("op=user.get: %w", domain.ErrNotFound)
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ domain.Context, email string) (domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, fmt.Errorf("op=user.get_by_email: %w", domain.ErrNotFound)
}

func (r *fakeUserRepo) UpdateModelPreference(_ domain.Context, id, preference string) error {
	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("op=user.update_model_preference: %w", domain.ErrNotFound)
	}
	u.ModelPreference = preference
	r.users[id] = u
	return nil
}

type fakeEvalRepo struct {
	evals  []domain.Evaluation
	failOn error
}

func (r *fakeEvalRepo) Create(_ domain.Context, e domain.Evaluation) (string, error) {
	if r.failOn != nil {
		return "", r.failOn
	}
	e.ID = "eval-" + strconv.Itoa(len(r.evals)+1)
	e.CreatedAt = time.Now().UTC()
	r.evals = append(r.evals, e)
	return e.ID, nil
}

func (r *fakeEvalRepo) Get(_ domain.Context, id string) (domain.Evaluation, error) {
	for _, e := range r.evals {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.Evaluation{}, fmt.Errorf("op=evaluation.get: %w", domain.ErrNotFound)
}

func (r *fakeEvalRepo) LatestByUser(_ domain.Context, userID string) (domain.Evaluation, error) {
	for i := len(r.evals) - 1; i >= 0; i-- {
		if r.evals[i].UserID == userID {
			return r.evals[i], nil
		}
	}
	return domain.Evaluation{}, fmt.Errorf("op=evaluation.latest_by_user: %w", domain.ErrNotFound)
}

type fakeChatRepo struct {
	msgs []domain.ChatMessage
}

func (r *fakeChatRepo) Append(_ domain.Context, m domain.ChatMessage) (string, error) {
	m.ID = "msg-" + strconv.Itoa(len(r.msgs)+1)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	r.msgs = append(r.msgs, m)
	return m.ID, nil
}

func (r *fakeChatRepo) ListByUser(_ domain.Context, userID string, limit int) ([]domain.ChatMessage, error) {
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

type scriptedProvider struct {
	name    string
	reply   string
	err     error
	prompts []string
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Generate(_ domain.Context, prompt string) (domain.ProviderResult, error) {
	p.prompts = append(p.prompts, prompt)
	if p.err != nil {
		return domain.ProviderResult{}, p.err
	}
	return domain.ProviderResult{Text: p.reply}, nil
}

type fakeLimiter struct {
	allowed    bool
	retryAfter time.Duration
	keys       []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.keys = append(l.keys, key)
	return l.allowed, l.retryAfter, nil
}
