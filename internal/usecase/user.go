package usecase

import (
	"fmt"

	adapterai "github.com/resumehq/resume-evaluator/internal/adapter/ai"
	"github.com/resumehq/resume-evaluator/internal/domain"
)

// UserService manages profile reads and the stored provider preference.
type UserService struct {
	users    domain.UserRepository
	registry *adapterai.Registry
}

// NewUserService wires a UserService.
func NewUserService(users domain.UserRepository, registry *adapterai.Registry) UserService {
	return UserService{users: users, registry: registry}
}

// Get returns the user's profile.
func (s UserService) Get(ctx domain.Context, id string) (domain.User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("op=user.get: %w", err)
	}
	return u, nil
}

// UpdatePreference stores a provider tag after checking it against the
// registry. An empty tag clears the preference back to the system default.
func (s UserService) UpdatePreference(ctx domain.Context, userID, tag string) error {
	if tag != "" && !s.registry.Has(tag) {
		return fmt.Errorf("op=user.update_preference: %w: unknown provider tag %q", domain.ErrInvalidArgument, tag)
	}
	if err := s.users.UpdateModelPreference(ctx, userID, tag); err != nil {
		return fmt.Errorf("op=user.update_preference: %w", err)
	}
	return nil
}
