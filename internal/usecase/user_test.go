package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumehq/resume-evaluator/internal/domain"
)

func TestUserService_UpdatePreference(t *testing.T) {
	t.Parallel()
	users := newFakeUserRepo(domain.User{ID: "user-1"})
	registry := registryWith(
		&scriptedProvider{name: domain.ProviderOllama},
		&scriptedProvider{name: domain.ProviderGemini},
	)
	svc := NewUserService(users, registry)
	ctx := context.Background()

	require.NoError(t, svc.UpdatePreference(ctx, "user-1", domain.ProviderGemini))
	u, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderGemini, u.ModelPreference)

	err = svc.UpdatePreference(ctx, "user-1", "claude")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	require.NoError(t, svc.UpdatePreference(ctx, "user-1", ""), "empty tag clears the preference")
	u, err = svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, u.ModelPreference)
}

func TestUserService_GetNotFound(t *testing.T) {
	t.Parallel()
	svc := NewUserService(newFakeUserRepo(), registryWith())
	_, err := svc.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
