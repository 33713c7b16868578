package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumehq/resume-evaluator/internal/adapter/repo/postgres"
	"github.com/resumehq/resume-evaluator/internal/domain"
)

func TestUserRepo_Create(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		user    domain.User
		setup   func(pgxmock.PgxPoolIface)
		wantErr error
		errMsg  string
	}{
		{
			name: "successful create with provided ID",
			user: domain.User{ID: "user-1", Email: "a@b.c", PasswordHash: "hash", ModelPreference: "ollama"},
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectExec("INSERT INTO users").
					WithArgs("user-1", "a@b.c", "hash", "ollama", pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "generates UUID when ID empty",
			user: domain.User{Email: "a@b.c", PasswordHash: "hash"},
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectExec("INSERT INTO users").
					WithArgs(pgxmock.AnyArg(), "a@b.c", "hash", "", pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "duplicate email maps to conflict",
			user: domain.User{ID: "user-1", Email: "a@b.c", PasswordHash: "hash"},
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectExec("INSERT INTO users").
					WithArgs("user-1", "a@b.c", "hash", "", pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: "23505"})
			},
			wantErr: domain.ErrConflict,
		},
		{
			name: "database error",
			user: domain.User{ID: "user-1", Email: "a@b.c"},
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectExec("INSERT INTO users").
					WithArgs("user-1", "a@b.c", "", "", pgxmock.AnyArg()).
					WillReturnError(assert.AnError)
			},
			errMsg: "op=user.create",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer m.Close()
			tt.setup(m)

			repo := postgres.NewUserRepo(m)
			id, err := repo.Create(context.Background(), tt.user)

			if tt.wantErr != nil || tt.errMsg != "" {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.True(t, errors.Is(err, tt.wantErr))
				}
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				assert.Empty(t, id)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, id)
			}
			require.NoError(t, m.ExpectationsWereMet())
		})
	}
}

func TestUserRepo_GetByEmail(t *testing.T) {
	t.Parallel()

	fixedTime := time.Now().UTC()
	cols := []string{"id", "email", "password_hash", "model_preference", "created_at"}

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		m, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer m.Close()

		m.ExpectQuery(`SELECT id, email, password_hash, model_preference, created_at FROM users WHERE email=\$1`).
			WithArgs("a@b.c").
			WillReturnRows(pgxmock.NewRows(cols).AddRow("user-1", "a@b.c", "hash", "gemini", fixedTime))

		repo := postgres.NewUserRepo(m)
		got, err := repo.GetByEmail(context.Background(), "a@b.c")
		require.NoError(t, err)
		assert.Equal(t, domain.User{ID: "user-1", Email: "a@b.c", PasswordHash: "hash", ModelPreference: "gemini", CreatedAt: fixedTime}, got)
		require.NoError(t, m.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		m, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer m.Close()

		m.ExpectQuery(`SELECT id, email, password_hash, model_preference, created_at FROM users WHERE email=\$1`).
			WithArgs("missing@b.c").
			WillReturnRows(pgxmock.NewRows(cols))

		repo := postgres.NewUserRepo(m)
		_, err = repo.GetByEmail(context.Background(), "missing@b.c")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		require.NoError(t, m.ExpectationsWereMet())
	})
}

func TestUserRepo_UpdateModelPreference(t *testing.T) {
	t.Parallel()

	t.Run("updates row", func(t *testing.T) {
		t.Parallel()
		m, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer m.Close()

		m.ExpectExec("UPDATE users SET model_preference").
			WithArgs("user-1", "openai").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := postgres.NewUserRepo(m)
		require.NoError(t, repo.UpdateModelPreference(context.Background(), "user-1", "openai"))
		require.NoError(t, m.ExpectationsWereMet())
	})

	t.Run("missing user maps to not found", func(t *testing.T) {
		t.Parallel()
		m, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer m.Close()

		m.ExpectExec("UPDATE users SET model_preference").
			WithArgs("ghost", "openai").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := postgres.NewUserRepo(m)
		err = repo.UpdateModelPreference(context.Background(), "ghost", "openai")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		require.NoError(t, m.ExpectationsWereMet())
	})
}
