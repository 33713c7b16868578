package postgres_test

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumehq/resume-evaluator/internal/adapter/repo/postgres"
	"github.com/resumehq/resume-evaluator/internal/domain"
)

func TestChatRepo_Append(t *testing.T) {
	t.Parallel()

	t.Run("inserts turn", func(t *testing.T) {
		t.Parallel()
		m, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer m.Close()

		m.ExpectExec("INSERT INTO chat_messages").
			WithArgs(pgxmock.AnyArg(), "user-1", "user", "hello", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := postgres.NewChatRepo(m)
		id, err := repo.Append(context.Background(), domain.ChatMessage{
			UserID: "user-1",
			Sender: domain.SenderUser,
			Text:   "hello",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		require.NoError(t, m.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		t.Parallel()
		m, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer m.Close()

		m.ExpectExec("INSERT INTO chat_messages").
			WithArgs(pgxmock.AnyArg(), "user-1", "bot", "reply", pgxmock.AnyArg()).
			WillReturnError(assert.AnError)

		repo := postgres.NewChatRepo(m)
		_, err = repo.Append(context.Background(), domain.ChatMessage{
			UserID: "user-1",
			Sender: domain.SenderBot,
			Text:   "reply",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "op=chat.append")
		require.NoError(t, m.ExpectationsWereMet())
	})
}

func TestChatRepo_ListByUser(t *testing.T) {
	t.Parallel()

	base := time.Now().UTC()
	cols := []string{"id", "user_id", "sender", "text", "created_at"}

	t.Run("returns turns in chronological order", func(t *testing.T) {
		t.Parallel()
		m, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer m.Close()

		m.ExpectQuery(`SELECT id, user_id, sender, text, created_at FROM \(`).
			WithArgs("user-1", 50).
			WillReturnRows(pgxmock.NewRows(cols).
				AddRow("m1", "user-1", "user", "hi", base.Add(-2*time.Minute)).
				AddRow("m2", "user-1", "bot", "hello", base.Add(-1*time.Minute)))

		repo := postgres.NewChatRepo(m)
		got, err := repo.ListByUser(context.Background(), "user-1", 50)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, domain.SenderUser, got[0].Sender)
		assert.Equal(t, domain.SenderBot, got[1].Sender)
		assert.Equal(t, "hi", got[0].Text)
		require.NoError(t, m.ExpectationsWereMet())
	})

	t.Run("empty transcript returns empty slice", func(t *testing.T) {
		t.Parallel()
		m, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer m.Close()

		m.ExpectQuery(`SELECT id, user_id, sender, text, created_at FROM \(`).
			WithArgs("user-2", 10).
			WillReturnRows(pgxmock.NewRows(cols))

		repo := postgres.NewChatRepo(m)
		got, err := repo.ListByUser(context.Background(), "user-2", 10)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
		require.NoError(t, m.ExpectationsWereMet())
	})
}
