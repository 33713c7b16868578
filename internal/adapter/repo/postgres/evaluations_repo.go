package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/resumehq/resume-evaluator/internal/domain"
)

// EvaluationRepo persists evaluation records. Rows are append-only.
type EvaluationRepo struct{ Pool PgxPool }

// NewEvaluationRepo constructs an EvaluationRepo with the given pool.
func NewEvaluationRepo(p PgxPool) *EvaluationRepo { return &EvaluationRepo{Pool: p} }

// Create stores a new evaluation and returns its id (generates one if empty).
func (r *EvaluationRepo) Create(ctx domain.Context, e domain.Evaluation) (string, error) {
	tracer := otel.Tracer("repo.evaluations")
	ctx, span := tracer.Start(ctx, "evaluations.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "evaluations"),
	)
	id := e.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO evaluations (id, user_id, resume_text, role, provider, score, strengths, weaknesses, comments, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.Pool.Exec(ctx, q, id, e.UserID, e.ResumeText, e.Role, e.Provider, e.Score, e.Strengths, e.Weaknesses, e.Comments, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("op=evaluation.create: %w", err)
	}
	return id, nil
}

// Get loads an evaluation by id.
func (r *EvaluationRepo) Get(ctx domain.Context, id string) (domain.Evaluation, error) {
	tracer := otel.Tracer("repo.evaluations")
	ctx, span := tracer.Start(ctx, "evaluations.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "evaluations"),
	)
	q := `SELECT id, user_id, resume_text, role, provider, score, strengths, weaknesses, comments, created_at
	      FROM evaluations WHERE id=$1`
	e, err := scanEvaluation(r.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Evaluation{}, fmt.Errorf("op=evaluation.get: %w", domain.ErrNotFound)
		}
		return domain.Evaluation{}, fmt.Errorf("op=evaluation.get: %w", err)
	}
	return e, nil
}

// LatestByUser loads the user's most recent evaluation. It backs chat
// grounding, so absence maps to domain.ErrNotFound rather than an empty row.
func (r *EvaluationRepo) LatestByUser(ctx domain.Context, userID string) (domain.Evaluation, error) {
	tracer := otel.Tracer("repo.evaluations")
	ctx, span := tracer.Start(ctx, "evaluations.LatestByUser")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "evaluations"),
	)
	q := `SELECT id, user_id, resume_text, role, provider, score, strengths, weaknesses, comments, created_at
	      FROM evaluations WHERE user_id=$1 ORDER BY created_at DESC LIMIT 1`
	e, err := scanEvaluation(r.Pool.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Evaluation{}, fmt.Errorf("op=evaluation.latest_by_user: %w", domain.ErrNotFound)
		}
		return domain.Evaluation{}, fmt.Errorf("op=evaluation.latest_by_user: %w", err)
	}
	return e, nil
}

func scanEvaluation(row pgx.Row) (domain.Evaluation, error) {
	var e domain.Evaluation
	err := row.Scan(&e.ID, &e.UserID, &e.ResumeText, &e.Role, &e.Provider, &e.Score, &e.Strengths, &e.Weaknesses, &e.Comments, &e.CreatedAt)
	if err != nil {
		return domain.Evaluation{}, err
	}
	if e.Strengths == nil {
		e.Strengths = []string{}
	}
	if e.Weaknesses == nil {
		e.Weaknesses = []string{}
	}
	return e, nil
}
