package httpserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/resumehq/resume-evaluator/internal/config"
	"github.com/resumehq/resume-evaluator/internal/domain"
	obs "github.com/resumehq/resume-evaluator/internal/observability"
	"github.com/resumehq/resume-evaluator/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Auth       usecase.AuthService
	Users      usecase.UserService
	Evaluate   usecase.EvaluateService
	Chat       usecase.ChatService
	Evals      domain.EvaluationRepository
	Extractor  domain.TextExtractor
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, auth usecase.AuthService, users usecase.UserService, eval usecase.EvaluateService, chat usecase.ChatService, evals domain.EvaluationRepository, extractor domain.TextExtractor, dbCheck, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Auth: auth, Users: users, Evaluate: eval, Chat: chat, Evals: evals, Extractor: extractor, DBCheck: dbCheck, RedisCheck: redisCheck}
}

type evaluationResponse struct {
	ID         string    `json:"id"`
	Provider   string    `json:"provider"`
	Score      float64   `json:"score"`
	Strengths  []string  `json:"strengths"`
	Weaknesses []string  `json:"weaknesses"`
	Comments   string    `json:"comments"`
	CreatedAt  time.Time `json:"created_at"`
}

func toEvaluationResponse(e domain.Evaluation) evaluationResponse {
	return evaluationResponse{
		ID:         e.ID,
		Provider:   e.Provider,
		Score:      e.Score,
		Strengths:  e.Strengths,
		Weaknesses: e.Weaknesses,
		Comments:   e.Comments,
		CreatedAt:  e.CreatedAt,
	}
}

// allowedExt enforces an allowlist for uploads: .txt and .pdf.
func allowedExt(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, ".txt") || strings.HasSuffix(n, ".pdf")
}

// UploadHandler accepts a multipart resume upload with a target role,
// extracts its text, runs the evaluation pipeline synchronously and stores
// the validated record.
func (s *Server) UploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "too large") {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code:    "PAYLOAD_TOO_LARGE",
					Message: "resume file exceeds the upload limit",
					Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB},
				}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		file, header, err := r.FormFile("resume")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: resume file required", domain.ErrInvalidArgument), map[string]string{"field": "resume"})
			return
		}
		defer func() { _ = file.Close() }()

		role := strings.TrimSpace(r.FormValue("role"))
		if role == "" {
			writeError(w, r, fmt.Errorf("%w: role required", domain.ErrInvalidArgument), map[string]string{"field": "role"})
			return
		}
		model := strings.TrimSpace(r.FormValue("model"))

		if !allowedExt(header.Filename) {
			writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{
				Code:    "INVALID_ARGUMENT",
				Message: "unsupported media type for resume",
				Details: map[string]any{"filename": header.Filename},
			}})
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: resume read: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		ctx := r.Context()
		resumeText, err := s.Extractor.Extract(ctx, header.Filename, data)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}

		eval, err := s.Evaluate.Evaluate(ctx, obs.UserIDFromContext(ctx), resumeText, role, model)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		// The validated record is persisted here, not by the evaluation
		// pipeline.
		id, err := s.Evals.Create(ctx, eval)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		eval.ID = id
		writeJSON(w, http.StatusOK, toEvaluationResponse(eval))
	}
}

type chatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
	Model   string `json:"model" validate:"omitempty,max=50"`
}

// ChatHandler continues the grounded conversation and returns the bot turn.
func (s *Server) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		reply, err := s.Chat.Chat(r.Context(), obs.UserIDFromContext(r.Context()), req.Message, req.Model)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         reply.ID,
			"sender":     reply.Sender,
			"text":       reply.Text,
			"created_at": reply.CreatedAt,
		})
	}
}

// ChatHistoryHandler returns the transcript, oldest first.
func (s *Server) ChatHistoryHandler() http.HandlerFunc {
	type turn struct {
		ID        string    `json:"id"`
		Sender    string    `json:"sender"`
		Text      string    `json:"text"`
		CreatedAt time.Time `json:"created_at"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := s.Chat.History(r.Context(), obs.UserIDFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]turn, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, turn{ID: m.ID, Sender: string(m.Sender), Text: m.Text, CreatedAt: m.CreatedAt})
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": out})
	}
}

type preferencesRequest struct {
	Model string `json:"model" validate:"omitempty,max=50"`
}

// PreferencesHandler updates the stored provider preference. An empty model
// clears it back to the system default.
func (s *Server) PreferencesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req preferencesRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		userID := obs.UserIDFromContext(r.Context())
		if err := s.Users.UpdatePreference(r.Context(), userID, req.Model); err != nil {
			writeError(w, r, err, nil)
			return
		}
		u, err := s.Users.Get(r.Context(), userID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, userResponse{ID: u.ID, Email: u.Email, ModelPreference: u.ModelPreference})
	}
}

// ReadyzHandler probes DB and Redis.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 2)
		if s.DBCheck != nil {
			if err := s.DBCheck(ctx); err != nil {
				checks = append(checks, check{Name: "db", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "db", OK: true})
			}
		}
		if s.RedisCheck != nil {
			if err := s.RedisCheck(ctx); err != nil {
				checks = append(checks, check{Name: "redis", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "redis", OK: true})
			}
		}
		st := http.StatusOK
		for _, c := range checks {
			if !c.OK {
				st = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
