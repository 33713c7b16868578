package httpserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/resumehq/resume-evaluator/internal/domain"
	obs "github.com/resumehq/resume-evaluator/internal/observability"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	ModelPreference string `json:"model_preference"`
}

// RegisterHandler creates an account and returns the profile with a token.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		u, err := s.Auth.Register(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		token, err := s.Auth.IssueToken(u)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"token": token,
			"user":  userResponse{ID: u.ID, Email: u.Email, ModelPreference: u.ModelPreference},
		})
	}
}

// LoginHandler verifies credentials and returns a bearer token.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		token, u, err := s.Auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token": token,
			"user":  userResponse{ID: u.ID, Email: u.Email, ModelPreference: u.ModelPreference},
		})
	}
}

// MeHandler returns the authenticated user's profile.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.Users.Get(r.Context(), obs.UserIDFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, userResponse{ID: u.ID, Email: u.Email, ModelPreference: u.ModelPreference})
	}
}

// RequireAuth validates the bearer token and threads the user id through the
// request context.
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, r, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized), nil)
			return
		}
		userID, err := s.Auth.VerifyToken(strings.TrimSpace(token))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		ctx := obs.ContextWithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
