package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/resumehq/resume-evaluator/internal/config"
	"github.com/resumehq/resume-evaluator/internal/domain"
)

// AuthService handles account registration, login and bearer tokens.
type AuthService struct {
	users    domain.UserRepository
	secret   []byte
	tokenTTL time.Duration
}

// NewAuthService wires an AuthService from configuration.
func NewAuthService(cfg config.Config, users domain.UserRepository) AuthService {
	return AuthService{
		users:    users,
		secret:   []byte(cfg.JWTSecret),
		tokenTTL: cfg.TokenTTL,
	}
}

// Register creates an account with a bcrypt password hash. Duplicate emails
// surface as domain.ErrConflict from the repository.
func (s AuthService) Register(ctx domain.Context, email, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.User{}, fmt.Errorf("op=auth.register: %w: empty email", domain.ErrInvalidArgument)
	}
	if len(password) < 8 {
		return domain.User{}, fmt.Errorf("op=auth.register: %w: password must be at least 8 characters", domain.ErrInvalidArgument)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("op=auth.register: %w", err)
	}

	u := domain.User{Email: email, PasswordHash: string(hash)}
	id, err := s.users.Create(ctx, u)
	if err != nil {
		return domain.User{}, fmt.Errorf("op=auth.register: %w", err)
	}
	u.ID = id
	return u, nil
}

// Login verifies credentials and returns a signed bearer token. Both an
// unknown email and a wrong password map to domain.ErrUnauthorized so the
// response does not reveal which one failed.
func (s AuthService) Login(ctx domain.Context, email, password string) (string, domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.User{}, fmt.Errorf("op=auth.login: %w", domain.ErrUnauthorized)
		}
		return "", domain.User{}, fmt.Errorf("op=auth.login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", domain.User{}, fmt.Errorf("op=auth.login: %w", domain.ErrUnauthorized)
	}

	token, err := s.IssueToken(u)
	if err != nil {
		return "", domain.User{}, err
	}
	return token, u, nil
}

// IssueToken signs an HS256 token whose subject is the user id.
func (s AuthService) IssueToken(u domain.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   u.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("op=auth.issue_token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates a bearer token and returns the user id it names.
func (s AuthService) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("op=auth.verify_token: %w", domain.ErrUnauthorized)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("op=auth.verify_token: %w", domain.ErrUnauthorized)
	}
	return claims.Subject, nil
}
