package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AuthService handles login, logout and session resolution.
type AuthService struct {
	store         repository.Store
	authenticator *auth.Authenticator
	sessionTTL    time.Duration
	logger        *zap.Logger
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	Store         repository.Store
	Authenticator *auth.Authenticator
	SessionTTL    time.Duration
	Logger        *zap.Logger
}

// LoginResult carries the authenticated user and the fresh session token.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService constructs the auth service.
func NewAuthService(deps AuthDependencies) *AuthService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &AuthService{
		store:         deps.Store,
		authenticator: deps.Authenticator,
		sessionTTL:    deps.SessionTTL,
		logger:        deps.Logger,
	}
}

// Login verifies credentials and opens a session. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.store.Users().GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			auth.RejectPassword(password)
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.authenticator.CreateSession(ctx, user.ID, s.sessionTTL)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout ends the session behind token. It never fails.
func (s *AuthService) Logout(ctx context.Context, token string) {
	s.authenticator.InvalidateSession(ctx, token)
}

// WhoAmI returns the session's user, or nil for anonymous callers.
func (s *AuthService) WhoAmI(ctx context.Context, token string) (*domain.User, error) {
	user, err := s.authenticator.Authenticate(ctx, token)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}
