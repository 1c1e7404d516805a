package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// DefaultSessionTTL applies when CreateSession is called without a ttl.
const DefaultSessionTTL = 30 * 24 * time.Hour

// Authenticator resolves session tokens to users and manages the session
// lifecycle. Expired sessions are removed lazily on first use.
type Authenticator struct {
	store  repository.Store
	signer *SessionSigner
	cache  SessionCache
	clock  clock.Clock
	logger *zap.Logger
}

// NewAuthenticator wires an authenticator. cache may be nil.
func NewAuthenticator(store repository.Store, signer *SessionSigner, cache SessionCache, clk clock.Clock, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{store: store, signer: signer, cache: cache, clock: clk, logger: logger}
}

// Authenticate returns the user behind token, or (nil, nil) when the token is
// missing, forged, unknown or expired.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}
	sessionID, err := a.signer.Parse(token)
	if err != nil {
		return nil, nil
	}

	session, err := a.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	if session.ExpiredAt(a.clock.Now()) {
		a.dropSession(ctx, sessionID)
		return nil, nil
	}

	user, err := a.store.Users().GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session user: %w", err)
	}
	return user, nil
}

// CreateSession persists a new session for userID and returns the signed
// token. A non-positive ttl falls back to DefaultSessionTTL.
func (a *Authenticator) CreateSession(ctx context.Context, userID string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := a.clock.Now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
	}
	if err := a.store.Sessions().Create(ctx, session); err != nil {
		return "", time.Time{}, fmt.Errorf("create session: %w", err)
	}
	token, err := a.signer.Sign(session.ID, now, session.ExpiresAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	if a.cache != nil {
		a.cache.Set(ctx, session)
	}
	return token, session.ExpiresAt, nil
}

// InvalidateSession deletes the session behind token. Unknown or forged
// tokens are ignored.
func (a *Authenticator) InvalidateSession(ctx context.Context, token string) {
	if token == "" {
		return
	}
	sessionID, err := a.signer.Parse(token)
	if err != nil {
		return
	}
	a.dropSession(ctx, sessionID)
}

func (a *Authenticator) loadSession(ctx context.Context, id string) (*domain.Session, error) {
	if a.cache != nil {
		if session, ok := a.cache.Get(ctx, id); ok {
			return session, nil
		}
	}
	session, err := a.store.Sessions().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if a.cache != nil {
		a.cache.Set(ctx, session)
	}
	return session, nil
}

func (a *Authenticator) dropSession(ctx context.Context, id string) {
	if a.cache != nil {
		a.cache.Delete(ctx, id)
	}
	if err := a.store.Sessions().Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		a.logger.Debug("session delete failed", zap.String("session_id", id), zap.Error(err))
	}
}
