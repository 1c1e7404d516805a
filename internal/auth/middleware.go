package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const userKey = "auth_user"

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Middleware resolves the session cookie into a user on every request.
// Anonymous requests pass through; RequireAuth rejects them where needed.
type Middleware struct {
	auth   *Authenticator
	cookie CookieConfig
}

// NewMiddleware constructs the session middleware.
func NewMiddleware(auth *Authenticator, cookie CookieConfig) *Middleware {
	return &Middleware{auth: auth, cookie: cookie}
}

// Handle loads the caller, if any, into the request locals.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	token := c.Cookies(m.cookie.Name)
	if token == "" {
		return c.Next()
	}
	user, err := m.auth.Authenticate(c.UserContext(), token)
	if err != nil {
		return apperrors.MapError(err)
	}
	if user != nil {
		c.Locals(userKey, user)
	}
	return c.Next()
}

// Token returns the raw session cookie of the request.
func (m *Middleware) Token(c *fiber.Ctx) string {
	return c.Cookies(m.cookie.Name)
}

// SetSessionCookie writes the session cookie.
func (m *Middleware) SetSessionCookie(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(m.cookie.MaxAge.Seconds()),
		Secure:   m.cookie.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie on the client.
func (m *Middleware) ClearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   m.cookie.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// UserFromContext retrieves the authenticated user.
func UserFromContext(c *fiber.Ctx) (*domain.User, bool) {
	user, ok := c.Locals(userKey).(*domain.User)
	return user, ok && user != nil
}
