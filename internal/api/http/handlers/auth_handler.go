package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AuthHandler exposes login, logout and whoami.
type AuthHandler struct {
	auth     *service.AuthService
	sessions *auth.Middleware
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, sessions *auth.Middleware) *AuthHandler {
	return &AuthHandler{auth: authService, sessions: sessions}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	h.sessions.SetSessionCookie(c, result.Token, result.ExpiresAt)
	return data(c, http.StatusOK, dto.MeResponse{User: dto.NewUserResponse(result.User)})
}

// Logout handles POST /api/auth/logout. It succeeds with or without a session.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.auth.Logout(c.UserContext(), h.sessions.Token(c))
	h.sessions.ClearSessionCookie(c)
	return data(c, http.StatusOK, fiber.Map{"ok": true})
}

// Me handles GET /api/auth/me. Anonymous callers get a null user.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.auth.WhoAmI(c.UserContext(), h.sessions.Token(c))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.MeResponse{User: dto.NewUserResponse(user)})
}
