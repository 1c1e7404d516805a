package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AdminUsersHandler manages accounts on behalf of admins.
type AdminUsersHandler struct {
	admin *service.AdminService
}

// NewAdminUsersHandler constructs handler.
func NewAdminUsersHandler(admin *service.AdminService) *AdminUsersHandler {
	return &AdminUsersHandler{admin: admin}
}

// List GET /api/admin/users?role=&q=.
func (h *AdminUsersHandler) List(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	filter := repository.UserFilter{Query: strings.TrimSpace(c.Query("q"))}
	if raw := c.Query("role"); raw != "" {
		role := domain.Role(raw)
		if !role.Valid() {
			return apperrors.NewValidationError("invalid query", map[string]any{"role": "must be one of ADMIN, AGENT, USER"})
		}
		filter.Role = &role
	}
	users, err := h.admin.ListUsers(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	resp := make([]*dto.UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, dto.NewUserResponse(&users[i]))
	}
	return data(c, http.StatusOK, resp)
}

// Create POST /api/admin/users.
func (h *AdminUsersHandler) Create(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.admin.CreateUser(c.UserContext(), actor, service.CreateUserInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewUserResponse(user))
}

// Update PATCH /api/admin/users/:id.
func (h *AdminUsersHandler) Update(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.admin.UpdateUser(c.UserContext(), actor, c.Params("id"), service.UpdateUserInput{
		Name:     req.Name,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.UpdateUserResponse{
		OK:      true,
		Changed: result.Changed,
		User:    dto.NewUserResponse(result.User),
	})
}

// Ping GET /api/admin/ping confirms the caller holds the admin role.
func (h *AdminUsersHandler) Ping(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return data(c, http.StatusOK, fiber.Map{"ok": true, "admin": user.Email})
}
