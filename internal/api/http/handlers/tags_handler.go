package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// TagsHandler lists and creates tags.
type TagsHandler struct {
	tickets *service.TicketService
	admin   *service.AdminService
}

// NewTagsHandler constructs handler.
func NewTagsHandler(tickets *service.TicketService, admin *service.AdminService) *TagsHandler {
	return &TagsHandler{tickets: tickets, admin: admin}
}

// List GET /api/tags.
func (h *TagsHandler) List(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	tags, err := h.tickets.ListTags(c.UserContext(), actor)
	if err != nil {
		return err
	}
	resp := make([]*dto.TagResponse, 0, len(tags))
	for i := range tags {
		resp = append(resp, dto.NewTagResponse(&tags[i]))
	}
	return data(c, http.StatusOK, resp)
}

// Create POST /api/tags.
func (h *TagsHandler) Create(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTagRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tag, err := h.admin.CreateTag(c.UserContext(), actor, req.Name)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewTagResponse(tag))
}
