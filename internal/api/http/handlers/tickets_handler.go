package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketsHandler serves the ticket, comment and audit endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Tags:        req.Tags,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewTicketResponse(ticket))
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var raw dto.TicketListQuery
	if err := c.QueryParser(&raw); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}
	params, err := raw.Params()
	if err != nil {
		return err
	}
	page, err := h.service.ListTickets(c.UserContext(), actor, service.TicketListQuery{
		Page:         params.Page,
		PerPage:      params.PerPage,
		Status:       params.Status,
		Priority:     params.Priority,
		Search:       params.Search,
		Tag:          params.Tag,
		SortBy:       repository.TicketSortField(params.SortBy),
		SortAsc:      params.SortAsc,
		CreatedByID:  params.CreatedByID,
		AssignedToID: params.AssignedToID,
	})
	if err != nil {
		return err
	}
	items := make([]*dto.TicketResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewTicketResponse(&page.Items[i]))
	}
	return data(c, http.StatusOK, dto.TicketListResponse{
		Page:    page.Page,
		PerPage: page.PerPage,
		Total:   page.Total,
		Items:   items,
	})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewTicketResponse(ticket))
}

// UpdateTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.service.UpdateTicket(c.UserContext(), actor, c.Params("id"), req.Patch())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.UpdateTicketResponse{
		OK:      true,
		Changed: result.Changed,
		Ticket:  dto.NewTicketResponse(result.Ticket),
	})
}

// ListComments GET /api/tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	comments, err := h.service.ListComments(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	resp := make([]*dto.CommentResponse, 0, len(comments))
	for i := range comments {
		resp = append(resp, dto.NewCommentResponse(&comments[i]))
	}
	return data(c, http.StatusOK, resp)
}

// AddComment POST /api/tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, err := h.service.AddComment(c.UserContext(), actor, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewCommentResponse(comment))
}

// AuditTrail GET /api/tickets/:id/audit.
func (h *TicketsHandler) AuditTrail(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	entries, err := h.service.AuditTrail(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	resp := make([]*dto.AuditEntryResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, dto.NewAuditEntryResponse(&entries[i]))
	}
	return data(c, http.StatusOK, resp)
}
