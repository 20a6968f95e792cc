package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// StaffTicketsHandler handles the agent/admin queue endpoints.
type StaffTicketsHandler struct {
	tickets *service.TicketService
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(ticketService *service.TicketService) *StaffTicketsHandler {
	return &StaffTicketsHandler{tickets: ticketService}
}

// ListAll GET /api/tickets/all?category=&status=.
func (h *StaffTicketsHandler) ListAll(c *fiber.Ctx) error {
	staff, err := currentUser(c)
	if err != nil {
		return err
	}
	filter := service.TicketListFilter{Category: c.Query("category"), Status: c.Query("status")}
	tickets, err := h.tickets.ListAll(c.UserContext(), staff, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

// UpdateTriage PUT /api/tickets/update/:id.
func (h *StaffTicketsHandler) UpdateTriage(c *fiber.Ctx) error {
	staff, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTriageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.UpdateTriage(c.UserContext(), staff, id, service.TriageInput{
		Category: req.Category,
		Priority: req.Priority,
		Status:   req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// History GET /api/tickets/:id/history.
func (h *StaffTicketsHandler) History(c *fiber.Ctx) error {
	staff, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	entries, err := h.tickets.History(c.UserContext(), staff, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryResponses(entries)})
}
