package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// UsersHandler exposes admin account management.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// ListAgents handles GET /api/auth/agents.
func (h *UsersHandler) ListAgents(c *fiber.Ctx) error {
	agents, err := h.auth.ListAgents(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponses(agents)})
}

// ListUsers handles GET /api/auth/users/:role.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	role := domain.Role(strings.ToLower(c.Params("role")))
	users, err := h.auth.ListUsers(c.UserContext(), role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponses(users)})
}

// DeleteAgent handles DELETE /api/auth/agent/:id.
func (h *UsersHandler) DeleteAgent(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.auth.DeleteAgent(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "Agent deleted"}})
}

// UpdateAgent handles PUT /api/auth/agent/:id.
func (h *UsersHandler) UpdateAgent(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	var update service.AgentUpdate
	if req.Name != "" {
		update.Name = &req.Name
	}
	if req.Email != "" {
		update.Email = &req.Email
	}
	if update.Name == nil && update.Email == nil {
		return apperrors.NewValidationError("name or email required", nil)
	}

	user, err := h.auth.UpdateAgent(c.UserContext(), id, update)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
