package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/service"
)

// InteractionsHandler exposes the append-only interaction log.
type InteractionsHandler struct {
	interactions *service.InteractionService
	authorizer   *auth.Authorizer
}

// NewInteractionsHandler constructs handler.
func NewInteractionsHandler(interactions *service.InteractionService, authorizer *auth.Authorizer) *InteractionsHandler {
	return &InteractionsHandler{interactions: interactions, authorizer: authorizer}
}

// List handles GET /customers/:id/interactions.
func (h *InteractionsHandler) List(c *fiber.Ctx) error {
	id, _, err := customerAccess(c, h.authorizer, auth.ResourceInteractions, auth.ActionList)
	if err != nil {
		return err
	}
	list, err := h.interactions.ListByCustomer(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.Interactions(list), "")
}

// Create handles POST /customers/:id/interactions.
func (h *InteractionsHandler) Create(c *fiber.Ctx) error {
	id, _, err := customerAccess(c, h.authorizer, auth.ResourceInteractions, auth.ActionCreate)
	if err != nil {
		return err
	}
	var req dto.CreateInteractionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	interaction, err := h.interactions.Create(c.UserContext(), id, req.Input())
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.Interaction(interaction), "Interaction created successfully")
}
