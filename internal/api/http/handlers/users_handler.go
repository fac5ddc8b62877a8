package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/service"
)

// UsersHandler manages user accounts.
type UsersHandler struct {
	users      *service.UserService
	authorizer *auth.Authorizer
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, authorizer *auth.Authorizer) *UsersHandler {
	return &UsersHandler{users: users, authorizer: authorizer}
}

// List handles GET /auth/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.Users(users), "")
}

// Get handles GET /auth/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, _, err := h.access(c, auth.ActionRead)
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.User(user), "")
}

// Update handles PUT /auth/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	id, principal, err := h.access(c, auth.ActionUpdate)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), principal, id, req.Patch())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.User(user), "User updated successfully")
}

// Delete handles DELETE /auth/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	id, _, err := h.access(c, auth.ActionDelete)
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "User deleted successfully")
}

func (h *UsersHandler) access(c *fiber.Ctx, action string) (int64, domain.Principal, error) {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return 0, principal, err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return 0, principal, err
	}
	if err := h.authorizer.AuthorizeUser(principal, action, id); err != nil {
		return 0, principal, err
	}
	return id, principal, nil
}
