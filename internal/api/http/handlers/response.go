package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/domain"
	apperrors "github.com/spec-kit/crm-service/pkg/errorutil"
)

func respond(c *fiber.Ctx, status int, data any, message string) error {
	body := fiber.Map{"success": true}
	if data != nil {
		body["data"] = data
	}
	if message != "" {
		body["message"] = message
	}
	return c.Status(status).JSON(body)
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: "must be a positive integer"})
	}
	return id, nil
}

// customerAccess resolves the :id parameter and checks the caller may act on it.
func customerAccess(c *fiber.Ctx, authorizer *auth.Authorizer, resource, action string) (int64, domain.Principal, error) {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return 0, principal, err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return 0, principal, err
	}
	if err := authorizer.AuthorizeCustomer(principal, resource, action, id); err != nil {
		return 0, principal, err
	}
	return id, principal, nil
}
