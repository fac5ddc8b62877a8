package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/domain"
	apperrors "github.com/spec-kit/crm-service/pkg/errorutil"
)

// RequirePermission ensures the principal's role holds an unconditional grant for
// action on resource.
func RequirePermission(authorizer *Authorizer, resource, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if err := authorizer.Authorize(*principal, resource, action); err != nil {
			return err
		}
		return c.Next()
	}
}

// MustPrincipal returns the caller or an UNAUTHORIZED error.
func MustPrincipal(c *fiber.Ctx) (domain.Principal, error) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return domain.Principal{}, apperrors.NewUnauthorized("authentication required")
	}
	return *principal, nil
}
