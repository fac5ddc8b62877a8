package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/service"
)

// AuthHandler exposes registration, login, refresh and logout.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register. A bearer token is optional and lets an admin
// create other admins.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	caller, _ := auth.PrincipalFromContext(c)

	user, err := h.auth.Register(c.UserContext(), caller, req.Input())
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.User(user), "User registered successfully")
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.Login(result.User, result.Tokens), "")
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	token, err := refreshToken(c)
	if err != nil {
		return err
	}

	access, expiresAt, err := h.auth.Refresh(c.UserContext(), token)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.RefreshResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, "")
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token, err := refreshToken(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.UserContext(), token); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "Logged out successfully")
}

// refreshToken reads the token from the body, falling back to the bearer header.
func refreshToken(c *fiber.Ctx) (string, error) {
	var req dto.RefreshRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return "", err
		}
	}
	if req.RefreshToken != "" {
		return req.RefreshToken, nil
	}
	return auth.BearerToken(c)
}
