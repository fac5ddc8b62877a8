package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/crm-service/pkg/errorutil"
)

func newMiddlewareApp(m *AuthMiddleware, optional bool) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	handler := m.Handle
	if optional {
		handler = m.Optional
	}
	app.Get("/me", handler, func(c *fiber.Ctx) error {
		p, ok := PrincipalFromContext(c)
		if !ok {
			return c.SendString("anonymous")
		}
		return c.SendString(p.Username)
	})
	return app
}

func doGet(t *testing.T, app *fiber.App, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager(testAuthConfig())
	store := NewMemoryRevocationStore()
	m := NewAuthMiddleware(tm, store, zap.NewNop())
	app := newMiddlewareApp(m, false)
	pair, err := tm.IssuePair(testUser())
	require.NoError(t, err)

	status, body := doGet(t, app, pair.AccessToken)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "john", body)

	status, body = doGet(t, app, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthorized, body)

	status, _ = doGet(t, app, pair.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, status, "refresh token must not authenticate")

	require.NoError(t, store.InvalidateUser(context.Background(), 7, time.Now(), time.Hour))
	status, _ = doGet(t, app, pair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthMiddleware_Optional(t *testing.T) {
	tm := NewTokenManager(testAuthConfig())
	m := NewAuthMiddleware(tm, NewMemoryRevocationStore(), zap.NewNop())
	app := newMiddlewareApp(m, true)
	token, _, err := tm.IssueAccess(testUser())
	require.NoError(t, err)

	status, body := doGet(t, app, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "anonymous", body)

	status, body = doGet(t, app, token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "john", body)

	status, _ = doGet(t, app, "garbage")
	assert.Equal(t, http.StatusUnauthorized, status)
}
