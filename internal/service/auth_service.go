package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/validation"
	apperrors "github.com/spec-kit/crm-service/pkg/errorutil"
)

const resourceUser = "user"

// AuthService coordinates registration, login, refresh and logout.
type AuthService struct {
	repos           repository.Repositories
	validator       *validation.Validator
	publisher       publisher
	logger          *zap.Logger
	tokens          *auth.TokenManager
	revocations     auth.RevocationStore
	bcryptCost      int
	bootstrapSecret string
	now             func() time.Time
}

// AuthDependencies adds the token machinery to the shared dependencies.
type AuthDependencies struct {
	Dependencies
	Tokens      *auth.TokenManager
	Revocations auth.RevocationStore
}

// RegisterInput describes a registration request. AdminKey is the bootstrap secret
// that allows creating an admin without an authenticated admin caller.
type RegisterInput struct {
	Username   string `json:"username" validate:"required,max=80"`
	Email      string `json:"email" validate:"required,max=120,crm_email"`
	Password   string `json:"password" validate:"required"`
	Role       string `json:"role"`
	CustomerID *int64 `json:"customer_id"`
	AdminKey   string `json:"admin_key"`
}

// LoginResult is a successful login.
type LoginResult struct {
	User   *domain.User
	Tokens *auth.TokenPair
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	shared := deps.Dependencies.withDefaults()
	return &AuthService{
		repos:           shared.Repos,
		validator:       shared.Validator,
		publisher:       publisher{dispatcher: shared.Dispatcher, logger: shared.Logger},
		logger:          shared.Logger,
		tokens:          deps.Tokens,
		revocations:     deps.Revocations,
		bcryptCost:      cfg.BcryptCost,
		bootstrapSecret: cfg.AdminBootstrapSecret,
		now:             time.Now,
	}
}

// Register creates a user account. Creating an admin requires an admin caller or the
// bootstrap secret; caller is nil for anonymous requests.
func (s *AuthService) Register(ctx context.Context, caller *domain.Principal, input RegisterInput) (*domain.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	if len(input.Password) > auth.MaxPasswordBytes {
		return nil, passwordTooLong()
	}

	role := domain.RoleCustomer
	if input.Role != "" {
		role = domain.Role(strings.ToLower(strings.TrimSpace(input.Role)))
	}
	if !role.Valid() {
		return nil, invalidRole()
	}
	if role == domain.RoleAdmin {
		if !caller.IsAdmin() && !s.validBootstrapKey(input.AdminKey) {
			return nil, apperrors.NewForbidden("unauthorized to create admin user")
		}
		if input.CustomerID != nil {
			return nil, customerLinkForAdmin()
		}
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         role,
		CustomerID:   input.CustomerID,
		IsActive:     true,
	}

	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := ensureUsernameFree(ctx, s.repos, user.Username, 0); err != nil {
			return err
		}
		if err := ensureUserEmailFree(ctx, s.repos, user.Email, 0); err != nil {
			return err
		}
		if user.CustomerID != nil {
			if _, err := s.repos.Customers.GetByID(ctx, *user.CustomerID); err != nil {
				return mapRepoError(err, resourceCustomer)
			}
		}
		return mapRepoError(s.repos.Users.Create(ctx, user), resourceCustomer)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(ctx, userEvent(events.EventUserRegistered, user, nil))
	return user, nil
}

// Login authenticates by username and issues an access and refresh token. Unknown
// usernames and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.NewValidationError("username and password are required", nil)
	}

	user, err := s.repos.Users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, mapRepoError(err, resourceUser)
		}
		auth.CompareDummy(password, s.bcryptCost)
		return nil, invalidCredentials()
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, invalidCredentials()
	}
	if !user.IsActive {
		return nil, apperrors.NewForbidden("account is disabled")
	}

	now := s.now().UTC()
	if err := s.repos.Users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, mapRepoError(err, resourceUser)
	}
	user.LastLogin = &now

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	ctx = auth.WithPrincipal(ctx, domain.Principal{UserID: user.ID, Username: user.Username, Role: user.Role, CustomerID: user.CustomerID})
	s.publisher.publish(ctx, userEvent(events.EventUserLoggedIn, user, nil))
	return &LoginResult{User: user, Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new access token with the user's current
// claims. The refresh token itself stays valid until it expires or is revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	claims, err := s.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}

	user, err := s.repos.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", time.Time{}, apperrors.NewUnauthorized("user not found or inactive")
		}
		return "", time.Time{}, mapRepoError(err, resourceUser)
	}
	if !user.IsActive {
		return "", time.Time{}, apperrors.NewUnauthorized("user not found or inactive")
	}

	token, expiresAt, err := s.tokens.IssueAccess(user)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return token, expiresAt, nil
}

// Logout revokes a refresh token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAtTime().Sub(s.now())
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return apperrors.NewInternalError(err)
	}

	ctx = auth.WithPrincipal(ctx, claims.Principal())
	event := events.New(events.EventUserLoggedOut, events.Actor{}, events.UserPayload{
		Username: claims.Username,
		Role:     string(claims.Role),
	})
	event.UserID = claims.UserID
	s.publisher.publish(ctx, event)
	return nil
}

func (s *AuthService) verifyRefresh(ctx context.Context, raw string) (*auth.Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperrors.NewUnauthorized("missing refresh token")
	}
	claims, err := s.tokens.VerifyRefresh(raw)
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return nil, apperrors.NewUnauthorized("token has expired")
	case errors.Is(err, auth.ErrInvalidTokenType):
		return nil, apperrors.NewUnauthorized("invalid token type")
	case err != nil:
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	if err := auth.CheckRevocation(ctx, s.revocations, claims); err != nil {
		if errors.Is(err, auth.ErrTokenRevoked) {
			return nil, apperrors.NewUnauthorized("token has been revoked")
		}
		s.logger.Error("revocation lookup failed", zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	return claims, nil
}

func (s *AuthService) validBootstrapKey(key string) bool {
	if s.bootstrapSecret == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.bootstrapSecret)) == 1
}

func ensureUsernameFree(ctx context.Context, repos repository.Repositories, username string, selfID int64) error {
	existing, err := repos.Users.GetByUsername(ctx, username)
	return freeOrConflict(existing, err, selfID, "username")
}

func ensureUserEmailFree(ctx context.Context, repos repository.Repositories, email string, selfID int64) error {
	existing, err := repos.Users.GetByEmail(ctx, email)
	return freeOrConflict(existing, err, selfID, "email")
}

func freeOrConflict(existing *domain.User, err error, selfID int64, field string) error {
	switch {
	case err == nil && existing.ID != selfID:
		return apperrors.NewConflict(field+" already exists", map[string]any{"field": field})
	case err == nil, errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return mapRepoError(err, resourceUser)
	}
}

func userEvent(eventType events.EventType, user *domain.User, fields []string) events.Event {
	event := events.New(eventType, events.Actor{}, events.UserPayload{
		Username: user.Username,
		Role:     string(user.Role),
		Fields:   fields,
	})
	event.UserID = user.ID
	return event
}

func invalidCredentials() error {
	return apperrors.NewUnauthorized("invalid username or password")
}

func passwordTooLong() error {
	return apperrors.NewValidationError(auth.ErrPasswordTooLong.Error(), map[string]any{
		"password": "must be at most 72 bytes",
	})
}

func invalidRole() error {
	return apperrors.NewValidationError("invalid role", map[string]any{"role": "must be one of: admin customer"})
}

func customerLinkForAdmin() error {
	return apperrors.NewValidationError("customer_id is only allowed for customer users", map[string]any{
		"customer_id": "only allowed for role customer",
	})
}
