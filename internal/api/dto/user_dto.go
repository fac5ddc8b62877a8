package dto

import (
	"time"

	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/service"
)

// RegisterRequest payload for new users.
type RegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	CustomerID *int64 `json:"customer_id"`
	AdminKey   string `json:"admin_key"`
}

// Input converts the payload for the service.
func (r RegisterRequest) Input() service.RegisterInput {
	return service.RegisterInput{
		Username:   r.Username,
		Email:      r.Email,
		Password:   r.Password,
		Role:       r.Role,
		CustomerID: r.CustomerID,
		AdminKey:   r.AdminKey,
	}
}

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest carries a refresh token; the bearer header is accepted as well.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UpdateUserRequest is a partial update. customer_id 0 removes the customer link.
type UpdateUserRequest struct {
	Username   *string `json:"username"`
	Email      *string `json:"email"`
	Password   *string `json:"password"`
	Role       *string `json:"role"`
	IsActive   *bool   `json:"is_active"`
	CustomerID *int64  `json:"customer_id"`
}

// Patch converts the payload for the service.
func (r UpdateUserRequest) Patch() service.UserPatch {
	return service.UserPatch{
		Username:   r.Username,
		Email:      r.Email,
		Password:   r.Password,
		Role:       r.Role,
		IsActive:   r.IsActive,
		CustomerID: r.CustomerID,
	}
}

// UserResponse is the sanitized wire form of a user.
type UserResponse struct {
	ID         int64       `json:"id"`
	Username   string      `json:"username"`
	Email      string      `json:"email"`
	Role       domain.Role `json:"role"`
	CustomerID *int64      `json:"customer_id"`
	IsActive   bool        `json:"is_active"`
	LastLogin  *time.Time  `json:"last_login"`
	CreatedAt  time.Time   `json:"created_at"`
}

// LoginResponse carries the issued tokens.
type LoginResponse struct {
	AccessToken           string       `json:"access_token"`
	RefreshToken          string       `json:"refresh_token"`
	TokenType             string       `json:"token_type"`
	AccessTokenExpiresAt  time.Time    `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time    `json:"refresh_token_expires_at"`
	User                  UserResponse `json:"user"`
}

// RefreshResponse carries a new access token.
type RefreshResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// User maps a user without its password hash.
func User(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		CustomerID: u.CustomerID,
		IsActive:   u.IsActive,
		LastLogin:  u.LastLogin,
		CreatedAt:  u.CreatedAt,
	}
}

// Users maps a list, never returning nil.
func Users(list []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(list))
	for i := range list {
		out = append(out, User(&list[i]))
	}
	return out
}

// Login maps a successful login.
func Login(user *domain.User, pair *auth.TokenPair) LoginResponse {
	return LoginResponse{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		TokenType:             "Bearer",
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		User:                  User(user),
	}
}
