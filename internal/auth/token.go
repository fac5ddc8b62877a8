package auth

import (
	"errors"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/domain"
)

// Token verification errors.
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrTokenRevoked     = errors.New("token has been revoked")
)

// Claims describes the JWT payload of both token types.
type Claims struct {
	UserID     int64            `json:"user_id"`
	Username   string           `json:"username"`
	Role       domain.Role      `json:"role"`
	CustomerID *int64           `json:"customer_id"`
	TokenType  domain.TokenType `json:"token_type"`
	// IssuedAtNanos is iat at nanosecond precision; iat itself is whole seconds.
	IssuedAtNanos int64 `json:"iat_ns,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts claims into the caller identity.
func (c *Claims) Principal() domain.Principal {
	return domain.Principal{
		UserID:     c.UserID,
		Username:   c.Username,
		Role:       c.Role,
		CustomerID: c.CustomerID,
	}
}

// IssuedAtTime returns the issue instant, preferring the nanosecond claim, or the zero
// time when neither is set.
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAtNanos > 0 {
		return time.Unix(0, c.IssuedAtNanos).UTC()
	}
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ExpiresAtTime returns the exp claim or the zero time.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TokenPair is returned on login.
type TokenPair struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
}

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewTokenManager builds a new manager. The refresh secret falls back to the access
// secret; the token_type claim still keeps the two kinds apart.
func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	refreshSecret := cfg.JWTRefreshSecret
	if refreshSecret == "" {
		refreshSecret = cfg.JWTSecret
	}
	return &TokenManager{
		accessSecret:  []byte(cfg.JWTSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     cfg.AccessTokenTTL(),
		refreshTTL:    cfg.RefreshTokenTTL(),
		issuer:        cfg.Issuer,
		now:           time.Now,
	}
}

// WithClock returns a copy of the manager using now as its time source.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	clone := *tm
	clone.now = now
	return &clone
}

// IssuePair signs an access and a refresh token for user.
func (tm *TokenManager) IssuePair(user *domain.User) (*TokenPair, error) {
	access, accessExp, err := tm.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := tm.sign(user, domain.TokenTypeRefresh, tm.refreshTTL, tm.refreshSecret)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:           access,
		RefreshToken:          refresh,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
	}, nil
}

// IssueAccess signs a new access token carrying the user's current claims.
func (tm *TokenManager) IssueAccess(user *domain.User) (string, time.Time, error) {
	return tm.sign(user, domain.TokenTypeAccess, tm.accessTTL, tm.accessSecret)
}

func (tm *TokenManager) sign(user *domain.User, tokenType domain.TokenType, ttl time.Duration, secret []byte) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		UserID:        user.ID,
		Username:      user.Username,
		Role:          user.Role,
		CustomerID:    user.CustomerID,
		TokenType:     tokenType,
		IssuedAtNanos: now.UnixNano(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tm.issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyAccess validates an access token and returns its claims.
func (tm *TokenManager) VerifyAccess(tokenStr string) (*Claims, error) {
	return tm.verify(tokenStr, tm.accessSecret, domain.TokenTypeAccess)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (tm *TokenManager) VerifyRefresh(tokenStr string) (*Claims, error) {
	return tm.verify(tokenStr, tm.refreshSecret, domain.TokenTypeRefresh)
}

func (tm *TokenManager) verify(tokenStr string, secret []byte, expected domain.TokenType) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	},
		jwt.WithTimeFunc(tm.now),
		jwt.WithIssuer(tm.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == 0 || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != expected {
		return nil, ErrInvalidTokenType
	}
	return claims, nil
}
