package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore invalidates tokens before they expire: single tokens by jti on logout,
// and every token of a user issued strictly before an instant on role change,
// deactivation, relink or deletion.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	InvalidateUser(ctx context.Context, userID int64, at time.Time, ttl time.Duration) error
	IsUserInvalidated(ctx context.Context, userID int64, issuedAt time.Time) (bool, error)
}

// CheckRevocation returns ErrTokenRevoked when claims were revoked by jti or by a
// user-wide invalidation.
func CheckRevocation(ctx context.Context, store RevocationStore, claims *Claims) error {
	revoked, err := store.IsRevoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if revoked {
		return ErrTokenRevoked
	}
	invalidated, err := store.IsUserInvalidated(ctx, claims.UserID, claims.IssuedAtTime())
	if err != nil {
		return err
	}
	if invalidated {
		return ErrTokenRevoked
	}
	return nil
}

// RedisRevocationStore keeps revocations in Redis with TTLs matching token lifetimes.
type RedisRevocationStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRevocationStore wraps an existing client.
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, keyPrefix: "crm:revoked:"}
}

func (s *RedisRevocationStore) jtiKey(jti string) string {
	return s.keyPrefix + "jti:" + jti
}

func (s *RedisRevocationStore) userKey(userID int64) string {
	return s.keyPrefix + "user:" + strconv.FormatInt(userID, 10)
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.jtiKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, s.jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return n > 0, nil
}

func (s *RedisRevocationStore) InvalidateUser(ctx context.Context, userID int64, at time.Time, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.userKey(userID), at.UnixNano(), ttl).Err(); err != nil {
		return fmt.Errorf("invalidate user tokens: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) IsUserInvalidated(ctx context.Context, userID int64, issuedAt time.Time) (bool, error) {
	cutoff, err := s.client.Get(ctx, s.userKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user invalidation: %w", err)
	}
	return issuedBefore(issuedAt, cutoff), nil
}

// issuedBefore reports whether a token issued at issuedAt predates the cutoff in Unix
// nanoseconds. Tokens without an issue time are treated as stale.
func issuedBefore(issuedAt time.Time, cutoff int64) bool {
	if issuedAt.IsZero() {
		return true
	}
	return issuedAt.UnixNano() < cutoff
}

// MemoryRevocationStore is the single-instance fallback used when Redis is not configured.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	now     func() time.Time
	revoked map[string]time.Time
	users   map[int64]userCutoff
}

type userCutoff struct {
	at      int64
	expires time.Time
}

// NewMemoryRevocationStore returns an empty store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		now:     time.Now,
		revoked: map[string]time.Time{},
		users:   map[int64]userCutoff{},
	}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = s.now().Add(ttl)
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.revoked[jti]
	if !ok {
		return false, nil
	}
	if s.now().After(expires) {
		delete(s.revoked, jti)
		return false, nil
	}
	return true, nil
}

func (s *MemoryRevocationStore) InvalidateUser(_ context.Context, userID int64, at time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = userCutoff{at: at.UnixNano(), expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryRevocationStore) IsUserInvalidated(_ context.Context, userID int64, issuedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff, ok := s.users[userID]
	if !ok {
		return false, nil
	}
	if s.now().After(cutoff.expires) {
		delete(s.users, userID)
		return false, nil
	}
	return issuedBefore(issuedAt, cutoff.at), nil
}

var (
	_ RevocationStore = (*RedisRevocationStore)(nil)
	_ RevocationStore = (*MemoryRevocationStore)(nil)
)
