package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocationStore_Jti(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryRevocationStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Revoke(ctx, "abc", time.Minute))

	revoked, err := store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, _ = store.IsRevoked(ctx, "other")
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = store.IsRevoked(ctx, "abc")
	assert.False(t, revoked, "entry expires with the token")
}

func TestMemoryRevocationStore_UserCutoff(t *testing.T) {
	ctx := context.Background()
	cutoff := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryRevocationStore()

	require.NoError(t, store.InvalidateUser(ctx, 7, cutoff, time.Hour))

	invalid, err := store.IsUserInvalidated(ctx, 7, cutoff.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, invalid)

	invalid, _ = store.IsUserInvalidated(ctx, 7, cutoff.Add(time.Minute))
	assert.False(t, invalid)

	invalid, _ = store.IsUserInvalidated(ctx, 8, cutoff.Add(-time.Minute))
	assert.False(t, invalid)

	invalid, _ = store.IsUserInvalidated(ctx, 7, cutoff)
	assert.False(t, invalid, "issued at the cutoff instant")
	invalid, _ = store.IsUserInvalidated(ctx, 7, cutoff.Add(-time.Millisecond))
	assert.True(t, invalid)
	invalid, _ = store.IsUserInvalidated(ctx, 7, time.Time{})
	assert.True(t, invalid, "no issue time")
}

func TestMemoryRevocationStore_SameSecondReissue(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tm := NewTokenManager(testAuthConfig())
	store := NewMemoryRevocationStore()

	stale, err := tm.WithClock(func() time.Time { return base.Add(100 * time.Millisecond) }).IssuePair(testUser())
	require.NoError(t, err)
	require.NoError(t, store.InvalidateUser(ctx, testUser().ID, base.Add(200*time.Millisecond), time.Hour))
	fresh, err := tm.WithClock(func() time.Time { return base.Add(300 * time.Millisecond) }).IssuePair(testUser())
	require.NoError(t, err)

	now := func() time.Time { return base.Add(time.Second) }
	staleClaims, err := tm.WithClock(now).VerifyRefresh(stale.RefreshToken)
	require.NoError(t, err)
	freshClaims, err := tm.WithClock(now).VerifyRefresh(fresh.RefreshToken)
	require.NoError(t, err)

	assert.ErrorIs(t, CheckRevocation(ctx, store, staleClaims), ErrTokenRevoked)
	assert.NoError(t, CheckRevocation(ctx, store, freshClaims))
}

func TestCheckRevocation(t *testing.T) {
	ctx := context.Background()
	tm := NewTokenManager(testAuthConfig())
	store := NewMemoryRevocationStore()
	pair, err := tm.IssuePair(testUser())
	require.NoError(t, err)
	claims, err := tm.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)

	assert.NoError(t, CheckRevocation(ctx, store, claims))

	require.NoError(t, store.Revoke(ctx, claims.ID, time.Hour))
	assert.ErrorIs(t, CheckRevocation(ctx, store, claims), ErrTokenRevoked)

	access, err := tm.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.NoError(t, CheckRevocation(ctx, store, access))

	require.NoError(t, store.InvalidateUser(ctx, access.UserID, access.IssuedAtTime().Add(time.Nanosecond), time.Hour))
	assert.ErrorIs(t, CheckRevocation(ctx, store, access), ErrTokenRevoked)
}
