package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/crm-service/pkg/errorutil"
)

func TestInteractionService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createCustomer(t, "John", "Doe", "john@x.com")

	defaulted, err := f.interactions.Create(ctx, c.Customer.ID, InteractionInput{Type: "call", Notes: "intro"})
	require.NoError(t, err)
	assert.False(t, defaulted.Date.IsZero())
	assert.Equal(t, "intro", defaulted.Notes)

	dated, err := f.interactions.Create(ctx, c.Customer.ID, InteractionInput{Type: "meeting", Date: "2024-05-01"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), dated.Date)

	list, err := f.interactions.ListByCustomer(ctx, c.Customer.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, defaulted.ID, list[0].ID)
	assert.Equal(t, dated.ID, list[1].ID)
}

func TestInteractionService_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createCustomer(t, "John", "Doe", "john@x.com")

	_, err := f.interactions.Create(ctx, c.Customer.ID, InteractionInput{Type: " "})
	requireCode(t, err, apperrors.CodeValidation)

	_, err = f.interactions.Create(ctx, c.Customer.ID, InteractionInput{Type: "call", Date: "yesterday"})
	requireCode(t, err, apperrors.CodeValidation)

	_, err = f.interactions.Create(ctx, 999, InteractionInput{Type: "call"})
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = f.interactions.ListByCustomer(ctx, 999)
	requireCode(t, err, apperrors.CodeNotFound)

	list, err := f.interactions.ListByCustomer(ctx, c.Customer.ID)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestParseInteractionDate(t *testing.T) {
	cases := map[string]time.Time{
		"2024-05-01T10:30:00Z":      time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		"2024-05-01T10:30:00+02:00": time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC),
		"2024-05-01T10:30:00":       time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
	}
	for raw, want := range cases {
		got, err := parseInteractionDate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}
