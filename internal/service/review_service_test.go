package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-service/internal/events"
	apperrors "github.com/spec-kit/crm-service/pkg/errorutil"
)

func TestReviewService_SetCurrentRatingOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createCustomer(t, "John", "Doe", "john@x.com")
	id := c.Customer.ID

	first, err := f.reviews.SetCurrentRating(ctx, id, 4, str("Good"))
	require.NoError(t, err)
	assert.Equal(t, 4, first.Rating)
	assert.Equal(t, "Good", first.ReviewText)
	assert.Equal(t, 4.0, first.AverageRating)
	require.NotNil(t, first.ReviewID)

	second, err := f.reviews.SetCurrentRating(ctx, id, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Rating)
	assert.Equal(t, 2.0, second.AverageRating)
	assert.Equal(t, *first.ReviewID, *second.ReviewID)
	assert.Equal(t, "Good", second.ReviewText)

	reviews, err := f.reviews.List(ctx, id)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 2, reviews[0].Rating)

	payload := f.log.last().Payload.(events.RatingSetPayload)
	assert.False(t, payload.Created)
	assert.Equal(t, id, f.log.last().CustomerID)
}

func TestReviewService_SetCurrentRatingUpdatesLatestOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createCustomer(t, "John", "Doe", "john@x.com")
	id := c.Customer.ID
	older, err := f.reviews.Create(ctx, id, 5, "old")
	require.NoError(t, err)
	newer, err := f.reviews.Create(ctx, id, 3, "new")
	require.NoError(t, err)

	summary, err := f.reviews.SetCurrentRating(ctx, id, 1, nil)

	require.NoError(t, err)
	assert.Equal(t, newer.ID, *summary.ReviewID)
	assert.Equal(t, 3.0, summary.AverageRating)
	untouched, err := f.repos.Reviews.GetByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, untouched.Rating)
}

func TestReviewService_SetCurrentRatingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createCustomer(t, "John", "Doe", "john@x.com")

	for _, bad := range []float64{0, 6, 3.5, -1} {
		_, err := f.reviews.SetCurrentRating(ctx, c.Customer.ID, bad, nil)
		requireCode(t, err, apperrors.CodeValidation)
	}
	reviews, err := f.reviews.List(ctx, c.Customer.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)

	_, err = f.reviews.SetCurrentRating(ctx, 999, 3, nil)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestReviewService_SetCurrentRatingTouchesCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createCustomer(t, "John", "Doe", "john@x.com")

	_, err := f.reviews.SetCurrentRating(ctx, c.Customer.ID, 3, nil)
	require.NoError(t, err)

	reloaded, err := f.customers.Get(ctx, c.Customer.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Customer.UpdatedAt.After(c.Customer.UpdatedAt))
}

func TestReviewService_ConcurrentUpsertsConverge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createCustomer(t, "John", "Doe", "john@x.com")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(rating float64) {
			defer wg.Done()
			_, err := f.reviews.SetCurrentRating(ctx, c.Customer.ID, rating, nil)
			assert.NoError(t, err)
		}(float64(i%5 + 1))
	}
	wg.Wait()

	reviews, err := f.reviews.List(ctx, c.Customer.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestReviewService_CurrentRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createCustomer(t, "John", "Doe", "john@x.com")

	empty, err := f.reviews.CurrentRating(ctx, c.Customer.ID)
	require.NoError(t, err)
	assert.Zero(t, empty.Rating)
	assert.Nil(t, empty.ReviewID)

	_, err = f.reviews.Create(ctx, c.Customer.ID, 5, "a")
	require.NoError(t, err)
	_, err = f.reviews.Create(ctx, c.Customer.ID, 2, "b")
	require.NoError(t, err)

	summary, err := f.reviews.CurrentRating(ctx, c.Customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Rating)
	assert.Equal(t, "b", summary.ReviewText)
	assert.Equal(t, 3.5, summary.AverageRating)

	_, err = f.reviews.CurrentRating(ctx, 999)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestReviewService_CRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	john := f.createCustomer(t, "John", "Doe", "john@x.com")
	jane := f.createCustomer(t, "Jane", "Roe", "jane@x.com")

	review, err := f.reviews.Create(ctx, john.Customer.ID, 4.0, "fine")
	require.NoError(t, err)
	assert.Equal(t, 4, review.Rating)

	_, err = f.reviews.Create(ctx, john.Customer.ID, 4.5, "")
	requireCode(t, err, apperrors.CodeValidation)
	_, err = f.reviews.Create(ctx, 999, 4, "")
	requireCode(t, err, apperrors.CodeNotFound)

	updated, err := f.reviews.Update(ctx, john.Customer.ID, review.ID, ReviewUpdateInput{Text: str("better")})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Rating)
	assert.Equal(t, "better", updated.Text)

	updated, err = f.reviews.Update(ctx, john.Customer.ID, review.ID, ReviewUpdateInput{Rating: float(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Rating)

	_, err = f.reviews.Update(ctx, john.Customer.ID, review.ID, ReviewUpdateInput{Rating: float(9)})
	requireCode(t, err, apperrors.CodeValidation)

	_, err = f.reviews.Update(ctx, jane.Customer.ID, review.ID, ReviewUpdateInput{Text: str("x")})
	requireCode(t, err, apperrors.CodeNotFound)
	requireCode(t, f.reviews.Delete(ctx, jane.Customer.ID, review.ID), apperrors.CodeNotFound)

	require.NoError(t, f.reviews.Delete(ctx, john.Customer.ID, review.ID))
	requireCode(t, f.reviews.Delete(ctx, john.Customer.ID, review.ID), apperrors.CodeNotFound)

	assert.Equal(t, []events.EventType{
		events.EventCustomerCreated,
		events.EventCustomerCreated,
		events.EventReviewCreated,
		events.EventReviewUpdated,
		events.EventReviewUpdated,
		events.EventReviewDeleted,
	}, f.log.types())
}

func TestReviewService_ListNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createCustomer(t, "John", "Doe", "john@x.com")
	first, err := f.reviews.Create(ctx, c.Customer.ID, 3, "")
	require.NoError(t, err)
	second, err := f.reviews.Create(ctx, c.Customer.ID, 4, "")
	require.NoError(t, err)

	reviews, err := f.reviews.List(ctx, c.Customer.ID)

	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, second.ID, reviews[0].ID)
	assert.Equal(t, first.ID, reviews[1].ID)

	_, err = f.reviews.List(ctx, 999)
	requireCode(t, err, apperrors.CodeNotFound)
}
