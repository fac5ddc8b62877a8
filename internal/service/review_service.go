package service

import (
	"context"
	"errors"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/validation"
	apperrors "github.com/spec-kit/crm-service/pkg/errorutil"
)

const (
	resourceCustomer = "customer"
	resourceReview   = "review"
)

// ReviewService manages customer reviews and the current rating.
type ReviewService struct {
	repos     repository.Repositories
	publisher publisher
}

// ReviewUpdateInput holds the fields a review update may change; nil leaves a field as is.
type ReviewUpdateInput struct {
	Rating *float64
	Text   *string
}

// NewReviewService constructs the service.
func NewReviewService(deps Dependencies) *ReviewService {
	deps = deps.withDefaults()
	return &ReviewService{
		repos:     deps.Repos,
		publisher: publisher{dispatcher: deps.Dispatcher, logger: deps.Logger},
	}
}

// List returns a customer's reviews, newest first.
func (s *ReviewService) List(ctx context.Context, customerID int64) ([]domain.Review, error) {
	if _, err := s.repos.Customers.GetByID(ctx, customerID); err != nil {
		return nil, mapRepoError(err, resourceCustomer)
	}
	reviews, err := s.repos.Reviews.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, mapRepoError(err, resourceReview)
	}
	return reviews, nil
}

// Create appends a review to a customer.
func (s *ReviewService) Create(ctx context.Context, customerID int64, rating float64, text string) (*domain.Review, error) {
	value, err := validation.Rating(rating)
	if err != nil {
		return nil, err
	}

	review := &domain.Review{CustomerID: customerID, Rating: value, Text: text}
	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repos.Customers.GetByID(ctx, customerID); err != nil {
			return mapRepoError(err, resourceCustomer)
		}
		if err := s.repos.Reviews.Create(ctx, review); err != nil {
			return mapRepoError(err, resourceCustomer)
		}
		return mapRepoError(s.repos.Customers.Touch(ctx, customerID), resourceCustomer)
	})
	if err != nil {
		return nil, err
	}

	s.publishReview(ctx, events.EventReviewCreated, review)
	return review, nil
}

// Update changes a review's rating or text. A review that belongs to a different
// customer is reported as missing.
func (s *ReviewService) Update(ctx context.Context, customerID, reviewID int64, input ReviewUpdateInput) (*domain.Review, error) {
	var rating *int
	if input.Rating != nil {
		value, err := validation.Rating(*input.Rating)
		if err != nil {
			return nil, err
		}
		rating = &value
	}

	var review *domain.Review
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		review, err = s.customerReview(ctx, customerID, reviewID)
		if err != nil {
			return err
		}
		if rating != nil {
			review.Rating = *rating
		}
		if input.Text != nil {
			review.Text = *input.Text
		}
		if err := s.repos.Reviews.Update(ctx, review); err != nil {
			return mapRepoError(err, resourceReview)
		}
		return mapRepoError(s.repos.Customers.Touch(ctx, customerID), resourceCustomer)
	})
	if err != nil {
		return nil, err
	}

	s.publishReview(ctx, events.EventReviewUpdated, review)
	return review, nil
}

// Delete removes one review of a customer.
func (s *ReviewService) Delete(ctx context.Context, customerID, reviewID int64) error {
	var review *domain.Review
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		review, err = s.customerReview(ctx, customerID, reviewID)
		if err != nil {
			return err
		}
		if err := s.repos.Reviews.Delete(ctx, reviewID); err != nil {
			return mapRepoError(err, resourceReview)
		}
		return mapRepoError(s.repos.Customers.Touch(ctx, customerID), resourceCustomer)
	})
	if err != nil {
		return err
	}

	s.publishReview(ctx, events.EventReviewDeleted, review)
	return nil
}

// CurrentRating returns the latest review and the average rating of a customer.
func (s *ReviewService) CurrentRating(ctx context.Context, customerID int64) (domain.RatingSummary, error) {
	if _, err := s.repos.Customers.GetByID(ctx, customerID); err != nil {
		return domain.RatingSummary{}, mapRepoError(err, resourceCustomer)
	}
	reviews, err := s.repos.Reviews.ListByCustomer(ctx, customerID)
	if err != nil {
		return domain.RatingSummary{}, mapRepoError(err, resourceReview)
	}
	return domain.SummarizeRatings(reviews), nil
}

// SetCurrentRating overwrites the customer's latest review, or creates one when the
// customer has none. text replaces the review text only when non-nil.
func (s *ReviewService) SetCurrentRating(ctx context.Context, customerID int64, rating float64, text *string) (domain.RatingSummary, error) {
	value, err := validation.Rating(rating)
	if err != nil {
		return domain.RatingSummary{}, err
	}

	var (
		review  *domain.Review
		created bool
	)
	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		review, created, err = upsertCurrentRating(ctx, s.repos, customerID, value, text)
		return err
	})
	if err != nil {
		return domain.RatingSummary{}, err
	}

	reviews, err := s.repos.Reviews.ListByCustomer(ctx, customerID)
	if err != nil {
		return domain.RatingSummary{}, mapRepoError(err, resourceReview)
	}
	id := review.ID
	summary := domain.RatingSummary{
		Rating:        review.Rating,
		ReviewID:      &id,
		ReviewText:    review.Text,
		AverageRating: domain.AverageRating(reviews),
	}

	s.publisher.publish(ctx, ratingSetEvent(review, created, summary.AverageRating))
	return summary, nil
}

func (s *ReviewService) customerReview(ctx context.Context, customerID, reviewID int64) (*domain.Review, error) {
	if _, err := s.repos.Customers.GetByID(ctx, customerID); err != nil {
		return nil, mapRepoError(err, resourceCustomer)
	}
	review, err := s.repos.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, mapRepoError(err, resourceReview)
	}
	if review.CustomerID != customerID {
		return nil, apperrors.NewNotFound(resourceReview, nil)
	}
	return review, nil
}

func (s *ReviewService) publishReview(ctx context.Context, eventType events.EventType, review *domain.Review) {
	event := events.New(eventType, events.Actor{}, events.ReviewPayload{ReviewID: review.ID, Rating: review.Rating})
	event.CustomerID = review.CustomerID
	s.publisher.publish(ctx, event)
}

// upsertCurrentRating must run inside a transaction. It updates the latest review of
// the customer in place or creates the first one, then touches the customer.
func upsertCurrentRating(ctx context.Context, repos repository.Repositories, customerID int64, rating int, text *string) (*domain.Review, bool, error) {
	if _, err := repos.Customers.GetByID(ctx, customerID); err != nil {
		return nil, false, mapRepoError(err, resourceCustomer)
	}

	created := false
	review, err := repos.Reviews.Latest(ctx, customerID)
	switch {
	case err == nil:
		review.Rating = rating
		if text != nil {
			review.Text = *text
		}
		if err := repos.Reviews.Update(ctx, review); err != nil {
			return nil, false, mapRepoError(err, resourceReview)
		}
	case errors.Is(err, repository.ErrNotFound):
		created = true
		review = &domain.Review{CustomerID: customerID, Rating: rating}
		if text != nil {
			review.Text = *text
		}
		if err := repos.Reviews.Create(ctx, review); err != nil {
			return nil, false, mapRepoError(err, resourceCustomer)
		}
	default:
		return nil, false, mapRepoError(err, resourceReview)
	}

	if err := repos.Customers.Touch(ctx, customerID); err != nil {
		return nil, false, mapRepoError(err, resourceCustomer)
	}
	return review, created, nil
}

func ratingSetEvent(review *domain.Review, created bool, average float64) events.Event {
	event := events.New(events.EventRatingSet, events.Actor{}, events.RatingSetPayload{
		ReviewID:      review.ID,
		Rating:        review.Rating,
		Created:       created,
		AverageRating: average,
	})
	event.CustomerID = review.CustomerID
	return event
}
