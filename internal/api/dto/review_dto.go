package dto

import (
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
)

// CreateReviewRequest payload. Rating is a pointer so a missing value is detectable.
type CreateReviewRequest struct {
	Rating *float64 `json:"rating"`
	Review string   `json:"review"`
}

// UpdateReviewRequest payload; absent fields are left unchanged.
type UpdateReviewRequest struct {
	Rating *float64 `json:"rating"`
	Review *string  `json:"review"`
}

// SetRatingRequest payload for the current rating.
type SetRatingRequest struct {
	Rating *float64 `json:"rating"`
	Review *string  `json:"review"`
}

// ReviewResponse is the wire form of a review.
type ReviewResponse struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	Rating     int       `json:"rating"`
	Review     string    `json:"review"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RatingResponse describes a customer's current rating.
type RatingResponse struct {
	Rating        int     `json:"rating"`
	ReviewID      *int64  `json:"review_id"`
	ReviewText    string  `json:"review_text"`
	AverageRating float64 `json:"average_rating"`
}

// Review maps one review.
func Review(r *domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		Rating:     r.Rating,
		Review:     r.Text,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// Reviews maps a list, never returning nil.
func Reviews(list []domain.Review) []ReviewResponse {
	out := make([]ReviewResponse, 0, len(list))
	for i := range list {
		out = append(out, Review(&list[i]))
	}
	return out
}

// Rating maps a rating summary.
func Rating(s domain.RatingSummary) RatingResponse {
	return RatingResponse{
		Rating:        s.Rating,
		ReviewID:      s.ReviewID,
		ReviewText:    s.ReviewText,
		AverageRating: s.AverageRating,
	}
}
