package domain

import "time"

// Rating bounds shared by every entry point that writes a review.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a rating with optional free text attached to a customer.
type Review struct {
	ID         int64
	CustomerID int64
	Rating     int
	Text       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
