package domain

import "github.com/shopspring/decimal"

// RatingSummary describes a customer's current review and average rating.
type RatingSummary struct {
	Rating        int
	ReviewID      *int64
	ReviewText    string
	AverageRating float64
}

// AverageRating returns the mean rating rounded to one decimal place, or 0 when
// there are no reviews. Halves round away from zero.
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, r := range reviews {
		sum = sum.Add(decimal.NewFromInt(int64(r.Rating)))
	}
	avg, _ := sum.Div(decimal.NewFromInt(int64(len(reviews)))).Round(1).Float64()
	return avg
}

// LatestReview returns the most recently created review. Equal timestamps are
// broken by the highest ID.
func LatestReview(reviews []Review) *Review {
	var latest *Review
	for i := range reviews {
		r := &reviews[i]
		if latest == nil ||
			r.CreatedAt.After(latest.CreatedAt) ||
			(r.CreatedAt.Equal(latest.CreatedAt) && r.ID > latest.ID) {
			latest = r
		}
	}
	return latest
}

// LatestRating returns the rating of the latest review, or 0 when there are none.
func LatestRating(reviews []Review) int {
	if latest := LatestReview(reviews); latest != nil {
		return latest.Rating
	}
	return 0
}

// SummarizeRatings derives the rating summary exposed for a customer.
func SummarizeRatings(reviews []Review) RatingSummary {
	summary := RatingSummary{AverageRating: AverageRating(reviews)}
	if latest := LatestReview(reviews); latest != nil {
		id := latest.ID
		summary.Rating = latest.Rating
		summary.ReviewID = &id
		summary.ReviewText = latest.Text
	}
	return summary
}

// WithRatings attaches derived ratings to a customer.
func WithRatings(c Customer, reviews []Review) CustomerWithRatings {
	return CustomerWithRatings{
		Customer:      c,
		LatestRating:  LatestRating(reviews),
		AverageRating: AverageRating(reviews),
	}
}
