package domain

import "time"

// DefaultCustomerStatus is assigned when a customer is created without a status.
const DefaultCustomerStatus = "lead"

// Customer is a tracked business contact. Status is a free-form classification tag
// (lead, prospect, customer, active, inactive, churned, on_hold, potential, ...).
type Customer struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Company   string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CustomerWithRatings pairs a customer with the ratings derived from its reviews.
type CustomerWithRatings struct {
	Customer      Customer
	LatestRating  int
	AverageRating float64
}
