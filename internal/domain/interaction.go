package domain

import "time"

// Interaction is an append-only touchpoint (call, email, meeting, ...) with a customer.
type Interaction struct {
	ID         int64
	CustomerID int64
	Type       string
	Notes      string
	Date       time.Time
	CreatedAt  time.Time
}
