package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCustomerCreated  EventType = "customer_created"
	EventCustomerUpdated  EventType = "customer_updated"
	EventCustomerDeleted  EventType = "customer_deleted"
	EventInteractionAdded EventType = "interaction_logged"
	EventReviewCreated    EventType = "review_created"
	EventReviewUpdated    EventType = "review_updated"
	EventReviewDeleted    EventType = "review_deleted"
	EventRatingSet        EventType = "rating_set"
	EventUserRegistered   EventType = "user_registered"
	EventUserLoggedIn     EventType = "user_logged_in"
	EventUserLoggedOut    EventType = "user_logged_out"
	EventUserUpdated      EventType = "user_updated"
	EventUserDeleted      EventType = "user_deleted"
)

// AllEventTypes lists every event a subscriber can register for.
var AllEventTypes = []EventType{
	EventCustomerCreated,
	EventCustomerUpdated,
	EventCustomerDeleted,
	EventInteractionAdded,
	EventReviewCreated,
	EventReviewUpdated,
	EventReviewDeleted,
	EventRatingSet,
	EventUserRegistered,
	EventUserLoggedIn,
	EventUserLoggedOut,
	EventUserUpdated,
	EventUserDeleted,
}

// Actor identifies who caused an event. A zero UserID means anonymous.
type Actor struct {
	UserID int64  `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	CustomerID int64     `json:"customer_id,omitempty"`
	UserID     int64     `json:"user_id,omitempty"`
	Actor      Actor     `json:"actor"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload,omitempty"`
}

// New stamps an event with an id and timestamp.
func New(eventType EventType, actor Actor, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// CustomerChangedPayload lists the fields touched by an update.
type CustomerChangedPayload struct {
	Email  string   `json:"email"`
	Fields []string `json:"fields,omitempty"`
}

// InteractionLoggedPayload payload.
type InteractionLoggedPayload struct {
	InteractionID int64  `json:"interaction_id"`
	Type          string `json:"type"`
}

// ReviewPayload payload.
type ReviewPayload struct {
	ReviewID int64 `json:"review_id"`
	Rating   int   `json:"rating,omitempty"`
}

// RatingSetPayload payload.
type RatingSetPayload struct {
	ReviewID      int64   `json:"review_id"`
	Rating        int     `json:"rating"`
	Created       bool    `json:"created"`
	AverageRating float64 `json:"average_rating"`
}

// UserPayload payload.
type UserPayload struct {
	Username string   `json:"username"`
	Role     string   `json:"role"`
	Fields   []string `json:"fields,omitempty"`
}
