package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/validation"
	apperrors "github.com/spec-kit/crm-service/pkg/errorutil"
)

var interactionDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// InteractionService logs customer touchpoints. Interactions are append-only.
type InteractionService struct {
	repos     repository.Repositories
	validator *validation.Validator
	publisher publisher
}

// InteractionInput describes a new interaction. An empty Date means now.
type InteractionInput struct {
	Type  string `json:"type" validate:"required,max=50"`
	Notes string `json:"notes"`
	Date  string `json:"date"`
}

// NewInteractionService constructs the service.
func NewInteractionService(deps Dependencies) *InteractionService {
	deps = deps.withDefaults()
	return &InteractionService{
		repos:     deps.Repos,
		validator: deps.Validator,
		publisher: publisher{dispatcher: deps.Dispatcher, logger: deps.Logger},
	}
}

// Create appends an interaction to an existing customer.
func (s *InteractionService) Create(ctx context.Context, customerID int64, input InteractionInput) (*domain.Interaction, error) {
	input.Type = strings.TrimSpace(input.Type)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	date, err := parseInteractionDate(input.Date)
	if err != nil {
		return nil, err
	}

	interaction := &domain.Interaction{
		CustomerID: customerID,
		Type:       input.Type,
		Notes:      input.Notes,
		Date:       date,
	}
	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repos.Customers.GetByID(ctx, customerID); err != nil {
			return mapRepoError(err, resourceCustomer)
		}
		return mapRepoError(s.repos.Interactions.Create(ctx, interaction), resourceCustomer)
	})
	if err != nil {
		return nil, err
	}

	event := events.New(events.EventInteractionAdded, events.Actor{}, events.InteractionLoggedPayload{
		InteractionID: interaction.ID,
		Type:          interaction.Type,
	})
	event.CustomerID = customerID
	s.publisher.publish(ctx, event)
	return interaction, nil
}

// ListByCustomer returns a customer's interactions in creation order.
func (s *InteractionService) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Interaction, error) {
	if _, err := s.repos.Customers.GetByID(ctx, customerID); err != nil {
		return nil, mapRepoError(err, resourceCustomer)
	}
	interactions, err := s.repos.Interactions.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, mapRepoError(err, resourceCustomer)
	}
	if interactions == nil {
		interactions = []domain.Interaction{}
	}
	return interactions, nil
}

func parseInteractionDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range interactionDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperrors.NewValidationError("invalid date format", map[string]any{
		"date": "expected RFC3339, YYYY-MM-DDTHH:MM:SS or YYYY-MM-DD",
	})
}
