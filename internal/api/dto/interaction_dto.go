package dto

import (
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/service"
)

// CreateInteractionRequest payload. Date is optional.
type CreateInteractionRequest struct {
	Type  string `json:"type"`
	Notes string `json:"notes"`
	Date  string `json:"date"`
}

// Input converts the payload for the service.
func (r CreateInteractionRequest) Input() service.InteractionInput {
	return service.InteractionInput{Type: r.Type, Notes: r.Notes, Date: r.Date}
}

// InteractionResponse is the wire form of an interaction.
type InteractionResponse struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	Type       string    `json:"type"`
	Notes      string    `json:"notes"`
	Date       time.Time `json:"date"`
	CreatedAt  time.Time `json:"created_at"`
}

// Interaction maps one interaction.
func Interaction(i *domain.Interaction) InteractionResponse {
	return InteractionResponse{
		ID:         i.ID,
		CustomerID: i.CustomerID,
		Type:       i.Type,
		Notes:      i.Notes,
		Date:       i.Date,
		CreatedAt:  i.CreatedAt,
	}
}

// Interactions maps a list, never returning nil.
func Interactions(list []domain.Interaction) []InteractionResponse {
	out := make([]InteractionResponse, 0, len(list))
	for i := range list {
		out = append(out, Interaction(&list[i]))
	}
	return out
}
