package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-service/internal/domain"
)

// InteractionRepository persists the append-only interaction log.
type InteractionRepository interface {
	Create(ctx context.Context, interaction *domain.Interaction) error
	ListByCustomer(ctx context.Context, customerID int64) ([]domain.Interaction, error)
	DeleteByCustomer(ctx context.Context, customerID int64) error
}

type interactionRepository struct {
	db
}

// NewInteractionRepository constructs repository.
func NewInteractionRepository(pool *pgxpool.Pool) InteractionRepository {
	return &interactionRepository{db{pool: pool}}
}

// Create stores interaction. A zero Date defaults to the creation instant.
func (r *interactionRepository) Create(ctx context.Context, interaction *domain.Interaction) error {
	const query = `
        INSERT INTO interactions (customer_id, type, notes, date)
        VALUES ($1,$2,$3,COALESCE($4, NOW()))
        RETURNING id, date, created_at`
	var date *time.Time
	if !interaction.Date.IsZero() {
		date = &interaction.Date
	}
	err := r.conn(ctx).QueryRow(ctx, query,
		interaction.CustomerID,
		interaction.Type,
		interaction.Notes,
		date,
	).Scan(&interaction.ID, &interaction.Date, &interaction.CreatedAt)
	return translate(err)
}

func (r *interactionRepository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Interaction, error) {
	const query = `
        SELECT id, customer_id, type, notes, date, created_at
        FROM interactions WHERE customer_id=$1
        ORDER BY created_at, id`
	rows, err := r.conn(ctx).Query(ctx, query, customerID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	result := make([]domain.Interaction, 0)
	for rows.Next() {
		var interaction domain.Interaction
		if err := rows.Scan(
			&interaction.ID,
			&interaction.CustomerID,
			&interaction.Type,
			&interaction.Notes,
			&interaction.Date,
			&interaction.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, interaction)
	}
	return result, rows.Err()
}

func (r *interactionRepository) DeleteByCustomer(ctx context.Context, customerID int64) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM interactions WHERE customer_id=$1`, customerID)
	return translate(err)
}
