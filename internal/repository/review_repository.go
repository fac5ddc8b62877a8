package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-service/internal/domain"
)

// ReviewRepository persists customer reviews. Listings are newest first.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	Update(ctx context.Context, review *domain.Review) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Review, error)
	Latest(ctx context.Context, customerID int64) (*domain.Review, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]domain.Review, error)
	ListByCustomerIDs(ctx context.Context, customerIDs []int64) (map[int64][]domain.Review, error)
	DeleteByCustomer(ctx context.Context, customerID int64) error
}

type reviewRepository struct {
	db
}

// NewReviewRepository constructs repository.
func NewReviewRepository(pool *pgxpool.Pool) ReviewRepository {
	return &reviewRepository{db{pool: pool}}
}

const reviewColumns = `id, customer_id, rating, review, created_at, updated_at`

func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	const query = `
        INSERT INTO reviews (customer_id, rating, review)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	err := r.conn(ctx).QueryRow(ctx, query,
		review.CustomerID,
		review.Rating,
		review.Text,
	).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
	return translate(err)
}

func (r *reviewRepository) Update(ctx context.Context, review *domain.Review) error {
	const query = `
        UPDATE reviews SET rating=$1, review=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	err := r.conn(ctx).QueryRow(ctx, query, review.Rating, review.Text, review.ID).Scan(&review.UpdatedAt)
	return translate(err)
}

func (r *reviewRepository) Delete(ctx context.Context, id int64) error {
	return rowsAffected(r.conn(ctx).Exec(ctx, `DELETE FROM reviews WHERE id=$1`, id))
}

func (r *reviewRepository) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	review, err := scanReview(r.conn(ctx).QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return review, nil
}

func (r *reviewRepository) Latest(ctx context.Context, customerID int64) (*domain.Review, error) {
	const query = `SELECT ` + reviewColumns + ` FROM reviews WHERE customer_id=$1
        ORDER BY created_at DESC, id DESC LIMIT 1`
	review, err := scanReview(r.conn(ctx).QueryRow(ctx, query, customerID))
	if err != nil {
		return nil, translate(err)
	}
	return review, nil
}

func (r *reviewRepository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Review, error) {
	const query = `SELECT ` + reviewColumns + ` FROM reviews WHERE customer_id=$1
        ORDER BY created_at DESC, id DESC`
	rows, err := r.conn(ctx).Query(ctx, query, customerID)
	if err != nil {
		return nil, translate(err)
	}
	return collectReviews(rows)
}

func (r *reviewRepository) ListByCustomerIDs(ctx context.Context, customerIDs []int64) (map[int64][]domain.Review, error) {
	result := make(map[int64][]domain.Review, len(customerIDs))
	if len(customerIDs) == 0 {
		return result, nil
	}
	const query = `SELECT ` + reviewColumns + ` FROM reviews WHERE customer_id = ANY($1)
        ORDER BY created_at DESC, id DESC`
	rows, err := r.conn(ctx).Query(ctx, query, customerIDs)
	if err != nil {
		return nil, translate(err)
	}
	reviews, err := collectReviews(rows)
	if err != nil {
		return nil, err
	}
	for _, review := range reviews {
		result[review.CustomerID] = append(result[review.CustomerID], review)
	}
	return result, nil
}

func (r *reviewRepository) DeleteByCustomer(ctx context.Context, customerID int64) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM reviews WHERE customer_id=$1`, customerID)
	return translate(err)
}

func collectReviews(rows pgx.Rows) ([]domain.Review, error) {
	defer rows.Close()
	result := make([]domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *review)
	}
	return result, rows.Err()
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var review domain.Review
	if err := row.Scan(
		&review.ID,
		&review.CustomerID,
		&review.Rating,
		&review.Text,
		&review.CreatedAt,
		&review.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &review, nil
}
