package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

type reviewRepository struct {
	s *Store
}

func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.customers[review.CustomerID]; !ok {
			return fmt.Errorf("%w: reviews_customer_id_fkey", repository.ErrNotFound)
		}
		st.seq.review++
		now := r.s.now()
		review.ID = st.seq.review
		review.CreatedAt = now
		review.UpdatedAt = now
		st.reviews[review.ID] = *review
		return nil
	})
}

func (r *reviewRepository) Update(ctx context.Context, review *domain.Review) error {
	return r.s.write(ctx, func(st *state) error {
		existing, ok := st.reviews[review.ID]
		if !ok {
			return repository.ErrNotFound
		}
		existing.Rating = review.Rating
		existing.Text = review.Text
		existing.UpdatedAt = r.s.now()
		st.reviews[review.ID] = existing
		review.UpdatedAt = existing.UpdatedAt
		return nil
	})
}

func (r *reviewRepository) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.reviews[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.reviews, id)
		return nil
	})
}

func (r *reviewRepository) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	var (
		review domain.Review
		ok     bool
	)
	r.s.read(ctx, func(st *state) { review, ok = st.reviews[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &review, nil
}

func (r *reviewRepository) Latest(ctx context.Context, customerID int64) (*domain.Review, error) {
	reviews, _ := r.ListByCustomer(ctx, customerID)
	if len(reviews) == 0 {
		return nil, repository.ErrNotFound
	}
	return &reviews[0], nil
}

func (r *reviewRepository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Review, error) {
	result := make([]domain.Review, 0)
	r.s.read(ctx, func(st *state) {
		for _, rv := range st.reviews {
			if rv.CustomerID == customerID {
				result = append(result, rv)
			}
		}
	})
	sortNewestFirst(result)
	return result, nil
}

func (r *reviewRepository) ListByCustomerIDs(ctx context.Context, customerIDs []int64) (map[int64][]domain.Review, error) {
	result := make(map[int64][]domain.Review, len(customerIDs))
	wanted := make(map[int64]struct{}, len(customerIDs))
	for _, id := range customerIDs {
		wanted[id] = struct{}{}
	}
	r.s.read(ctx, func(st *state) {
		for _, rv := range st.reviews {
			if _, ok := wanted[rv.CustomerID]; ok {
				result[rv.CustomerID] = append(result[rv.CustomerID], rv)
			}
		}
	})
	for _, reviews := range result {
		sortNewestFirst(reviews)
	}
	return result, nil
}

func (r *reviewRepository) DeleteByCustomer(ctx context.Context, customerID int64) error {
	return r.s.write(ctx, func(st *state) error {
		for id, rv := range st.reviews {
			if rv.CustomerID == customerID {
				delete(st.reviews, id)
			}
		}
		return nil
	})
}

func sortNewestFirst(reviews []domain.Review) {
	slices.SortFunc(reviews, func(a, b domain.Review) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
}
