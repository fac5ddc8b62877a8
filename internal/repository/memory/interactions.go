package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

type interactionRepository struct {
	s *Store
}

func (r *interactionRepository) Create(ctx context.Context, interaction *domain.Interaction) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.customers[interaction.CustomerID]; !ok {
			return fmt.Errorf("%w: interactions_customer_id_fkey", repository.ErrNotFound)
		}
		st.seq.interaction++
		now := r.s.now()
		interaction.ID = st.seq.interaction
		interaction.CreatedAt = now
		if interaction.Date.IsZero() {
			interaction.Date = now
		}
		st.interactions[interaction.ID] = *interaction
		return nil
	})
}

func (r *interactionRepository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Interaction, error) {
	result := make([]domain.Interaction, 0)
	r.s.read(ctx, func(st *state) {
		for _, i := range st.interactions {
			if i.CustomerID == customerID {
				result = append(result, i)
			}
		}
	})
	slices.SortFunc(result, func(a, b domain.Interaction) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return result, nil
}

func (r *interactionRepository) DeleteByCustomer(ctx context.Context, customerID int64) error {
	return r.s.write(ctx, func(st *state) error {
		for id, i := range st.interactions {
			if i.CustomerID == customerID {
				delete(st.interactions, id)
			}
		}
		return nil
	})
}
