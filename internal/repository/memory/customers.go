package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

type customerRepository struct {
	s *Store
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	return r.s.write(ctx, func(st *state) error {
		if emailTaken(st, customer.Email, 0) {
			return &repository.DuplicateError{Field: "email"}
		}
		st.seq.customer++
		now := r.s.now()
		customer.ID = st.seq.customer
		customer.CreatedAt = now
		customer.UpdatedAt = now
		st.customers[customer.ID] = *customer
		return nil
	})
}

func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	return r.s.write(ctx, func(st *state) error {
		existing, ok := st.customers[customer.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if emailTaken(st, customer.Email, customer.ID) {
			return &repository.DuplicateError{Field: "email"}
		}
		customer.CreatedAt = existing.CreatedAt
		customer.UpdatedAt = r.s.now()
		st.customers[customer.ID] = *customer
		return nil
	})
}

func (r *customerRepository) Touch(ctx context.Context, id int64) error {
	return r.s.write(ctx, func(st *state) error {
		customer, ok := st.customers[id]
		if !ok {
			return repository.ErrNotFound
		}
		customer.UpdatedAt = r.s.now()
		st.customers[id] = customer
		return nil
	})
}

// Delete removes the customer together with its interactions and reviews and unlinks
// users, mirroring the schema's ON DELETE rules.
func (r *customerRepository) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.customers[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.customers, id)
		for iid, i := range st.interactions {
			if i.CustomerID == id {
				delete(st.interactions, iid)
			}
		}
		for rid, rv := range st.reviews {
			if rv.CustomerID == id {
				delete(st.reviews, rid)
			}
		}
		for uid, u := range st.users {
			if u.CustomerID != nil && *u.CustomerID == id {
				u.CustomerID = nil
				st.users[uid] = u
			}
		}
		return nil
	})
}

func (r *customerRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	var (
		customer domain.Customer
		ok       bool
	)
	r.s.read(ctx, func(st *state) { customer, ok = st.customers[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &customer, nil
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	var found *domain.Customer
	r.s.read(ctx, func(st *state) {
		for _, c := range st.customers {
			if c.Email == email {
				found = &c
				return
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *customerRepository) List(ctx context.Context, q repository.CustomerQuery) ([]domain.Customer, int, error) {
	term := strings.ToLower(strings.TrimSpace(q.Search))
	matches := make([]domain.Customer, 0)
	r.s.read(ctx, func(st *state) {
		for _, c := range st.customers {
			if q.CustomerID != nil && c.ID != *q.CustomerID {
				continue
			}
			if q.Status != "" && c.Status != q.Status {
				continue
			}
			if term != "" && !matchesSearch(c, term) {
				continue
			}
			matches = append(matches, c)
		}
	})

	slices.SortFunc(matches, func(a, b domain.Customer) int {
		c := compareCustomers(a, b, q.SortBy)
		if q.Descending {
			return -c
		}
		return c
	})

	total := len(matches)
	if q.Limit <= 0 {
		return matches, total, nil
	}
	if q.Offset >= total {
		return []domain.Customer{}, total, nil
	}
	end := min(q.Offset+q.Limit, total)
	return matches[q.Offset:end], total, nil
}

func matchesSearch(c domain.Customer, term string) bool {
	for _, field := range []string{c.FirstName, c.LastName, c.Email, c.Company} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func compareCustomers(a, b domain.Customer, sortBy string) int {
	lower := strings.ToLower
	var c int
	switch sortBy {
	case repository.SortByName:
		c = cmp.Or(cmp.Compare(lower(a.FirstName), lower(b.FirstName)), cmp.Compare(lower(a.LastName), lower(b.LastName)))
	case repository.SortByCompany:
		c = cmp.Compare(lower(a.Company), lower(b.Company))
	case repository.SortByCreatedAt:
		c = a.CreatedAt.Compare(b.CreatedAt)
	default:
		c = cmp.Or(cmp.Compare(lower(a.LastName), lower(b.LastName)), cmp.Compare(lower(a.FirstName), lower(b.FirstName)))
	}
	return cmp.Or(c, cmp.Compare(a.ID, b.ID))
}

func emailTaken(st *state, email string, exceptID int64) bool {
	for id, c := range st.customers {
		if id != exceptID && c.Email == email {
			return true
		}
	}
	return false
}
