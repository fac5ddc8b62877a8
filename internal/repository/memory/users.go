package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.s.write(ctx, func(st *state) error {
		if err := checkUser(st, user); err != nil {
			return err
		}
		st.seq.user++
		now := r.s.now()
		user.ID = st.seq.user
		user.CreatedAt = now
		user.UpdatedAt = now
		st.users[user.ID] = cloneUser(*user)
		return nil
	})
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	return r.s.write(ctx, func(st *state) error {
		existing, ok := st.users[user.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if err := checkUser(st, user); err != nil {
			return err
		}
		user.CreatedAt = existing.CreatedAt
		user.LastLogin = ptrCopy(existing.LastLogin)
		user.UpdatedAt = r.s.now()
		st.users[user.ID] = cloneUser(*user)
		return nil
	})
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.users, id)
		return nil
	})
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.ID == id })
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.Username == username })
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.Email == email })
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	users := make([]domain.User, 0)
	r.s.read(ctx, func(st *state) {
		for _, u := range st.users {
			users = append(users, cloneUser(u))
		}
	})
	slices.SortFunc(users, func(a, b domain.User) int { return cmp.Compare(a.ID, b.ID) })
	return users, nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.s.write(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		u.LastLogin = &at
		st.users[id] = u
		return nil
	})
}

func (r *userRepository) UnlinkCustomer(ctx context.Context, customerID int64) error {
	return r.s.write(ctx, func(st *state) error {
		now := r.s.now()
		for id, u := range st.users {
			if u.CustomerID != nil && *u.CustomerID == customerID {
				u.CustomerID = nil
				u.UpdatedAt = now
				st.users[id] = u
			}
		}
		return nil
	})
}

func (r *userRepository) find(ctx context.Context, match func(domain.User) bool) (*domain.User, error) {
	var found *domain.User
	r.s.read(ctx, func(st *state) {
		for _, u := range st.users {
			if match(u) {
				c := cloneUser(u)
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

func checkUser(st *state, user *domain.User) error {
	for id, u := range st.users {
		if id == user.ID {
			continue
		}
		if u.Username == user.Username {
			return &repository.DuplicateError{Field: "username"}
		}
		if u.Email == user.Email {
			return &repository.DuplicateError{Field: "email"}
		}
	}
	if user.CustomerID != nil {
		if _, ok := st.customers[*user.CustomerID]; !ok {
			return fmt.Errorf("%w: users_customer_id_fkey", repository.ErrNotFound)
		}
	}
	return nil
}

func cloneUser(u domain.User) domain.User {
	u.CustomerID = ptrCopy(u.CustomerID)
	u.LastLogin = ptrCopy(u.LastLogin)
	return u
}
