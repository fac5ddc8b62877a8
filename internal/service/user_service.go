package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/validation"
	apperrors "github.com/spec-kit/crm-service/pkg/errorutil"
)

// UserService manages user accounts for admins and for users editing themselves.
type UserService struct {
	repos       repository.Repositories
	validator   *validation.Validator
	publisher   publisher
	revocations auth.RevocationStore
	tokenTTL    time.Duration
	bcryptCost  int
	now         func() time.Time
}

// UserPatch is a partial user update. Role, IsActive and CustomerID are admin-only;
// a CustomerID of 0 removes the customer link.
type UserPatch struct {
	Username   *string `json:"username" validate:"omitnil,min=1,max=80"`
	Email      *string `json:"email" validate:"omitnil,max=120,crm_email"`
	Password   *string `json:"password" validate:"omitnil,min=1"`
	Role       *string `json:"role"`
	IsActive   *bool   `json:"is_active"`
	CustomerID *int64  `json:"customer_id"`
}

// NewUserService constructs the service. Invalidations are kept for the refresh token
// lifetime so that every outstanding token is covered.
func NewUserService(cfg config.AuthConfig, deps Dependencies, revocations auth.RevocationStore) *UserService {
	deps = deps.withDefaults()
	return &UserService{
		repos:       deps.Repos,
		validator:   deps.Validator,
		publisher:   publisher{dispatcher: deps.Dispatcher, logger: deps.Logger},
		revocations: revocations,
		tokenTTL:    cfg.RefreshTokenTTL(),
		bcryptCost:  cfg.BcryptCost,
		now:         time.Now,
	}
}

// List returns every user ordered by id.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.repos.Users.List(ctx)
	if err != nil {
		return nil, mapRepoError(err, resourceUser)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// Get loads one user.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.repos.Users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, resourceUser)
	}
	return user, nil
}

// Update applies patch on behalf of caller. Deactivating a user, or changing the role
// or customer link carried in its tokens, invalidates every token issued so far.
func (s *UserService) Update(ctx context.Context, caller domain.Principal, id int64, patch UserPatch) (*domain.User, error) {
	if !caller.IsAdmin() && (patch.Role != nil || patch.IsActive != nil || patch.CustomerID != nil) {
		return nil, apperrors.NewForbidden("only admins can change role, status or customer link")
	}
	trimPtr(patch.Username)
	trimPtr(patch.Email)
	if err := s.validator.Struct(patch); err != nil {
		return nil, err
	}
	var role *domain.Role
	if patch.Role != nil {
		r := domain.Role(strings.ToLower(strings.TrimSpace(*patch.Role)))
		if !r.Valid() {
			return nil, invalidRole()
		}
		role = &r
	}
	var hash string
	if patch.Password != nil {
		if len(*patch.Password) > auth.MaxPasswordBytes {
			return nil, passwordTooLong()
		}
		var err error
		if hash, err = auth.HashPassword(*patch.Password, s.bcryptCost); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	var (
		user   *domain.User
		fields []string
	)
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.repos.Users.GetByID(ctx, id)
		if err != nil {
			return mapRepoError(err, resourceUser)
		}

		if patch.Username != nil && *patch.Username != user.Username {
			if err := ensureUsernameFree(ctx, s.repos, *patch.Username, id); err != nil {
				return err
			}
			user.Username = *patch.Username
			fields = append(fields, "username")
		}
		if patch.Email != nil && *patch.Email != user.Email {
			if err := ensureUserEmailFree(ctx, s.repos, *patch.Email, id); err != nil {
				return err
			}
			user.Email = *patch.Email
			fields = append(fields, "email")
		}
		if hash != "" {
			user.PasswordHash = hash
			fields = append(fields, "password")
		}

		invalidate := false
		if role != nil && *role != user.Role {
			user.Role = *role
			fields = append(fields, "role")
			invalidate = true
		}
		if patch.IsActive != nil && *patch.IsActive != user.IsActive {
			user.IsActive = *patch.IsActive
			fields = append(fields, "is_active")
			invalidate = invalidate || !user.IsActive
		}
		if patch.CustomerID != nil {
			changed, err := s.relinkCustomer(ctx, user, *patch.CustomerID)
			if err != nil {
				return err
			}
			if changed {
				fields = append(fields, "customer_id")
				invalidate = true
			}
		}
		if user.IsAdmin() && user.CustomerID != nil {
			if patch.CustomerID != nil && *patch.CustomerID != 0 {
				return customerLinkForAdmin()
			}
			user.CustomerID = nil
			fields = append(fields, "customer_id")
		}

		if len(fields) == 0 {
			return nil
		}
		if err := s.repos.Users.Update(ctx, user); err != nil {
			return mapRepoError(err, resourceCustomer)
		}
		if invalidate {
			return s.invalidate(ctx, user.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(fields) > 0 {
		s.publisher.publish(ctx, userEvent(events.EventUserUpdated, user, fields))
	}
	return user, nil
}

// Delete removes a user and invalidates its tokens.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	var user *domain.User
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.repos.Users.GetByID(ctx, id)
		if err != nil {
			return mapRepoError(err, resourceUser)
		}
		if err := s.repos.Users.Delete(ctx, id); err != nil {
			return mapRepoError(err, resourceUser)
		}
		return s.invalidate(ctx, id)
	})
	if err != nil {
		return err
	}

	s.publisher.publish(ctx, userEvent(events.EventUserDeleted, user, nil))
	return nil
}

// relinkCustomer points user at customerID, or unlinks it when customerID is 0.
func (s *UserService) relinkCustomer(ctx context.Context, user *domain.User, customerID int64) (bool, error) {
	if customerID == 0 {
		if user.CustomerID == nil {
			return false, nil
		}
		user.CustomerID = nil
		return true, nil
	}
	if user.CustomerID != nil && *user.CustomerID == customerID {
		return false, nil
	}
	if _, err := s.repos.Customers.GetByID(ctx, customerID); err != nil {
		return false, mapRepoError(err, resourceCustomer)
	}
	user.CustomerID = &customerID
	return true, nil
}

func (s *UserService) invalidate(ctx context.Context, userID int64) error {
	if s.revocations == nil {
		return nil
	}
	if err := s.revocations.InvalidateUser(ctx, userID, s.now(), s.tokenTTL); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}
