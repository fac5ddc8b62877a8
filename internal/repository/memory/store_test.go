package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

func steppingClock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newCustomer(first, last, email, company string) *domain.Customer {
	return &domain.Customer{FirstName: first, LastName: last, Email: email, Company: company, Status: domain.DefaultCustomerStatus}
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()

	err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, repos.Customers.Create(ctx, newCustomer("John", "Doe", "john@x.com", "")))
		return errors.New("boom")
	})
	require.EqualError(t, err, "boom")

	_, total, err := repos.Customers.List(ctx, repository.CustomerQuery{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestWithinTx_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()

	assert.Panics(t, func() {
		_ = repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
			_ = repos.Customers.Create(ctx, newCustomer("John", "Doe", "john@x.com", ""))
			panic("boom")
		})
	})

	_, err := repos.Customers.GetByEmail(ctx, "john@x.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWithinTx_NestedSharesOuterTransaction(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()

	err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
			return repos.Customers.Create(ctx, newCustomer("John", "Doe", "john@x.com", ""))
		}); err != nil {
			return err
		}
		return errors.New("outer failure")
	})
	require.Error(t, err)

	_, err = repos.Customers.GetByEmail(ctx, "john@x.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWithinTx_UncommittedRowsStayInvisible(t *testing.T) {
	outer := context.Background()
	repos := NewRepositories()

	err := repos.Tx.WithinTx(outer, func(ctx context.Context) error {
		require.NoError(t, repos.Customers.Create(ctx, newCustomer("John", "Doe", "john@x.com", "")))

		_, err := repos.Customers.GetByEmail(ctx, "john@x.com")
		require.NoError(t, err, "visible inside the transaction")
		_, err = repos.Customers.GetByEmail(outer, "john@x.com")
		assert.ErrorIs(t, err, repository.ErrNotFound, "invisible outside before commit")
		_, total, err := repos.Customers.List(outer, repository.CustomerQuery{})
		require.NoError(t, err)
		assert.Zero(t, total)
		return nil
	})
	require.NoError(t, err)

	_, err = repos.Customers.GetByEmail(outer, "john@x.com")
	assert.NoError(t, err, "visible after commit")
}

func TestWithinTx_ConcurrentReaderSeesCommittedStateOnly(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()
	created := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := repos.Customers.Create(ctx, newCustomer("John", "Doe", "john@x.com", "")); err != nil {
				return err
			}
			close(created)
			<-release
			return errors.New("rolled back")
		})
	}()

	select {
	case <-created:
	case err := <-done:
		t.Fatalf("transaction ended early: %v", err)
	}
	_, err := repos.Customers.GetByEmail(ctx, "john@x.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	close(release)
	require.EqualError(t, <-done, "rolled back")

	_, err = repos.Customers.GetByEmail(ctx, "john@x.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCustomers_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()
	require.NoError(t, repos.Customers.Create(ctx, newCustomer("John", "Doe", "john@x.com", "")))

	err := repos.Customers.Create(ctx, newCustomer("Jane", "Doe", "john@x.com", ""))

	assert.ErrorIs(t, err, repository.ErrDuplicate)
	_, total, _ := repos.Customers.List(ctx, repository.CustomerQuery{})
	assert.Equal(t, 1, total)
}

func TestCustomers_ListSearchSortAndPage(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(WithClock(steppingClock()))
	for _, c := range []*domain.Customer{
		newCustomer("John", "Doe", "john@x.com", "Acme"),
		newCustomer("alice", "smith", "alice@y.com", "Globex"),
		newCustomer("Bob", "Adams", "bob@acme.io", "Initech"),
	} {
		require.NoError(t, repos.Customers.Create(ctx, c))
	}

	items, total, err := repos.Customers.List(ctx, repository.CustomerQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"Adams", "Doe", "smith"}, lastNames(items))

	items, _, _ = repos.Customers.List(ctx, repository.CustomerQuery{SortBy: repository.SortByName, Descending: true})
	assert.Equal(t, []string{"Doe", "Adams", "smith"}, lastNames(items))

	items, total, _ = repos.Customers.List(ctx, repository.CustomerQuery{Search: "ACME"})
	assert.Equal(t, 2, total)
	assert.Equal(t, []string{"Adams", "Doe"}, lastNames(items))

	items, total, _ = repos.Customers.List(ctx, repository.CustomerQuery{Limit: 2, Offset: 2})
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"smith"}, lastNames(items))

	items, total, _ = repos.Customers.List(ctx, repository.CustomerQuery{Limit: 2, Offset: 10})
	assert.Equal(t, 3, total)
	assert.Empty(t, items)
}

func TestCustomers_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()
	customer := newCustomer("John", "Doe", "john@x.com", "")
	require.NoError(t, repos.Customers.Create(ctx, customer))
	review := &domain.Review{CustomerID: customer.ID, Rating: 4}
	require.NoError(t, repos.Reviews.Create(ctx, review))
	require.NoError(t, repos.Interactions.Create(ctx, &domain.Interaction{CustomerID: customer.ID, Type: "call"}))
	user := &domain.User{Username: "john", Email: "john@x.com", Role: domain.RoleCustomer, CustomerID: &customer.ID, IsActive: true}
	require.NoError(t, repos.Users.Create(ctx, user))

	require.NoError(t, repos.Customers.Delete(ctx, customer.ID))

	_, err := repos.Reviews.GetByID(ctx, review.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	interactions, _ := repos.Interactions.ListByCustomer(ctx, customer.ID)
	assert.Empty(t, interactions)
	reloaded, err := repos.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.CustomerID)
}

func TestInteractions_DefaultsDateAndRequiresCustomer(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()

	err := repos.Interactions.Create(ctx, &domain.Interaction{CustomerID: 99, Type: "call"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	customer := newCustomer("John", "Doe", "john@x.com", "")
	require.NoError(t, repos.Customers.Create(ctx, customer))
	interaction := &domain.Interaction{CustomerID: customer.ID, Type: "call"}
	require.NoError(t, repos.Interactions.Create(ctx, interaction))
	assert.Equal(t, interaction.CreatedAt, interaction.Date)
}

func TestReviews_LatestAndBatch(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(WithClock(steppingClock()))
	a := newCustomer("A", "A", "a@x.com", "")
	b := newCustomer("B", "B", "b@x.com", "")
	require.NoError(t, repos.Customers.Create(ctx, a))
	require.NoError(t, repos.Customers.Create(ctx, b))
	require.NoError(t, repos.Reviews.Create(ctx, &domain.Review{CustomerID: a.ID, Rating: 1}))
	require.NoError(t, repos.Reviews.Create(ctx, &domain.Review{CustomerID: a.ID, Rating: 5}))
	require.NoError(t, repos.Reviews.Create(ctx, &domain.Review{CustomerID: b.ID, Rating: 3}))

	latest, err := repos.Reviews.Latest(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, latest.Rating)

	batch, err := repos.Reviews.ListByCustomerIDs(ctx, []int64{a.ID, b.ID, 42})
	require.NoError(t, err)
	assert.Len(t, batch[a.ID], 2)
	assert.Len(t, batch[b.ID], 1)
	assert.Empty(t, batch[42])

	_, err = repos.Reviews.Latest(ctx, 42)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUsers_Uniqueness(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()
	require.NoError(t, repos.Users.Create(ctx, &domain.User{Username: "john", Email: "john@x.com", Role: domain.RoleCustomer}))

	err := repos.Users.Create(ctx, &domain.User{Username: "john", Email: "other@x.com", Role: domain.RoleCustomer})
	var dup *repository.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "username", dup.Field)

	err = repos.Users.Create(ctx, &domain.User{Username: "jane", Email: "john@x.com", Role: domain.RoleCustomer})
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "email", dup.Field)

	missing := int64(7)
	err = repos.Users.Create(ctx, &domain.User{Username: "jane", Email: "jane@x.com", CustomerID: &missing})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func lastNames(items []domain.Customer) []string {
	out := make([]string, len(items))
	for i, c := range items {
		out[i] = c.LastName
	}
	return out
}
