package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-service/internal/domain"
	apperrors "github.com/spec-kit/crm-service/pkg/errorutil"
)

func TestAuthorizer(t *testing.T) {
	authz, err := NewAuthorizer()
	require.NoError(t, err)

	linked := int64(10)
	admin := domain.Principal{UserID: 1, Role: domain.RoleAdmin}
	customer := domain.Principal{UserID: 2, Role: domain.RoleCustomer, CustomerID: &linked}
	unlinked := domain.Principal{UserID: 3, Role: domain.RoleCustomer}

	t.Run("admin has full grants", func(t *testing.T) {
		assert.NoError(t, authz.Authorize(admin, ResourceCustomers, ActionCreate))
		assert.NoError(t, authz.Authorize(admin, ResourceCustomers, ActionExport))
		assert.NoError(t, authz.Authorize(admin, ResourceMetrics, ActionRead))
		assert.NoError(t, authz.AuthorizeUser(admin, ActionUpdate, 99))
	})

	t.Run("customer limited to own records", func(t *testing.T) {
		assert.NoError(t, authz.AuthorizeCustomer(customer, ResourceCustomers, ActionRead, linked))
		assert.NoError(t, authz.AuthorizeCustomer(customer, ResourceRatings, ActionUpdate, linked))
		assert.NoError(t, authz.AuthorizeCustomer(customer, ResourceReviews, ActionDelete, linked))

		err := authz.AuthorizeCustomer(customer, ResourceCustomers, ActionRead, 11)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

		err = authz.AuthorizeCustomer(customer, ResourceInteractions, ActionCreate, linked)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

		err = authz.Authorize(customer, ResourceCustomers, ActionCreate)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

		err = authz.Authorize(customer, ResourceMetrics, ActionRead)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	})

	t.Run("self service on user records", func(t *testing.T) {
		assert.NoError(t, authz.AuthorizeUser(customer, ActionRead, 2))
		assert.NoError(t, authz.AuthorizeUser(customer, ActionDelete, 2))
		assert.Error(t, authz.AuthorizeUser(customer, ActionRead, 1))
		assert.Error(t, authz.Authorize(customer, ResourceUsers, ActionList))
	})

	t.Run("customer scope", func(t *testing.T) {
		scope, ok := authz.CustomerScope(admin, ResourceCustomers, ActionList)
		assert.True(t, ok)
		assert.Nil(t, scope)

		scope, ok = authz.CustomerScope(customer, ResourceCustomers, ActionList)
		assert.True(t, ok)
		require.NotNil(t, scope)
		assert.Equal(t, linked, *scope)

		_, ok = authz.CustomerScope(unlinked, ResourceCustomers, ActionList)
		assert.False(t, ok)
	})
}
