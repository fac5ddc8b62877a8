package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/spec-kit/crm-service/internal/domain"
	apperrors "github.com/spec-kit/crm-service/pkg/errorutil"
)

// Resources guarded by the authorizer. A resource with an OwnSuffix variant grants the
// action only on the caller's own customer or user record.
const (
	ResourceCustomers    = "customers"
	ResourceInteractions = "interactions"
	ResourceRatings      = "ratings"
	ResourceReviews      = "reviews"
	ResourceUsers        = "users"
	ResourceMetrics      = "metrics"

	OwnSuffix = ":own"
)

// Actions.
const (
	ActionList   = "list"
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionExport = "export"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && (p.act == "*" || r.act == p.act)
`

var defaultPolicies = [][]string{
	{string(domain.RoleAdmin), ResourceCustomers, "*"},
	{string(domain.RoleAdmin), ResourceInteractions, "*"},
	{string(domain.RoleAdmin), ResourceRatings, "*"},
	{string(domain.RoleAdmin), ResourceReviews, "*"},
	{string(domain.RoleAdmin), ResourceUsers, "*"},
	{string(domain.RoleAdmin), ResourceMetrics, ActionRead},

	{string(domain.RoleCustomer), ResourceCustomers + OwnSuffix, ActionList},
	{string(domain.RoleCustomer), ResourceCustomers + OwnSuffix, ActionRead},
	{string(domain.RoleCustomer), ResourceInteractions + OwnSuffix, ActionList},
	{string(domain.RoleCustomer), ResourceRatings + OwnSuffix, ActionRead},
	{string(domain.RoleCustomer), ResourceRatings + OwnSuffix, ActionUpdate},
	{string(domain.RoleCustomer), ResourceReviews + OwnSuffix, "*"},
	{string(domain.RoleCustomer), ResourceUsers + OwnSuffix, ActionRead},
	{string(domain.RoleCustomer), ResourceUsers + OwnSuffix, ActionUpdate},
	{string(domain.RoleCustomer), ResourceUsers + OwnSuffix, ActionDelete},
}

// Authorizer answers role-based access questions with a casbin enforcer.
type Authorizer struct {
	enforcer *casbin.Enforcer
}

// NewAuthorizer builds the enforcer with the built-in policy set.
func NewAuthorizer() (*Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create rbac enforcer: %w", err)
	}
	if _, err := enforcer.AddPolicies(defaultPolicies); err != nil {
		return nil, fmt.Errorf("load rbac policies: %w", err)
	}
	return &Authorizer{enforcer: enforcer}, nil
}

// Allowed reports whether role may perform action on resource.
func (a *Authorizer) Allowed(role domain.Role, resource, action string) bool {
	ok, err := a.enforcer.Enforce(string(role), resource, action)
	return err == nil && ok
}

// Authorize requires an unconditional grant.
func (a *Authorizer) Authorize(p domain.Principal, resource, action string) error {
	if a.Allowed(p.Role, resource, action) {
		return nil
	}
	return apperrors.NewForbidden("insufficient permissions")
}

// AuthorizeCustomer allows action on a customer-scoped resource through a full grant or
// through the own variant when the caller is linked to customerID.
func (a *Authorizer) AuthorizeCustomer(p domain.Principal, resource, action string, customerID int64) error {
	if a.Allowed(p.Role, resource, action) {
		return nil
	}
	if p.OwnsCustomer(customerID) && a.Allowed(p.Role, resource+OwnSuffix, action) {
		return nil
	}
	return apperrors.NewForbidden("insufficient permissions")
}

// AuthorizeUser allows action on a user record through a full grant or, for the
// caller's own record, through the own variant.
func (a *Authorizer) AuthorizeUser(p domain.Principal, action string, userID int64) error {
	if a.Allowed(p.Role, ResourceUsers, action) {
		return nil
	}
	if p.UserID == userID && a.Allowed(p.Role, ResourceUsers+OwnSuffix, action) {
		return nil
	}
	return apperrors.NewForbidden("insufficient permissions")
}

// CustomerScope tells listing operations which customers the caller may see: all when
// the full grant applies, otherwise only the linked one. ok is false when nothing is visible.
func (a *Authorizer) CustomerScope(p domain.Principal, resource, action string) (customerID *int64, ok bool) {
	if a.Allowed(p.Role, resource, action) {
		return nil, true
	}
	if p.CustomerID != nil && a.Allowed(p.Role, resource+OwnSuffix, action) {
		id := *p.CustomerID
		return &id, true
	}
	return nil, false
}
