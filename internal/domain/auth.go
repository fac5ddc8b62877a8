package domain

// TokenType differentiates access and refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Principal is the authenticated caller derived from access token claims.
type Principal struct {
	UserID     int64
	Username   string
	Role       Role
	CustomerID *int64
}

// IsAdmin reports whether the caller holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// OwnsCustomer reports whether the caller is linked to the given customer.
func (p *Principal) OwnsCustomer(customerID int64) bool {
	return p != nil && p.CustomerID != nil && *p.CustomerID == customerID
}
