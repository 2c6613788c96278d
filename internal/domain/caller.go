package domain

// Role is the caller's role as asserted by the identity provider.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleCustomer Role = "customer"
)

// Caller identifies who is invoking an operation.
type Caller struct {
	Subject    string
	Role       Role
	CustomerID string
}

// IsStaff is true for admins and managers, who may record payments.
func (c Caller) IsStaff() bool {
	return c.Role == RoleAdmin || c.Role == RoleManager
}

// IsAdmin is true for admins only.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CanView reports whether the caller may read the given plan.
func (c Caller) CanView(p *Plan) bool {
	if c.IsStaff() {
		return true
	}
	return c.Role == RoleCustomer && c.CustomerID != "" && c.CustomerID == p.CustomerID
}
