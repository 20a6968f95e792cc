package domain

import "time"

// Role identifies which dashboard a user may operate.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleAgent    Role = "agent"
	RoleCustomer Role = "customer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleCustomer:
		return true
	}
	return false
}

// IsStaff is true for roles that work the ticket queue.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleAgent
}

// User is an account of any role. Role is fixed at creation.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}
