package domain

import "time"

// UserRole enumerates the roles the identity layer can attach to a caller.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAgent UserRole = "agent"
	RoleAdmin UserRole = "admin"
)

// Identity is the verified caller handed in by the auth edge. The core
// never inspects credentials, only the id and role.
type Identity struct {
	UserID string
	Name   string
	Role   UserRole
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// IsAgent reports whether the caller holds the agent role.
func (i Identity) IsAgent() bool { return i.Role == RoleAgent }

// User is the directory record for requesters, agents and admins alike.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
