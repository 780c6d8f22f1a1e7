package domain

import (
	"strings"
	"time"
)

// UserRole controls what an account may do.
type UserRole string

const (
	UserRoleAdmin      UserRole = "ADMIN"
	UserRoleTechnician UserRole = "TECHNICIAN"
	UserRoleClient     UserRole = "CLIENT"
)

var roleAliases = map[string]UserRole{
	"ADMIN":       UserRoleAdmin,
	"TECHNICIAN":  UserRoleTechnician,
	"EMPRENDEDOR": UserRoleTechnician,
	"CLIENT":      UserRoleClient,
	"CLIENTE":     UserRoleClient,
}

// ParseUserRole resolves a role name case-insensitively.
func ParseUserRole(name string) (UserRole, bool) {
	role, ok := roleAliases[strings.ToUpper(strings.TrimSpace(name))]
	return role, ok
}

// User is an account of the repair shop application.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	Role         UserRole
	Active       bool
	Locked       bool
	FailedLogins int
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
