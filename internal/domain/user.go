package domain

import (
	"fmt"
	"time"
)

// Role is the resolved review role attached to a user. The workflow engine
// checks it against the transition table but never authenticates callers.
type Role string

const (
	RoleCreator   Role = "creator"
	RoleApproverA Role = "approver_a"
	RoleApproverB Role = "approver_b"
)

// User represents an authenticated principal
type User struct {
	ID             string
	Email          string
	FullName       string
	Role           Role
	HashedPassword string
	IsActive       bool
	CreatedAt      time.Time
}

// ValidateUser validates a User instance
func ValidateUser(u *User) error {
	if u == nil {
		return fmt.Errorf("user cannot be nil")
	}

	if u.ID == "" {
		return fmt.Errorf("user ID is required")
	}

	if u.Email == "" {
		return fmt.Errorf("user Email is required")
	}

	if u.FullName == "" {
		return fmt.Errorf("user FullName is required")
	}

	if !IsValidRole(u.Role) {
		return fmt.Errorf("user Role is invalid: %s", u.Role)
	}

	return nil
}

// IsValidRole checks if a Role is valid
func IsValidRole(r Role) bool {
	switch r {
	case RoleCreator, RoleApproverA, RoleApproverB:
		return true
	}
	return false
}
