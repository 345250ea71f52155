// Package model defines data structure.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization level of a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a role the API accepts.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the public representation of an account. The hashed password
// never leaves the database layer.
//
// JSON field names follow the wire format the frontend already speaks.
type User struct {
	ID         uuid.UUID `json:"_id"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	ProfilePic string    `json:"profilePic,omitempty"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
}
