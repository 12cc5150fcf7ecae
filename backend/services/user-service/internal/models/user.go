package models

import (
	"time"

	"evcharge/backend/libs/contracts"
)

// Roles known to the platform.
const (
	RoleUser     = "user"
	RoleOperator = "operator"
)

// User is a registered driver or operator.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// DTO returns the public view shared with other services.
func (u *User) DTO() contracts.UserDTO {
	return contracts.UserDTO{ID: u.ID, Email: u.Email, Role: u.Role}
}
