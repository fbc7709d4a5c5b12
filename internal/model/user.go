package model

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleUser      UserRole = "user"
	UserRoleAdmin     UserRole = "admin"
	UserRoleCollector UserRole = "collector"
)

func (r UserRole) Valid() bool {
	return r == UserRoleUser || r == UserRoleAdmin || r == UserRoleCollector
}

type User struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      UserRole    `json:"role"`
	Points    int64       `json:"points"`
	Teams     []uuid.UUID `json:"teams,omitempty" gorm:"-"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Role   UserRole
}

func (p Principal) IsAdmin() bool {
	return p.Role == UserRoleAdmin
}

func (p Principal) IsCollector() bool {
	return p.Role == UserRoleCollector
}

func (p Principal) IsUser() bool {
	return p.Role == UserRoleUser
}
