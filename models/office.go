package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleManager Role = "MANAGER"
	RoleAgent   Role = "AGENT"
)

// Office is the tenant boundary
type Office struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Staff is a member of an office
type Staff struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OfficeID  uuid.UUID `json:"office_id" db:"office_id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Role      Role      `json:"role" db:"role"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Identity is the caller as resolved by the authentication layer.
// It is trusted as given.
type Identity struct {
	OfficeID uuid.UUID
	UserID   uuid.UUID
	Role     Role
}

// Valid reports whether the identity carries enough to act on
func (id Identity) Valid() bool {
	if id.OfficeID == uuid.Nil || id.UserID == uuid.Nil {
		return false
	}
	return id.Role == RoleManager || id.Role == RoleAgent
}

func (id Identity) IsManager() bool {
	return id.Role == RoleManager
}
