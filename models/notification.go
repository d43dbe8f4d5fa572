package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotifFileUpdated  NotificationType = "FILE_UPDATED"
	NotifFileAssigned NotificationType = "FILE_ASSIGNED"
)

// Notification is an in-app notice. Only IsRead ever changes.
type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	ListingID *uuid.UUID       `json:"listing_id,omitempty" db:"listing_id"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
