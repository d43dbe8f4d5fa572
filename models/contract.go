package models

import (
	"time"

	"github.com/google/uuid"
)

// Contract records the closed deal for a listing. One per listing, never edited.
type Contract struct {
	ID               uuid.UUID `json:"id" db:"id"`
	ListingID        uuid.UUID `json:"listing_id" db:"listing_id"`
	FinalPrice       int64     `json:"final_price" db:"final_price"`
	CommissionAmount int64     `json:"commission_amount" db:"commission_amount"`
	AgentShare       int64     `json:"agent_share" db:"agent_share"`
	OfficeShare      int64     `json:"office_share" db:"office_share"`
	Notes            string    `json:"notes" db:"notes"`
	FinalizedBy      uuid.UUID `json:"finalized_by" db:"finalized_by"`
	FinalizedAt      time.Time `json:"finalized_at" db:"finalized_at"`
}

// ShareLink is a public, token-addressed view of a listing
type ShareLink struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	ListingID     uuid.UUID  `json:"listing_id" db:"listing_id"`
	Token         string     `json:"token" db:"token"`
	CustomPrice   *int64     `json:"custom_price" db:"custom_price"`
	ViewCount     int64      `json:"view_count" db:"view_count"`
	Active        bool       `json:"active" db:"active"`
	CreatedBy     uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at" db:"deactivated_at"`
}
