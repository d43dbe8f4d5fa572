package models

import (
	"time"

	"github.com/google/uuid"
)

type TransactionKind string

const (
	KindSale          TransactionKind = "SALE"
	KindPreSale       TransactionKind = "PRE_SALE"
	KindLongTermRent  TransactionKind = "LONG_TERM_RENT"
	KindShortTermRent TransactionKind = "SHORT_TERM_RENT"
)

// Valid reports whether k is one of the known transaction kinds
func (k TransactionKind) Valid() bool {
	switch k {
	case KindSale, KindPreSale, KindLongTermRent, KindShortTermRent:
		return true
	}
	return false
}

// IsRental is true for both rent kinds
func (k TransactionKind) IsRental() bool {
	return k == KindLongTermRent || k == KindShortTermRent
}

type ListingStatus string

const (
	StatusActive   ListingStatus = "ACTIVE"
	StatusArchived ListingStatus = "ARCHIVED"
	StatusSold     ListingStatus = "SOLD"
	StatusRented   ListingStatus = "RENTED"
	StatusExpired  ListingStatus = "EXPIRED"
)

// Listing is a property file owned by one office.
// Monetary fields are whole currency units; nil means not priced.
type Listing struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	OfficeID      uuid.UUID       `json:"office_id" db:"office_id"`
	Kind          TransactionKind `json:"kind" db:"kind"`
	Status        ListingStatus   `json:"status" db:"status"`
	Title         string          `json:"title" db:"title"`
	Description   string          `json:"description" db:"description"`
	Address       string          `json:"address" db:"address"`
	City          string          `json:"city" db:"city"`
	District      string          `json:"district" db:"district"`
	AreaSqm       *int64          `json:"area_sqm" db:"area_sqm"`
	Rooms         *int64          `json:"rooms" db:"rooms"`
	Floor         *int64          `json:"floor" db:"floor"`
	HasElevator   bool            `json:"has_elevator" db:"has_elevator"`
	HasParking    bool            `json:"has_parking" db:"has_parking"`
	SalePrice     *int64          `json:"sale_price" db:"sale_price"`
	DepositAmount *int64          `json:"deposit_amount" db:"deposit_amount"`
	RentAmount    *int64          `json:"rent_amount" db:"rent_amount"`
	CreatedBy     uuid.UUID       `json:"created_by" db:"created_by"`
	Version       int64           `json:"version" db:"version"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`

	Contacts []Contact `json:"contacts,omitempty" db:"-"`
}

// AskingPrice is the price shown to the public for the listing's kind
func (l *Listing) AskingPrice() *int64 {
	if l.Kind.IsRental() {
		return l.RentAmount
	}
	return l.SalePrice
}

// Contact is a person attached to a listing (owner, tenant, ...)
type Contact struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ListingID uuid.UUID `json:"listing_id" db:"listing_id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Relation  string    `json:"relation" db:"relation"` // owner, tenant, other
	Position  int       `json:"position" db:"position"`
}

// Contact relations
const (
	ContactRelationOwner  = "owner"
	ContactRelationTenant = "tenant"
	ContactRelationOther  = "other"
)

// AgentAssignment links an agent to a listing
type AgentAssignment struct {
	ListingID  uuid.UUID `json:"listing_id" db:"listing_id"`
	StaffID    uuid.UUID `json:"staff_id" db:"staff_id"`
	AssignedAt time.Time `json:"assigned_at" db:"assigned_at"`
}
