package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"estate_office/models"
	"estate_office/storage"
)

// Access is the capability an operation needs on a listing
type Access int

const (
	AccessRead Access = iota
	AccessWrite
	AccessManage
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessManage:
		return "manage"
	}
	return "unknown"
}

// Gate decides whether a caller may touch a listing. Listings of other
// offices are reported as not found so tenant boundaries stay invisible.
type Gate struct {
	store storage.Store
}

func NewGate(store storage.Store) *Gate {
	return &Gate{store: store}
}

// Authorize returns the listing when the caller holds the requested access.
func (g *Gate) Authorize(ctx context.Context, caller models.Identity, listingID uuid.UUID, access Access) (*models.Listing, error) {
	if !caller.Valid() {
		return nil, fmt.Errorf("%w: caller identity missing", ErrUnauthenticated)
	}

	listing, err := g.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	if listing == nil || listing.OfficeID != caller.OfficeID {
		return nil, fmt.Errorf("%w: listing not found", ErrNotFound)
	}

	if caller.IsManager() {
		return listing, nil
	}

	assigned, err := g.store.IsAssigned(ctx, listingID, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("check assignment: %w", err)
	}
	if !assigned {
		return nil, fmt.Errorf("%w: listing not found", ErrNotFound)
	}

	switch access {
	case AccessManage:
		return nil, fmt.Errorf("%w: manager role required", ErrForbidden)
	case AccessWrite:
		if listing.Status != models.StatusActive {
			return nil, fmt.Errorf("%w: listing is %s", ErrForbidden, listing.Status)
		}
	}
	return listing, nil
}

// requireCaller is the identity check for operations not bound to a listing
func requireCaller(caller models.Identity) error {
	if !caller.Valid() {
		return fmt.Errorf("%w: caller identity missing", ErrUnauthenticated)
	}
	return nil
}
