package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"estate_office/models"
	"estate_office/storage"
)

// Trigger is the event that moves a listing out of ACTIVE
type Trigger int

const (
	TriggerArchive Trigger = iota
	TriggerFinalize
)

// NextStatus returns the status a trigger leads to. Every status other
// than ACTIVE is terminal.
func NextStatus(l *models.Listing, trigger Trigger) (models.ListingStatus, error) {
	if l.Status != models.StatusActive {
		return "", fmt.Errorf("%w: listing is %s", ErrConflict, l.Status)
	}
	switch trigger {
	case TriggerArchive:
		return models.StatusArchived, nil
	case TriggerFinalize:
		if l.Kind.IsRental() {
			return models.StatusRented, nil
		}
		return models.StatusSold, nil
	}
	return "", fmt.Errorf("%w: unknown status trigger", ErrInvalidInput)
}

// TriggerForRequest maps a status a caller asked for directly. Only
// ARCHIVED can be requested; SOLD and RENTED come from finalizing.
func TriggerForRequest(target models.ListingStatus) (Trigger, error) {
	if target == models.StatusArchived {
		return TriggerArchive, nil
	}
	return 0, fmt.Errorf("%w: status %s cannot be requested directly", ErrInvalidInput, target)
}

// transition writes the status change, guarded on the listing still being ACTIVE
func transition(ctx context.Context, tx storage.Tx, l *models.Listing, to models.ListingStatus, at time.Time) error {
	ok, err := tx.UpdateListingStatus(ctx, l.ID, models.StatusActive, to, at)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: listing is no longer active", ErrConflict)
	}
	return nil
}

// requireActive fails with Conflict when the listing left ACTIVE after
// it was read outside the transaction
func requireActive(ctx context.Context, tx storage.Tx, id uuid.UUID) error {
	ok, err := tx.LockActiveListing(ctx, id)
	if err != nil {
		return fmt.Errorf("lock listing: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: listing is no longer active", ErrConflict)
	}
	return nil
}

func statusDiff(from, to models.ListingStatus) models.Diff {
	return models.Diff{
		"status": models.Change{models.StringValue(string(from)), models.StringValue(string(to))},
	}
}
