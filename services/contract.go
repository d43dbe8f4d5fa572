package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"estate_office/models"
	"estate_office/storage"
)

// FinalizeInput is the closed deal as reported by a manager.
// The office share is always computed, never taken from the caller.
type FinalizeInput struct {
	ListingID        uuid.UUID `json:"-"`
	FinalPrice       int64     `json:"final_price"`
	CommissionAmount int64     `json:"commission_amount"`
	AgentShare       int64     `json:"agent_share"`
	Notes            string    `json:"notes"`
}

// ContractService records closed deals
type ContractService struct {
	store storage.Store
	gate  *Gate
	now   func() time.Time
}

func NewContractService(store storage.Store, gate *Gate) *ContractService {
	return &ContractService{
		store: store,
		gate:  gate,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (in FinalizeInput) validate() error {
	if in.FinalPrice <= 0 {
		return fmt.Errorf("%w: final price must be positive", ErrInvalidInput)
	}
	if in.CommissionAmount < 0 {
		return fmt.Errorf("%w: commission must not be negative", ErrInvalidInput)
	}
	if in.AgentShare < 0 || in.AgentShare > in.CommissionAmount {
		return fmt.Errorf("%w: agent share must be between 0 and the commission", ErrInvalidInput)
	}
	return nil
}

// Finalize creates the contract, closes the listing, revokes its share
// links and records the audit entry in one transaction.
func (s *ContractService) Finalize(ctx context.Context, caller models.Identity, in FinalizeInput) (*models.Contract, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	listing, err := s.gate.Authorize(ctx, caller, in.ListingID, AccessManage)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetContractByListing(ctx, listing.ID)
	if err != nil {
		return nil, fmt.Errorf("get contract: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: listing already finalized", ErrConflict)
	}
	if listing.Status != models.StatusActive {
		return nil, fmt.Errorf("%w: no active listing to finalize", ErrNotFound)
	}
	to, err := NextStatus(listing, TriggerFinalize)
	if err != nil {
		return nil, err
	}

	now := s.now()
	contract := &models.Contract{
		ID:               uuid.New(),
		ListingID:        listing.ID,
		FinalPrice:       in.FinalPrice,
		CommissionAmount: in.CommissionAmount,
		AgentShare:       in.AgentShare,
		OfficeShare:      in.CommissionAmount - in.AgentShare,
		Notes:            in.Notes,
		FinalizedBy:      caller.UserID,
		FinalizedAt:      now,
	}

	var revoked int64
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		if err := tx.InsertContract(ctx, contract); err != nil {
			return fmt.Errorf("insert contract: %w", err)
		}
		if err := transition(ctx, tx, listing, to, now); err != nil {
			return err
		}
		n, err := tx.DeactivateListingShareLinks(ctx, listing.ID, now)
		if err != nil {
			return fmt.Errorf("deactivate share links: %w", err)
		}
		revoked = n
		return NewAuditLog(tx).Append(ctx, listing.ID, AuditEntry{
			UserID: caller.UserID,
			Action: models.ActionContractFinalized,
			Diff:   statusDiff(listing.Status, to),
			At:     now,
		})
	})
	if err != nil {
		log.Printf("Finalize %s failed: %v", listing.ID, err)
		return nil, fmt.Errorf("%w: finalize failed", ErrTransactionFailed)
	}

	log.Printf("Listing %s finalized as %s by %s (%d share links revoked)", listing.ID, to, caller.UserID, revoked)
	return contract, nil
}
