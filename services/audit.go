package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"estate_office/models"
	"estate_office/storage"
)

// AuditEntry is what a caller hands to the audit log
type AuditEntry struct {
	UserID uuid.UUID
	Action models.Action
	Diff   models.Diff
	At     time.Time
}

// AuditLog appends activity rows inside the caller's transaction.
// It exposes no update or delete.
type AuditLog struct {
	tx storage.Tx
}

func NewAuditLog(tx storage.Tx) *AuditLog {
	return &AuditLog{tx: tx}
}

func (a *AuditLog) Append(ctx context.Context, listingID uuid.UUID, entry AuditEntry) error {
	if entry.Action == models.ActionEdit && len(entry.Diff) == 0 {
		return fmt.Errorf("empty edit diff for listing %s", listingID)
	}
	e := &models.ActivityLogEntry{
		ListingID: listingID,
		UserID:    entry.UserID,
		Action:    entry.Action,
		Diff:      entry.Diff,
		CreatedAt: entry.At,
	}
	if err := a.tx.AppendActivity(ctx, e); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// PriceEntry is one monetary field moving from Old to New
type PriceEntry struct {
	ChangedBy uuid.UUID
	Field     models.PriceField
	Old       *int64
	New       int64
	At        time.Time
}

// PriceLedger appends price history rows inside the caller's transaction
type PriceLedger struct {
	tx storage.Tx
}

func NewPriceLedger(tx storage.Tx) *PriceLedger {
	return &PriceLedger{tx: tx}
}

func (p *PriceLedger) Append(ctx context.Context, listingID uuid.UUID, entry PriceEntry) error {
	e := &models.PriceHistoryEntry{
		ListingID: listingID,
		ChangedBy: entry.ChangedBy,
		Field:     entry.Field,
		OldAmount: entry.Old,
		NewAmount: entry.New,
		CreatedAt: entry.At,
	}
	if err := p.tx.AppendPriceChange(ctx, e); err != nil {
		return fmt.Errorf("append price change: %w", err)
	}
	return nil
}

// AppendDiff writes one ledger row per monetary field present in d.
// A field cleared to null has no new amount and is skipped.
func (p *PriceLedger) AppendDiff(ctx context.Context, listingID, userID uuid.UUID, d models.Diff, at time.Time) (int, error) {
	written := 0
	for _, field := range moneyFields {
		c, ok := d[string(field)]
		if !ok || c.New().IsNull() {
			continue
		}
		err := p.Append(ctx, listingID, PriceEntry{
			ChangedBy: userID,
			Field:     field,
			Old:       c.Old().IntPtr(),
			New:       c.New().Int(),
			At:        at,
		})
		if err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
