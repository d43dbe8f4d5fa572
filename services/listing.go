package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"estate_office/models"
	"estate_office/storage"
)

// ListingService owns creation and the scalar edit path of listings
type ListingService struct {
	store    storage.Store
	gate     *Gate
	notifier *Notifier
	now      func() time.Time
}

func NewListingService(store storage.Store, gate *Gate, notifier *Notifier) *ListingService {
	return &ListingService{
		store:    store,
		gate:     gate,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ContactInput is a contact as submitted by a caller
type ContactInput struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation"`
}

// NewListing is the payload for Create
type NewListing struct {
	Kind          models.TransactionKind `json:"kind"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Address       string                 `json:"address"`
	City          string                 `json:"city"`
	District      string                 `json:"district"`
	AreaSqm       *int64                 `json:"area_sqm"`
	Rooms         *int64                 `json:"rooms"`
	Floor         *int64                 `json:"floor"`
	HasElevator   bool                   `json:"has_elevator"`
	HasParking    bool                   `json:"has_parking"`
	SalePrice     *int64                 `json:"sale_price"`
	DepositAmount *int64                 `json:"deposit_amount"`
	RentAmount    *int64                 `json:"rent_amount"`
	Contacts      []ContactInput         `json:"contacts"`
}

// Create stores a new ACTIVE listing with its contacts. An agent creating
// a listing is assigned to it.
func (s *ListingService) Create(ctx context.Context, caller models.Identity, in NewListing) (*models.Listing, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction kind %q", ErrInvalidInput, in.Kind)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if err := validateAmounts(in.AreaSqm, in.Rooms, in.SalePrice, in.DepositAmount, in.RentAmount); err != nil {
		return nil, err
	}

	now := s.now()
	listing := &models.Listing{
		ID:            uuid.New(),
		OfficeID:      caller.OfficeID,
		Kind:          in.Kind,
		Status:        models.StatusActive,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Address:       in.Address,
		City:          in.City,
		District:      in.District,
		AreaSqm:       in.AreaSqm,
		Rooms:         in.Rooms,
		Floor:         in.Floor,
		HasElevator:   in.HasElevator,
		HasParking:    in.HasParking,
		SalePrice:     in.SalePrice,
		DepositAmount: in.DepositAmount,
		RentAmount:    in.RentAmount,
		CreatedBy:     caller.UserID,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	contacts, err := buildContacts(listing.ID, in.Contacts)
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		if err := tx.InsertListing(ctx, listing); err != nil {
			return fmt.Errorf("insert listing: %w", err)
		}
		if err := tx.ReplaceContacts(ctx, listing.ID, contacts); err != nil {
			return err
		}
		if !caller.IsManager() {
			if err := tx.ReplaceAssignments(ctx, listing.ID, []uuid.UUID{caller.UserID}, now); err != nil {
				return err
			}
		}
		if err := NewAuditLog(tx).Append(ctx, listing.ID, AuditEntry{
			UserID: caller.UserID,
			Action: models.ActionCreate,
			At:     now,
		}); err != nil {
			return err
		}

		ledger := NewPriceLedger(tx)
		for _, f := range moneyFields {
			amount := priceOf(listing, f)
			if amount == nil {
				continue
			}
			if err := ledger.Append(ctx, listing.ID, PriceEntry{
				ChangedBy: caller.UserID,
				Field:     f,
				New:       *amount,
				At:        now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, txFailure("create", err)
	}

	listing.Contacts = contacts
	log.Printf("Listing %s created by %s (%s)", listing.ID, caller.UserID, listing.Kind)
	return listing, nil
}

// Get returns the listing with its contacts
func (s *ListingService) Get(ctx context.Context, caller models.Identity, id uuid.UUID) (*models.Listing, error) {
	listing, err := s.gate.Authorize(ctx, caller, id, AccessRead)
	if err != nil {
		return nil, err
	}
	contacts, err := s.store.ListContacts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	listing.Contacts = contacts
	return listing, nil
}

// Edit applies the changed scalar fields of upd. An update that changes
// nothing writes nothing and returns the listing as stored.
func (s *ListingService) Edit(ctx context.Context, caller models.Identity, id uuid.UUID, upd ListingUpdate) (*models.Listing, models.Diff, error) {
	if err := validateUpdate(upd); err != nil {
		return nil, nil, err
	}
	current, err := s.gate.Authorize(ctx, caller, id, AccessWrite)
	if err != nil {
		return nil, nil, err
	}
	if current.Status != models.StatusActive {
		return nil, nil, fmt.Errorf("%w: listing is %s", ErrConflict, current.Status)
	}

	diff := Diff(current, upd)
	if len(diff) == 0 {
		return current, diff, nil
	}

	now := s.now()
	next := *current
	ApplyDiff(&next, diff)
	next.UpdatedAt = now

	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		ok, err := tx.UpdateListing(ctx, &next, current.Version)
		if err != nil {
			return fmt.Errorf("update listing: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: listing was modified concurrently", ErrConflict)
		}
		if err := NewAuditLog(tx).Append(ctx, id, AuditEntry{
			UserID: caller.UserID,
			Action: models.ActionEdit,
			Diff:   diff,
			At:     now,
		}); err != nil {
			return err
		}
		_, err = NewPriceLedger(tx).AppendDiff(ctx, id, caller.UserID, diff, now)
		return err
	})
	if err != nil {
		return nil, nil, txFailure("edit", err)
	}
	next.Version = current.Version + 1

	s.notifyEdit(ctx, caller, &next)
	return &next, diff, nil
}

// notifyEdit tells managers about agent edits and assigned agents about
// manager edits. The editor is never notified.
func (s *ListingService) notifyEdit(ctx context.Context, caller models.Identity, listing *models.Listing) {
	s.notifier.Dispatch(ctx, "edit notification", func(ctx context.Context) ([]NotificationInput, error) {
		var recipients []models.Staff
		var err error
		if caller.IsManager() {
			recipients, err = s.store.ListAssignedStaff(ctx, listing.ID)
		} else {
			recipients, err = s.store.ListActiveManagers(ctx, listing.OfficeID)
		}
		if err != nil {
			return nil, fmt.Errorf("list recipients: %w", err)
		}

		actor := actorName(ctx, s.store, caller.UserID)
		var inputs []NotificationInput
		for _, st := range recipients {
			if st.ID == caller.UserID || !st.Active {
				continue
			}
			if caller.IsManager() && st.Role != models.RoleAgent {
				continue
			}
			inputs = append(inputs, s.notifier.Render(st.ID, models.NotifFileUpdated, listing, actor))
		}
		return inputs, nil
	})
}

// Archive moves an ACTIVE listing to ARCHIVED
func (s *ListingService) Archive(ctx context.Context, caller models.Identity, id uuid.UUID) (*models.Listing, error) {
	listing, err := s.gate.Authorize(ctx, caller, id, AccessWrite)
	if err != nil {
		return nil, err
	}
	to, err := NextStatus(listing, TriggerArchive)
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		if err := transition(ctx, tx, listing, to, now); err != nil {
			return err
		}
		return NewAuditLog(tx).Append(ctx, id, AuditEntry{
			UserID: caller.UserID,
			Action: models.ActionStatusChange,
			Diff:   statusDiff(listing.Status, to),
			At:     now,
		})
	})
	if err != nil {
		return nil, txFailure("archive", err)
	}

	listing.Status = to
	listing.Version++
	listing.UpdatedAt = now
	log.Printf("Listing %s archived by %s", id, caller.UserID)
	return listing, nil
}

// ReplaceContacts swaps the whole contact set of an ACTIVE listing
func (s *ListingService) ReplaceContacts(ctx context.Context, caller models.Identity, id uuid.UUID, in []ContactInput) ([]models.Contact, error) {
	listing, err := s.gate.Authorize(ctx, caller, id, AccessWrite)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.StatusActive {
		return nil, fmt.Errorf("%w: listing is %s", ErrConflict, listing.Status)
	}
	contacts, err := buildContacts(id, in)
	if err != nil {
		return nil, err
	}

	old, err := s.store.ListContacts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	now := s.now()
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		if err := requireActive(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.ReplaceContacts(ctx, id, contacts); err != nil {
			return err
		}
		return NewAuditLog(tx).Append(ctx, id, AuditEntry{
			UserID: caller.UserID,
			Action: models.ActionEdit,
			Diff: models.Diff{
				"contacts": models.Change{
					models.StringValue(contactNames(old)),
					models.StringValue(contactNames(contacts)),
				},
			},
			At: now,
		})
	})
	if err != nil {
		return nil, txFailure("replace contacts", err)
	}
	return contacts, nil
}

// Activity returns the audit trail of a listing, oldest first
func (s *ListingService) Activity(ctx context.Context, caller models.Identity, id uuid.UUID) ([]models.ActivityLogEntry, error) {
	if _, err := s.gate.Authorize(ctx, caller, id, AccessRead); err != nil {
		return nil, err
	}
	entries, err := s.store.ListActivity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return entries, nil
}

// PriceHistory returns the price ledger of a listing, oldest first
func (s *ListingService) PriceHistory(ctx context.Context, caller models.Identity, id uuid.UUID) ([]models.PriceHistoryEntry, error) {
	if _, err := s.gate.Authorize(ctx, caller, id, AccessRead); err != nil {
		return nil, err
	}
	entries, err := s.store.ListPriceHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list price history: %w", err)
	}
	return entries, nil
}

// =============================================================================
// Helpers
// =============================================================================

// txFailure keeps classified rejections raised inside a transaction and
// folds everything else into a generic failure.
func txFailure(op string, err error) error {
	for _, known := range []error{ErrConflict, ErrInvalidInput, ErrNotFound, ErrForbidden} {
		if errors.Is(err, known) {
			return err
		}
	}
	log.Printf("%s transaction failed: %v", op, err)
	return fmt.Errorf("%w: %s failed", ErrTransactionFailed, op)
}

func validateAmounts(values ...*int64) error {
	for _, v := range values {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: amounts must not be negative", ErrInvalidInput)
		}
	}
	return nil
}

func validateUpdate(upd ListingUpdate) error {
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}
	return validateAmounts(upd.AreaSqm, upd.Rooms, upd.SalePrice, upd.DepositAmount, upd.RentAmount)
}

func buildContacts(listingID uuid.UUID, in []ContactInput) ([]models.Contact, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: at least one contact is required", ErrInvalidInput)
	}
	contacts := make([]models.Contact, 0, len(in))
	for i, c := range in {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: contact name is required", ErrInvalidInput)
		}
		relation := c.Relation
		switch relation {
		case "":
			relation = models.ContactRelationOwner
		case models.ContactRelationOwner, models.ContactRelationTenant, models.ContactRelationOther:
		default:
			return nil, fmt.Errorf("%w: unknown contact relation %q", ErrInvalidInput, c.Relation)
		}
		contacts = append(contacts, models.Contact{
			ID:        uuid.New(),
			ListingID: listingID,
			Name:      name,
			Phone:     strings.TrimSpace(c.Phone),
			Relation:  relation,
			Position:  i,
		})
	}
	return contacts, nil
}

func contactNames(contacts []models.Contact) string {
	names := make([]string, len(contacts))
	for i, c := range contacts {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

// displayNames returns the sorted staff names joined for humans
func displayNames(staff []models.Staff) string {
	names := make([]string, len(staff))
	for i, st := range staff {
		names[i] = st.FullName
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func priceOf(l *models.Listing, f models.PriceField) *int64 {
	switch f {
	case models.PriceFieldSale:
		return l.SalePrice
	case models.PriceFieldDeposit:
		return l.DepositAmount
	case models.PriceFieldRent:
		return l.RentAmount
	}
	return nil
}

func actorName(ctx context.Context, store storage.Store, id uuid.UUID) string {
	st, err := store.GetStaff(ctx, id)
	if err != nil || st == nil {
		return "A colleague"
	}
	return st.FullName
}
