package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"estate_office/identity"
	"estate_office/models"
	"estate_office/storage"
)

// ShareLinkService issues and revokes public views of a listing
type ShareLinkService struct {
	store    storage.Store
	gate     *Gate
	tasks    detached
	now      func() time.Time
	newToken func() (string, error)
}

func NewShareLinkService(store storage.Store, gate *Gate) *ShareLinkService {
	return &ShareLinkService{
		store:    store,
		gate:     gate,
		now:      func() time.Time { return time.Now().UTC() },
		newToken: identity.NewShareToken,
	}
}

// PublicListing is what an anonymous visitor of a share link sees
type PublicListing struct {
	Token       string                 `json:"token"`
	Kind        models.TransactionKind `json:"kind"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	City        string                 `json:"city"`
	District    string                 `json:"district"`
	AreaSqm     *int64                 `json:"area_sqm"`
	Rooms       *int64                 `json:"rooms"`
	Floor       *int64                 `json:"floor"`
	HasElevator bool                   `json:"has_elevator"`
	HasParking  bool                   `json:"has_parking"`
	Price       *int64                 `json:"price"`
}

// Create issues a new link for an ACTIVE listing
func (s *ShareLinkService) Create(ctx context.Context, caller models.Identity, listingID uuid.UUID, customPrice *int64) (*models.ShareLink, error) {
	if customPrice != nil && *customPrice <= 0 {
		return nil, fmt.Errorf("%w: custom price must be positive", ErrInvalidInput)
	}
	listing, err := s.gate.Authorize(ctx, caller, listingID, AccessWrite)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.StatusActive {
		return nil, fmt.Errorf("%w: listing is %s", ErrConflict, listing.Status)
	}

	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	now := s.now()
	link := &models.ShareLink{
		ID:          uuid.New(),
		ListingID:   listingID,
		Token:       token,
		CustomPrice: customPrice,
		Active:      true,
		CreatedBy:   caller.UserID,
		CreatedAt:   now,
	}

	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		if err := requireActive(ctx, tx, listingID); err != nil {
			return err
		}
		if err := tx.InsertShareLink(ctx, link); err != nil {
			return fmt.Errorf("insert share link: %w", err)
		}
		return NewAuditLog(tx).Append(ctx, listingID, AuditEntry{
			UserID: caller.UserID,
			Action: models.ActionShareLink,
			Diff: models.Diff{
				"share_link": models.Change{models.NullValue(), models.StringValue(link.ID.String())},
			},
			At: now,
		})
	})
	if err != nil {
		return nil, txFailure("create share link", err)
	}
	return link, nil
}

// Deactivate turns a link off. Deactivating an inactive link succeeds
// without writing anything.
func (s *ShareLinkService) Deactivate(ctx context.Context, caller models.Identity, linkID uuid.UUID) (*models.ShareLink, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	link, err := s.store.GetShareLink(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("get share link: %w", err)
	}
	if link == nil {
		return nil, fmt.Errorf("%w: share link not found", ErrNotFound)
	}
	if _, err := s.gate.Authorize(ctx, caller, link.ListingID, AccessManage); err != nil {
		return nil, err
	}
	if !link.Active {
		return link, nil
	}

	now := s.now()
	changed := false
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		ok, err := tx.DeactivateShareLink(ctx, linkID, now)
		if err != nil {
			return fmt.Errorf("deactivate share link: %w", err)
		}
		if !ok {
			return nil
		}
		changed = true
		return NewAuditLog(tx).Append(ctx, link.ListingID, AuditEntry{
			UserID: caller.UserID,
			Action: models.ActionShareLink,
			Diff: models.Diff{
				"share_link": models.Change{models.StringValue(link.ID.String()), models.NullValue()},
			},
			At: now,
		})
	})
	if err != nil {
		return nil, txFailure("deactivate share link", err)
	}

	link.Active = false
	if changed {
		link.DeactivatedAt = &now
	}
	return link, nil
}

// List returns every link of a listing, active or not
func (s *ShareLinkService) List(ctx context.Context, caller models.Identity, listingID uuid.UUID) ([]models.ShareLink, error) {
	if _, err := s.gate.Authorize(ctx, caller, listingID, AccessRead); err != nil {
		return nil, err
	}
	links, err := s.store.ListShareLinks(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("list share links: %w", err)
	}
	return links, nil
}

// RecordView bumps the view counter in the background. A failure never
// reaches the visitor.
func (s *ShareLinkService) RecordView(ctx context.Context, token string) {
	s.tasks.Go(ctx, "record share link view", func(ctx context.Context) error {
		return s.store.IncrementShareLinkViews(ctx, token)
	})
}

// Resolve serves the public view behind a token and counts the visit
func (s *ShareLinkService) Resolve(ctx context.Context, token string) (*PublicListing, error) {
	if !identity.ValidShareToken(token) {
		return nil, fmt.Errorf("%w: share link not found", ErrNotFound)
	}
	link, err := s.store.GetShareLinkByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get share link: %w", err)
	}
	if link == nil || !link.Active {
		return nil, fmt.Errorf("%w: share link not found", ErrNotFound)
	}
	listing, err := s.store.GetListing(ctx, link.ListingID)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	if listing == nil || listing.Status != models.StatusActive {
		return nil, fmt.Errorf("%w: share link not found", ErrNotFound)
	}

	s.RecordView(ctx, token)

	price := listing.AskingPrice()
	if link.CustomPrice != nil {
		price = link.CustomPrice
	}
	return &PublicListing{
		Token:       token,
		Kind:        listing.Kind,
		Title:       listing.Title,
		Description: listing.Description,
		City:        listing.City,
		District:    listing.District,
		AreaSqm:     listing.AreaSqm,
		Rooms:       listing.Rooms,
		Floor:       listing.Floor,
		HasElevator: listing.HasElevator,
		HasParking:  listing.HasParking,
		Price:       price,
	}, nil
}

// Wait drains pending view counts
func (s *ShareLinkService) Wait() {
	s.tasks.Wait()
}
