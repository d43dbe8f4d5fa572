package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"estate_office/models"
)

// Store is the persistence contract shared by the Postgres and SQLite
// backends. Getters return (nil, nil) when the row does not exist.
type Store interface {
	// InTx runs fn inside one database transaction. The transaction
	// commits only if fn returns nil.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	CreateOffice(ctx context.Context, o *models.Office) error
	CreateStaff(ctx context.Context, st *models.Staff) error
	GetStaff(ctx context.Context, id uuid.UUID) (*models.Staff, error)
	ListStaffByIDs(ctx context.Context, officeID uuid.UUID, ids []uuid.UUID) ([]models.Staff, error)
	ListActiveManagers(ctx context.Context, officeID uuid.UUID) ([]models.Staff, error)

	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	ListContacts(ctx context.Context, listingID uuid.UUID) ([]models.Contact, error)
	GetContractByListing(ctx context.Context, listingID uuid.UUID) (*models.Contract, error)
	ListAssignedStaff(ctx context.Context, listingID uuid.UUID) ([]models.Staff, error)
	IsAssigned(ctx context.Context, listingID, staffID uuid.UUID) (bool, error)

	GetShareLink(ctx context.Context, id uuid.UUID) (*models.ShareLink, error)
	GetShareLinkByToken(ctx context.Context, token string) (*models.ShareLink, error)
	ListShareLinks(ctx context.Context, listingID uuid.UUID) ([]models.ShareLink, error)
	IncrementShareLinkViews(ctx context.Context, token string) error

	ListActivity(ctx context.Context, listingID uuid.UUID) ([]models.ActivityLogEntry, error)
	ListPriceHistory(ctx context.Context, listingID uuid.UUID) ([]models.PriceHistoryEntry, error)

	InsertNotifications(ctx context.Context, ns []models.Notification) error
	GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
	ListUndeliveredNotifications(ctx context.Context, limit int) ([]models.Notification, error)
	MarkNotificationsDelivered(ctx context.Context, ids []uuid.UUID, at time.Time) error

	Close() error
}

// Tx holds the writes that must happen inside a transaction.
// Audit and price rows can only be appended.
type Tx interface {
	InsertListing(ctx context.Context, l *models.Listing) error
	// UpdateListing writes the scalar fields when the stored version
	// still equals expectedVersion and bumps it. It reports false on a
	// version mismatch.
	UpdateListing(ctx context.Context, l *models.Listing, expectedVersion int64) (bool, error)
	// UpdateListingStatus moves the listing from one status to another
	// and reports false if the listing was not in the from status.
	UpdateListingStatus(ctx context.Context, id uuid.UUID, from, to models.ListingStatus, at time.Time) (bool, error)
	// LockActiveListing takes the listing row for the rest of the
	// transaction and reports false unless it is ACTIVE.
	LockActiveListing(ctx context.Context, id uuid.UUID) (bool, error)
	ReplaceContacts(ctx context.Context, listingID uuid.UUID, contacts []models.Contact) error
	ReplaceAssignments(ctx context.Context, listingID uuid.UUID, staffIDs []uuid.UUID, at time.Time) error

	InsertContract(ctx context.Context, c *models.Contract) error

	InsertShareLink(ctx context.Context, sl *models.ShareLink) error
	DeactivateShareLink(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	DeactivateListingShareLinks(ctx context.Context, listingID uuid.UUID, at time.Time) (int64, error)

	AppendActivity(ctx context.Context, e *models.ActivityLogEntry) error
	AppendPriceChange(ctx context.Context, e *models.PriceHistoryEntry) error
}

const listingColumns = `id, office_id, kind, status, title, description, address, city, district,
	area_sqm, rooms, floor, has_elevator, has_parking, sale_price, deposit_amount, rent_amount,
	created_by, version, created_at, updated_at`

const staffColumns = `id, office_id, full_name, role, active, created_at`

const shareLinkColumns = `id, listing_id, token, custom_price, view_count, active, created_by, created_at, deactivated_at`

const notificationColumns = `id, user_id, type, title, message, listing_id, is_read, created_at`

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*models.Listing, error) {
	var l models.Listing
	err := row.Scan(
		&l.ID, &l.OfficeID, &l.Kind, &l.Status, &l.Title, &l.Description, &l.Address, &l.City, &l.District,
		&l.AreaSqm, &l.Rooms, &l.Floor, &l.HasElevator, &l.HasParking, &l.SalePrice, &l.DepositAmount, &l.RentAmount,
		&l.CreatedBy, &l.Version, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func scanStaff(row rowScanner) (models.Staff, error) {
	var st models.Staff
	err := row.Scan(&st.ID, &st.OfficeID, &st.FullName, &st.Role, &st.Active, &st.CreatedAt)
	return st, err
}

func scanShareLink(row rowScanner) (*models.ShareLink, error) {
	var sl models.ShareLink
	err := row.Scan(&sl.ID, &sl.ListingID, &sl.Token, &sl.CustomPrice, &sl.ViewCount, &sl.Active,
		&sl.CreatedBy, &sl.CreatedAt, &sl.DeactivatedAt)
	if err != nil {
		return nil, err
	}
	return &sl, nil
}

func scanNotification(row rowScanner) (models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.ListingID, &n.IsRead, &n.CreatedAt)
	return n, err
}

func scanActivity(row rowScanner) (models.ActivityLogEntry, error) {
	var e models.ActivityLogEntry
	var diff []byte
	if err := row.Scan(&e.ID, &e.ListingID, &e.UserID, &e.Action, &diff, &e.CreatedAt); err != nil {
		return e, err
	}
	d, err := models.UnmarshalDiff(diff)
	if err != nil {
		return e, err
	}
	e.Diff = d
	return e, nil
}

func scanPriceChange(row rowScanner) (models.PriceHistoryEntry, error) {
	var e models.PriceHistoryEntry
	err := row.Scan(&e.ID, &e.ListingID, &e.ChangedBy, &e.Field, &e.OldAmount, &e.NewAmount, &e.CreatedAt)
	return e, err
}

// diffParam turns an encoded diff into a driver argument, NULL when empty
func diffParam(d models.Diff) (any, error) {
	data, err := models.MarshalDiff(d)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	return string(data), nil
}
