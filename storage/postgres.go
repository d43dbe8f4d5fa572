package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"estate_office/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	migration, err := migrationsFS.ReadFile("migrations/001_initial.sql")
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, string(migration)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// InTx runs fn in a read-committed transaction
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// =============================================================================
// Offices & Staff
// =============================================================================

func (s *PostgresStore) CreateOffice(ctx context.Context, o *models.Office) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO offices (id, name, created_at) VALUES ($1, $2, $3)`,
		o.ID, o.Name, o.CreatedAt)
	return err
}

func (s *PostgresStore) CreateStaff(ctx context.Context, st *models.Staff) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO staff (id, office_id, full_name, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		st.ID, st.OfficeID, st.FullName, st.Role, st.Active, st.CreatedAt)
	return err
}

func (s *PostgresStore) GetStaff(ctx context.Context, id uuid.UUID) (*models.Staff, error) {
	st, err := scanStaff(s.pool.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *PostgresStore) ListStaffByIDs(ctx context.Context, officeID uuid.UUID, ids []uuid.UUID) ([]models.Staff, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryStaff(ctx, `SELECT `+staffColumns+` FROM staff
		WHERE office_id = $1 AND id = ANY($2::uuid[])
		ORDER BY full_name`, officeID, uuidStrings(ids))
}

func (s *PostgresStore) ListActiveManagers(ctx context.Context, officeID uuid.UUID) ([]models.Staff, error) {
	return s.queryStaff(ctx, `SELECT `+staffColumns+` FROM staff
		WHERE office_id = $1 AND role = 'MANAGER' AND active
		ORDER BY full_name`, officeID)
}

func (s *PostgresStore) ListAssignedStaff(ctx context.Context, listingID uuid.UUID) ([]models.Staff, error) {
	return s.queryStaff(ctx, `SELECT s.id, s.office_id, s.full_name, s.role, s.active, s.created_at
		FROM agent_assignments a JOIN staff s ON s.id = a.staff_id
		WHERE a.listing_id = $1
		ORDER BY s.full_name`, listingID)
}

func (s *PostgresStore) queryStaff(ctx context.Context, query string, args ...any) ([]models.Staff, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []models.Staff
	for rows.Next() {
		st, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		staff = append(staff, st)
	}
	return staff, rows.Err()
}

func (s *PostgresStore) IsAssigned(ctx context.Context, listingID, staffID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM agent_assignments WHERE listing_id = $1 AND staff_id = $2)`,
		listingID, staffID).Scan(&exists)
	return exists, err
}

// =============================================================================
// Listings
// =============================================================================

func (s *PostgresStore) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	l, err := scanListing(s.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

func (s *PostgresStore) ListContacts(ctx context.Context, listingID uuid.UUID) ([]models.Contact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, listing_id, name, phone, relation, position
		FROM contacts WHERE listing_id = $1 ORDER BY position`, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.ListingID, &c.Name, &c.Phone, &c.Relation, &c.Position); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (s *PostgresStore) GetContractByListing(ctx context.Context, listingID uuid.UUID) (*models.Contract, error) {
	var c models.Contract
	err := s.pool.QueryRow(ctx, `
		SELECT id, listing_id, final_price, commission_amount, agent_share, office_share, notes, finalized_by, finalized_at
		FROM contracts WHERE listing_id = $1`, listingID).Scan(
		&c.ID, &c.ListingID, &c.FinalPrice, &c.CommissionAmount, &c.AgentShare, &c.OfficeShare, &c.Notes,
		&c.FinalizedBy, &c.FinalizedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// =============================================================================
// Share Links
// =============================================================================

func (s *PostgresStore) GetShareLink(ctx context.Context, id uuid.UUID) (*models.ShareLink, error) {
	sl, err := scanShareLink(s.pool.QueryRow(ctx, `SELECT `+shareLinkColumns+` FROM share_links WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return sl, err
}

func (s *PostgresStore) GetShareLinkByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	sl, err := scanShareLink(s.pool.QueryRow(ctx, `SELECT `+shareLinkColumns+` FROM share_links WHERE token = $1`, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return sl, err
}

func (s *PostgresStore) ListShareLinks(ctx context.Context, listingID uuid.UUID) ([]models.ShareLink, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+shareLinkColumns+` FROM share_links
		WHERE listing_id = $1 ORDER BY created_at, id`, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []models.ShareLink
	for rows.Next() {
		sl, err := scanShareLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *sl)
	}
	return links, rows.Err()
}

func (s *PostgresStore) IncrementShareLinkViews(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `UPDATE share_links SET view_count = view_count + 1 WHERE token = $1 AND active`, token)
	return err
}

// =============================================================================
// Activity & Price History
// =============================================================================

func (s *PostgresStore) ListActivity(ctx context.Context, listingID uuid.UUID) ([]models.ActivityLogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, listing_id, user_id, action, diff, created_at
		FROM activity_log WHERE listing_id = $1 ORDER BY id`, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ActivityLogEntry
	for rows.Next() {
		e, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) ListPriceHistory(ctx context.Context, listingID uuid.UUID) ([]models.PriceHistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, listing_id, changed_by, field, old_amount, new_amount, created_at
		FROM price_history WHERE listing_id = $1 ORDER BY id`, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.PriceHistoryEntry
	for rows.Next() {
		e, err := scanPriceChange(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// Notifications
// =============================================================================

func (s *PostgresStore) InsertNotifications(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, n := range ns {
		batch.Queue(`
			INSERT INTO notifications (id, user_id, type, title, message, listing_id, is_read, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			n.ID, n.UserID, n.Type, n.Title, n.Message, n.ListingID, n.IsRead, n.CreatedAt)
	}
	return s.pool.SendBatch(ctx, batch).Close()
}

func (s *PostgresStore) GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	n, err := scanNotification(s.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *PostgresStore) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC`
	return s.queryNotifications(ctx, query, userID)
}

func (s *PostgresStore) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) ListUndeliveredNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	return s.queryNotifications(ctx, `
		SELECT n.id, n.user_id, n.type, n.title, n.message, n.listing_id, n.is_read, n.created_at
		FROM notifications n
		LEFT JOIN notification_deliveries d ON d.notification_id = n.id
		WHERE d.notification_id IS NULL
		ORDER BY n.created_at
		LIMIT $1`, limit)
}

func (s *PostgresStore) MarkNotificationsDelivered(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_deliveries (notification_id, delivered_at)
		SELECT unnest($1::uuid[]), $2
		ON CONFLICT (notification_id) DO NOTHING`, uuidStrings(ids), at)
	return err
}

func (s *PostgresStore) queryNotifications(ctx context.Context, query string, args ...any) ([]models.Notification, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ns []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		ns = append(ns, n)
	}
	return ns, rows.Err()
}

// =============================================================================
// Transactional writes
// =============================================================================

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) InsertListing(ctx context.Context, l *models.Listing) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO listings (`+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		l.ID, l.OfficeID, l.Kind, l.Status, l.Title, l.Description, l.Address, l.City, l.District,
		l.AreaSqm, l.Rooms, l.Floor, l.HasElevator, l.HasParking, l.SalePrice, l.DepositAmount, l.RentAmount,
		l.CreatedBy, l.Version, l.CreatedAt, l.UpdatedAt,
	)
	return err
}

func (t *pgTx) UpdateListing(ctx context.Context, l *models.Listing, expectedVersion int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE listings SET
			title = $1, description = $2, address = $3, city = $4, district = $5,
			area_sqm = $6, rooms = $7, floor = $8, has_elevator = $9, has_parking = $10,
			sale_price = $11, deposit_amount = $12, rent_amount = $13,
			version = version + 1, updated_at = $14
		WHERE id = $15 AND version = $16 AND status = 'ACTIVE'`,
		l.Title, l.Description, l.Address, l.City, l.District,
		l.AreaSqm, l.Rooms, l.Floor, l.HasElevator, l.HasParking,
		l.SalePrice, l.DepositAmount, l.RentAmount,
		l.UpdatedAt, l.ID, expectedVersion,
	)
	return tagAffectedOne(tag, err)
}

func (t *pgTx) UpdateListingStatus(ctx context.Context, id uuid.UUID, from, to models.ListingStatus, at time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE listings SET status = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND status = $4`, to, at, id, from)
	return tagAffectedOne(tag, err)
}

// LockActiveListing row-locks the listing so a concurrent status change
// waits for this transaction, or wins and leaves nothing to lock.
func (t *pgTx) LockActiveListing(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE listings SET updated_at = updated_at
		WHERE id = $1 AND status = 'ACTIVE'`, id)
	return tagAffectedOne(tag, err)
}

func (t *pgTx) ReplaceContacts(ctx context.Context, listingID uuid.UUID, contacts []models.Contact) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM contacts WHERE listing_id = $1`, listingID); err != nil {
		return fmt.Errorf("delete contacts: %w", err)
	}
	for _, c := range contacts {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO contacts (id, listing_id, name, phone, relation, position)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, listingID, c.Name, c.Phone, c.Relation, c.Position,
		); err != nil {
			return fmt.Errorf("insert contact: %w", err)
		}
	}
	return nil
}

func (t *pgTx) ReplaceAssignments(ctx context.Context, listingID uuid.UUID, staffIDs []uuid.UUID, at time.Time) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM agent_assignments WHERE listing_id = $1`, listingID); err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	if len(staffIDs) == 0 {
		return nil
	}
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO agent_assignments (listing_id, staff_id, assigned_at)
		SELECT $1, unnest($2::uuid[]), $3`, listingID, uuidStrings(staffIDs), at); err != nil {
		return fmt.Errorf("insert assignments: %w", err)
	}
	return nil
}

func (t *pgTx) InsertContract(ctx context.Context, c *models.Contract) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO contracts (id, listing_id, final_price, commission_amount, agent_share, office_share, notes, finalized_by, finalized_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.ListingID, c.FinalPrice, c.CommissionAmount, c.AgentShare, c.OfficeShare, c.Notes, c.FinalizedBy, c.FinalizedAt,
	)
	return err
}

func (t *pgTx) InsertShareLink(ctx context.Context, sl *models.ShareLink) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO share_links (`+shareLinkColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sl.ID, sl.ListingID, sl.Token, sl.CustomPrice, sl.ViewCount, sl.Active, sl.CreatedBy, sl.CreatedAt, sl.DeactivatedAt,
	)
	return err
}

func (t *pgTx) DeactivateShareLink(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE share_links SET active = FALSE, deactivated_at = $1 WHERE id = $2 AND active`, at, id)
	return tagAffectedOne(tag, err)
}

func (t *pgTx) DeactivateListingShareLinks(ctx context.Context, listingID uuid.UUID, at time.Time) (int64, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE share_links SET active = FALSE, deactivated_at = $1 WHERE listing_id = $2 AND active`, at, listingID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgTx) AppendActivity(ctx context.Context, e *models.ActivityLogEntry) error {
	diff, err := diffParam(e.Diff)
	if err != nil {
		return err
	}
	return t.tx.QueryRow(ctx, `
		INSERT INTO activity_log (listing_id, user_id, action, diff, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5)
		RETURNING id`,
		e.ListingID, e.UserID, e.Action, diff, e.CreatedAt,
	).Scan(&e.ID)
}

func (t *pgTx) AppendPriceChange(ctx context.Context, e *models.PriceHistoryEntry) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO price_history (listing_id, changed_by, field, old_amount, new_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		e.ListingID, e.ChangedBy, e.Field, e.OldAmount, e.NewAmount, e.CreatedAt,
	).Scan(&e.ID)
}

func tagAffectedOne(tag pgconn.CommandTag, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
