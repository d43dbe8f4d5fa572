package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"estate_office/models"
)

// SQLiteStore backs a single office install and the test suite
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS offices (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		office_id TEXT NOT NULL REFERENCES offices(id),
		full_name TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('MANAGER', 'AGENT')),
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS listings (
		id TEXT PRIMARY KEY,
		office_id TEXT NOT NULL REFERENCES offices(id),
		kind TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		district TEXT NOT NULL DEFAULT '',
		area_sqm INTEGER,
		rooms INTEGER,
		floor INTEGER,
		has_elevator BOOLEAN NOT NULL DEFAULT FALSE,
		has_parking BOOLEAN NOT NULL DEFAULT FALSE,
		sale_price INTEGER,
		deposit_amount INTEGER,
		rent_amount INTEGER,
		created_by TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contacts (
		id TEXT PRIMARY KEY,
		listing_id TEXT NOT NULL REFERENCES listings(id),
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		relation TEXT NOT NULL DEFAULT 'owner',
		position INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS agent_assignments (
		listing_id TEXT NOT NULL REFERENCES listings(id),
		staff_id TEXT NOT NULL REFERENCES staff(id),
		assigned_at DATETIME NOT NULL,
		PRIMARY KEY (listing_id, staff_id)
	);

	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		listing_id TEXT NOT NULL UNIQUE REFERENCES listings(id),
		final_price INTEGER NOT NULL,
		commission_amount INTEGER NOT NULL,
		agent_share INTEGER NOT NULL,
		office_share INTEGER NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		finalized_by TEXT NOT NULL,
		finalized_at DATETIME NOT NULL,
		CHECK (agent_share >= 0 AND agent_share <= commission_amount),
		CHECK (office_share = commission_amount - agent_share)
	);

	CREATE TABLE IF NOT EXISTS share_links (
		id TEXT PRIMARY KEY,
		listing_id TEXT NOT NULL REFERENCES listings(id),
		token TEXT NOT NULL UNIQUE,
		custom_price INTEGER,
		view_count INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		deactivated_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS activity_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		listing_id TEXT NOT NULL REFERENCES listings(id),
		user_id TEXT NOT NULL,
		action TEXT NOT NULL,
		diff TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS price_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		listing_id TEXT NOT NULL REFERENCES listings(id),
		changed_by TEXT NOT NULL,
		field TEXT NOT NULL,
		old_amount INTEGER,
		new_amount INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		listing_id TEXT,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS notification_deliveries (
		notification_id TEXT PRIMARY KEY REFERENCES notifications(id),
		delivered_at DATETIME NOT NULL
	);

	CREATE TRIGGER IF NOT EXISTS activity_log_no_update BEFORE UPDATE ON activity_log
	BEGIN SELECT RAISE(ABORT, 'activity_log is append-only'); END;
	CREATE TRIGGER IF NOT EXISTS activity_log_no_delete BEFORE DELETE ON activity_log
	BEGIN SELECT RAISE(ABORT, 'activity_log is append-only'); END;
	CREATE TRIGGER IF NOT EXISTS price_history_no_update BEFORE UPDATE ON price_history
	BEGIN SELECT RAISE(ABORT, 'price_history is append-only'); END;
	CREATE TRIGGER IF NOT EXISTS price_history_no_delete BEFORE DELETE ON price_history
	BEGIN SELECT RAISE(ABORT, 'price_history is append-only'); END;
	CREATE TRIGGER IF NOT EXISTS contracts_no_update BEFORE UPDATE ON contracts
	BEGIN SELECT RAISE(ABORT, 'contracts are immutable'); END;
	CREATE TRIGGER IF NOT EXISTS share_links_no_reactivate BEFORE UPDATE OF active ON share_links
	WHEN OLD.active = 0 AND NEW.active = 1
	BEGIN SELECT RAISE(ABORT, 'share links cannot be reactivated'); END;

	CREATE INDEX IF NOT EXISTS idx_staff_office ON staff(office_id, role);
	CREATE INDEX IF NOT EXISTS idx_listings_office ON listings(office_id, status);
	CREATE INDEX IF NOT EXISTS idx_contacts_listing ON contacts(listing_id, position);
	CREATE INDEX IF NOT EXISTS idx_share_links_listing ON share_links(listing_id);
	CREATE INDEX IF NOT EXISTS idx_activity_listing ON activity_log(listing_id, id);
	CREATE INDEX IF NOT EXISTS idx_price_history_listing ON price_history(listing_id, id);
	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InTx runs fn in a BEGIN IMMEDIATE transaction
func (s *SQLiteStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// =============================================================================
// Offices & Staff
// =============================================================================

func (s *SQLiteStore) CreateOffice(ctx context.Context, o *models.Office) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO offices (id, name, created_at) VALUES (?, ?, ?)`,
		o.ID, o.Name, o.CreatedAt)
	return err
}

func (s *SQLiteStore) CreateStaff(ctx context.Context, st *models.Staff) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff (id, office_id, full_name, role, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		st.ID, st.OfficeID, st.FullName, st.Role, st.Active, st.CreatedAt)
	return err
}

func (s *SQLiteStore) GetStaff(ctx context.Context, id uuid.UUID) (*models.Staff, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = ?`, id)
	st, err := scanStaff(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *SQLiteStore) ListStaffByIDs(ctx context.Context, officeID uuid.UUID, ids []uuid.UUID) ([]models.Staff, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := []any{officeID}
	for _, id := range ids {
		args = append(args, id)
	}
	query := `SELECT ` + staffColumns + ` FROM staff
		WHERE office_id = ? AND id IN (` + placeholders(len(ids)) + `)
		ORDER BY full_name`
	return s.queryStaff(ctx, query, args...)
}

func (s *SQLiteStore) ListActiveManagers(ctx context.Context, officeID uuid.UUID) ([]models.Staff, error) {
	return s.queryStaff(ctx, `SELECT `+staffColumns+` FROM staff
		WHERE office_id = ? AND role = 'MANAGER' AND active = TRUE
		ORDER BY full_name`, officeID)
}

func (s *SQLiteStore) ListAssignedStaff(ctx context.Context, listingID uuid.UUID) ([]models.Staff, error) {
	return s.queryStaff(ctx, `SELECT s.id, s.office_id, s.full_name, s.role, s.active, s.created_at
		FROM agent_assignments a JOIN staff s ON s.id = a.staff_id
		WHERE a.listing_id = ?
		ORDER BY s.full_name`, listingID)
}

func (s *SQLiteStore) queryStaff(ctx context.Context, query string, args ...any) ([]models.Staff, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *SQLiteStore) IsAssigned(ctx context.Context, listingID, staffID uuid.UUID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agent_assignments WHERE listing_id = ? AND staff_id = ?`,
		listingID, staffID).Scan(&n)
	return n > 0, err
}

// =============================================================================
// Listings
// =============================================================================

func (s *SQLiteStore) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	l, err := scanListing(s.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

func (s *SQLiteStore) ListContacts(ctx context.Context, listingID uuid.UUID) ([]models.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, listing_id, name, phone, relation, position
		FROM contacts WHERE listing_id = ? ORDER BY position`, listingID)
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

func (s *SQLiteStore) GetContractByListing(ctx context.Context, listingID uuid.UUID) (*models.Contract, error) {
	var c models.Contract
	err := s.db.QueryRowContext(ctx, `
		SELECT id, listing_id, final_price, commission_amount, agent_share, office_share, notes, finalized_by, finalized_at
		FROM contracts WHERE listing_id = ?`, listingID).Scan(
		&c.ID, &c.ListingID, &c.FinalPrice, &c.CommissionAmount, &c.AgentShare, &c.OfficeShare, &c.Notes,
		&c.FinalizedBy, &c.FinalizedAt,
	)
	if err == sql.ErrNoRows {
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

func (s *SQLiteStore) GetShareLink(ctx context.Context, id uuid.UUID) (*models.ShareLink, error) {
	sl, err := scanShareLink(s.db.QueryRowContext(ctx, `SELECT `+shareLinkColumns+` FROM share_links WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sl, err
}

func (s *SQLiteStore) GetShareLinkByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	sl, err := scanShareLink(s.db.QueryRowContext(ctx, `SELECT `+shareLinkColumns+` FROM share_links WHERE token = ?`, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sl, err
}

func (s *SQLiteStore) ListShareLinks(ctx context.Context, listingID uuid.UUID) ([]models.ShareLink, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+shareLinkColumns+` FROM share_links
		WHERE listing_id = ? ORDER BY created_at, id`, listingID)
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

func (s *SQLiteStore) IncrementShareLinkViews(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE share_links SET view_count = view_count + 1 WHERE token = ? AND active = TRUE`, token)
	return err
}

// =============================================================================
// Activity & Price History
// =============================================================================

func (s *SQLiteStore) ListActivity(ctx context.Context, listingID uuid.UUID) ([]models.ActivityLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, listing_id, user_id, action, diff, created_at
		FROM activity_log WHERE listing_id = ? ORDER BY id`, listingID)
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

func (s *SQLiteStore) ListPriceHistory(ctx context.Context, listingID uuid.UUID) ([]models.PriceHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, listing_id, changed_by, field, old_amount, new_amount, created_at
		FROM price_history WHERE listing_id = ? ORDER BY id`, listingID)
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

func (s *SQLiteStore) InsertNotifications(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return s.InTx(ctx, func(tx Tx) error {
		q := tx.(*sqliteTx).tx
		for _, n := range ns {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO notifications (id, user_id, type, title, message, listing_id, is_read, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				n.ID, n.UserID, n.Type, n.Title, n.Message, n.ListingID, n.IsRead, n.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert notification: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	n, err := scanNotification(s.db.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *SQLiteStore) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC`
	return s.queryNotifications(ctx, query, userID)
}

func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) ListUndeliveredNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	return s.queryNotifications(ctx, `
		SELECT n.id, n.user_id, n.type, n.title, n.message, n.listing_id, n.is_read, n.created_at
		FROM notifications n
		LEFT JOIN notification_deliveries d ON d.notification_id = n.id
		WHERE d.notification_id IS NULL
		ORDER BY n.created_at
		LIMIT ?`, limit)
}

func (s *SQLiteStore) MarkNotificationsDelivered(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return s.InTx(ctx, func(tx Tx) error {
		q := tx.(*sqliteTx).tx
		for _, id := range ids {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO notification_deliveries (notification_id, delivered_at) VALUES (?, ?)
				ON CONFLICT (notification_id) DO NOTHING`, id, at); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) queryNotifications(ctx context.Context, query string, args ...any) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) InsertListing(ctx context.Context, l *models.Listing) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO listings (`+listingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.OfficeID, l.Kind, l.Status, l.Title, l.Description, l.Address, l.City, l.District,
		l.AreaSqm, l.Rooms, l.Floor, l.HasElevator, l.HasParking, l.SalePrice, l.DepositAmount, l.RentAmount,
		l.CreatedBy, l.Version, l.CreatedAt, l.UpdatedAt,
	)
	return err
}

func (t *sqliteTx) UpdateListing(ctx context.Context, l *models.Listing, expectedVersion int64) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE listings SET
			title = ?, description = ?, address = ?, city = ?, district = ?,
			area_sqm = ?, rooms = ?, floor = ?, has_elevator = ?, has_parking = ?,
			sale_price = ?, deposit_amount = ?, rent_amount = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND status = 'ACTIVE'`,
		l.Title, l.Description, l.Address, l.City, l.District,
		l.AreaSqm, l.Rooms, l.Floor, l.HasElevator, l.HasParking,
		l.SalePrice, l.DepositAmount, l.RentAmount,
		l.UpdatedAt, l.ID, expectedVersion,
	)
	return affectedOne(res, err)
}

func (t *sqliteTx) UpdateListingStatus(ctx context.Context, id uuid.UUID, from, to models.ListingStatus, at time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE listings SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND status = ?`, to, at, id, from)
	return affectedOne(res, err)
}

func (t *sqliteTx) LockActiveListing(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE listings SET updated_at = updated_at
		WHERE id = ? AND status = 'ACTIVE'`, id)
	return affectedOne(res, err)
}

func (t *sqliteTx) ReplaceContacts(ctx context.Context, listingID uuid.UUID, contacts []models.Contact) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM contacts WHERE listing_id = ?`, listingID); err != nil {
		return fmt.Errorf("delete contacts: %w", err)
	}
	for _, c := range contacts {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO contacts (id, listing_id, name, phone, relation, position)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, listingID, c.Name, c.Phone, c.Relation, c.Position,
		); err != nil {
			return fmt.Errorf("insert contact: %w", err)
		}
	}
	return nil
}

func (t *sqliteTx) ReplaceAssignments(ctx context.Context, listingID uuid.UUID, staffIDs []uuid.UUID, at time.Time) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM agent_assignments WHERE listing_id = ?`, listingID); err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	for _, id := range staffIDs {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO agent_assignments (listing_id, staff_id, assigned_at) VALUES (?, ?, ?)`,
			listingID, id, at,
		); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	return nil
}

func (t *sqliteTx) InsertContract(ctx context.Context, c *models.Contract) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO contracts (id, listing_id, final_price, commission_amount, agent_share, office_share, notes, finalized_by, finalized_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ListingID, c.FinalPrice, c.CommissionAmount, c.AgentShare, c.OfficeShare, c.Notes, c.FinalizedBy, c.FinalizedAt,
	)
	return err
}

func (t *sqliteTx) InsertShareLink(ctx context.Context, sl *models.ShareLink) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO share_links (`+shareLinkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sl.ID, sl.ListingID, sl.Token, sl.CustomPrice, sl.ViewCount, sl.Active, sl.CreatedBy, sl.CreatedAt, sl.DeactivatedAt,
	)
	return err
}

func (t *sqliteTx) DeactivateShareLink(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE share_links SET active = FALSE, deactivated_at = ? WHERE id = ? AND active = TRUE`, at, id)
	return affectedOne(res, err)
}

func (t *sqliteTx) DeactivateListingShareLinks(ctx context.Context, listingID uuid.UUID, at time.Time) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE share_links SET active = FALSE, deactivated_at = ? WHERE listing_id = ? AND active = TRUE`, at, listingID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *sqliteTx) AppendActivity(ctx context.Context, e *models.ActivityLogEntry) error {
	diff, err := diffParam(e.Diff)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO activity_log (listing_id, user_id, action, diff, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ListingID, e.UserID, e.Action, diff, e.CreatedAt)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

func (t *sqliteTx) AppendPriceChange(ctx context.Context, e *models.PriceHistoryEntry) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO price_history (listing_id, changed_by, field, old_amount, new_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ListingID, e.ChangedBy, e.Field, e.OldAmount, e.NewAmount, e.CreatedAt)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

func affectedOne(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
