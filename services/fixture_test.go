package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"estate_office/models"
	"estate_office/storage"
)

type fixture struct {
	t       *testing.T
	ctx     context.Context
	store   *storage.SQLiteStore
	engine  *Engine
	office  uuid.UUID
	manager models.Identity
	agentA  models.Identity
	agentB  models.Identity
	agentC  models.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  store,
		engine: NewEngine(store, nil),
	}
	t.Cleanup(f.engine.Drain)

	f.office = f.createOffice("Harbor Realty")
	f.manager = f.createStaff(f.office, "Maya Manager", models.RoleManager, true)
	f.agentA = f.createStaff(f.office, "Alice Agent", models.RoleAgent, true)
	f.agentB = f.createStaff(f.office, "Bob Agent", models.RoleAgent, true)
	f.agentC = f.createStaff(f.office, "Carol Agent", models.RoleAgent, true)
	return f
}

func (f *fixture) createOffice(name string) uuid.UUID {
	f.t.Helper()
	o := &models.Office{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	if err := f.store.CreateOffice(f.ctx, o); err != nil {
		f.t.Fatalf("create office: %v", err)
	}
	return o.ID
}

func (f *fixture) createStaff(office uuid.UUID, name string, role models.Role, active bool) models.Identity {
	f.t.Helper()
	st := &models.Staff{
		ID:        uuid.New(),
		OfficeID:  office,
		FullName:  name,
		Role:      role,
		Active:    active,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.store.CreateStaff(f.ctx, st); err != nil {
		f.t.Fatalf("create staff: %v", err)
	}
	return models.Identity{OfficeID: office, UserID: st.ID, Role: role}
}

func (f *fixture) createListing(kind models.TransactionKind) *models.Listing {
	f.t.Helper()
	price := int64(500000)
	in := NewListing{
		Kind:      kind,
		Title:     "Two bedroom by the park",
		City:      "Lisbon",
		District:  "Alvalade",
		Contacts:  []ContactInput{{Name: "Olivia Owner", Phone: "+351 900 000 000"}},
		SalePrice: &price,
	}
	if kind.IsRental() {
		rent := int64(1200)
		deposit := int64(2400)
		in.SalePrice = nil
		in.RentAmount = &rent
		in.DepositAmount = &deposit
	}
	l, err := f.engine.Listings.Create(f.ctx, f.manager, in)
	if err != nil {
		f.t.Fatalf("create listing: %v", err)
	}
	return l
}

func (f *fixture) assign(listingID uuid.UUID, agents ...models.Identity) {
	f.t.Helper()
	ids := make([]uuid.UUID, len(agents))
	for i, a := range agents {
		ids[i] = a.UserID
	}
	if _, err := f.engine.Assignments.Replace(f.ctx, f.manager, listingID, ids); err != nil {
		f.t.Fatalf("assign: %v", err)
	}
	f.engine.Drain()
}

func (f *fixture) listing(id uuid.UUID) *models.Listing {
	f.t.Helper()
	l, err := f.store.GetListing(f.ctx, id)
	if err != nil || l == nil {
		f.t.Fatalf("get listing %s: %v", id, err)
	}
	return l
}

func (f *fixture) activity(id uuid.UUID) []models.ActivityLogEntry {
	f.t.Helper()
	entries, err := f.store.ListActivity(f.ctx, id)
	if err != nil {
		f.t.Fatalf("list activity: %v", err)
	}
	return entries
}

func (f *fixture) priceHistory(id uuid.UUID) []models.PriceHistoryEntry {
	f.t.Helper()
	entries, err := f.store.ListPriceHistory(f.ctx, id)
	if err != nil {
		f.t.Fatalf("list price history: %v", err)
	}
	return entries
}

func (f *fixture) inbox(who models.Identity) []models.Notification {
	f.t.Helper()
	f.engine.Drain()
	ns, err := f.store.ListNotifications(f.ctx, who.UserID, false)
	if err != nil {
		f.t.Fatalf("list notifications: %v", err)
	}
	return ns
}

func expectErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func ptr[T any](v T) *T { return &v }
