package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"estate_office/models"
	"estate_office/storage"
)

func TestRenderUsesTemplates(t *testing.T) {
	f := newFixture(t)
	n := NewNotifier(f.store, map[models.NotificationType]Template{
		models.NotifFileAssigned: {Title: "Assigned: {listing}", Message: "from {actor}"},
	})
	l := &models.Listing{ID: uuid.New(), Title: "Villa"}

	in := n.Render(f.agentA.UserID, models.NotifFileAssigned, l, "Maya")
	if in.Title != "Assigned: Villa" || in.Message != "from Maya" {
		t.Fatalf("unexpected render %+v", in)
	}
	if in.ListingID == nil || *in.ListingID != l.ID {
		t.Fatalf("listing reference missing")
	}

	// types left out of the configuration fall back to defaults
	in = n.Render(f.agentA.UserID, models.NotifFileUpdated, l, "Maya")
	if in.Title != "File updated" || in.Message != "Maya updated Villa" {
		t.Fatalf("unexpected default render %+v", in)
	}
}

func TestNotifyManyStoresNotices(t *testing.T) {
	f := newFixture(t)
	n := NewNotifier(f.store, nil)

	n.NotifyMany(f.ctx, []NotificationInput{
		{UserID: f.agentA.UserID, Type: models.NotifFileUpdated, Title: "t", Message: "m"},
		{UserID: uuid.Nil, Type: models.NotifFileUpdated, Title: "dropped"},
	})
	n.Wait()

	ns := f.inbox(f.agentA)
	if len(ns) != 1 || ns[0].Title != "t" || ns[0].IsRead || ns[0].ListingID != nil {
		t.Fatalf("unexpected notifications %+v", ns)
	}
}

// failingInserts refuses every notification write
type failingInserts struct {
	*storage.SQLiteStore
}

func (failingInserts) InsertNotifications(context.Context, []models.Notification) error {
	return errors.New("insert refused")
}

func TestNotifyManySwallowsErrors(t *testing.T) {
	f := newFixture(t)
	n := NewNotifier(failingInserts{f.store}, nil)

	// must return and must not panic although the store refuses the write
	n.NotifyMany(context.Background(), []NotificationInput{
		{UserID: f.agentA.UserID, Type: models.NotifFileUpdated, Title: "t", Message: "m"},
	})
	n.Wait()

	if ns := f.inbox(f.agentA); len(ns) != 0 {
		t.Fatalf("expected nothing stored, got %d", len(ns))
	}
}

func TestNotifyOutlivesCanceledRequest(t *testing.T) {
	f := newFixture(t)
	n := NewNotifier(f.store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.NotifyMany(ctx, []NotificationInput{
		{UserID: f.agentA.UserID, Type: models.NotifFileAssigned, Title: "t", Message: "m"},
	})
	n.Wait()

	if ns := f.inbox(f.agentA); len(ns) != 1 {
		t.Fatalf("expected delivery after cancel, got %d", len(ns))
	}
}
