package workers

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

type fakePublisher struct {
	sent   []models.Notification
	failOn map[uuid.UUID]bool
}

func (p *fakePublisher) PublishNotification(_ context.Context, n models.Notification) error {
	if p.failOn[n.ID] {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, n)
	return nil
}

func seedNotifications(t *testing.T, store storage.Store, count int) []models.Notification {
	t.Helper()
	user := uuid.New()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	ns := make([]models.Notification, count)
	for i := range ns {
		ns[i] = models.Notification{
			ID:        uuid.New(),
			UserID:    user,
			Type:      models.NotifFileUpdated,
			Title:     "File updated",
			Message:   "someone updated a file",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}
	if err := store.InsertNotifications(context.Background(), ns); err != nil {
		t.Fatalf("insert notifications: %v", err)
	}
	return ns
}

func openStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRelayPublishesOnce(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	seedNotifications(t, store, 3)

	pub := &fakePublisher{}
	relay := NewNotificationRelay(store, pub, 10)

	published, failed := relay.RunOnce(ctx)
	if published != 3 || failed != 0 {
		t.Fatalf("expected 3 published, got %d (failed %d)", published, failed)
	}

	published, _ = relay.RunOnce(ctx)
	if published != 0 || len(pub.sent) != 3 {
		t.Fatalf("notifications pushed twice: %d sent", len(pub.sent))
	}
}

func TestRelayRetriesFailures(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	ns := seedNotifications(t, store, 2)

	pub := &fakePublisher{failOn: map[uuid.UUID]bool{ns[0].ID: true}}
	relay := NewNotificationRelay(store, pub, 10)

	published, failed := relay.RunOnce(ctx)
	if published != 1 || failed != 1 {
		t.Fatalf("expected 1/1, got %d/%d", published, failed)
	}

	pub.failOn = nil
	published, _ = relay.RunOnce(ctx)
	if published != 1 || pub.sent[len(pub.sent)-1].ID != ns[0].ID {
		t.Fatalf("failed notification not retried")
	}
}

func TestRelayRespectsBatchSize(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	ns := seedNotifications(t, store, 5)

	pub := &fakePublisher{}
	relay := NewNotificationRelay(store, pub, 2)

	if published, _ := relay.RunOnce(ctx); published != 2 {
		t.Fatalf("expected batch of 2, got %d", published)
	}
	if pub.sent[0].ID != ns[0].ID || pub.sent[1].ID != ns[1].ID {
		t.Fatalf("expected oldest first")
	}
}

func TestRelayDeliveryLeavesNotificationUnread(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	ns := seedNotifications(t, store, 1)

	NewNotificationRelay(store, &fakePublisher{}, 5).RunOnce(ctx)

	got, err := store.GetNotification(ctx, ns[0].ID)
	if err != nil || got == nil {
		t.Fatalf("get notification: %v", err)
	}
	if got.IsRead || got.Title != ns[0].Title {
		t.Fatalf("delivery mutated notification: %+v", got)
	}
}

func TestRelayTriggerDoesNotBlock(t *testing.T) {
	relay := NewNotificationRelay(nil, &fakePublisher{}, 1)
	relay.Trigger()
	relay.Trigger()
	if len(relay.triggerCh) != 1 {
		t.Fatalf("expected one pending trigger, got %d", len(relay.triggerCh))
	}
}
