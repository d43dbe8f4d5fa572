package workers

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"estate_office/models"
	"estate_office/storage"
)

// Publisher pushes one notification to an external surface
type Publisher interface {
	PublishNotification(ctx context.Context, n models.Notification) error
}

// NotificationRelay forwards stored notifications that were never pushed.
// A notification counts as delivered once the publisher accepted it.
type NotificationRelay struct {
	store     storage.Store
	publisher Publisher
	batchSize int
	triggerCh chan struct{}
}

func NewNotificationRelay(store storage.Store, publisher Publisher, batchSize int) *NotificationRelay {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &NotificationRelay{
		store:     store,
		publisher: publisher,
		batchSize: batchSize,
		triggerCh: make(chan struct{}, 1),
	}
}

// Trigger asks the run loop for a batch. Extra triggers while one is
// pending are dropped.
func (w *NotificationRelay) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Run processes a batch per trigger until ctx is done
func (w *NotificationRelay) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("Notification relay stopping")
			return
		case <-w.triggerCh:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce publishes up to one batch and records what went out
func (w *NotificationRelay) RunOnce(ctx context.Context) (published, failed int) {
	pending, err := w.store.ListUndeliveredNotifications(ctx, w.batchSize)
	if err != nil {
		log.Printf("Notification relay: query error: %v", err)
		return 0, 0
	}
	if len(pending) == 0 {
		return 0, 0
	}

	delivered := make([]uuid.UUID, 0, len(pending))
	for _, n := range pending {
		if err := w.publisher.PublishNotification(ctx, n); err != nil {
			log.Printf("Notification relay: publish %s failed: %v", n.ID, err)
			failed++
			continue
		}
		delivered = append(delivered, n.ID)
	}

	if err := w.store.MarkNotificationsDelivered(ctx, delivered, time.Now().UTC()); err != nil {
		log.Printf("Warning: notification relay could not record %d deliveries: %v", len(delivered), err)
		return 0, failed + len(delivered)
	}

	published = len(delivered)
	log.Printf("Notification relay: published %d, failed %d", published, failed)
	return published, failed
}
