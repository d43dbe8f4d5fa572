package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"estate_office/models"
	"estate_office/storage"
)

const detachedTimeout = 30 * time.Second

// detached runs best-effort side effects after the caller has its answer.
// Failures are logged and dropped.
type detached struct {
	wg sync.WaitGroup
}

func (d *detached) Go(ctx context.Context, what string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), detachedTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("Warning: %s failed: %v", what, err)
		}
	}()
}

// Wait blocks until every detached task started so far has finished
func (d *detached) Wait() {
	d.wg.Wait()
}

// Template renders a notification title and message.
// {listing} and {actor} are substituted.
type Template struct {
	Title   string `yaml:"title"`
	Message string `yaml:"message"`
}

// DefaultTemplates apply to any type the configuration leaves out
var DefaultTemplates = map[models.NotificationType]Template{
	models.NotifFileUpdated: {
		Title:   "File updated",
		Message: "{actor} updated {listing}",
	},
	models.NotifFileAssigned: {
		Title:   "New file assigned",
		Message: "{actor} assigned you to {listing}",
	},
}

// NotificationInput is one notice for one recipient
type NotificationInput struct {
	UserID    uuid.UUID
	Type      models.NotificationType
	Title     string
	Message   string
	ListingID *uuid.UUID
}

// Notifier fans notices out to recipients after a transaction commits.
// It never reports errors to the caller.
type Notifier struct {
	store     storage.Store
	templates map[models.NotificationType]Template
	tasks     detached
}

func NewNotifier(store storage.Store, templates map[models.NotificationType]Template) *Notifier {
	merged := make(map[models.NotificationType]Template, len(DefaultTemplates))
	for t, tpl := range DefaultTemplates {
		merged[t] = tpl
	}
	for t, tpl := range templates {
		if tpl.Title != "" {
			merged[t] = tpl
		}
	}
	return &Notifier{store: store, templates: merged}
}

// Render builds the input for one recipient from the type's template
func (n *Notifier) Render(userID uuid.UUID, typ models.NotificationType, listing *models.Listing, actor string) NotificationInput {
	tpl := n.templates[typ]
	r := strings.NewReplacer("{listing}", listing.Title, "{actor}", actor)
	listingID := listing.ID
	return NotificationInput{
		UserID:    userID,
		Type:      typ,
		Title:     r.Replace(tpl.Title),
		Message:   r.Replace(tpl.Message),
		ListingID: &listingID,
	}
}

// NotifyMany stores the notices in the background and returns at once
func (n *Notifier) NotifyMany(ctx context.Context, inputs []NotificationInput) {
	if len(inputs) == 0 {
		return
	}
	n.tasks.Go(ctx, "notify", func(ctx context.Context) error {
		return n.deliver(ctx, inputs)
	})
}

// Dispatch resolves recipients with build and stores the result, all in
// the background. build runs after the caller's transaction committed.
func (n *Notifier) Dispatch(ctx context.Context, what string, build func(ctx context.Context) ([]NotificationInput, error)) {
	n.tasks.Go(ctx, what, func(ctx context.Context) error {
		inputs, err := build(ctx)
		if err != nil {
			return err
		}
		if len(inputs) == 0 {
			return nil
		}
		return n.deliver(ctx, inputs)
	})
}

func (n *Notifier) deliver(ctx context.Context, inputs []NotificationInput) error {
	now := time.Now().UTC()
	rows := make([]models.Notification, 0, len(inputs))
	for _, in := range inputs {
		if in.UserID == uuid.Nil {
			continue
		}
		rows = append(rows, models.Notification{
			ID:        uuid.New(),
			UserID:    in.UserID,
			Type:      in.Type,
			Title:     in.Title,
			Message:   in.Message,
			ListingID: in.ListingID,
			CreatedAt: now,
		})
	}
	if err := n.store.InsertNotifications(ctx, rows); err != nil {
		return fmt.Errorf("insert %d notifications: %w", len(rows), err)
	}
	return nil
}

func (n *Notifier) Wait() {
	n.tasks.Wait()
}
