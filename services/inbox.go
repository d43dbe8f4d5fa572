package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"estate_office/models"
	"estate_office/storage"
)

// InboxService reads and acknowledges a user's notifications
type InboxService struct {
	store storage.Store
}

func NewInboxService(store storage.Store) *InboxService {
	return &InboxService{store: store}
}

// List returns the caller's notifications, newest first
func (s *InboxService) List(ctx context.Context, caller models.Identity, unreadOnly bool) ([]models.Notification, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	ns, err := s.store.ListNotifications(ctx, caller.UserID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return ns, nil
}

// MarkRead flips the read flag. Notifications of other users are not found.
func (s *InboxService) MarkRead(ctx context.Context, caller models.Identity, id uuid.UUID) (*models.Notification, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	if n == nil || n.UserID != caller.UserID {
		return nil, fmt.Errorf("%w: notification not found", ErrNotFound)
	}
	if n.IsRead {
		return n, nil
	}
	if err := s.store.MarkNotificationRead(ctx, id); err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	n.IsRead = true
	return n, nil
}
