package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"estate_office/models"
	"estate_office/storage"
)

// AssignmentService replaces the agents working a listing
type AssignmentService struct {
	store    storage.Store
	gate     *Gate
	notifier *Notifier
	now      func() time.Time
}

func NewAssignmentService(store storage.Store, gate *Gate, notifier *Notifier) *AssignmentService {
	return &AssignmentService{
		store:    store,
		gate:     gate,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Replace makes agentIDs the full assignment set of the listing. An empty
// set unassigns everyone. Only agents that were not assigned before are
// notified.
func (s *AssignmentService) Replace(ctx context.Context, caller models.Identity, listingID uuid.UUID, agentIDs []uuid.UUID) ([]models.Staff, error) {
	listing, err := s.gate.Authorize(ctx, caller, listingID, AccessManage)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.StatusActive {
		return nil, fmt.Errorf("%w: listing is %s", ErrConflict, listing.Status)
	}

	ids := dedupe(agentIDs)
	agents, err := s.store.ListStaffByIDs(ctx, caller.OfficeID, ids)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	if len(agents) != len(ids) {
		return nil, fmt.Errorf("%w: every assignee must be an active agent of the office", ErrInvalidInput)
	}
	for _, a := range agents {
		if !a.Active || a.Role != models.RoleAgent {
			return nil, fmt.Errorf("%w: every assignee must be an active agent of the office", ErrInvalidInput)
		}
	}

	previous, err := s.store.ListAssignedStaff(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("list assigned staff: %w", err)
	}

	now := s.now()
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		if err := requireActive(ctx, tx, listingID); err != nil {
			return err
		}
		if err := tx.ReplaceAssignments(ctx, listingID, ids, now); err != nil {
			return err
		}
		return NewAuditLog(tx).Append(ctx, listingID, AuditEntry{
			UserID: caller.UserID,
			Action: models.ActionAssignment,
			Diff: models.Diff{
				"agents": models.Change{
					models.StringValue(displayNames(previous)),
					models.StringValue(displayNames(agents)),
				},
			},
			At: now,
		})
	})
	if err != nil {
		return nil, txFailure("assignment", err)
	}

	added := newlyAdded(previous, ids)
	if len(added) > 0 {
		actor := actorName(ctx, s.store, caller.UserID)
		inputs := make([]NotificationInput, 0, len(added))
		for _, id := range added {
			if id == caller.UserID {
				continue
			}
			inputs = append(inputs, s.notifier.Render(id, models.NotifFileAssigned, listing, actor))
		}
		s.notifier.NotifyMany(ctx, inputs)
	}
	return agents, nil
}

// newlyAdded returns the ids in next that were not in previous, in order
func newlyAdded(previous []models.Staff, next []uuid.UUID) []uuid.UUID {
	before := make(map[uuid.UUID]bool, len(previous))
	for _, st := range previous {
		before[st.ID] = true
	}
	var added []uuid.UUID
	for _, id := range next {
		if !before[id] {
			added = append(added, id)
		}
	}
	return added
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
