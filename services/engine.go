package services

import (
	"estate_office/models"
	"estate_office/storage"
)

// Engine bundles the services that share one store and one gate
type Engine struct {
	Gate        *Gate
	Notifier    *Notifier
	Listings    *ListingService
	ShareLinks  *ShareLinkService
	Contracts   *ContractService
	Assignments *AssignmentService
	Inbox       *InboxService
}

func NewEngine(store storage.Store, templates map[models.NotificationType]Template) *Engine {
	gate := NewGate(store)
	notifier := NewNotifier(store, templates)
	return &Engine{
		Gate:        gate,
		Notifier:    notifier,
		Listings:    NewListingService(store, gate, notifier),
		ShareLinks:  NewShareLinkService(store, gate),
		Contracts:   NewContractService(store, gate),
		Assignments: NewAssignmentService(store, gate, notifier),
		Inbox:       NewInboxService(store),
	}
}

// Drain waits for background notifications and view counts
func (e *Engine) Drain() {
	e.Notifier.Wait()
	e.ShareLinks.Wait()
}
