package services

import (
	"testing"

	"github.com/google/uuid"

	"estate_office/models"
)

func TestCreateShareLink(t *testing.T) {
	f := newFixture(t)
	l := f.createListing(models.KindSale)
	f.assign(l.ID, f.agentA)
	before := len(f.activity(l.ID))

	link, err := f.engine.ShareLinks.Create(f.ctx, f.agentA, l.ID, ptr(int64(490000)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !link.Active || link.ViewCount != 0 || link.Token == "" {
		t.Fatalf("unexpected link %+v", link)
	}

	entries := f.activity(l.ID)
	if len(entries) != before+1 || entries[len(entries)-1].Action != models.ActionShareLink {
		t.Fatalf("expected a SHARE_LINK entry, got %+v", entries)
	}

	other, err := f.engine.ShareLinks.Create(f.ctx, f.manager, l.ID, nil)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if other.Token == link.Token {
		t.Fatalf("tokens collide")
	}

	links, err := f.engine.ShareLinks.List(f.ctx, f.agentA, l.ID)
	if err != nil || len(links) != 2 {
		t.Fatalf("list: %v (%d links)", err, len(links))
	}
}

func TestCreateShareLinkRejectsBadPrice(t *testing.T) {
	f := newFixture(t)
	l := f.createListing(models.KindSale)

	_, err := f.engine.ShareLinks.Create(f.ctx, f.manager, l.ID, ptr(int64(0)))
	expectErr(t, err, ErrInvalidInput)
}

func TestDeactivateShareLinkIsIdempotent(t *testing.T) {
	f := newFixture(t)
	l := f.createListing(models.KindSale)
	link, err := f.engine.ShareLinks.Create(f.ctx, f.manager, l.ID, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.engine.ShareLinks.Resolve(f.ctx, link.Token); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	f.engine.Drain()

	first, err := f.engine.ShareLinks.Deactivate(f.ctx, f.manager, link.ID)
	if err != nil {
		t.Fatalf("first deactivate: %v", err)
	}
	afterFirst, _ := f.store.GetShareLink(f.ctx, link.ID)
	entries := len(f.activity(l.ID))

	second, err := f.engine.ShareLinks.Deactivate(f.ctx, f.manager, link.ID)
	if err != nil {
		t.Fatalf("second deactivate: %v", err)
	}
	afterSecond, _ := f.store.GetShareLink(f.ctx, link.ID)

	if first.Active || second.Active || afterSecond.Active {
		t.Fatalf("link active after deactivate")
	}
	if afterFirst.ViewCount != 1 || afterSecond.ViewCount != 1 {
		t.Fatalf("view count moved: %d then %d", afterFirst.ViewCount, afterSecond.ViewCount)
	}
	if afterSecond.DeactivatedAt == nil || !afterSecond.DeactivatedAt.Equal(*afterFirst.DeactivatedAt) {
		t.Fatalf("deactivation time rewritten")
	}
	if got := len(f.activity(l.ID)); got != entries {
		t.Fatalf("second deactivate wrote audit rows")
	}
}

func TestDeactivateShareLinkAccess(t *testing.T) {
	f := newFixture(t)
	l := f.createListing(models.KindSale)
	f.assign(l.ID, f.agentA)
	link, err := f.engine.ShareLinks.Create(f.ctx, f.agentA, l.ID, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.engine.ShareLinks.Deactivate(f.ctx, f.agentA, link.ID)
	expectErr(t, err, ErrForbidden)

	_, err = f.engine.ShareLinks.Deactivate(f.ctx, f.manager, uuid.New())
	expectErr(t, err, ErrNotFound)

	rival := f.createStaff(f.createOffice("Rival Homes"), "Rita Rival", models.RoleManager, true)
	_, err = f.engine.ShareLinks.Deactivate(f.ctx, rival, link.ID)
	expectErr(t, err, ErrNotFound)
}

func TestResolveShareLink(t *testing.T) {
	f := newFixture(t)
	l := f.createListing(models.KindSale)
	plain, err := f.engine.ShareLinks.Create(f.ctx, f.manager, l.ID, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	custom, err := f.engine.ShareLinks.Create(f.ctx, f.manager, l.ID, ptr(int64(450000)))
	if err != nil {
		t.Fatalf("create custom: %v", err)
	}

	view, err := f.engine.ShareLinks.Resolve(f.ctx, plain.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if view.Price == nil || *view.Price != 500000 || view.Title != l.Title {
		t.Fatalf("unexpected public view %+v", view)
	}

	view, err = f.engine.ShareLinks.Resolve(f.ctx, custom.Token)
	if err != nil {
		t.Fatalf("resolve custom: %v", err)
	}
	if view.Price == nil || *view.Price != 450000 {
		t.Fatalf("expected custom price 450000, got %v", view.Price)
	}
	if _, err := f.engine.ShareLinks.Resolve(f.ctx, custom.Token); err != nil {
		t.Fatalf("resolve custom again: %v", err)
	}

	f.engine.Drain()
	stored, _ := f.store.GetShareLink(f.ctx, custom.ID)
	if stored.ViewCount != 2 {
		t.Fatalf("expected 2 views, got %d", stored.ViewCount)
	}

	_, err = f.engine.ShareLinks.Resolve(f.ctx, "not-a-token")
	expectErr(t, err, ErrNotFound)

	if _, err := f.engine.ShareLinks.Deactivate(f.ctx, f.manager, plain.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err = f.engine.ShareLinks.Resolve(f.ctx, plain.Token)
	expectErr(t, err, ErrNotFound)
}

func TestResolveRentalUsesRent(t *testing.T) {
	f := newFixture(t)
	l := f.createListing(models.KindShortTermRent)
	link, err := f.engine.ShareLinks.Create(f.ctx, f.manager, l.ID, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	view, err := f.engine.ShareLinks.Resolve(f.ctx, link.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if view.Price == nil || *view.Price != 1200 {
		t.Fatalf("expected rent 1200, got %v", view.Price)
	}
}
