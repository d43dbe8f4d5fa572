package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"estate_office/models"
	"estate_office/storage"
)

func TestFinalizeComputesOfficeShare(t *testing.T) {
	f := newFixture(t)
	l := f.createListing(models.KindSale)

	c, err := f.engine.Contracts.Finalize(f.ctx, f.manager, FinalizeInput{
		ListingID:        l.ID,
		FinalPrice:       480000,
		CommissionAmount: 150000,
		AgentShare:       75000,
		Notes:            "signed at notary",
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if c.OfficeShare != 75000 {
		t.Fatalf("expected office share 75000, got %d", c.OfficeShare)
	}

	stored, err := f.store.GetContractByListing(f.ctx, l.ID)
	if err != nil || stored == nil {
		t.Fatalf("get contract: %v", err)
	}
	if stored.OfficeShare != 75000 || stored.AgentShare != 75000 || stored.CommissionAmount != 150000 {
		t.Fatalf("unexpected stored contract %+v", stored)
	}
	if stored.FinalizedBy != f.manager.UserID {
		t.Fatalf("expected finalizer %s, got %s", f.manager.UserID, stored.FinalizedBy)
	}
}

func TestFinalizeTransitionsByKind(t *testing.T) {
	cases := []struct {
		kind models.TransactionKind
		want models.ListingStatus
	}{
		{models.KindSale, models.StatusSold},
		{models.KindPreSale, models.StatusSold},
		{models.KindLongTermRent, models.StatusRented},
		{models.KindShortTermRent, models.StatusRented},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			f := newFixture(t)
			l := f.createListing(tc.kind)

			_, err := f.engine.Contracts.Finalize(f.ctx, f.manager, FinalizeInput{
				ListingID: l.ID, FinalPrice: 1000, CommissionAmount: 100, AgentShare: 40,
			})
			if err != nil {
				t.Fatalf("finalize: %v", err)
			}
			if got := f.listing(l.ID).Status; got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}

			entries := f.activity(l.ID)
			last := entries[len(entries)-1]
			if last.Action != models.ActionContractFinalized {
				t.Fatalf("expected CONTRACT_FINALIZED, got %s", last.Action)
			}
			change, ok := last.Diff["status"]
			if !ok || change.Old().Str() != "ACTIVE" || change.New().Str() != string(tc.want) {
				t.Fatalf("unexpected status diff %v", last.Diff)
			}
		})
	}
}

func TestFinalizeShareBoundaries(t *testing.T) {
	for _, share := range []int64{0, 150000} {
		f := newFixture(t)
		l := f.createListing(models.KindSale)

		c, err := f.engine.Contracts.Finalize(f.ctx, f.manager, FinalizeInput{
			ListingID: l.ID, FinalPrice: 500000, CommissionAmount: 150000, AgentShare: share,
		})
		if err != nil {
			t.Fatalf("agent share %d: %v", share, err)
		}
		if c.OfficeShare+c.AgentShare != c.CommissionAmount {
			t.Fatalf("shares do not add up: %+v", c)
		}
	}
}

func TestFinalizeRejectsInvalidAmounts(t *testing.T) {
	f := newFixture(t)
	l := f.createListing(models.KindSale)
	before := len(f.activity(l.ID))

	cases := []FinalizeInput{
		{ListingID: l.ID, FinalPrice: 500000, CommissionAmount: 150000, AgentShare: 200000},
		{ListingID: l.ID, FinalPrice: 500000, CommissionAmount: 150000, AgentShare: -1},
		{ListingID: l.ID, FinalPrice: 0, CommissionAmount: 150000, AgentShare: 1},
		{ListingID: l.ID, FinalPrice: 500000, CommissionAmount: -5, AgentShare: 0},
	}
	for _, in := range cases {
		_, err := f.engine.Contracts.Finalize(f.ctx, f.manager, in)
		expectErr(t, err, ErrInvalidInput)
	}

	if c, _ := f.store.GetContractByListing(f.ctx, l.ID); c != nil {
		t.Fatalf("contract written: %+v", c)
	}
	if got := f.listing(l.ID).Status; got != models.StatusActive {
		t.Fatalf("status changed to %s", got)
	}
	if got := len(f.activity(l.ID)); got != before {
		t.Fatalf("expected %d activity rows, got %d", before, got)
	}
}

func TestFinalizeTwiceIsConflict(t *testing.T) {
	f := newFixture(t)
	l := f.createListing(models.KindSale)

	first, err := f.engine.Contracts.Finalize(f.ctx, f.manager, FinalizeInput{
		ListingID: l.ID, FinalPrice: 500000, CommissionAmount: 150000, AgentShare: 75000,
	})
	if err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	entries := len(f.activity(l.ID))

	_, err = f.engine.Contracts.Finalize(f.ctx, f.manager, FinalizeInput{
		ListingID: l.ID, FinalPrice: 1, CommissionAmount: 1, AgentShare: 1,
	})
	expectErr(t, err, ErrConflict)

	stored, _ := f.store.GetContractByListing(f.ctx, l.ID)
	if stored == nil || stored.ID != first.ID || stored.FinalPrice != 500000 {
		t.Fatalf("existing contract altered: %+v", stored)
	}
	if got := f.listing(l.ID).Status; got != models.StatusSold {
		t.Fatalf("status changed to %s", got)
	}
	if got := len(f.activity(l.ID)); got != entries {
		t.Fatalf("expected %d activity rows, got %d", entries, got)
	}
}

func TestFinalizeRevokesShareLinks(t *testing.T) {
	f := newFixture(t)
	l := f.createListing(models.KindSale)

	for i := 0; i < 3; i++ {
		if _, err := f.engine.ShareLinks.Create(f.ctx, f.manager, l.ID, nil); err != nil {
			t.Fatalf("create link: %v", err)
		}
	}

	if _, err := f.engine.Contracts.Finalize(f.ctx, f.manager, FinalizeInput{
		ListingID: l.ID, FinalPrice: 500000, CommissionAmount: 10000, AgentShare: 5000,
	}); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	links, err := f.store.ListShareLinks(f.ctx, l.ID)
	if err != nil {
		t.Fatalf("list links: %v", err)
	}
	if len(links) != 3 {
		t.Fatalf("expected 3 links, got %d", len(links))
	}
	for _, sl := range links {
		if sl.Active || sl.DeactivatedAt == nil {
			t.Fatalf("link %s still active", sl.ID)
		}
	}

	_, err = f.engine.ShareLinks.Create(f.ctx, f.manager, l.ID, nil)
	expectErr(t, err, ErrConflict)
}

func TestFinalizeRequiresManager(t *testing.T) {
	f := newFixture(t)
	l := f.createListing(models.KindSale)
	f.assign(l.ID, f.agentA)

	_, err := f.engine.Contracts.Finalize(f.ctx, f.agentA, FinalizeInput{
		ListingID: l.ID, FinalPrice: 1000, CommissionAmount: 100, AgentShare: 50,
	})
	expectErr(t, err, ErrForbidden)
}

func TestFinalizeClosedListingIsNotFound(t *testing.T) {
	f := newFixture(t)
	l := f.createListing(models.KindSale)
	if _, err := f.engine.Listings.Archive(f.ctx, f.manager, l.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	_, err := f.engine.Contracts.Finalize(f.ctx, f.manager, FinalizeInput{
		ListingID: l.ID, FinalPrice: 1000, CommissionAmount: 100, AgentShare: 50,
	})
	expectErr(t, err, ErrNotFound)
	if got := f.listing(l.ID).Status; got != models.StatusArchived {
		t.Fatalf("expected ARCHIVED, got %s", got)
	}
}

func TestFinalizeChecksCallerFirst(t *testing.T) {
	f := newFixture(t)
	l := f.createListing(models.KindSale)

	_, err := f.engine.Contracts.Finalize(f.ctx, models.Identity{}, FinalizeInput{ListingID: l.ID, FinalPrice: -1})
	expectErr(t, err, ErrUnauthenticated)
}

// failingStore breaks share link revocation inside every transaction
type failingStore struct {
	*storage.SQLiteStore
}

func (s failingStore) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.SQLiteStore.InTx(ctx, func(tx storage.Tx) error {
		return fn(failingTx{Tx: tx})
	})
}

type failingTx struct {
	storage.Tx
}

func (failingTx) DeactivateListingShareLinks(context.Context, uuid.UUID, time.Time) (int64, error) {
	return 0, errors.New("disk on fire")
}

func TestFinalizeRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	l := f.createListing(models.KindSale)
	link, err := f.engine.ShareLinks.Create(f.ctx, f.manager, l.ID, nil)
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	before := len(f.activity(l.ID))

	broken := NewContractService(failingStore{f.store}, NewGate(f.store))
	_, err = broken.Finalize(f.ctx, f.manager, FinalizeInput{
		ListingID: l.ID, FinalPrice: 1000, CommissionAmount: 100, AgentShare: 50,
	})
	expectErr(t, err, ErrTransactionFailed)
	if !strings.Contains(err.Error(), "finalize failed") {
		t.Fatalf("expected generic reason, got %q", err)
	}

	if c, _ := f.store.GetContractByListing(f.ctx, l.ID); c != nil {
		t.Fatalf("partial contract visible: %+v", c)
	}
	if got := f.listing(l.ID).Status; got != models.StatusActive {
		t.Fatalf("partial status change to %s", got)
	}
	stored, _ := f.store.GetShareLink(f.ctx, link.ID)
	if stored == nil || !stored.Active {
		t.Fatalf("share link lost: %+v", stored)
	}
	if got := len(f.activity(l.ID)); got != before {
		t.Fatalf("expected %d activity rows, got %d", before, got)
	}
}
