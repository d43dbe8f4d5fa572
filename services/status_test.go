package services

import (
	"testing"

	"estate_office/models"
)

func TestNextStatus(t *testing.T) {
	cases := []struct {
		kind    models.TransactionKind
		trigger Trigger
		want    models.ListingStatus
	}{
		{models.KindSale, TriggerArchive, models.StatusArchived},
		{models.KindLongTermRent, TriggerArchive, models.StatusArchived},
		{models.KindSale, TriggerFinalize, models.StatusSold},
		{models.KindPreSale, TriggerFinalize, models.StatusSold},
		{models.KindLongTermRent, TriggerFinalize, models.StatusRented},
		{models.KindShortTermRent, TriggerFinalize, models.StatusRented},
	}
	for _, tc := range cases {
		l := &models.Listing{Kind: tc.kind, Status: models.StatusActive}
		got, err := NextStatus(l, tc.trigger)
		if err != nil {
			t.Fatalf("%s/%d: %v", tc.kind, tc.trigger, err)
		}
		if got != tc.want {
			t.Fatalf("%s/%d: expected %s, got %s", tc.kind, tc.trigger, tc.want, got)
		}
	}
}

func TestNextStatusFromTerminal(t *testing.T) {
	terminal := []models.ListingStatus{
		models.StatusArchived, models.StatusSold, models.StatusRented, models.StatusExpired,
	}
	for _, st := range terminal {
		for _, trig := range []Trigger{TriggerArchive, TriggerFinalize} {
			l := &models.Listing{Kind: models.KindSale, Status: st}
			_, err := NextStatus(l, trig)
			expectErr(t, err, ErrConflict)
		}
	}
}

func TestTriggerForRequest(t *testing.T) {
	if trig, err := TriggerForRequest(models.StatusArchived); err != nil || trig != TriggerArchive {
		t.Fatalf("archive request: %v, %v", trig, err)
	}
	for _, st := range []models.ListingStatus{models.StatusSold, models.StatusRented, models.StatusActive, models.StatusExpired} {
		_, err := TriggerForRequest(st)
		expectErr(t, err, ErrInvalidInput)
	}
}
