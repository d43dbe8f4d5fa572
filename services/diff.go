package services

import (
	"estate_office/models"
)

// ListingUpdate carries the scalar fields an edit wants to set.
// A nil field is left untouched.
type ListingUpdate struct {
	Title         *string `json:"title,omitempty"`
	Description   *string `json:"description,omitempty"`
	Address       *string `json:"address,omitempty"`
	City          *string `json:"city,omitempty"`
	District      *string `json:"district,omitempty"`
	AreaSqm       *int64  `json:"area_sqm,omitempty"`
	Rooms         *int64  `json:"rooms,omitempty"`
	Floor         *int64  `json:"floor,omitempty"`
	HasElevator   *bool   `json:"has_elevator,omitempty"`
	HasParking    *bool   `json:"has_parking,omitempty"`
	SalePrice     *int64  `json:"sale_price,omitempty"`
	DepositAmount *int64  `json:"deposit_amount,omitempty"`
	RentAmount    *int64  `json:"rent_amount,omitempty"`
}

// scalarField describes one diffable listing column
type scalarField struct {
	name  string
	get   func(l *models.Listing) models.DiffValue
	want  func(u *ListingUpdate) (models.DiffValue, bool)
	apply func(l *models.Listing, v models.DiffValue)
}

// scalarFields is the allow-list of fields the edit path may change.
// Collections (contacts, assignments) have their own transactions.
var scalarFields = []scalarField{
	stringField("title", func(l *models.Listing) *string { return &l.Title }, func(u *ListingUpdate) *string { return u.Title }),
	stringField("description", func(l *models.Listing) *string { return &l.Description }, func(u *ListingUpdate) *string { return u.Description }),
	stringField("address", func(l *models.Listing) *string { return &l.Address }, func(u *ListingUpdate) *string { return u.Address }),
	stringField("city", func(l *models.Listing) *string { return &l.City }, func(u *ListingUpdate) *string { return u.City }),
	stringField("district", func(l *models.Listing) *string { return &l.District }, func(u *ListingUpdate) *string { return u.District }),
	intField("area_sqm", func(l *models.Listing) **int64 { return &l.AreaSqm }, func(u *ListingUpdate) *int64 { return u.AreaSqm }),
	intField("rooms", func(l *models.Listing) **int64 { return &l.Rooms }, func(u *ListingUpdate) *int64 { return u.Rooms }),
	intField("floor", func(l *models.Listing) **int64 { return &l.Floor }, func(u *ListingUpdate) *int64 { return u.Floor }),
	boolField("has_elevator", func(l *models.Listing) *bool { return &l.HasElevator }, func(u *ListingUpdate) *bool { return u.HasElevator }),
	boolField("has_parking", func(l *models.Listing) *bool { return &l.HasParking }, func(u *ListingUpdate) *bool { return u.HasParking }),
	intField(string(models.PriceFieldSale), func(l *models.Listing) **int64 { return &l.SalePrice }, func(u *ListingUpdate) *int64 { return u.SalePrice }),
	intField(string(models.PriceFieldDeposit), func(l *models.Listing) **int64 { return &l.DepositAmount }, func(u *ListingUpdate) *int64 { return u.DepositAmount }),
	intField(string(models.PriceFieldRent), func(l *models.Listing) **int64 { return &l.RentAmount }, func(u *ListingUpdate) *int64 { return u.RentAmount }),
}

// moneyFields are the diff keys that also feed the price ledger
var moneyFields = []models.PriceField{
	models.PriceFieldSale,
	models.PriceFieldDeposit,
	models.PriceFieldRent,
}

func stringField(name string, ref func(*models.Listing) *string, upd func(*ListingUpdate) *string) scalarField {
	return scalarField{
		name: name,
		get:  func(l *models.Listing) models.DiffValue { return models.StringValue(*ref(l)) },
		want: func(u *ListingUpdate) (models.DiffValue, bool) {
			if p := upd(u); p != nil {
				return models.StringValue(*p), true
			}
			return models.NullValue(), false
		},
		apply: func(l *models.Listing, v models.DiffValue) { *ref(l) = v.Str() },
	}
}

func intField(name string, ref func(*models.Listing) **int64, upd func(*ListingUpdate) *int64) scalarField {
	return scalarField{
		name: name,
		get:  func(l *models.Listing) models.DiffValue { return models.IntPtrValue(*ref(l)) },
		want: func(u *ListingUpdate) (models.DiffValue, bool) {
			if p := upd(u); p != nil {
				return models.IntValue(*p), true
			}
			return models.NullValue(), false
		},
		apply: func(l *models.Listing, v models.DiffValue) { *ref(l) = v.IntPtr() },
	}
}

func boolField(name string, ref func(*models.Listing) *bool, upd func(*ListingUpdate) *bool) scalarField {
	return scalarField{
		name: name,
		get:  func(l *models.Listing) models.DiffValue { return models.BoolValue(*ref(l)) },
		want: func(u *ListingUpdate) (models.DiffValue, bool) {
			if p := upd(u); p != nil {
				return models.BoolValue(*p), true
			}
			return models.NullValue(), false
		},
		apply: func(l *models.Listing, v models.DiffValue) { *ref(l) = v.Bool() },
	}
}

// Diff compares the fields set in upd against old and returns only the
// ones whose value changes. It never touches the database.
func Diff(old *models.Listing, upd ListingUpdate) models.Diff {
	d := models.Diff{}
	for _, f := range scalarFields {
		next, ok := f.want(&upd)
		if !ok {
			continue
		}
		prev := f.get(old)
		if prev == next {
			continue
		}
		d[f.name] = models.Change{prev, next}
	}
	return d
}

// ApplyDiff writes the new side of every change into l
func ApplyDiff(l *models.Listing, d models.Diff) {
	for _, f := range scalarFields {
		if c, ok := d[f.name]; ok {
			f.apply(l, c.New())
		}
	}
}
