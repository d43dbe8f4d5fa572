package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionCreate            Action = "CREATE"
	ActionEdit              Action = "EDIT"
	ActionStatusChange      Action = "STATUS_CHANGE"
	ActionAssignment        Action = "ASSIGNMENT"
	ActionShareLink         Action = "SHARE_LINK"
	ActionContractFinalized Action = "CONTRACT_FINALIZED"
)

// ActivityLogEntry is an immutable audit record for a listing
type ActivityLogEntry struct {
	ID        int64     `json:"id" db:"id"`
	ListingID uuid.UUID `json:"listing_id" db:"listing_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Action    Action    `json:"action" db:"action"`
	Diff      Diff      `json:"diff,omitempty" db:"diff"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type PriceField string

const (
	PriceFieldSale    PriceField = "sale_price"
	PriceFieldDeposit PriceField = "deposit_amount"
	PriceFieldRent    PriceField = "rent_amount"
)

// PriceHistoryEntry records one change of one monetary field
type PriceHistoryEntry struct {
	ID        int64      `json:"id" db:"id"`
	ListingID uuid.UUID  `json:"listing_id" db:"listing_id"`
	ChangedBy uuid.UUID  `json:"changed_by" db:"changed_by"`
	Field     PriceField `json:"field" db:"field"`
	OldAmount *int64     `json:"old_amount" db:"old_amount"`
	NewAmount int64      `json:"new_amount" db:"new_amount"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// =============================================================================
// Diff payloads
// =============================================================================

// ValueKind tags the closed set of values a diff may carry
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueString
	ValueInt
	ValueBool
)

// DiffValue is one side of a field change
type DiffValue struct {
	kind ValueKind
	s    string
	i    int64
	b    bool
}

func NullValue() DiffValue { return DiffValue{} }
func StringValue(s string) DiffValue { return DiffValue{kind: ValueString, s: s} }
func IntValue(i int64) DiffValue { return DiffValue{kind: ValueInt, i: i} }
func BoolValue(b bool) DiffValue { return DiffValue{kind: ValueBool, b: b} }

// IntPtrValue maps nil to null
func IntPtrValue(p *int64) DiffValue {
	if p == nil {
		return NullValue()
	}
	return IntValue(*p)
}

func (v DiffValue) Kind() ValueKind { return v.kind }
func (v DiffValue) IsNull() bool { return v.kind == ValueNull }
func (v DiffValue) Str() string { return v.s }
func (v DiffValue) Int() int64 { return v.i }
func (v DiffValue) Bool() bool { return v.b }

// IntPtr returns nil for null and non-integer values
func (v DiffValue) IntPtr() *int64 {
	if v.kind != ValueInt {
		return nil
	}
	i := v.i
	return &i
}

func (v DiffValue) String() string {
	switch v.kind {
	case ValueString:
		return v.s
	case ValueInt:
		return strconv.FormatInt(v.i, 10)
	case ValueBool:
		return strconv.FormatBool(v.b)
	}
	return "null"
}

func (v DiffValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.s)
	case ValueInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case ValueBool:
		return json.Marshal(v.b)
	}
	return []byte("null"), nil
}

func (v *DiffValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = NullValue()
	case string:
		*v = StringValue(x)
	case bool:
		*v = BoolValue(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return fmt.Errorf("diff value %s is not an integer", x)
		}
		*v = IntValue(i)
	default:
		return fmt.Errorf("unsupported diff value %s", data)
	}
	return nil
}

// Change is an [old, new] pair
type Change [2]DiffValue

func (c Change) Old() DiffValue { return c[0] }
func (c Change) New() DiffValue { return c[1] }

// Diff maps field name to its change
type Diff map[string]Change

// Fields returns the changed field names in sorted order
func (d Diff) Fields() []string {
	fields := make([]string, 0, len(d))
	for f := range d {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// MarshalDiff encodes a diff for storage; an empty diff is stored as NULL
func MarshalDiff(d Diff) ([]byte, error) {
	if len(d) == 0 {
		return nil, nil
	}
	return json.Marshal(d)
}

// UnmarshalDiff decodes a stored diff; empty input yields nil
func UnmarshalDiff(data []byte) (Diff, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var d Diff
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode diff: %w", err)
	}
	return d, nil
}
