// Package quantity implements the quantity value types used on charge rows:
// a decimal magnitude with an optional unit label. Two representations
// exist: Quantity keeps a parsed decimal, TextQuantity keeps exact decimal
// text end-to-end. Both are immutable.
package quantity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// UnlimitedToken is the sentinel accepted by Parse in place of a numeric
// quantity.
const UnlimitedToken = "UNLIMITED"

var (
	// ErrUnitMismatch is returned by arithmetic when both operands carry a
	// unit and the units differ.
	ErrUnitMismatch = errors.New("quantity: units can't be different")
	// ErrNoNumericValue is returned by arithmetic on a sentinel quantity.
	ErrNoNumericValue = errors.New("quantity: no numeric value")
	// ErrInvalidQuantity is returned by Parse on malformed decimal text.
	ErrInvalidQuantity = errors.New("quantity: invalid quantity")
)

// Quantity is an immutable decimal magnitude with an optional unit such as
// "s" or "MB". The unit is empty when the quantity has none.
type Quantity struct {
	value decimal.NullDecimal
	raw   string
	unit  string
}

// New returns a Quantity holding the given value and unit.
func New(value decimal.Decimal, unit string) Quantity {
	return Quantity{value: decimal.NewNullDecimal(value), unit: unit}
}

// Raw returns a sentinel Quantity carrying the token verbatim.
func Raw(token, unit string) Quantity {
	return Quantity{raw: token, unit: unit}
}

// Parse converts decimal text into a Quantity. The literal "UNLIMITED"
// (case-insensitive) yields a sentinel instead of being parsed.
func Parse(text, unit string) (Quantity, error) {
	if strings.EqualFold(text, UnlimitedToken) {
		return Raw(text, unit), nil
	}
	value, err := decimal.NewFromString(text)
	if err != nil {
		return Quantity{}, fmt.Errorf("%w: %q", ErrInvalidQuantity, text)
	}
	return New(value, unit), nil
}

// Value returns the numeric quantity, absent for sentinels.
func (q Quantity) Value() decimal.NullDecimal { return q.value }

// Unit returns the unit label, empty when the quantity has no unit.
func (q Quantity) Unit() string { return q.unit }

// Token returns the raw sentinel token, empty for numeric quantities.
func (q Quantity) Token() string { return q.raw }

// IsSentinel reports whether this Quantity was built from a raw token.
func (q Quantity) IsSentinel() bool { return q.raw != "" }

// Add returns q + other. Units must match when both sides carry one; an
// absent unit matches anything. The result keeps q's unit.
func (q Quantity) Add(other Quantity) (Quantity, error) {
	value, otherValue, err := q.operands(other)
	if err != nil {
		return Quantity{}, err
	}
	return New(value.Add(otherValue), q.unit), nil
}

// Subtract returns q - other, clamped to zero: a remaining quantity can
// never be negative.
func (q Quantity) Subtract(other Quantity) (Quantity, error) {
	value, otherValue, err := q.operands(other)
	if err != nil {
		return Quantity{}, err
	}
	result := value.Sub(otherValue)
	if result.IsNegative() {
		result = decimal.Zero
	}
	return New(result, q.unit), nil
}

// SubtractToNegative returns q - other without clamping, for callers that
// need the raw delta rather than a remaining balance.
func (q Quantity) SubtractToNegative(other Quantity) (Quantity, error) {
	value, otherValue, err := q.operands(other)
	if err != nil {
		return Quantity{}, err
	}
	return New(value.Sub(otherValue), q.unit), nil
}

func (q Quantity) operands(other Quantity) (decimal.Decimal, decimal.Decimal, error) {
	if !q.value.Valid || !other.value.Valid {
		return decimal.Zero, decimal.Zero, ErrNoNumericValue
	}
	if q.unit != "" && other.unit != "" && q.unit != other.unit {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %s vs %s", ErrUnitMismatch, q.unit, other.unit)
	}
	return q.value.Decimal, other.value.Decimal, nil
}

// Equal compares quantity and unit.
func (q Quantity) Equal(other Quantity) bool {
	if q.value.Valid != other.value.Valid {
		return false
	}
	if q.value.Valid && !q.value.Decimal.Equal(other.value.Decimal) {
		return false
	}
	return q.unit == other.unit && q.raw == other.raw
}

// Cmp orders quantities by value then unit; absent values sort first.
func (q Quantity) Cmp(other Quantity) int {
	switch {
	case !q.value.Valid && other.value.Valid:
		return -1
	case q.value.Valid && !other.value.Valid:
		return 1
	case q.value.Valid:
		if c := q.value.Decimal.Cmp(other.value.Decimal); c != 0 {
			return c
		}
	}
	return strings.Compare(q.unit, other.unit)
}

// String renders "<value> <unit>".
func (q Quantity) String() string {
	value := q.raw
	if q.value.Valid {
		value = q.value.Decimal.String()
	}
	if q.unit == "" {
		return value
	}
	return value + " " + q.unit
}
