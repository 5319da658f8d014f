package quantity

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// TextQuantity keeps the quantity as exact decimal text end-to-end and only
// parses it transiently for arithmetic. It is used where the source values
// are already decimal strings and their textual precision must survive
// storage without floating artifacts.
type TextQuantity struct {
	value string
	unit  string
}

// NewText returns a TextQuantity holding the text and unit verbatim.
func NewText(value, unit string) TextQuantity {
	return TextQuantity{value: value, unit: unit}
}

// FromQuantity converts a parsed Quantity into its text representation.
// Returns the zero value for a sentinel with no numeric value.
func FromQuantity(q Quantity) TextQuantity {
	if !q.Value().Valid {
		return TextQuantity{value: q.Token(), unit: q.Unit()}
	}
	return TextQuantity{value: q.Value().Decimal.String(), unit: q.Unit()}
}

// Value returns the decimal text.
func (q TextQuantity) Value() string { return q.value }

// Unit returns the unit label, empty when the quantity has no unit.
func (q TextQuantity) Unit() string { return q.unit }

// Add returns q + other as decimal text. Units must match when both sides
// carry one.
func (q TextQuantity) Add(other TextQuantity) (TextQuantity, error) {
	value, otherValue, err := q.operands(other)
	if err != nil {
		return TextQuantity{}, err
	}
	return TextQuantity{value: value.Add(otherValue).String(), unit: q.unit}, nil
}

// Subtract returns q - other, clamped to "0" when the result is negative.
func (q TextQuantity) Subtract(other TextQuantity) (TextQuantity, error) {
	value, otherValue, err := q.operands(other)
	if err != nil {
		return TextQuantity{}, err
	}
	result := value.Sub(otherValue)
	if result.IsNegative() {
		return TextQuantity{value: "0", unit: q.unit}, nil
	}
	return TextQuantity{value: result.String(), unit: q.unit}, nil
}

// SubtractToNegative returns q - other without clamping.
func (q TextQuantity) SubtractToNegative(other TextQuantity) (TextQuantity, error) {
	value, otherValue, err := q.operands(other)
	if err != nil {
		return TextQuantity{}, err
	}
	return TextQuantity{value: value.Sub(otherValue).String(), unit: q.unit}, nil
}

func (q TextQuantity) operands(other TextQuantity) (decimal.Decimal, decimal.Decimal, error) {
	if q.unit != "" && other.unit != "" && q.unit != other.unit {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %s vs %s", ErrUnitMismatch, q.unit, other.unit)
	}
	value, err := decimal.NewFromString(q.value)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidQuantity, q.value)
	}
	otherValue, err := decimal.NewFromString(other.value)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidQuantity, other.value)
	}
	return value, otherValue, nil
}

// Equal compares the decimal text and unit byte-for-byte.
func (q TextQuantity) Equal(other TextQuantity) bool {
	return q.value == other.value && q.unit == other.unit
}

// String renders "<value> <unit>".
func (q TextQuantity) String() string {
	if q.unit == "" {
		return q.value
	}
	return q.value + " " + q.unit
}

type textQuantityJSON struct {
	Quantity string `json:"quantity"`
	Unit     string `json:"unit,omitempty"`
}

// MarshalJSON encodes the quantity text verbatim.
func (q TextQuantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(textQuantityJSON{Quantity: q.value, Unit: q.unit})
}

// UnmarshalJSON decodes the quantity text verbatim.
func (q *TextQuantity) UnmarshalJSON(data []byte) error {
	var in textQuantityJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*q = TextQuantity{value: in.Quantity, unit: in.Unit}
	return nil
}
