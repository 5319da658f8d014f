// Package discount implements the discount value attached to charge rows: a
// percentage and/or an absolute monetary discount.
package discount

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/money"
)

var (
	// ErrEmpty is returned when neither a percentage nor a discount amount
	// is given.
	ErrEmpty = errors.New("discount: percentage or discountAmount must be set")
	// ErrNoNumericBase is returned by ForAmount when the base amount is a
	// sentinel with no numeric value.
	ErrNoNumericBase = errors.New("discount: base amount has no numeric value")
)

// Discount is an immutable percentage and/or absolute discount. A merged
// discount loses its percentage because it no longer corresponds to one.
type Discount struct {
	percentage decimal.NullDecimal
	amount     *money.Amount
}

// New returns a Discount. At least one of percentage and amount must be
// present; a given amount must carry a currency.
func New(percentage decimal.NullDecimal, amount *money.Amount) (Discount, error) {
	if !percentage.Valid && amount == nil {
		return Discount{}, ErrEmpty
	}
	if amount != nil {
		if !amount.Value().Valid && !amount.ExcludingVat().Valid {
			return Discount{}, money.ErrMissingAmount
		}
		if strings.TrimSpace(amount.Currency()) == "" {
			return Discount{}, money.ErrMissingCurrency
		}
	}
	return Discount{percentage: percentage, amount: amount}, nil
}

// Percentage returns the discount percentage when present.
func (d Discount) Percentage() decimal.NullDecimal { return d.percentage }

// Amount returns the absolute discount amount, nil when only a percentage
// is known.
func (d Discount) Amount() *money.Amount { return d.amount }

// ForAmount computes the discount a percentage yields on a base amount:
// round(base * percentage / 100) to two digits with half-down rounding, the
// computation mirrored independently on the VAT-exclusive and VAT fields
// when the base tracks them. Returns nil when either input is absent.
func ForAmount(base *money.Amount, percentage decimal.NullDecimal) (*Discount, error) {
	if base == nil || !percentage.Valid {
		return nil, nil
	}
	if !base.Value().Valid {
		return nil, ErrNoNumericBase
	}
	factor := percentage.Decimal.Div(decimal.NewFromInt(100))

	value := decimal.NewNullDecimal(roundHalfDown(base.Value().Decimal.Mul(factor), 2))
	var excl, vat decimal.NullDecimal
	if base.ExcludingVat().Valid {
		excl = decimal.NewNullDecimal(roundHalfDown(base.ExcludingVat().Decimal.Mul(factor), 2))
	}
	if base.Vat().Valid {
		vat = decimal.NewNullDecimal(roundHalfDown(base.Vat().Decimal.Mul(factor), 2))
	}

	amount, err := money.NewWithVat(value, excl, vat, base.Currency())
	if err != nil {
		return nil, err
	}
	d, err := New(percentage, &amount)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// AddAmount returns a Discount with the percentage cleared and the discount
// amounts summed. Merging by amount forfeits the percentage label.
func (d Discount) AddAmount(extra money.Amount) (Discount, error) {
	if d.amount == nil {
		return Discount{}, ErrEmpty
	}
	sum, err := d.amount.Add(extra)
	if err != nil {
		return Discount{}, err
	}
	return New(decimal.NullDecimal{}, &sum)
}

// Copy returns a deep value copy sharing nothing with the original.
func (d Discount) Copy() Discount {
	out := Discount{percentage: d.percentage}
	if d.amount != nil {
		amount := *d.amount
		out.amount = &amount
	}
	return out
}

// Equal compares percentage and discount amount.
func (d Discount) Equal(other Discount) bool {
	if d.percentage.Valid != other.percentage.Valid {
		return false
	}
	if d.percentage.Valid && !d.percentage.Decimal.Equal(other.percentage.Decimal) {
		return false
	}
	if (d.amount == nil) != (other.amount == nil) {
		return false
	}
	if d.amount != nil && !d.amount.Equal(*other.amount) {
		return false
	}
	return true
}

// String renders "<percentage> (<amount>)".
func (d Discount) String() string {
	var sb strings.Builder
	if d.percentage.Valid {
		sb.WriteString(d.percentage.Decimal.String())
	}
	if d.amount != nil {
		sb.WriteString(" (")
		sb.WriteString(d.amount.String())
		sb.WriteString(")")
	}
	return sb.String()
}

// roundHalfDown rounds to the given number of fractional digits, resolving
// exact halves toward zero.
func roundHalfDown(d decimal.Decimal, places int32) decimal.Decimal {
	shifted := d.Shift(places)
	frac := shifted.Sub(shifted.Truncate(0)).Abs()
	if frac.Equal(decimal.New(5, -1)) {
		return shifted.Truncate(0).Shift(-places)
	}
	return d.Round(places)
}

type discountJSON struct {
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	Amount     *money.Amount    `json:"discountAmount,omitempty"`
}

// MarshalJSON encodes the discount for storage.
func (d Discount) MarshalJSON() ([]byte, error) {
	out := discountJSON{Amount: d.amount}
	if d.percentage.Valid {
		v := d.percentage.Decimal
		out.Percentage = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a discount, re-validating the construction
// invariants.
func (d *Discount) UnmarshalJSON(data []byte) error {
	var in discountJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	percentage := decimal.NullDecimal{}
	if in.Percentage != nil {
		percentage = decimal.NewNullDecimal(*in.Percentage)
	}
	parsed, err := New(percentage, in.Amount)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
