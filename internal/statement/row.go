package statement

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/discount"
	"github.com/noah-isme/backend-billing/internal/money"
	"github.com/noah-isme/backend-billing/internal/period"
	"github.com/noah-isme/backend-billing/internal/quantity"
)

// NoDiscountCode marks rows eligible for a category-level discount.
const NoDiscountCode = "NO-DISC"

// Row is one billable line item. Nil pointers and empty strings mark absent
// fields. Rows are owned exclusively by their statement; value fields are
// copied on every aggregation, never shared across rows.
type Row struct {
	Duration     *quantity.TextQuantity `json:"duration,omitempty"`
	Quantity     *quantity.TextQuantity `json:"quantity,omitempty"`
	Total        *money.Amount          `json:"totalAmount,omitempty"`
	Discount     *discount.Discount     `json:"discount,omitempty"`
	Name         string                 `json:"name,omitempty"`
	Category     string                 `json:"featureCategory,omitempty"`
	GroupName    string                 `json:"groupName,omitempty"`
	DiscountCode string                 `json:"discountCode,omitempty"`
	Period       *period.TimePeriod     `json:"period,omitempty"`
}

// ShouldAggregateWith reports whether other can be folded into this row.
// Name and category must match, both empty counting as a match. At account
// level discounts never block a merge; at subscriber level discounted rows
// stay separate.
func (r *Row) ShouldAggregateWith(other *Row, level Level) bool {
	if r.Name != other.Name || r.Category != other.Category {
		return false
	}
	return level == AccountLevel || (r.Discount == nil && other.Discount == nil)
}

// Aggregate folds other into this row: duration, quantity and total are
// summed, periods unioned, discounts merged by the percentage-preserving
// policy. Fields absent on both sides stay absent.
func (r *Row) Aggregate(other *Row) error {
	duration, err := mergeQuantity(r.Duration, other.Duration)
	if err != nil {
		return err
	}
	qty, err := mergeQuantity(r.Quantity, other.Quantity)
	if err != nil {
		return err
	}
	total, err := mergeAmount(r.Total, other.Total)
	if err != nil {
		return err
	}
	disc, err := mergeDiscount(r.Discount, other.Discount)
	if err != nil {
		return err
	}
	r.Duration = duration
	r.Quantity = qty
	r.Total = total
	r.Discount = disc
	r.Period = mergePeriod(r.Period, other.Period)
	return nil
}

func mergeQuantity(own, other *quantity.TextQuantity) (*quantity.TextQuantity, error) {
	switch {
	case other == nil:
		return own, nil
	case own == nil:
		cp := *other
		return &cp, nil
	default:
		sum, err := own.Add(*other)
		if err != nil {
			return nil, err
		}
		return &sum, nil
	}
}

func mergeAmount(own, other *money.Amount) (*money.Amount, error) {
	switch {
	case other == nil:
		return own, nil
	case own == nil:
		cp := *other
		return &cp, nil
	default:
		sum, err := own.Add(*other)
		if err != nil {
			return nil, err
		}
		return &sum, nil
	}
}

// mergeDiscount keeps the percentage only when both sides agree on it.
// Amounts are summed, an absent own amount contributing the other verbatim.
// An other discount without an amount leaves own untouched.
func mergeDiscount(own, other *discount.Discount) (*discount.Discount, error) {
	switch {
	case other == nil:
		return own, nil
	case own == nil:
		cp := other.Copy()
		return &cp, nil
	case other.Amount() == nil:
		return own, nil
	}

	amount, err := mergeAmount(own.Amount(), other.Amount())
	if err != nil {
		return nil, err
	}
	percentage := decimal.NullDecimal{}
	if own.Percentage().Valid && other.Percentage().Valid &&
		own.Percentage().Decimal.Equal(other.Percentage().Decimal) {
		percentage = own.Percentage()
	}
	merged, err := discount.New(percentage, amount)
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

func mergePeriod(own, other *period.TimePeriod) *period.TimePeriod {
	switch {
	case other == nil:
		return own
	case own == nil:
		cp := *other
		return &cp
	default:
		union := own.Union(*other)
		return &union
	}
}

// ApplyDiscount applies a category-level percentage to this row: a discount
// is computed against the current total and the total reduced by it. Rows
// without a total or whose discount code is not "NO-DISC" are untouched.
func (r *Row) ApplyDiscount(percentage decimal.NullDecimal) error {
	if r.Total == nil || r.DiscountCode != NoDiscountCode {
		return nil
	}
	d, err := discount.ForAmount(r.Total, percentage)
	if err != nil {
		return err
	}
	if d == nil {
		return nil
	}
	reduced, err := r.Total.Subtract(*d.Amount())
	if err != nil {
		return err
	}
	r.Discount = d
	r.Total = &reduced
	return nil
}

// AddDiscountAmount folds a raw discount line item's amount into this row:
// the amount joins the row's discount (a percentage-less one is created when
// absent) and is subtracted from the total. A nil extra, or zero written at
// exactly two decimals, is skipped outright.
func (r *Row) AddDiscountAmount(extra *money.Amount) error {
	if extra == nil || isTwoDecimalZero(extra) {
		return nil
	}
	if r.Discount == nil {
		d, err := discount.New(decimal.NullDecimal{}, extra)
		if err != nil {
			return err
		}
		r.Discount = &d
	} else {
		merged, err := r.Discount.AddAmount(*extra)
		if err != nil {
			return err
		}
		r.Discount = &merged
	}
	if r.Total == nil {
		zero, err := money.New(decimal.Zero, extra.Currency())
		if err != nil {
			return err
		}
		flipped, err := zero.Subtract(*extra)
		if err != nil {
			return err
		}
		r.Total = &flipped
		return nil
	}
	reduced, err := r.Total.Subtract(*extra)
	if err != nil {
		return err
	}
	r.Total = &reduced
	return nil
}

// isTwoDecimalZero recognizes zero only when written at two-decimal scale,
// matching the upstream feed's "0.00" no-op marker.
func isTwoDecimalZero(a *money.Amount) bool {
	v := a.Value()
	return v.Valid && v.Decimal.IsZero() && v.Decimal.Exponent() == -2
}

// Copy returns a deep copy sharing no value instances with the original.
func (r *Row) Copy() *Row {
	cp := &Row{
		Name:         r.Name,
		Category:     r.Category,
		GroupName:    r.GroupName,
		DiscountCode: r.DiscountCode,
	}
	if r.Duration != nil {
		d := *r.Duration
		cp.Duration = &d
	}
	if r.Quantity != nil {
		q := *r.Quantity
		cp.Quantity = &q
	}
	if r.Total != nil {
		t := *r.Total
		cp.Total = &t
	}
	if r.Discount != nil {
		d := r.Discount.Copy()
		cp.Discount = &d
	}
	if r.Period != nil {
		p := *r.Period
		cp.Period = &p
	}
	return cp
}
