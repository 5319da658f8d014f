// Package money implements the monetary value type used on charge rows:
// a decimal amount with an optional VAT decomposition, tagged with a
// currency code. Amounts are immutable; every operation returns a new value.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// UnlimitedToken is the sentinel accepted by Parse in place of a numeric
// amount. A sentinel Amount carries the token verbatim and has no numeric
// value; arithmetic on it fails.
const UnlimitedToken = "UNLIMITED"

var (
	// ErrMissingAmount is returned when neither the amount nor the
	// VAT-exclusive amount is set.
	ErrMissingAmount = errors.New("money: amount or amountExcludingVat must be set")
	// ErrMissingCurrency is returned when the currency code is empty.
	ErrMissingCurrency = errors.New("money: currency can't be empty")
	// ErrCurrencyMismatch is returned by arithmetic on amounts with
	// different currencies.
	ErrCurrencyMismatch = errors.New("money: currencies can't be different")
	// ErrNoNumericValue is returned by arithmetic when an operand has no
	// numeric amount, e.g. a sentinel or a VAT-exclusive-only value.
	ErrNoNumericValue = errors.New("money: amount has no numeric value")
	// ErrVatFieldsRequired is returned by ChangeSign when the amount,
	// VAT-exclusive amount and VAT are not all present.
	ErrVatFieldsRequired = errors.New("money: amount, amountExcludingVat and vat must all be set")
	// ErrInvalidAmount is returned by Parse on malformed decimal text.
	ErrInvalidAmount = errors.New("money: invalid amount")
)

// Amount is an immutable monetary value. At least one of the amount and the
// VAT-exclusive amount is present, except in sentinel mode where the raw
// token replaces both.
type Amount struct {
	amount   decimal.NullDecimal
	exclVat  decimal.NullDecimal
	vat      decimal.NullDecimal
	currency string
	raw      string
}

// New returns an Amount holding the given value and currency.
func New(value decimal.Decimal, currency string) (Amount, error) {
	return NewWithVat(decimal.NewNullDecimal(value), decimal.NullDecimal{}, decimal.NullDecimal{}, currency)
}

// NewWithVat returns an Amount with an optional VAT decomposition. At least
// one of value and exclVat must be present and the currency must be
// non-empty; the currency is normalised to upper case.
func NewWithVat(value, exclVat, vat decimal.NullDecimal, currency string) (Amount, error) {
	if !value.Valid && !exclVat.Valid {
		return Amount{}, ErrMissingAmount
	}
	if currency == "" {
		return Amount{}, ErrMissingCurrency
	}
	return Amount{
		amount:   value,
		exclVat:  exclVat,
		vat:      vat,
		currency: strings.ToUpper(currency),
	}, nil
}

// Raw returns a sentinel Amount carrying the token verbatim. No parsing or
// validation happens; the token and currency are stored as given.
func Raw(token, currency string) Amount {
	return Amount{raw: token, currency: currency}
}

// Parse converts decimal text into an Amount, truncating to two fractional
// digits toward zero. The literal "UNLIMITED" (case-insensitive) is not
// parsed and yields a sentinel Amount instead.
func Parse(text, currency string) (Amount, error) {
	if strings.EqualFold(text, UnlimitedToken) {
		return Raw(text, currency), nil
	}
	value, err := decimal.NewFromString(text)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	return New(value.Truncate(2), currency)
}

// Value returns the numeric amount, absent for sentinel or
// VAT-exclusive-only values.
func (a Amount) Value() decimal.NullDecimal { return a.amount }

// ExcludingVat returns the VAT-exclusive amount when tracked.
func (a Amount) ExcludingVat() decimal.NullDecimal { return a.exclVat }

// Vat returns the VAT component when tracked.
func (a Amount) Vat() decimal.NullDecimal { return a.vat }

// Currency returns the currency code.
func (a Amount) Currency() string { return a.currency }

// Token returns the raw sentinel token, empty for numeric amounts.
func (a Amount) Token() string { return a.raw }

// IsSentinel reports whether this Amount was built from a raw token.
func (a Amount) IsSentinel() bool { return a.raw != "" }

// Add returns a + b. Both operands need a numeric amount and the same
// non-empty currency.
func (a Amount) Add(b Amount) (Amount, error) {
	return a.combine(b, false)
}

// Subtract returns a - b under the same preconditions as Add.
func (a Amount) Subtract(b Amount) (Amount, error) {
	return a.combine(b, true)
}

func (a Amount) combine(b Amount, subtract bool) (Amount, error) {
	if !a.amount.Valid || !b.amount.Valid {
		return Amount{}, ErrNoNumericValue
	}
	if a.currency == "" || b.currency == "" {
		return Amount{}, ErrMissingCurrency
	}
	if a.currency != b.currency {
		return Amount{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a.currency, b.currency)
	}

	value := a.amount.Decimal.Add(b.amount.Decimal)
	if subtract {
		value = a.amount.Decimal.Sub(b.amount.Decimal)
	}
	return Amount{
		amount:   decimal.NewNullDecimal(value),
		exclVat:  combineOptional(a.exclVat, b.exclVat, subtract),
		vat:      combineOptional(a.vat, b.vat, subtract),
		currency: a.currency,
	}, nil
}

// combineOptional folds two optional decimal fields, treating an absent side
// as zero. A combined value of exactly zero collapses back to absent: a zero
// VAT component is indistinguishable from "VAT not tracked", so it is
// dropped rather than stored.
func combineOptional(own, other decimal.NullDecimal, subtract bool) decimal.NullDecimal {
	current := decimal.Zero
	if own.Valid {
		current = own.Decimal
	}
	result := current
	if other.Valid {
		if subtract {
			result = current.Sub(other.Decimal)
		} else {
			result = current.Add(other.Decimal)
		}
	}
	if result.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(result)
}

// ChangeSign negates the amount, the VAT-exclusive amount and the VAT. All
// three fields must be present.
func (a Amount) ChangeSign() (Amount, error) {
	if !a.amount.Valid || !a.exclVat.Valid || !a.vat.Valid {
		return Amount{}, ErrVatFieldsRequired
	}
	return Amount{
		amount:   decimal.NewNullDecimal(a.amount.Decimal.Neg()),
		exclVat:  decimal.NewNullDecimal(a.exclVat.Decimal.Neg()),
		vat:      decimal.NewNullDecimal(a.vat.Decimal.Neg()),
		currency: a.currency,
	}, nil
}

// WithoutVatFields returns an Amount with the same value and currency but
// no VAT decomposition.
func (a Amount) WithoutVatFields() (Amount, error) {
	if !a.amount.Valid {
		return Amount{}, ErrNoNumericValue
	}
	return New(a.amount.Decimal, a.currency)
}

// Equal compares the amount, the VAT-exclusive amount and the currency. The
// VAT component is deliberately excluded.
func (a Amount) Equal(b Amount) bool {
	return eqOptional(a.amount, b.amount) &&
		eqOptional(a.exclVat, b.exclVat) &&
		a.currency == b.currency
}

func eqOptional(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	if !a.Valid {
		return true
	}
	return a.Decimal.Equal(b.Decimal)
}

// Cmp orders amounts by value then currency. An absent value sorts before a
// present one; ordering is otherwise undefined by the contract when either
// compared field is absent.
func (a Amount) Cmp(b Amount) int {
	if c := cmpOptional(a.amount, b.amount); c != 0 {
		return c
	}
	return strings.Compare(a.currency, b.currency)
}

func cmpOptional(a, b decimal.NullDecimal) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	default:
		return a.Decimal.Cmp(b.Decimal)
	}
}

// String renders the amount as "10.00 (8.00 + 2.00) EUR". Sentinel amounts
// render their token.
func (a Amount) String() string {
	var sb strings.Builder
	if a.raw != "" {
		sb.WriteString(a.raw)
	} else if a.amount.Valid {
		sb.WriteString(a.amount.Decimal.String())
	}
	if a.exclVat.Valid {
		sb.WriteString(" (")
		sb.WriteString(a.exclVat.Decimal.String())
	}
	if a.vat.Valid {
		sb.WriteString(" + ")
		sb.WriteString(a.vat.Decimal.String())
		sb.WriteString(")")
	}
	if strings.TrimSpace(a.currency) != "" {
		sb.WriteString(" ")
		sb.WriteString(a.currency)
	}
	return sb.String()
}
