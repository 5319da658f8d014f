package money

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func mustAmount(t *testing.T, value, currency string) Amount {
	t.Helper()
	a, err := New(decimal.RequireFromString(value), currency)
	if err != nil {
		t.Fatalf("new amount: %v", err)
	}
	return a
}

func mustVatAmount(t *testing.T, value, excl, vat, currency string) Amount {
	t.Helper()
	toOpt := func(s string) decimal.NullDecimal {
		if s == "" {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(decimal.RequireFromString(s))
	}
	a, err := NewWithVat(toOpt(value), toOpt(excl), toOpt(vat), currency)
	if err != nil {
		t.Fatalf("new amount with vat: %v", err)
	}
	return a
}

func TestNewValidation(t *testing.T) {
	if _, err := NewWithVat(decimal.NullDecimal{}, decimal.NullDecimal{}, decimal.NullDecimal{}, "EUR"); !errors.Is(err, ErrMissingAmount) {
		t.Fatalf("expected ErrMissingAmount, got %v", err)
	}
	if _, err := New(decimal.NewFromInt(1), ""); !errors.Is(err, ErrMissingCurrency) {
		t.Fatalf("expected ErrMissingCurrency, got %v", err)
	}
	a := mustAmount(t, "1.00", "eur")
	if a.Currency() != "EUR" {
		t.Fatalf("expected upper-cased currency, got %q", a.Currency())
	}
}

func TestParseTruncatesTowardZero(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"10.999", "10.99"},
		{"-10.999", "-10.99"},
		{"10", "10"},
		{"0.001", "0.00"},
	}
	for _, tc := range cases {
		a, err := Parse(tc.in, "EUR")
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got := a.Value().Decimal; !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("parse %q: expected %s got %s", tc.in, tc.want, got)
		}
	}
	if _, err := Parse("not-a-number", "EUR"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestParseUnlimitedSentinel(t *testing.T) {
	a, err := Parse("unlimited", "EUR")
	if err != nil {
		t.Fatalf("parse sentinel: %v", err)
	}
	if !a.IsSentinel() || a.Token() != "unlimited" {
		t.Fatalf("expected sentinel carrying raw token, got %#v", a)
	}
	if a.Value().Valid {
		t.Fatal("sentinel must not carry a numeric value")
	}
	if _, err := a.Add(mustAmount(t, "1.00", "EUR")); !errors.Is(err, ErrNoNumericValue) {
		t.Fatalf("expected ErrNoNumericValue on sentinel arithmetic, got %v", err)
	}
}

func TestAddZeroIsIdentity(t *testing.T) {
	a := mustAmount(t, "12.34", "EUR")
	zero := mustAmount(t, "0", "EUR")
	sum, err := a.Add(zero)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !sum.Value().Decimal.Equal(a.Value().Decimal) {
		t.Fatalf("expected %s got %s", a.Value().Decimal, sum.Value().Decimal)
	}
	if sum.ExcludingVat().Valid || sum.Vat().Valid {
		t.Fatal("absent VAT fields must stay absent")
	}
}

func TestAddSubtractRoundTrip(t *testing.T) {
	a := mustAmount(t, "12.34", "EUR")
	b := mustAmount(t, "5.67", "EUR")
	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	back, err := sum.Subtract(b)
	if err != nil {
		t.Fatalf("subtract: %v", err)
	}
	if !back.Value().Decimal.Equal(a.Value().Decimal) {
		t.Fatalf("round trip broke: expected %s got %s", a.Value().Decimal, back.Value().Decimal)
	}
}

func TestAddCombinesVatFields(t *testing.T) {
	a := mustVatAmount(t, "10.00", "8.00", "2.00", "EUR")
	b := mustVatAmount(t, "5.00", "4.00", "1.00", "EUR")
	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := sum.Value().Decimal; !got.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected amount 15 got %s", got)
	}
	if got := sum.ExcludingVat().Decimal; !got.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("expected excl vat 12 got %s", got)
	}
	if got := sum.Vat().Decimal; !got.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected vat 3 got %s", got)
	}
}

func TestVatCollapsesToAbsentOnZero(t *testing.T) {
	a := mustVatAmount(t, "10.00", "8.00", "2.00", "EUR")
	diff, err := a.Subtract(a)
	if err != nil {
		t.Fatalf("subtract: %v", err)
	}
	if diff.ExcludingVat().Valid || diff.Vat().Valid {
		t.Fatal("zero VAT components must collapse to absent, not zero")
	}
	if !diff.Value().Decimal.IsZero() {
		t.Fatalf("expected zero amount got %s", diff.Value().Decimal)
	}
}

func TestAddKeepsOwnVatWhenOtherAbsent(t *testing.T) {
	a := mustVatAmount(t, "10.00", "8.00", "2.00", "EUR")
	b := mustAmount(t, "5.00", "EUR")
	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := sum.Vat().Decimal; !got.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected own vat preserved, got %s", got)
	}
}

func TestCurrencyMismatch(t *testing.T) {
	a := mustAmount(t, "1.00", "EUR")
	b := mustAmount(t, "1.00", "NOK")
	if _, err := a.Add(b); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
	if _, err := a.Subtract(b); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
}

func TestChangeSign(t *testing.T) {
	a := mustVatAmount(t, "10.00", "8.00", "2.00", "EUR")
	neg, err := a.ChangeSign()
	if err != nil {
		t.Fatalf("change sign: %v", err)
	}
	if got := neg.Value().Decimal; !got.Equal(decimal.NewFromInt(-10)) {
		t.Fatalf("expected -10 got %s", got)
	}
	if got := neg.Vat().Decimal; !got.Equal(decimal.NewFromInt(-2)) {
		t.Fatalf("expected -2 got %s", got)
	}
	partial := mustAmount(t, "10.00", "EUR")
	if _, err := partial.ChangeSign(); !errors.Is(err, ErrVatFieldsRequired) {
		t.Fatalf("expected ErrVatFieldsRequired, got %v", err)
	}
}

func TestWithoutVatFields(t *testing.T) {
	a := mustVatAmount(t, "10.00", "8.00", "2.00", "EUR")
	stripped, err := a.WithoutVatFields()
	if err != nil {
		t.Fatalf("without vat fields: %v", err)
	}
	if stripped.ExcludingVat().Valid || stripped.Vat().Valid {
		t.Fatal("expected VAT fields removed")
	}
	if !stripped.Value().Decimal.Equal(a.Value().Decimal) {
		t.Fatal("amount must be preserved")
	}
}

func TestEqualIgnoresVat(t *testing.T) {
	a := mustVatAmount(t, "10.00", "8.00", "2.00", "EUR")
	b := mustVatAmount(t, "10.00", "8.00", "99.00", "EUR")
	if !a.Equal(b) {
		t.Fatal("vat must be excluded from equality")
	}
	c := mustVatAmount(t, "10.00", "7.00", "2.00", "EUR")
	if a.Equal(c) {
		t.Fatal("differing amountExcludingVat must not compare equal")
	}
}

func TestCmp(t *testing.T) {
	small := mustAmount(t, "1.00", "EUR")
	big := mustAmount(t, "2.00", "EUR")
	if small.Cmp(big) >= 0 || big.Cmp(small) <= 0 {
		t.Fatal("expected ordering by amount")
	}
	eur := mustAmount(t, "1.00", "EUR")
	nok := mustAmount(t, "1.00", "NOK")
	if eur.Cmp(nok) >= 0 {
		t.Fatal("expected tie broken by currency")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	a := mustVatAmount(t, "10.00", "8.00", "2.00", "EUR")
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Amount
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !a.Equal(back) || !back.Vat().Decimal.Equal(a.Vat().Decimal) {
		t.Fatalf("round trip mismatch: %s vs %s", a, back)
	}

	sentinel := Raw("UNLIMITED", "EUR")
	data, err = json.Marshal(sentinel)
	if err != nil {
		t.Fatalf("marshal sentinel: %v", err)
	}
	var backSentinel Amount
	if err := json.Unmarshal(data, &backSentinel); err != nil {
		t.Fatalf("unmarshal sentinel: %v", err)
	}
	if !backSentinel.IsSentinel() || backSentinel.Token() != "UNLIMITED" {
		t.Fatalf("sentinel round trip mismatch: %#v", backSentinel)
	}
}
