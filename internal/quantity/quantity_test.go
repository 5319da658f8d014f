package quantity

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}

func TestAddMatchingUnits(t *testing.T) {
	a := New(dec(t, "10.5"), "MB")
	b := New(dec(t, "4.5"), "MB")
	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !sum.Value().Decimal.Equal(dec(t, "15")) {
		t.Fatalf("expected 15 got %s", sum.Value().Decimal)
	}
	if sum.Unit() != "MB" {
		t.Fatalf("expected unit MB got %q", sum.Unit())
	}
}

func TestAddAbsentUnitMatchesAnything(t *testing.T) {
	a := New(dec(t, "1"), "")
	b := New(dec(t, "2"), "s")
	if _, err := a.Add(b); err != nil {
		t.Fatalf("absent unit must match anything: %v", err)
	}
}

func TestAddUnitMismatch(t *testing.T) {
	a := New(dec(t, "1"), "s")
	b := New(dec(t, "2"), "MB")
	if _, err := a.Add(b); !errors.Is(err, ErrUnitMismatch) {
		t.Fatalf("expected ErrUnitMismatch, got %v", err)
	}
}

func TestSubtractClampsToZero(t *testing.T) {
	a := New(dec(t, "3"), "s")
	b := New(dec(t, "5"), "s")
	diff, err := a.Subtract(b)
	if err != nil {
		t.Fatalf("subtract: %v", err)
	}
	if !diff.Value().Decimal.IsZero() {
		t.Fatalf("expected clamp to zero, got %s", diff.Value().Decimal)
	}
	// Fractional deficits clamp too.
	c := New(dec(t, "0.5"), "s")
	diff, err = c.Subtract(New(dec(t, "1"), "s"))
	if err != nil {
		t.Fatalf("subtract: %v", err)
	}
	if diff.Value().Decimal.IsNegative() {
		t.Fatalf("subtract must never go negative, got %s", diff.Value().Decimal)
	}
}

func TestSubtractToNegativeIsUnclamped(t *testing.T) {
	q := New(dec(t, "5"), "s")
	zero := New(decimal.Zero, "s")

	same, err := q.SubtractToNegative(q)
	if err != nil {
		t.Fatalf("subtract: %v", err)
	}
	if !same.Value().Decimal.IsZero() {
		t.Fatalf("expected zero, got %s", same.Value().Decimal)
	}

	neg, err := zero.SubtractToNegative(q)
	if err != nil {
		t.Fatalf("subtract: %v", err)
	}
	if !neg.Value().Decimal.Equal(dec(t, "-5")) {
		t.Fatalf("expected -5, got %s", neg.Value().Decimal)
	}
}

func TestParseSentinel(t *testing.T) {
	q, err := Parse("UNLIMITED", "MB")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !q.IsSentinel() || q.Token() != "UNLIMITED" {
		t.Fatalf("expected sentinel, got %#v", q)
	}
	if _, err := q.Add(New(dec(t, "1"), "MB")); !errors.Is(err, ErrNoNumericValue) {
		t.Fatalf("expected ErrNoNumericValue, got %v", err)
	}
	if _, err := Parse("12x", "MB"); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestTextQuantityArithmetic(t *testing.T) {
	a := NewText("10.250", "s")
	b := NewText("0.750", "s")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sum.Value() != "11" {
		t.Fatalf("expected 11 got %q", sum.Value())
	}

	diff, err := b.Subtract(a)
	if err != nil {
		t.Fatalf("subtract: %v", err)
	}
	if diff.Value() != "0" {
		t.Fatalf("expected clamp to 0, got %q", diff.Value())
	}

	raw, err := b.SubtractToNegative(a)
	if err != nil {
		t.Fatalf("subtract to negative: %v", err)
	}
	if raw.Value() != "-9.5" {
		t.Fatalf("expected -9.5, got %q", raw.Value())
	}
}

func TestTextQuantityErrors(t *testing.T) {
	if _, err := NewText("abc", "s").Add(NewText("1", "s")); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := NewText("1", "s").Add(NewText("1", "MB")); !errors.Is(err, ErrUnitMismatch) {
		t.Fatalf("expected ErrUnitMismatch, got %v", err)
	}
}

func TestFromQuantity(t *testing.T) {
	q := FromQuantity(New(dec(t, "12.5"), "MB"))
	if q.Value() != "12.5" || q.Unit() != "MB" {
		t.Fatalf("unexpected conversion: %#v", q)
	}
}
