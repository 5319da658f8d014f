package msisdn

import (
	"encoding/json"
	"testing"
)

func TestNewValidates(t *testing.T) {
	cases := []struct {
		name, cc, local string
		wantErr         error
	}{
		{"ok", "31", "612345678", nil},
		{"four digit cc", "1234", "5551234", nil},
		{"empty cc", "", "612345678", ErrInvalidCountryCode},
		{"five digit cc", "12345", "5551234", ErrInvalidCountryCode},
		{"alpha cc", "3a", "612345678", ErrInvalidCountryCode},
		{"empty local", "31", "", ErrInvalidLocalNumber},
		{"alpha local", "31", "61234x678", ErrInvalidLocalNumber},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cc, tc.local)
			if err != tc.wantErr {
				t.Fatalf("got %v want %v", err, tc.wantErr)
			}
		})
	}
}

func TestParsePrefixes(t *testing.T) {
	cases := []struct {
		raw, cc, local string
	}{
		{"+31612345678", "31", "612345678"},
		{"0031612345678", "31", "612345678"},
		{"GSM31612345678", "31", "612345678"},
		{"GSM031612345678", "31", "612345678"},
		{"31612345678", "31", "612345678"},
		// An access prefix and a dialing prefix may both be present.
		{"GSM+31612345678", "31", "612345678"},
		{"GSM0+31612345678", "31", "612345678"},
		{"GSM00031612345678", "31", "612345678"},
		// "GSM0" strips greedily, so the remaining "03" is taken as the
		// country code rather than a dialing prefix.
		{"GSM0031612345678", "03", "1612345678"},
	}
	for _, tc := range cases {
		n, err := Parse(tc.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.raw, err)
		}
		if n.CountryCode() != tc.cc || n.LocalNumber() != tc.local {
			t.Fatalf("parse %q: got %s/%s", tc.raw, n.CountryCode(), n.LocalNumber())
		}
	}
}

func TestParseTooShort(t *testing.T) {
	for _, raw := range []string{"", "+3", "00", "31"} {
		if _, err := Parse(raw); err != ErrTooShort {
			t.Fatalf("parse %q: got %v", raw, err)
		}
	}
}

func TestParseRejectsNonDigits(t *testing.T) {
	if _, err := Parse("+31abc"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestStringAndCompare(t *testing.T) {
	a, err := New("31", "612345678")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.String() != "+31612345678" {
		t.Fatalf("got %s", a)
	}
	b, err := New("49", "15112345678")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Compare(b) >= 0 || b.Compare(a) <= 0 {
		t.Fatal("country code should order first")
	}
	if a.Compare(a) != 0 || !a.Equal(a) {
		t.Fatal("number should equal itself")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	n, err := New("31", "612345678")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Number
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(n) {
		t.Fatalf("round trip mismatch: %s vs %s", back, n)
	}
	if err := json.Unmarshal([]byte(`{"countryCode":"","localNumber":"5"}`), &back); err != ErrInvalidCountryCode {
		t.Fatalf("expected ErrInvalidCountryCode, got %v", err)
	}
}
