// Package msisdn parses and normalizes subscriber telephone numbers.
package msisdn

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidCountryCode is returned when the country code is empty,
	// longer than four digits, or not numeric.
	ErrInvalidCountryCode = errors.New("msisdn: country code must be 1 to 4 digits")
	// ErrInvalidLocalNumber is returned when the local number is empty or
	// not numeric.
	ErrInvalidLocalNumber = errors.New("msisdn: local number must be digits")
	// ErrTooShort is returned by Parse when the normalized input is too
	// short to split into a country code and local number.
	ErrTooShort = errors.New("msisdn: number too short")
)

var (
	countryCodePattern = regexp.MustCompile(`^\d{1,4}$`)
	localNumberPattern = regexp.MustCompile(`^\d+$`)
)

// Number is a validated telephone number split into country code and local
// number.
type Number struct {
	countryCode string
	localNumber string
}

// New validates and returns a Number.
func New(countryCode, localNumber string) (Number, error) {
	if !countryCodePattern.MatchString(countryCode) {
		return Number{}, ErrInvalidCountryCode
	}
	if !localNumberPattern.MatchString(localNumber) {
		return Number{}, ErrInvalidLocalNumber
	}
	return Number{countryCode: countryCode, localNumber: localNumber}, nil
}

// Parse normalizes a raw dial string and splits it. Stripping runs in two
// stages, an access prefix ("GSM0" or "GSM") then a dialing prefix ("+" or
// "00"), so a number may carry one of each. The first two digits of the
// remainder become the country code and the rest the local number.
func Parse(raw string) (Number, error) {
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(s, "GSM0"):
		s = s[len("GSM0"):]
	case strings.HasPrefix(s, "GSM"):
		s = s[len("GSM"):]
	}
	switch {
	case strings.HasPrefix(s, "+"):
		s = s[len("+"):]
	case strings.HasPrefix(s, "00"):
		s = s[len("00"):]
	}
	if len(s) < 3 {
		return Number{}, ErrTooShort
	}
	return New(s[:2], s[2:])
}

// CountryCode returns the country code digits.
func (n Number) CountryCode() string { return n.countryCode }

// LocalNumber returns the local number digits.
func (n Number) LocalNumber() string { return n.localNumber }

// String renders the number in international notation.
func (n Number) String() string {
	return "+" + n.countryCode + n.localNumber
}

// Equal compares both components.
func (n Number) Equal(other Number) bool {
	return n.countryCode == other.countryCode && n.localNumber == other.localNumber
}

// Compare orders numbers by country code, then local number, both as
// strings.
func (n Number) Compare(other Number) int {
	if c := strings.Compare(n.countryCode, other.countryCode); c != 0 {
		return c
	}
	return strings.Compare(n.localNumber, other.localNumber)
}

type numberJSON struct {
	CountryCode string `json:"countryCode"`
	LocalNumber string `json:"localNumber"`
}

// MarshalJSON encodes the number as its two components.
func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(numberJSON{CountryCode: n.countryCode, LocalNumber: n.localNumber})
}

// UnmarshalJSON decodes and re-validates a number.
func (n *Number) UnmarshalJSON(data []byte) error {
	var in numberJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	parsed, err := New(in.CountryCode, in.LocalNumber)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
