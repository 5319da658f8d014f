// Package statement implements charge rows and the subscriber and account
// charge statements that aggregate them: row folding, the discount pass, the
// deterministic sort and the per-group totals.
package statement

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/msisdn"
	"github.com/noah-isme/backend-billing/internal/period"
)

var (
	// ErrMissingAccountID is returned when a statement is built without a
	// customer account identifier.
	ErrMissingAccountID = errors.New("statement: customer account id is required")
	// ErrAlreadyProcessed is returned when PostProcess is invoked a second
	// time on the same statement.
	ErrAlreadyProcessed = errors.New("statement: already processed")
	// ErrNotFound is returned by lookups when no statement matches.
	ErrNotFound = errors.New("statement: not found")
)

// Level selects the aggregation policy of a statement.
type Level int

const (
	// SubscriberLevel keeps discounted rows separate per row.
	SubscriberLevel Level = iota
	// AccountLevel merges rows across discount boundaries.
	AccountLevel
)

// String renders the level for logs and JSON.
func (l Level) String() string {
	if l == AccountLevel {
		return "account"
	}
	return "subscriber"
}

// MarshalJSON encodes the level as its name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a level name, defaulting unknown input to
// subscriber.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "account" {
		*l = AccountLevel
	} else {
		*l = SubscriberLevel
	}
	return nil
}

// Statement is one subscriber's or account's charge statement for a bill
// cycle. Rows are folded in via the aggregation rule; PostProcess finalizes
// discounts, ordering and group totals exactly once. A statement is owned
// and mutated by a single caller at a time.
type Statement struct {
	ID                string             `json:"id"`
	CustomerAccountID string             `json:"customerAccountId"`
	BillSequence      int                `json:"billSequence"`
	Period            *period.TimePeriod `json:"period,omitempty"`
	Subscriber        *msisdn.Number     `json:"subscriber,omitempty"`
	Level             Level              `json:"level"`
	Rows              []*Row             `json:"chargeRows"`
	GroupTotals       []*Row             `json:"chargeGroupTotals"`
	Processed         bool               `json:"processed"`
}

// NewSubscriber returns a subscriber-level statement keyed by account, bill
// sequence and phone number.
func NewSubscriber(accountID string, billSequence int, number msisdn.Number, p *period.TimePeriod) (*Statement, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, ErrMissingAccountID
	}
	return &Statement{
		ID:                fmt.Sprintf("%s_%d_%s%s", accountID, billSequence, number.CountryCode(), number.LocalNumber()),
		CustomerAccountID: accountID,
		BillSequence:      billSequence,
		Period:            p,
		Subscriber:        &number,
		Level:             SubscriberLevel,
	}, nil
}

// NewAccount returns an account-level statement keyed by account and bill
// sequence.
func NewAccount(accountID string, billSequence int, p *period.TimePeriod) (*Statement, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, ErrMissingAccountID
	}
	return &Statement{
		ID:                fmt.Sprintf("%s_%d", accountID, billSequence),
		CustomerAccountID: accountID,
		BillSequence:      billSequence,
		Period:            p,
		Level:             AccountLevel,
	}, nil
}

// AddRow folds a row into the statement: the first aggregation-compatible
// existing row absorbs it, otherwise a copy is appended.
func (s *Statement) AddRow(row *Row) error {
	for _, existing := range s.Rows {
		if existing.ShouldAggregateWith(row, s.Level) {
			return existing.Aggregate(row)
		}
	}
	s.Rows = append(s.Rows, row.Copy())
	return nil
}

// AddRows folds an ordered sequence of rows, in order.
func (s *Statement) AddRows(rows []*Row) error {
	for _, row := range rows {
		if err := s.AddRow(row); err != nil {
			return err
		}
	}
	return nil
}

// SetGroupTotals attaches precomputed group totals, replacing any existing
// ones. PostProcess recomputes them from the final row set.
func (s *Statement) SetGroupTotals(totals []*Row) {
	s.GroupTotals = make([]*Row, 0, len(totals))
	for _, total := range totals {
		s.GroupTotals = append(s.GroupTotals, total.Copy())
	}
}

// PostProcess finalizes the statement: discount rows without an amount are
// dropped, discount percentages are applied to the rows of their category,
// rows are sorted by group then name with empties last, and group totals are
// rebuilt from the sorted rows. Runs exactly once per statement.
func (s *Statement) PostProcess() error {
	if s.Processed {
		return ErrAlreadyProcessed
	}
	if err := s.applyDiscounts(); err != nil {
		return err
	}
	s.sortRows()
	if err := s.createChargeGroupTotals(); err != nil {
		return err
	}
	s.Processed = true
	return nil
}

func (s *Statement) applyDiscounts() error {
	kept := make([]*Row, 0, len(s.Rows))
	for _, row := range s.Rows {
		if row.Discount != nil && row.Discount.Amount() == nil {
			continue
		}
		kept = append(kept, row)
	}
	s.Rows = kept

	// Snapshot the discount rows up front: applying a discount sets one on
	// the target row, which must not turn it into a discount source itself.
	type pass struct {
		category   string
		percentage decimal.NullDecimal
	}
	var passes []pass
	for _, row := range s.Rows {
		if row.Discount != nil {
			passes = append(passes, pass{category: row.Category, percentage: row.Discount.Percentage()})
		}
	}
	for _, p := range passes {
		for _, candidate := range s.Rows {
			if candidate.Category != p.category {
				continue
			}
			if err := candidate.ApplyDiscount(p.percentage); err != nil {
				return err
			}
		}
	}
	return nil
}

// sortRows orders rows by group name then name, ascending, empty strings
// last. The sort is stable so equal rows keep insertion order.
func (s *Statement) sortRows() {
	sort.SliceStable(s.Rows, func(i, j int) bool {
		if c := compareIdent(s.Rows[i].GroupName, s.Rows[j].GroupName); c != 0 {
			return c < 0
		}
		return compareIdent(s.Rows[i].Name, s.Rows[j].Name) < 0
	})
}

func compareIdent(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	default:
		return strings.Compare(a, b)
	}
}

// createChargeGroupTotals rebuilds the group totals from the current row
// order: a new entry starts whenever the group name changes, and each row's
// total is accumulated into the current entry. Rows without a group name
// never contribute a totals entry.
func (s *Statement) createChargeGroupTotals() error {
	s.GroupTotals = nil
	var current *Row
	for _, row := range s.Rows {
		if row.GroupName == "" {
			continue
		}
		if current == nil || current.GroupName != row.GroupName {
			current = &Row{GroupName: row.GroupName}
			s.GroupTotals = append(s.GroupTotals, current)
		}
		if row.Total == nil {
			continue
		}
		total, err := mergeAmount(current.Total, row.Total)
		if err != nil {
			return err
		}
		current.Total = total
	}
	return nil
}

// RowByName returns the first row whose name matches case-insensitively,
// nil when absent.
func (s *Statement) RowByName(name string) *Row {
	for _, row := range s.Rows {
		if strings.EqualFold(row.Name, name) {
			return row
		}
	}
	return nil
}

// IsFirstBillSequence reports whether this is the first bill cycle.
func (s *Statement) IsFirstBillSequence() bool { return s.BillSequence == 1 }

// SameIdentity compares the statement keys: account, bill sequence and
// subscriber number.
func (s *Statement) SameIdentity(other *Statement) bool {
	if s.CustomerAccountID != other.CustomerAccountID || s.BillSequence != other.BillSequence {
		return false
	}
	if (s.Subscriber == nil) != (other.Subscriber == nil) {
		return false
	}
	return s.Subscriber == nil || s.Subscriber.Equal(*other.Subscriber)
}
