// Package period implements the half-open-ish time interval attached to
// charge rows. A zero time means the bound is absent.
package period

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrBoundsRequired is returned by Touches when any of the four bounds
// involved is absent.
var ErrBoundsRequired = errors.New("period: both periods need a start and an end")

// TimePeriod is an interval with optionally absent bounds. The zero value
// has both bounds absent.
type TimePeriod struct {
	start time.Time
	end   time.Time
}

// New returns a period with the given bounds. Zero times mark absent bounds.
func New(start, end time.Time) TimePeriod {
	return TimePeriod{start: start, end: end}
}

// FromUnixMilli builds a period from epoch milliseconds in UTC.
func FromUnixMilli(start, end int64) TimePeriod {
	return TimePeriod{
		start: time.UnixMilli(start).UTC(),
		end:   time.UnixMilli(end).UTC(),
	}
}

// Start returns the start bound, zero when absent.
func (p TimePeriod) Start() time.Time { return p.start }

// End returns the end bound, zero when absent.
func (p TimePeriod) End() time.Time { return p.end }

// HasStart reports whether the start bound is set.
func (p TimePeriod) HasStart() bool { return !p.start.IsZero() }

// HasEnd reports whether the end bound is set.
func (p TimePeriod) HasEnd() bool { return !p.end.IsZero() }

// Union returns the smallest period covering both operands. An absent bound
// on either side keeps the other side's bound; both absent stays absent.
func (p TimePeriod) Union(other TimePeriod) TimePeriod {
	out := TimePeriod{}
	switch {
	case !p.HasStart():
		out.start = other.start
	case !other.HasStart():
		out.start = p.start
	case other.start.Before(p.start):
		out.start = other.start
	default:
		out.start = p.start
	}
	switch {
	case !p.HasEnd():
		out.end = other.end
	case !other.HasEnd():
		out.end = p.end
	case other.end.After(p.end):
		out.end = other.end
	default:
		out.end = p.end
	}
	return out
}

// Contains reports whether t falls strictly inside the period. Both bounds
// are exclusive; an absent bound never matches.
func (p TimePeriod) Contains(t time.Time) bool {
	if !p.HasStart() || !p.HasEnd() {
		return false
	}
	return t.After(p.start) && t.Before(p.end)
}

// Compare orders periods by start, then end. An absent bound on either side
// compares equal at that position, so the order is not total over periods
// with missing bounds.
func (p TimePeriod) Compare(other TimePeriod) int {
	if c := compareBound(p.start, other.start); c != 0 {
		return c
	}
	return compareBound(p.end, other.end)
}

func compareBound(a, b time.Time) int {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// Touches reports whether this period is touched by other. True when the
// starts or the ends fall on the same UTC calendar day, when this start
// falls strictly inside other, or when this end is before other's end and
// on-or-after other's start. The predicate is asymmetric: a period that
// strictly contains other without sharing a boundary day is not touched by
// it. All four bounds must be present.
func (p TimePeriod) Touches(other TimePeriod) (bool, error) {
	if !p.HasStart() || !p.HasEnd() || !other.HasStart() || !other.HasEnd() {
		return false, ErrBoundsRequired
	}
	if sameDay(p.start, other.start) || sameDay(p.end, other.end) {
		return true, nil
	}
	if p.start.After(other.start) && p.start.Before(other.end) {
		return true, nil
	}
	if p.end.Before(other.end) && (p.end.After(other.start) || sameDay(p.end, other.start)) {
		return true, nil
	}
	return false, nil
}

func sameDay(a, b time.Time) bool {
	au, bu := a.UTC(), b.UTC()
	return au.Year() == bu.Year() && au.Month() == bu.Month() && au.Day() == bu.Day()
}

// StartsOnOrBefore reports whether the period starts at t or earlier. An
// absent start counts as unbounded past.
func (p TimePeriod) StartsOnOrBefore(t time.Time) bool {
	return !p.HasStart() || !p.start.After(t)
}

// Equal compares both bounds as instants.
func (p TimePeriod) Equal(other TimePeriod) bool {
	return equalBound(p.start, other.start) && equalBound(p.end, other.end)
}

func equalBound(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() == b.IsZero()
	}
	return a.Equal(b)
}

// String renders "[start, end]" with "-" for absent bounds.
func (p TimePeriod) String() string {
	format := func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format(time.RFC3339)
	}
	return "[" + format(p.start) + ", " + format(p.end) + "]"
}

type periodJSON struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// MarshalJSON encodes the period with absent bounds omitted.
func (p TimePeriod) MarshalJSON() ([]byte, error) {
	out := periodJSON{}
	if p.HasStart() {
		start := p.start
		out.Start = &start
	}
	if p.HasEnd() {
		end := p.end
		out.End = &end
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a period, missing fields becoming absent bounds.
func (p *TimePeriod) UnmarshalJSON(data []byte) error {
	var in periodJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = TimePeriod{}
	if in.Start != nil {
		p.start = *in.Start
	}
	if in.End != nil {
		p.end = *in.End
	}
	return nil
}
