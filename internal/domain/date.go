package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date with no time component. The zero value means
// "no date" — items without an expiry date carry a zero Date and are
// skipped by classification.
type Date struct {
	t time.Time
}

// NewDate builds a Date from year, month, and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar date. Two instants on the
// same day — one at 23:59 and one at 00:01 — produce the same Date.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses "YYYY-MM-DD", falling back to RFC 3339 for providers
// that ship full timestamps. The time component is discarded.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// IsZero reports whether the date is absent.
func (d Date) IsZero() bool { return d.t.IsZero() }

// DaysUntil returns the whole number of calendar days from the date of
// `from` to d. Negative when d is in the past. Both sides are truncated
// to midnight before subtracting, so the result is time-of-day agnostic.
func (d Date) DaysUntil(from time.Time) int {
	return int(d.t.Sub(DateOf(from).t).Hours() / 24)
}

// Time returns the date as a UTC midnight instant.
func (d Date) Time() time.Time { return d.t }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

// MarshalJSON encodes as "YYYY-MM-DD", or null when absent.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON tolerates null, empty, and malformed values by leaving the
// date zero. A bad date on one item must never fail decoding of a whole
// inventory snapshot — the item simply classifies as "no expiry".
func (d *Date) UnmarshalJSON(data []byte) error {
	*d = Date{}
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return nil
	}
	*d = parsed
	return nil
}
