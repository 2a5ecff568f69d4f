package domain

import (
	"fmt"
	"time"
)

const dateKeyLayout = "2006-01-02"

// DateKey identifies a calendar day as YYYY-MM-DD. Keys order
// lexicographically in calendar order.
type DateKey string

// ToDateKey truncates t to its calendar day in t's own location.
func ToDateKey(t time.Time) DateKey {
	y, m, d := t.Date()
	return DateKey(fmt.Sprintf("%04d-%02d-%02d", y, int(m), d))
}

// ParseDateKey validates s as a YYYY-MM-DD calendar date.
func ParseDateKey(s string) (DateKey, error) {
	t, err := time.Parse(dateKeyLayout, s)
	if err != nil {
		return "", &ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", s)}
	}
	return ToDateKey(t), nil
}

// IsPast reports whether key lies before the calendar day of today. The
// day of today itself is not past.
func IsPast(key DateKey, today time.Time) bool {
	return key < ToDateKey(today)
}

// Time returns midnight UTC of the key's day. The key must be valid.
func (k DateKey) Time() time.Time {
	t, _ := time.Parse(dateKeyLayout, string(k))
	return t
}

// In returns midnight of the key's day in loc.
func (k DateKey) In(loc *time.Location) time.Time {
	y, m, d := k.Time().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// AddDays returns the key n calendar days after k; n may be negative.
func (k DateKey) AddDays(n int) DateKey {
	return ToDateKey(k.Time().AddDate(0, 0, n))
}

func (k DateKey) String() string { return string(k) }
