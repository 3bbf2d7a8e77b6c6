// Package jstdate provides calendar dates in Japan Standard Time.
//
// The registry stores announcement dates as UTC instants at JST midnight,
// so every instant is converted to the JST calendar day before comparing.
package jstdate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// JST is the fixed UTC+9 zone used by the registry.
var JST = time.FixedZone("JST", 9*60*60)

const layout = "2006-01-02"

// Date is a calendar day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New builds a Date, normalising out-of-range values like time.Date does.
func New(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, JST))
}

// FromTime returns the JST calendar day of t.
func FromTime(t time.Time) Date {
	local := t.In(JST)
	return Date{Year: local.Year(), Month: local.Month(), Day: local.Day()}
}

// Parse accepts "YYYY-MM-DD", "YYYY-MM" or "YYYY". Partial dates expand to
// the first day of the period, or the last one when end is true.
func Parse(s string, end bool) (Date, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "-")

	switch len(parts) {
	case 1:
		year, err := parseYear(parts[0])
		if err != nil {
			return Date{}, err
		}
		if end {
			return Date{Year: year, Month: time.December, Day: 31}, nil
		}
		return Date{Year: year, Month: time.January, Day: 1}, nil
	case 2:
		t, err := time.ParseInLocation("2006-01", s, JST)
		if err != nil {
			return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		if end {
			return FromTime(t.AddDate(0, 1, -1)), nil
		}
		return FromTime(t), nil
	case 3:
		t, err := time.ParseInLocation(layout, s, JST)
		if err != nil {
			return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		return FromTime(t), nil
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

func parseYear(s string) (int, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid year %q: %w", s, err)
	}
	return year, nil
}

// Time returns JST midnight of the day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, JST)
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmp(d.Year, o.Year)
	case d.Month != o.Month:
		return cmp(int(d.Month), int(o.Month))
	default:
		return cmp(d.Day, o.Day)
	}
}

func cmp(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes "YYYY-MM-DD".
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s, false)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Range is an inclusive date range with optional bounds.
type Range struct {
	Start *Date
	End   *Date
}

// IsSet reports whether either bound is set.
func (r Range) IsSet() bool {
	return r.Start != nil || r.End != nil
}

// Contains reports whether d lies within the range. An unknown date is
// outside any range that has a bound.
func (r Range) Contains(d *Date) bool {
	if !r.IsSet() {
		return true
	}
	if d == nil {
		return false
	}
	if r.Start != nil && d.Compare(*r.Start) < 0 {
		return false
	}
	if r.End != nil && d.Compare(*r.End) > 0 {
		return false
	}
	return true
}

func (r Range) String() string {
	bound := func(d *Date) string {
		if d == nil {
			return "*"
		}
		return d.String()
	}
	return fmt.Sprintf("[%s TO %s]", bound(r.Start), bound(r.End))
}
