package series

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/itemcast"
)

// Month is a calendar year-month period. It counts months since year 0 so
// ordering and arithmetic are plain integer operations.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receiver for UnmarshalText.
type Month int32

// NewMonth returns the period for the given year and month.
func NewMonth(year int, m time.Month) Month {
	return Month(int32(year)*12 + int32(m) - 1)
}

// MonthOf returns the period containing t.
func MonthOf(t time.Time) Month {
	return NewMonth(t.Year(), t.Month())
}

// ParseMonth parses a year-month period. Accepted forms are "YYYYMM",
// "YYYY-MM", "YYYY/MM" and full dates ("YYYY-MM-DD", RFC 3339), whose day
// and time are dropped.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)

	var year, month int
	switch {
	case len(s) == 6 && isDigits(s):
		year, _ = strconv.Atoi(s[:4])  //nolint:errcheck // digits checked above
		month, _ = strconv.Atoi(s[4:]) //nolint:errcheck // digits checked above
	case len(s) == 7 && (s[4] == '-' || s[4] == '/') && isDigits(s[:4]) && isDigits(s[5:]):
		year, _ = strconv.Atoi(s[:4])  //nolint:errcheck // digits checked above
		month, _ = strconv.Atoi(s[5:]) //nolint:errcheck // digits checked above
	default:
		t, err := parseDate(s)
		if err != nil {
			return 0, fmt.Errorf("%w: month %q", itemcast.ErrInvalidRecord, s)
		}
		return MonthOf(t), nil
	}

	if month < 1 || month > 12 {
		return 0, fmt.Errorf("%w: month %q out of range", itemcast.ErrInvalidRecord, s)
	}
	return NewMonth(year, time.Month(month)), nil
}

// MustParseMonth is like ParseMonth but panics on error.
func MustParseMonth(s string) Month {
	m, err := ParseMonth(s)
	if err != nil {
		panic(err)
	}
	return m
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006/01/02", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Year returns the calendar year.
func (m Month) Year() int { return int(m) / 12 }

// Month returns the calendar month.
func (m Month) Month() time.Month { return time.Month(int(m)%12 + 1) }

// Add returns the period n months later (earlier for negative n).
func (m Month) Add(n int) Month { return m + Month(n) }

// Sub returns the number of months from o to m.
func (m Month) Sub(o Month) int { return int(m - o) }

// Time returns midnight UTC on the first day of the period.
func (m Month) Time() time.Time {
	return time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// String formats the period as "YYYY-MM".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year(), int(m.Month()))
}

// MarshalText implements encoding.TextMarshaler.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Month) UnmarshalText(data []byte) error {
	parsed, err := ParseMonth(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
