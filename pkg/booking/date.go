package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of visit dates
const DateLayout = "2006-01-02"

// lunchEnds is the first hour counted as dinner
const lunchEnds = 16

// Date is a custom type that handles date-only JSON values
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD visit date
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("unable to parse date: %s", s)
	}
	return Date{Time: t}, nil
}

// UnmarshalJSON implements json.Unmarshaler for Date
func (d *Date) UnmarshalJSON(data []byte) error {
	// Remove quotes
	str := strings.Trim(string(data), `"`)

	// Handle null/empty
	if str == "" || str == "null" {
		d.Time = time.Time{}
		return nil
	}

	// Try parsing as date only first (YYYY-MM-DD)
	t, err := time.Parse(DateLayout, str)
	if err == nil {
		d.Time = t
		return nil
	}

	// Try parsing as full timestamp (RFC3339)
	t, err = time.Parse(time.RFC3339, str)
	if err == nil {
		d.Time = t
		return nil
	}

	// Try parsing with time but no timezone
	t, err = time.Parse("2006-01-02T15:04:05", str)
	if err == nil {
		d.Time = t
		return nil
	}

	return fmt.Errorf("unable to parse date: %s", str)
}

// MarshalJSON implements json.Marshaler for Date
func (d Date) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf(`"%s"`, d.Time.Format(DateLayout))), nil
}

// String returns the date as a string
func (d Date) String() string {
	if d.Time.IsZero() {
		return ""
	}
	return d.Time.Format(DateLayout)
}

// Sitting is the service a time slot belongs to
type Sitting string

const (
	SittingLunch  Sitting = "lunch"
	SittingDinner Sitting = "dinner"
)

// TimeOfDay is a wall-clock time as the API sends it: HH:MM or HH:MM:SS
type TimeOfDay string

// Clock returns the hour and minute, or ok=false when the value is malformed
func (t TimeOfDay) Clock() (hour, minute int, ok bool) {
	parts := strings.Split(strings.TrimSpace(string(t)), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, false
	}
	for _, p := range parts {
		if len(p) != 2 {
			return 0, 0, false
		}
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return 0, 0, false
		}
	}
	return hour, minute, true
}

// Valid reports whether t parses as HH:MM or HH:MM:SS
func (t TimeOfDay) Valid() bool {
	_, _, ok := t.Clock()
	return ok
}

// Label returns HH:MM for display
func (t TimeOfDay) Label() string {
	hour, minute, ok := t.Clock()
	if !ok {
		return string(t)
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// Sitting returns lunch for slots before 16:00 and dinner otherwise
func (t TimeOfDay) Sitting() Sitting {
	hour, _, ok := t.Clock()
	if ok && hour < lunchEnds {
		return SittingLunch
	}
	return SittingDinner
}

// Same reports whether two times name the same minute
func (t TimeOfDay) Same(other TimeOfDay) bool {
	return t.Label() == other.Label()
}
