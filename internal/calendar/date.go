package calendar

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	isoLayout     = "2006-01-02"
	displayLayout = "02/01/2006"
)

// LocalDate is a calendar date without a time of day or zone.
type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) LocalDate {
	y, m, d := t.Date()
	return LocalDate{Year: y, Month: m, Day: d}
}

// ParseDate accepts YYYY-MM-DD or DD/MM/YYYY.
func ParseDate(s string) (LocalDate, error) {
	s = strings.TrimSpace(s)
	layout := isoLayout
	if strings.Contains(s, "/") {
		layout = displayLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return LocalDate{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// In returns local midnight of d in loc.
func (d LocalDate) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d LocalDate) String() string { return d.In(time.UTC).Format(isoLayout) }

// Display formats d as DD/MM/YYYY.
func (d LocalDate) Display() string { return d.In(time.UTC).Format(displayLayout) }

func (d LocalDate) IsZero() bool { return d == LocalDate{} }

func (d LocalDate) Before(o LocalDate) bool { return d.In(time.UTC).Before(o.In(time.UTC)) }

func (d LocalDate) After(o LocalDate) bool { return o.Before(d) }

func (d LocalDate) AddDays(n int) LocalDate {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

func (d LocalDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *LocalDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Scan reads a DATE column. Drivers hand DATE back as a time.Time at midnight
// of some zone; only the Y/M/D fields are taken.
func (d *LocalDate) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case nil:
		*d = LocalDate{}
		return nil
	default:
		return fmt.Errorf("calendar: cannot scan %T into LocalDate", src)
	}
}

func (d *LocalDate) scanString(s string) error {
	if len(s) > len(isoLayout) {
		s = s[:len(isoLayout)]
	}
	v, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d LocalDate) Value() (driver.Value, error) {
	return d.String(), nil
}
