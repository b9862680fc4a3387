// Package calendar owns every conversion between UTC instants and local
// calendar dates. All day-boundary decisions in the service go through a Zone.
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// offsetPattern accepts ±H, ±HH, ±HH:MM and ±HHMM; minutes need a two-digit hour.
var offsetPattern = regexp.MustCompile(`^(?:UTC|GMT)?([+-])(?:(\d{1,2})|(\d{2}):?(\d{2}))$`)

// Zone is the single configured timezone that defines "today".
type Zone struct {
	loc *time.Location
}

// ParseZone accepts an IANA name (Africa/Cairo), UTC, or a fixed offset
// such as +02:00, -0530 or UTC+2.
func ParseZone(spec string) (Zone, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Zone{}, errors.New("calendar: empty timezone")
	}
	switch strings.ToUpper(spec) {
	case "UTC", "Z", "GMT":
		return Zone{loc: time.UTC}, nil
	}
	if m := offsetPattern.FindStringSubmatch(strings.ToUpper(spec)); m != nil {
		hours, _ := strconv.Atoi(m[2] + m[3])
		minutes := 0
		if m[4] != "" {
			minutes, _ = strconv.Atoi(m[4])
		}
		if hours > 14 || minutes > 59 {
			return Zone{}, fmt.Errorf("calendar: offset out of range: %s", spec)
		}
		secs := hours*3600 + minutes*60
		if m[1] == "-" {
			secs = -secs
		}
		return FixedZone(secs), nil
	}
	loc, err := time.LoadLocation(spec)
	if err != nil {
		return Zone{}, fmt.Errorf("calendar: load location %q: %w", spec, err)
	}
	return Zone{loc: loc}, nil
}

// MustParseZone is ParseZone for constants and tests.
func MustParseZone(spec string) Zone {
	z, err := ParseZone(spec)
	if err != nil {
		panic(err)
	}
	return z
}

// FixedZone returns a zone with a constant offset east of UTC.
func FixedZone(offsetSeconds int) Zone {
	sign := '+'
	abs := offsetSeconds
	if abs < 0 {
		sign = '-'
		abs = -abs
	}
	name := fmt.Sprintf("UTC%c%02d:%02d", sign, abs/3600, (abs%3600)/60)
	return Zone{loc: time.FixedZone(name, offsetSeconds)}
}

func (z Zone) Location() *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

func (z Zone) String() string { return z.Location().String() }

// Local converts t to wall-clock time in the zone.
func (z Zone) Local(t time.Time) time.Time { return t.In(z.Location()) }

// DateOf returns the local calendar date on which the instant t falls.
func (z Zone) DateOf(t time.Time) LocalDate { return DateOf(z.Local(t)) }

// Today is DateOf(now); callers pass their clock's reading.
func (z Zone) Today(now time.Time) LocalDate { return z.DateOf(now) }

// StartOf returns the UTC instant of local midnight opening d.
func (z Zone) StartOf(d LocalDate) time.Time { return d.In(z.Location()).UTC() }
