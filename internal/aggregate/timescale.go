// Package aggregate buckets a series of readings into calendar-aligned
// windows (minute, hour, day, month) and keeps the trailing window that the
// dashboard charts.
package aggregate

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Timescale selects the bucket width.
type Timescale string

const (
	Minutely Timescale = "minutely"
	Hourly   Timescale = "hourly"
	Daily    Timescale = "daily"
	Monthly  Timescale = "monthly"
)

// Default is the timescale selected on startup.
const Default = Hourly

// Timescales lists every timescale in selector order.
var Timescales = []Timescale{Minutely, Hourly, Daily, Monthly}

// ErrInvalidTimescale is returned for unknown timescale names.
var ErrInvalidTimescale = errors.New("invalid timescale")

// ParseTimescale parses a timescale name (case-insensitive).
func ParseTimescale(s string) (Timescale, error) {
	ts := Timescale(strings.ToLower(strings.TrimSpace(s)))
	if !ts.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimescale, s)
	}
	return ts, nil
}

// Valid reports whether ts is one of the known timescales.
func (ts Timescale) Valid() bool {
	switch ts {
	case Minutely, Hourly, Daily, Monthly:
		return true
	}
	return false
}

func (ts Timescale) String() string { return string(ts) }

// Next returns the following timescale in selector order, wrapping around.
func (ts Timescale) Next() Timescale {
	for i, t := range Timescales {
		if t == ts {
			return Timescales[(i+1)%len(Timescales)]
		}
	}
	return Default
}

// FetchLimit is the number of readings to request from the backend so the
// trailing window is covered at one reading per second.
func (ts Timescale) FetchLimit() int {
	switch ts {
	case Minutely:
		return 60 * 60
	case Hourly:
		return 24 * 60 * 60
	case Daily:
		return 30 * 24 * 60 * 60
	case Monthly:
		return 12 * 30 * 24 * 60 * 60
	}
	return 0
}

// Truncate returns the start of the bucket containing t, in loc.
func (ts Timescale) Truncate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	y, mo, d := t.Date()
	switch ts {
	case Minutely:
		return time.Date(y, mo, d, t.Hour(), t.Minute(), 0, 0, loc)
	case Hourly:
		return time.Date(y, mo, d, t.Hour(), 0, 0, 0, loc)
	case Daily:
		return time.Date(y, mo, d, 0, 0, 0, 0, loc)
	case Monthly:
		return time.Date(y, mo, 1, 0, 0, 0, 0, loc)
	}
	return t
}

// Cutoff returns the oldest bucket start kept by Recent for the given now.
// Minutely and hourly windows are rolling; daily and monthly windows are
// calendar-aligned and include the current day or month.
func (ts Timescale) Cutoff(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	y, mo, d := now.Date()
	switch ts {
	case Minutely:
		return now.Add(-60 * time.Minute)
	case Hourly:
		return now.Add(-24 * time.Hour)
	case Daily:
		return time.Date(y, mo, d-29, 0, 0, 0, 0, loc)
	case Monthly:
		return time.Date(y, mo-11, 1, 0, 0, 0, 0, loc)
	}
	return time.Time{}
}

// Format renders a bucket start as an axis label.
func (ts Timescale) Format(t time.Time) string {
	switch ts {
	case Minutely, Hourly:
		return t.Format("15:04")
	case Daily:
		return t.Format("2006-01-02")
	case Monthly:
		return t.Format("2006-01")
	}
	return t.Format(time.RFC3339)
}

// Boundary reports whether a chart tick belongs between prev and cur: the
// next-larger calendar unit changed (hour for minutely, day for hourly,
// month for daily, year for monthly).
func (ts Timescale) Boundary(prev, cur time.Time) bool {
	switch ts {
	case Minutely:
		return prev.Hour() != cur.Hour() || prev.YearDay() != cur.YearDay()
	case Hourly:
		return prev.YearDay() != cur.YearDay() || prev.Year() != cur.Year()
	case Daily:
		return prev.Month() != cur.Month() || prev.Year() != cur.Year()
	case Monthly:
		return prev.Year() != cur.Year()
	}
	return false
}
