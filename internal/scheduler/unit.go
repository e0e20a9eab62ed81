package scheduler

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Unit is the recurrence unit of a job.
type Unit int

const (
	unitUnset Unit = iota
	Once
	Seconds
	Minutes
	Hours
	Days
	Weeks
	Months
	Years
)

var unitNames = map[Unit]string{
	Once:    "once",
	Seconds: "seconds",
	Minutes: "minutes",
	Hours:   "hours",
	Days:    "days",
	Weeks:   "weeks",
	Months:  "months",
	Years:   "years",
}

func (u Unit) String() string {
	if name, ok := unitNames[u]; ok {
		return name
	}
	return "unset"
}

// ParseUnit accepts singular or plural unit names.
func ParseUnit(s string) (Unit, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for u, plural := range unitNames {
		if name == plural || name+"s" == plural {
			return u, nil
		}
	}
	return unitUnset, errors.WithHint(errors.Wrapf(ErrConfig, "unknown unit %q", s),
		"expected one of: once, seconds, minutes, hours, days, weeks, months, years")
}

// calendar reports whether the unit steps by calendar days rather than by
// a fixed duration.
func (u Unit) calendar() bool {
	return u >= Days && u <= Years
}

// advance returns t moved forward by n units. Weeks are counted as 7n
// calendar days; months and years keep the day of month when it exists
// and otherwise use the last day of the target month.
func (u Unit) advance(t time.Time, n int) time.Time {
	switch u {
	case Seconds:
		return t.Add(time.Duration(n) * time.Second)
	case Minutes:
		return t.Add(time.Duration(n) * time.Minute)
	case Hours:
		return t.Add(time.Duration(n) * time.Hour)
	case Days:
		return t.AddDate(0, 0, n)
	case Weeks:
		return t.AddDate(0, 0, 7*n)
	case Months:
		return addMonths(t, n)
	case Years:
		return addMonths(t, 12*n)
	}
	return t
}

func addMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	total := int(month) - 1 + n
	year += total / 12
	total %= 12
	if total < 0 {
		total += 12
		year--
	}
	m := time.Month(total + 1)
	day = min(day, daysIn(year, m))
	hour, minute, sec := t.Clock()
	return time.Date(year, m, day, hour, minute, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
