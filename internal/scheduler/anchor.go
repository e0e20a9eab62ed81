package scheduler

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/wasilibs/go-re2"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	reDateTime = re2.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})t(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	reDate     = re2.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	reMonthDay = re2.MustCompile(`^(\d{1,2})-(\d{1,2})$`)
	reClock    = re2.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	reNumber   = re2.MustCompile(`^\d{1,4}$`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var folder = cases.Fold()

// anchorFields collects what the anchor text named explicitly.
type anchorFields struct {
	year, month, day     int
	hour, minute, second int
	weekday              time.Weekday
	hasWeekday           bool
	hasClock             bool
}

// ParseAnchor parses calendar-partial text such as "09:31", "friday 09:31",
// "09 09:31", "07-21" or "1970-01-01 00:00:00". Date fields that are not
// named come from ref, time fields default to midnight. A weekday without a
// date moves the date forward to the next such day, ref's own day included.
func ParseAnchor(text string, ref time.Time) (time.Time, error) {
	raw := strings.TrimSpace(norm.NFKC.String(text))
	if raw == "" {
		return time.Time{}, errors.Wrap(ErrAnchor, "empty anchor text")
	}
	if t, err := time.ParseInLocation(time.RFC3339, raw, ref.Location()); err == nil {
		return t.In(ref.Location()), nil
	}

	var f anchorFields
	for _, tok := range strings.Fields(folder.String(raw)) {
		tok = strings.Trim(tok, ",.")
		if tok == "" {
			continue
		}
		if err := f.consume(tok); err != nil {
			return time.Time{}, errors.Wrapf(err, "anchor %q", text)
		}
	}
	return f.resolve(ref, text)
}

func (f *anchorFields) consume(tok string) error {
	if m := reDateTime.FindStringSubmatch(tok); m != nil {
		if err := f.setDate(m[1], m[2], m[3]); err != nil {
			return err
		}
		return f.setClock(m[4], m[5], m[6])
	}
	if m := reDate.FindStringSubmatch(tok); m != nil {
		return f.setDate(m[1], m[2], m[3])
	}
	if m := reMonthDay.FindStringSubmatch(tok); m != nil {
		return f.setDate("", m[1], m[2])
	}
	if m := reClock.FindStringSubmatch(tok); m != nil {
		return f.setClock(m[1], m[2], m[3])
	}
	if reNumber.MatchString(tok) {
		n, _ := strconv.Atoi(tok)
		switch {
		case len(tok) == 4 && f.year == 0:
			f.year = n
			return nil
		case len(tok) <= 2 && f.day == 0 && n > 0:
			f.day = n
			return nil
		}
		return errors.Wrapf(ErrAnchor, "unexpected number %q", tok)
	}
	if wd, ok := weekdays[tok]; ok && !f.hasWeekday {
		f.weekday, f.hasWeekday = wd, true
		return nil
	}
	if m, ok := months[tok]; ok && f.month == 0 {
		f.month = int(m)
		return nil
	}
	return errors.Wrapf(ErrAnchor, "unexpected token %q", tok)
}

func (f *anchorFields) setDate(y, m, d string) error {
	if f.month != 0 || f.day != 0 {
		return errors.Wrap(ErrAnchor, "date given twice")
	}
	if y != "" {
		f.year, _ = strconv.Atoi(y)
	}
	f.month, _ = strconv.Atoi(m)
	f.day, _ = strconv.Atoi(d)
	if f.month < 1 || f.day < 1 {
		return errors.Wrap(ErrAnchor, "month and day start at 1")
	}
	return nil
}

func (f *anchorFields) setClock(h, m, s string) error {
	if f.hasClock {
		return errors.Wrap(ErrAnchor, "time of day given twice")
	}
	f.hasClock = true
	f.hour, _ = strconv.Atoi(h)
	f.minute, _ = strconv.Atoi(m)
	if s != "" {
		f.second, _ = strconv.Atoi(s)
	}
	return nil
}

func (f *anchorFields) resolve(ref time.Time, text string) (time.Time, error) {
	if f.hour > 23 || f.minute > 59 || f.second > 59 {
		return time.Time{}, errors.Wrapf(ErrAnchor, "anchor %q: time of day out of range", text)
	}
	if f.month > 12 || (f.month == 0 && f.day > 31) {
		return time.Time{}, errors.Wrapf(ErrAnchor, "anchor %q: date out of range", text)
	}

	year, month, day := ref.Date()
	explicitDate := f.year != 0 || f.month != 0 || f.day != 0
	if f.year != 0 {
		year = f.year
	}
	if f.month != 0 {
		month = time.Month(f.month)
	}
	switch {
	case f.day != 0 && f.month == 0 && f.year == 0:
		// A bare day of month keeps its number: use the first month from
		// ref on that has it.
		for f.day > daysIn(year, month) {
			year, month, _ = time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).Date()
		}
		day = f.day
	case f.day != 0:
		if f.day < 1 || f.day > daysIn(year, month) {
			return time.Time{}, errors.Wrapf(ErrAnchor, "anchor %q: no day %d in %s %d", text, f.day, month, year)
		}
		day = f.day
	default:
		day = min(day, daysIn(year, month))
	}

	t := time.Date(year, month, day, f.hour, f.minute, f.second, 0, ref.Location())
	if f.hasWeekday && !explicitDate {
		shift := (int(f.weekday) - int(t.Weekday()) + 7) % 7
		t = t.AddDate(0, 0, shift)
	}
	return t, nil
}
