package engine

import (
	"math"
	"time"

	"github.com/tartampluch/birthday-keeper/internal/config"
)

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// wholeDays returns the whole-day difference to - from, both normalized to
// start-of-day. Rounding absorbs DST-shortened or -stretched days.
func wholeDays(from, to time.Time) int {
	return int(math.Round(StartOfDay(to).Sub(StartOfDay(from)).Hours() / 24))
}

// occurrenceInYear places the person's month/day in the given year.
// Go's time.Date normalizes Feb 29 to March 1st when the year is not a leap
// year, which is the standard calendar arithmetic we want for leaplings.
func occurrenceInYear(year int, p Person, loc *time.Location) time.Time {
	return time.Date(year, p.BirthMonth, p.BirthDay, 0, 0, 0, 0, loc)
}

// FarFuture is the "no birthday set" sentinel for NextOccurrence. It sorts
// after every real occurrence.
func FarFuture(loc *time.Location) time.Time {
	return time.Date(config.SentinelFutureYear, time.December, 31, 0, 0, 0, 0, loc)
}

// FarPast is the "no birthday set" sentinel for LastOccurrence.
func FarPast(loc *time.Location) time.Time {
	return time.Date(config.SentinelPastYear, time.January, 1, 0, 0, 0, 0, loc)
}

// NextOccurrence returns the earliest date >= start-of-today whose month/day
// matches the person's birthday. If today matches, today is returned: the
// occurrence is current, not skipped.
func NextOccurrence(today time.Time, p Person) time.Time {
	loc := today.Location()
	if !p.HasBirthday() {
		return FarFuture(loc)
	}

	todayStart := StartOfDay(today)
	candidate := occurrenceInYear(today.Year(), p, loc)
	if candidate.Before(todayStart) {
		candidate = occurrenceInYear(today.Year()+1, p, loc)
	}
	return candidate
}

// LastOccurrence returns the latest date <= start-of-today whose month/day
// matches: this year's occurrence once it has passed (or is today), last
// year's otherwise.
func LastOccurrence(today time.Time, p Person) time.Time {
	loc := today.Location()
	if !p.HasBirthday() {
		return FarPast(loc)
	}

	todayStart := StartOfDay(today)
	candidate := occurrenceInYear(today.Year(), p, loc)
	if candidate.After(todayStart) {
		candidate = occurrenceInYear(today.Year()-1, p, loc)
	}
	return candidate
}

// DaysUntil is the whole-day distance from today to the next occurrence.
// Always >= 0; 0 means the birthday is today. Without a birthday the
// far-future sentinel yields a distance larger than any real one.
func DaysUntil(today time.Time, p Person) int {
	return wholeDays(today, NextOccurrence(today, p))
}

// DaysSince is the whole-day distance from this calendar year's occurrence to
// today. Negative when this year's occurrence has not happened yet, 0 on the
// day itself, positive once it has passed. ok is false when no birthday is set.
func DaysSince(today time.Time, p Person) (days int, ok bool) {
	if !p.HasBirthday() {
		return 0, false
	}
	occ := occurrenceInYear(today.Year(), p, today.Location())
	return wholeDays(occ, today), true
}

// Age is the person's completed age as of today: the year difference,
// decremented while the birthday has not yet occurred this year, floored at 0.
// ok is false when the year of birth is unknown.
func Age(today time.Time, p Person) (age int, ok bool) {
	if !p.YearKnown() || !p.HasBirthday() {
		return 0, false
	}
	age = today.Year() - p.BirthYear
	if days, _ := DaysSince(today, p); days < 0 {
		age--
	}
	if age < 0 {
		age = 0
	}
	return age, true
}

// TurningAge is the age the person turns at the next occurrence. Unlike Age it
// always reflects the upcoming occurrence, even on the day itself.
// ok is false when the year of birth is unknown.
func TurningAge(today time.Time, p Person) (age int, ok bool) {
	if !p.YearKnown() || !p.HasBirthday() {
		return 0, false
	}
	return NextOccurrence(today, p).Year() - p.BirthYear, true
}

// IsToday reports whether this year's occurrence falls on today's date.
// Leaplings observe March 1st in non-leap years via date normalization.
func IsToday(today time.Time, p Person) bool {
	if !p.HasBirthday() {
		return false
	}
	occ := occurrenceInYear(today.Year(), p, today.Location())
	return occ.Month() == today.Month() && occ.Day() == today.Day()
}
