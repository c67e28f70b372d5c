package engine

import (
	"time"

	"github.com/tartampluch/birthday-keeper/internal/config"
)

// State is the per-cycle lifecycle state of a person. It is derived from the
// two year markers compared against the year of the relevant occurrence, never
// stored, so it cannot drift out of sync with the marker fields.
type State int

const (
	StatePending State = iota
	StateCongratulated
	StateMissed
)

func (s State) String() string {
	switch s {
	case StateCongratulated:
		return "congratulated"
	case StateMissed:
		return "missed"
	default:
		return "pending"
	}
}

// StateOf derives the lifecycle state for the most recent occurrence.
// Comparing against the last occurrence's year keeps a January check of a
// December occurrence reading correctly across the year boundary. When both
// markers are set, congratulated takes precedence.
func StateOf(today time.Time, p Person) State {
	last := LastOccurrence(today, p)
	if p.CongratulatedYear != 0 && p.CongratulatedYear == last.Year() {
		return StateCongratulated
	}
	if p.MissedYear != 0 && p.MissedYear == last.Year() {
		return StateMissed
	}
	return StatePending
}

// CongratulatedForNext reports whether the upcoming occurrence has already
// been congratulated. On the day itself next and last occurrence coincide, so
// a same-day congratulation is covered by both views.
func CongratulatedForNext(today time.Time, p Person) bool {
	if p.CongratulatedYear == 0 {
		return false
	}
	return p.CongratulatedYear == NextOccurrence(today, p).Year()
}

// IsMissedYesterday is a transient one-day query window: the occurrence was
// exactly yesterday and the cycle is still unresolved. Entries in this window
// are about to be auto-marked Missed.
func IsMissedYesterday(today time.Time, p Person) bool {
	days, ok := DaysSince(today, p)
	if !ok || days != config.MissedYesterdayDays {
		return false
	}
	return StateOf(today, p) == StatePending
}

// ShouldAutoMiss reports whether the automatic miss-detector fires for this
// person: unresolved cycle and the calendar-year occurrence passed at least
// two whole days ago. Evaluated once per foreground activation.
//
// daysSince is calendar-year relative, so a Dec 31 occurrence checked on
// Jan 1-2 reads as far negative and is deliberately not auto-missed; the
// year-boundary choice is documented in DESIGN.md.
func ShouldAutoMiss(today time.Time, p Person) bool {
	days, ok := DaysSince(today, p)
	if !ok || days < config.AutoMissDays {
		return false
	}
	return StateOf(today, p) == StatePending
}

// Congratulate records the congratulation for the person's current cycle.
// Marking on the day or within the missed-yesterday window records the
// current calendar year; retroactively resolving an older entry records the
// year of its last occurrence. Total: never fails.
func Congratulate(today time.Time, p *Person) {
	year := today.Year()
	if p.HasBirthday() && !IsToday(today, *p) && !IsMissedYesterday(today, *p) {
		year = LastOccurrence(today, *p).Year()
	}
	p.CongratulatedYear = year
}

// MarkMissed records the missed marker for the current calendar year's
// occurrence. Driven by ShouldAutoMiss, where the occurrence year and the
// calendar year coincide.
func MarkMissed(today time.Time, p *Person) {
	p.MissedYear = today.Year()
}

// Undo clears both lifecycle markers, returning the person to Pending for the
// current cycle.
func Undo(p *Person) {
	p.CongratulatedYear = 0
	p.MissedYear = 0
}
