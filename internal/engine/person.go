package engine

import (
	"strings"
	"time"
)

// Person is the tracked record for one contact. Records are created by the
// import collaborator and mutated only by lifecycle transitions, exclusion
// toggling, and birthday/name edits from import sync.
//
// Optional fields use the zero value as "unset": BirthMonth/BirthDay are set
// together or not at all, BirthYear may be unknown independently, and the two
// lifecycle year markers are 0 until a cycle is resolved.
type Person struct {
	// ID is a stable unique identifier, never reused.
	ID string

	GivenName  string
	FamilyName string

	// BirthMonth and BirthDay are 1-based calendar values, or 0 when no
	// birthday is known. The pair is a single absent state: one without the
	// other is invalid.
	BirthMonth time.Month
	BirthDay   int

	// BirthYear is 0 when the year of birth is unknown.
	BirthYear int

	// CongratulatedYear records the calendar year in which the person was
	// last congratulated for an occurrence. 0 when never recorded.
	CongratulatedYear int

	// MissedYear records the calendar year in which an occurrence was last
	// marked missed. 0 when never recorded.
	MissedYear int

	// Excluded removes the person from categorization and scheduling while
	// retaining all other state.
	Excluded bool

	// Phone is carried through from import for the surrounding application.
	Phone string
}

// HasBirthday reports whether a month/day pair is set.
func (p Person) HasBirthday() bool {
	return p.BirthMonth != 0 && p.BirthDay != 0
}

// YearKnown reports whether the year of birth is recorded.
func (p Person) YearKnown() bool {
	return p.BirthYear != 0
}

// DisplayName joins the name parts, trimming stray whitespace when either
// part is empty.
func (p Person) DisplayName() string {
	return strings.TrimSpace(p.GivenName + " " + p.FamilyName)
}

// SetBirthday sets or clears the month/day pair atomically. Passing a zero
// month or day clears both, keeping the absent-pair invariant.
func (p *Person) SetBirthday(month time.Month, day, year int) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		p.BirthMonth = 0
		p.BirthDay = 0
		p.BirthYear = 0
		return
	}
	p.BirthMonth = month
	p.BirthDay = day
	p.BirthYear = year
}
