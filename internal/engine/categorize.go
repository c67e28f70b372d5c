package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/tartampluch/birthday-keeper/internal/config"
)

// Bucket identifies a display bucket for a single person.
type Bucket int

const (
	BucketMissedYesterday Bucket = iota
	BucketToday
	BucketUpcoming
	BucketPast
)

func (b Bucket) String() string {
	switch b {
	case BucketMissedYesterday:
		return "missed_yesterday"
	case BucketToday:
		return "today"
	case BucketPast:
		return "past"
	default:
		return "upcoming"
	}
}

// Buckets partitions the non-excluded person collection into four disjoint
// display groups.
type Buckets struct {
	MissedYesterday []Person
	Today           []Person
	Upcoming        []Person
	Past            []Person
}

// Categorize assigns every non-excluded person to exactly one bucket, in
// precedence order: MissedYesterday, Today, Past, then Upcoming as the
// fallback. Upcoming is sorted ascending by next occurrence (birthdayless
// entries sort last via the far-future sentinel), Past ascending by days
// since the last occurrence.
func Categorize(today time.Time, persons []Person) Buckets {
	var b Buckets
	for _, p := range persons {
		if p.Excluded {
			continue
		}
		switch {
		case IsMissedYesterday(today, p):
			b.MissedYesterday = append(b.MissedYesterday, p)
		case IsToday(today, p) && StateOf(today, p) == StatePending:
			b.Today = append(b.Today, p)
		case inPastBucket(today, p):
			b.Past = append(b.Past, p)
		default:
			b.Upcoming = append(b.Upcoming, p)
		}
	}

	sortByNextOccurrence(today, b.Upcoming)

	sort.SliceStable(b.Past, func(i, j int) bool {
		return daysSinceLast(today, b.Past[i]) < daysSinceLast(today, b.Past[j])
	})

	return b
}

// inPastBucket holds for entries whose most recent occurrence was resolved
// (congratulated or missed), as long as it is still recent. The day-count
// fallback keeps a December entry visible after the calendar flips to
// January, when the occurrence year no longer matches the current year.
func inPastBucket(today time.Time, p Person) bool {
	lastYear := LastOccurrence(today, p).Year()
	resolved := (p.CongratulatedYear != 0 && p.CongratulatedYear == lastYear) ||
		(p.MissedYear != 0 && p.MissedYear == lastYear)
	if !resolved {
		return false
	}
	return lastYear == today.Year() || daysSinceLast(today, p) <= config.PastWindowDays
}

// daysSinceLast is the whole-day distance from the last occurrence to today.
// Always >= 0 for persons with a birthday set.
func daysSinceLast(today time.Time, p Person) int {
	return wholeDays(LastOccurrence(today, p), today)
}

// DisplayState resolves a single person's bucket outside the grouped list
// (search results, calendar day views). It applies the same precedence but
// substitutes "occurrence already passed this year" for the Past predicate,
// since no congratulated/missed context is available, and defaults to
// Upcoming when no birthday is set at all.
func DisplayState(today time.Time, p Person) Bucket {
	if !p.HasBirthday() {
		return BucketUpcoming
	}
	switch {
	case IsMissedYesterday(today, p):
		return BucketMissedYesterday
	case IsToday(today, p) && StateOf(today, p) == StatePending:
		return BucketToday
	default:
		if days, ok := DaysSince(today, p); ok && days > 0 {
			return BucketPast
		}
		return BucketUpcoming
	}
}

// FilterByQuery returns the persons whose full name contains the query,
// case-insensitively. An empty query returns the input unmodified with order
// preserved; any other query re-sorts matches ascending by next occurrence.
func FilterByQuery(today time.Time, query string, persons []Person) []Person {
	if query == "" {
		return persons
	}

	needle := strings.ToLower(query)
	var matches []Person
	for _, p := range persons {
		if strings.Contains(strings.ToLower(p.DisplayName()), needle) {
			matches = append(matches, p)
		}
	}

	sortByNextOccurrence(today, matches)
	return matches
}

// sortByNextOccurrence orders persons ascending by next occurrence with the
// display name as the secondary key, matching the list view ordering.
func sortByNextOccurrence(today time.Time, persons []Person) {
	sort.SliceStable(persons, func(i, j int) bool {
		a, b := NextOccurrence(today, persons[i]), NextOccurrence(today, persons[j])
		if a.Equal(b) {
			return persons[i].DisplayName() < persons[j].DisplayName()
		}
		return a.Before(b)
	})
}
