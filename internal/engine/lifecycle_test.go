package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateOf(t *testing.T) {
	// Reference "Now": June 15th, 2025.
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		person Person
		want   State
	}{
		{
			name:   "Unresolved cycle",
			person: personMD(time.June, 1),
			want:   StatePending,
		},
		{
			name: "Congratulated this year",
			person: func() Person {
				p := personMD(time.June, 1)
				p.CongratulatedYear = 2025
				return p
			}(),
			want: StateCongratulated,
		},
		{
			name: "Missed this year",
			person: func() Person {
				p := personMD(time.June, 1)
				p.MissedYear = 2025
				return p
			}(),
			want: StateMissed,
		},
		{
			name: "Congratulated takes precedence over missed",
			person: func() Person {
				p := personMD(time.June, 1)
				p.CongratulatedYear = 2025
				p.MissedYear = 2025
				return p
			}(),
			want: StateCongratulated,
		},
		{
			name: "Stale marker from a previous cycle reads as pending",
			person: func() Person {
				p := personMD(time.June, 1)
				p.CongratulatedYear = 2024
				return p
			}(),
			want: StatePending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateOf(now, tt.person))
		})
	}
}

// TestStateOf_YearRollover checks the rolling-year comparison: a December
// occurrence congratulated in December must still read as resolved when
// checked the following January.
func TestStateOf_YearRollover(t *testing.T) {
	p := personMD(time.December, 20)
	p.CongratulatedYear = 2024

	january := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, StateCongratulated, StateOf(january, p))

	// Once the next December occurrence passes unmarked, the old marker no
	// longer matches the last occurrence year.
	nextYear := time.Date(2025, 12, 25, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, StatePending, StateOf(nextYear, p))
}

func TestCongratulatedForNext(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	// Congratulated for last year's occurrence: the upcoming cycle is open.
	p := personMD(time.December, 31)
	p.CongratulatedYear = 2024
	assert.False(t, CongratulatedForNext(now, p))

	// Congratulated on the day itself: next and last occurrence coincide.
	today := personMD(time.June, 15)
	today.CongratulatedYear = 2025
	assert.True(t, CongratulatedForNext(now, today))

	// December entry congratulated in December, checked in January: the next
	// occurrence is the following December and is not yet resolved.
	dec := personMD(time.December, 20)
	dec.CongratulatedYear = 2024
	january := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	assert.False(t, CongratulatedForNext(january, dec))
}

// TestScenario_MissedYesterday pins the one-day window: birthday
// March 8th, checked March 9th, unresolved.
func TestScenario_MissedYesterday(t *testing.T) {
	p := personMD(time.March, 8)
	now := time.Date(2025, 3, 9, 7, 0, 0, 0, time.UTC)

	since, ok := DaysSince(now, p)
	assert.True(t, ok)
	assert.Equal(t, 1, since)
	assert.True(t, IsMissedYesterday(now, p))

	// The window closes once the cycle is resolved.
	p.CongratulatedYear = 2025
	assert.False(t, IsMissedYesterday(now, p))
}

func TestShouldAutoMiss(t *testing.T) {
	tests := []struct {
		name   string
		person Person
		now    time.Time
		want   bool
	}{
		{
			name:   "Two days after occurrence",
			person: personMD(time.March, 8),
			now:    time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
			want:   true,
		},
		{
			name:   "One day after is the missed-yesterday window, not a miss",
			person: personMD(time.March, 8),
			now:    time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC),
			want:   false,
		},
		{
			name: "Already congratulated",
			person: func() Person {
				p := personMD(time.March, 8)
				p.CongratulatedYear = 2025
				return p
			}(),
			now:  time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
			want: false,
		},
		{
			name: "Already missed",
			person: func() Person {
				p := personMD(time.March, 8)
				p.MissedYear = 2025
				return p
			}(),
			now:  time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
			want: false,
		},
		{
			name:   "No birthday set",
			person: Person{},
			now:    time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
			want:   false,
		},
		{
			name:   "Dec 31 occurrence checked Jan 2 is calendar-year relative",
			person: personMD(time.December, 31),
			now:    time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldAutoMiss(tt.now, tt.person))
		})
	}
}

func TestCongratulate_YearSelection(t *testing.T) {
	tests := []struct {
		name     string
		person   Person
		now      time.Time
		wantYear int
	}{
		{
			name:     "Marking on the day records the current year",
			person:   personMD(time.June, 15),
			now:      time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
			wantYear: 2025,
		},
		{
			name:     "Marking within the missed-yesterday window records the current year",
			person:   personMD(time.June, 14),
			now:      time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
			wantYear: 2025,
		},
		{
			name:     "Retroactive December entry marked in January records the occurrence year",
			person:   personMD(time.December, 20),
			now:      time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC),
			wantYear: 2024,
		},
		{
			name:     "No birthday falls back to the current year",
			person:   Person{},
			now:      time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
			wantYear: 2025,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.person
			Congratulate(tt.now, &p)
			assert.Equal(t, tt.wantYear, p.CongratulatedYear)
		})
	}
}

func TestUndo_ClearsBothMarkers(t *testing.T) {
	p := personMD(time.March, 8)
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	MarkMissed(now, &p)
	assert.Equal(t, 2025, p.MissedYear)
	assert.Equal(t, StateMissed, StateOf(now, p))

	Congratulate(now, &p)
	assert.Equal(t, StateCongratulated, StateOf(now, p), "congratulated wins over missed")

	Undo(&p)
	assert.Zero(t, p.CongratulatedYear)
	assert.Zero(t, p.MissedYear)
	assert.Equal(t, StatePending, StateOf(now, p))
}
