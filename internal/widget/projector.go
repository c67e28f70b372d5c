// Package widget derives forward-dated display views from a stored snapshot.
//
// A passive display surface only periodically observes live data: the host
// writes one snapshot at activation time, and the projector re-derives a week
// of future views from it without re-querying the underlying dataset.
package widget

import (
	"sort"
	"time"

	"github.com/tartampluch/birthday-keeper/internal/config"
	"github.com/tartampluch/birthday-keeper/internal/engine"
)

// Entry is the ephemeral, denormalized projection record. It carries no
// back-reference to the person beyond the correlation id.
type Entry struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DaysUntil       int    `json:"days_until"`
	IsBirthdayToday bool   `json:"is_birthday_today"`
	DateLabel       string `json:"date_label"`
}

// Snapshot builds the stored projection records from live person state.
// Excluded and birthdayless persons are skipped; the result is ordered
// ascending by daysUntil so the nearest entries come first.
func Snapshot(today time.Time, persons []engine.Person) []Entry {
	eligible := make([]engine.Person, 0, len(persons))
	for _, p := range persons {
		if p.Excluded || !p.HasBirthday() {
			continue
		}
		eligible = append(eligible, p)
	}

	entries := make([]Entry, 0, len(eligible))
	for _, p := range eligible {
		next := engine.NextOccurrence(today, p)
		entries = append(entries, Entry{
			ID:              p.ID,
			Name:            p.DisplayName(),
			DaysUntil:       engine.DaysUntil(today, p),
			IsBirthdayToday: engine.IsToday(today, p),
			DateLabel:       next.Format(config.DateLabelFormat),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DaysUntil < entries[j].DaysUntil
	})
	return entries
}

// Project re-derives the view dayOffset days ahead of the snapshot's capture
// date. Each record's distance shrinks by the offset; records outside the
// [0, 7] display horizon are dropped. Offset 0 is the identity transform for
// records already within the horizon.
func Project(stored []Entry, dayOffset int) []Entry {
	var out []Entry
	for _, e := range stored {
		adjusted := e.DaysUntil - dayOffset
		if adjusted < 0 || adjusted > config.WidgetHorizonDays {
			continue
		}
		e.DaysUntil = adjusted
		e.IsBirthdayToday = adjusted == 0
		out = append(out, e)
	}
	return out
}

// Nearest returns all entries sharing the smallest DaysUntil.
func Nearest(entries []Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}
	min := entries[0].DaysUntil
	for _, e := range entries[1:] {
		if e.DaysUntil < min {
			min = e.DaysUntil
		}
	}
	var out []Entry
	for _, e := range entries {
		if e.DaysUntil == min {
			out = append(out, e)
		}
	}
	return out
}

// SectionLabel picks the header for the nearest group.
func SectionLabel(nearest []Entry) string {
	if len(nearest) == 0 {
		return config.WidgetLabelNone
	}
	if nearest[0].IsBirthdayToday {
		return config.WidgetLabelBirthday
	}
	return config.WidgetLabelUpcoming
}
