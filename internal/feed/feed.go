// Package feed renders the person list as an iCalendar document suitable
// for subscription by external calendar clients.
package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"

	"github.com/tartampluch/birthday-keeper/internal/config"
	"github.com/tartampluch/birthday-keeper/internal/engine"
)

// SummaryFormatter produces the localized event summary line.
// ageKnown is false when the person's birth year is unknown.
type SummaryFormatter func(name string, age int, ageKnown bool) string

// Builder converts persons into an ICS byte stream.
type Builder struct {
	Clock engine.Clock

	// Format injects localized summaries. Nil falls back to an English label.
	Format SummaryFormatter

	// AlarmTrigger is the ISO8601 alarm offset added to every event.
	// Empty disables alarms.
	AlarmTrigger string
}

// Build renders the calendar for the given persons. Excluded persons and
// persons without a birthday are left out. It returns the ICS bytes and the
// number of events falling on today's date.
func (b *Builder) Build(persons []engine.Person) ([]byte, int, error) {
	cal := ical.NewCalendar()

	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	// RFC 7986: Suggest a refresh interval
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	// Local time drives the event dates. Birthdays are defined by the local
	// calendar date of the person, not an absolute UTC timestamp. Only the
	// stamp is in UTC.
	now := b.Clock.Now()
	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	today := 0
	for _, p := range persons {
		if p.Excluded || !p.HasBirthday() {
			continue
		}
		events, isToday := b.createEvents(p, now)
		if isToday {
			today++
			slog.Info(config.MsgBdayToday,
				config.LogKeyComponent, config.CompFeed,
				config.LogKeyName, p.DisplayName())
		}
		for _, e := range events {
			e.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, e.Component)
		}
	}

	// An empty calendar body is invalid ICS. Serve a stub so subscribed
	// clients never flag the feed.
	if len(cal.Children) == 0 {
		return []byte(config.StubVCalendar), today, nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	slog.Info(config.MsgFeedGenerated,
		config.LogKeyComponent, config.CompFeed,
		config.LogKeyCount, len(cal.Children),
		config.LogKeyToday, today,
	)
	return buf.Bytes(), today, nil
}

// createEvents generates events for the previous, current, and next year so
// calendar clients can scroll in either direction without a re-sync.
// No event is created before the person was born.
func (b *Builder) createEvents(p engine.Person, now time.Time) ([]*ical.Event, bool) {
	currentYear := now.Year()
	targetYears := []int{currentYear - 1, currentYear, currentYear + 1}
	loc := now.Location()

	var events []*ical.Event
	isToday := false

	todayYear, todayMonth, todayDay := now.Date()
	name := p.DisplayName()

	for _, y := range targetYears {
		if p.YearKnown() && y < p.BirthYear {
			continue
		}

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, p.ID, y, config.ICalDomain))

		age := 0
		if p.YearKnown() {
			age = y - p.BirthYear
		}

		summary := fmt.Sprintf(config.FallbackSummary, name)
		if b.Format != nil {
			summary = b.Format(name, age, p.YearKnown())
		}
		event.Props.SetText(config.PropSummary, summary)

		// time.Date folds Feb 29 onto March 1 in non-leap years.
		eventDate := time.Date(y, p.BirthMonth, p.BirthDay, 0, 0, 0, 0, loc)

		if y == todayYear && eventDate.Month() == todayMonth && eventDate.Day() == todayDay {
			isToday = true
		}

		dtStartProp := ical.NewProp(config.PropDTStart)
		dtStartProp.SetDate(eventDate)
		event.Props.Set(dtStartProp)

		if b.AlarmTrigger != "" {
			addAlarm(event, b.AlarmTrigger, summary)
		}

		events = append(events, event)
	}
	return events, isToday
}

// addAlarm appends a DISPLAY alarm (notification) to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set trigger manually to avoid "VALUE=TEXT" param
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}
