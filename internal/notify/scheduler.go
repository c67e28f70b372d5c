// Package notify builds and maintains the local reminder set for upcoming
// birthdays. Scheduling is a best-effort bulk operation: the full set is
// rebuilt unconditionally on every pass, so a partial batch is repaired by
// the next activation.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tartampluch/birthday-keeper/internal/config"
	"github.com/tartampluch/birthday-keeper/internal/engine"
)

// TriggerKind selects the firing semantics of a reminder.
type TriggerKind int

const (
	// TriggerOneShot fires once after a short delay, non-repeating. Used when
	// the occurrence is today: a date-matching recurring trigger fires at
	// local midnight, and once that midnight has passed it would skip forward
	// a full year instead of firing today.
	TriggerOneShot TriggerKind = iota

	// TriggerYearly matches month/day at midnight and self-renews for future
	// years without rescheduling until congratulated.
	TriggerYearly
)

// Trigger describes when a reminder fires.
type Trigger struct {
	Kind  TriggerKind
	Delay time.Duration // one-shot fuse
	Month time.Month    // yearly month/day
	Day   int
}

// Reminder is one scheduling request handed to the reminder subsystem.
// PersonID correlates a delivered reminder back to its record on tap.
type Reminder struct {
	ID       string
	PersonID string
	Title    string
	Body     string
	Trigger  Trigger
}

// Sink is the narrow capability interface over the external reminder
// subsystem: best-effort add, point cancellation of pending and delivered
// copies, and bulk cancel. Injected so tests can substitute a fake.
type Sink interface {
	// Authorized reports whether reminder permission is present. The
	// scheduler assumes permission was requested separately.
	Authorized(ctx context.Context) bool
	Add(ctx context.Context, r Reminder) error
	Cancel(ctx context.Context, id string) error
	CancelAll(ctx context.Context) error
}

// Formatter produces the user-visible reminder content.
type Formatter interface {
	Title(name string) string
	Body(name string, turningAge int, ageKnown bool) string
}

// fallbackFormatter is used when no localized formatter is injected.
type fallbackFormatter struct{}

func (fallbackFormatter) Title(name string) string {
	return fmt.Sprintf(config.FallbackNotifTitle, name)
}

func (fallbackFormatter) Body(name string, turningAge int, ageKnown bool) string {
	if ageKnown {
		return fmt.Sprintf(config.FallbackNotifBody, name, turningAge)
	}
	return fmt.Sprintf(config.FallbackNotifNoAge, name)
}

// Scheduler owns the reminder lifecycle for the person collection.
type Scheduler struct {
	Clock  engine.Clock
	Sink   Sink
	Format Formatter // optional; falls back to generic strings
}

// ReminderID derives the stable identifier keying one reminder per person.
func ReminderID(personID string) string {
	return config.ReminderIDPrefix + personID
}

// RescheduleAll rebuilds the entire reminder set from scratch: cancel
// everything, select candidates, truncate to the platform ceiling, add one
// reminder per candidate. Per-item failures are logged and skipped so one
// failure cannot abort the batch. Returns the number scheduled and whether
// scheduling ran at all (false when permission is absent).
func (s *Scheduler) RescheduleAll(ctx context.Context, persons []engine.Person) (int, bool) {
	log := slog.With(config.LogKeyComponent, config.CompNotify)

	if !s.Sink.Authorized(ctx) {
		log.Info(config.MsgReminderOff)
		return 0, false
	}

	// Full rebuild, not an incremental diff.
	if err := s.Sink.CancelAll(ctx); err != nil {
		log.Warn(config.MsgReminderSkip, config.LogKeyError, err)
	}

	now := s.Clock.Now()
	candidates := selectCandidates(now, persons)

	dropped := 0
	if len(candidates) > config.MaxPendingReminders {
		dropped = len(candidates) - config.MaxPendingReminders
		candidates = candidates[:config.MaxPendingReminders]
	}

	scheduled := 0
	for _, p := range candidates {
		if err := s.Sink.Add(ctx, s.buildReminder(now, p)); err != nil {
			log.Warn(config.MsgReminderSkip,
				config.LogKeyPersonID, p.ID,
				config.LogKeyError, err,
			)
			continue
		}
		scheduled++
	}

	log.Info(config.MsgRescheduled,
		config.LogKeyScheduled, scheduled,
		config.LogKeyDropped, dropped,
	)
	return scheduled, true
}

// Cancel removes both the pending and any delivered copy of one person's
// reminder, independent of scheduling state elsewhere.
func (s *Scheduler) Cancel(ctx context.Context, personID string) error {
	return s.Sink.Cancel(ctx, ReminderID(personID))
}

// selectCandidates keeps persons with a birthday set whose upcoming
// occurrence is not yet congratulated, sorted ascending by next occurrence so
// truncation drops the farthest entries.
func selectCandidates(now time.Time, persons []engine.Person) []engine.Person {
	var out []engine.Person
	for _, p := range persons {
		if p.Excluded || !p.HasBirthday() {
			continue
		}
		if engine.CongratulatedForNext(now, p) {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := engine.NextOccurrence(now, out[i]), engine.NextOccurrence(now, out[j])
		if a.Equal(b) {
			return out[i].DisplayName() < out[j].DisplayName()
		}
		return a.Before(b)
	})
	return out
}

func (s *Scheduler) buildReminder(now time.Time, p engine.Person) Reminder {
	format := s.Format
	if format == nil {
		format = fallbackFormatter{}
	}

	trigger := Trigger{
		Kind:  TriggerYearly,
		Month: p.BirthMonth,
		Day:   p.BirthDay,
	}
	if engine.IsToday(now, p) {
		trigger = Trigger{Kind: TriggerOneShot, Delay: config.TodayReminderDelay}
	}

	name := p.DisplayName()
	turning, ageKnown := engine.TurningAge(now, p)

	return Reminder{
		ID:       ReminderID(p.ID),
		PersonID: p.ID,
		Title:    format.Title(name),
		Body:     format.Body(name, turning, ageKnown),
		Trigger:  trigger,
	}
}
