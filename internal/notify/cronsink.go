package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tartampluch/birthday-keeper/internal/config"
)

// NotifyFunc delivers one reminder to the user surface (desktop notification,
// log line, test capture).
type NotifyFunc func(r Reminder)

// formatYearlySpec builds the five-field cron expression firing at midnight
// on the given month/day every year. A Feb 29 expression only matches in
// leap years; in other years the occurrence folds onto Mar 1, where the
// midnight reschedule pass emits a same-day one-shot instead.
func formatYearlySpec(month time.Month, day int) string {
	return fmt.Sprintf("0 0 %d %d *", day, int(month))
}

// CronSink is the in-process reminder subsystem: yearly triggers ride a cron
// runner, same-day one-shots ride short timers. Delivered reminders are
// retained so point cancellation can remove them too.
type CronSink struct {
	enabled bool
	deliver NotifyFunc
	cron    *cron.Cron

	mu        sync.Mutex
	entries   map[string]cron.EntryID
	timers    map[string]*time.Timer
	delivered map[string]Reminder
}

// NewCronSink creates a sink. enabled models the reminder permission: a
// disabled sink reduces every scheduling pass to a no-op.
func NewCronSink(enabled bool, deliver NotifyFunc) *CronSink {
	return &CronSink{
		enabled:   enabled,
		deliver:   deliver,
		cron:      cron.New(),
		entries:   make(map[string]cron.EntryID),
		timers:    make(map[string]*time.Timer),
		delivered: make(map[string]Reminder),
	}
}

// Start runs the cron runner until the context is cancelled.
func (s *CronSink) Start(ctx context.Context) {
	s.cron.Start()
	go func() {
		<-ctx.Done()
		s.cron.Stop()
	}()
}

// Authorized implements Sink.
func (s *CronSink) Authorized(context.Context) bool {
	return s.enabled
}

// Add implements Sink. Re-adding an id replaces the previous registration,
// keeping one reminder per stable identifier.
func (s *CronSink) Add(_ context.Context, r Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(r.ID)

	switch r.Trigger.Kind {
	case TriggerOneShot:
		reminder := r
		s.timers[r.ID] = time.AfterFunc(r.Trigger.Delay, func() {
			s.fire(reminder)
		})
	case TriggerYearly:
		reminder := r
		id, err := s.cron.AddFunc(formatYearlySpec(r.Trigger.Month, r.Trigger.Day), func() {
			s.fire(reminder)
		})
		if err != nil {
			return fmt.Errorf("%s: %w", config.ErrCronSpecBuild, err)
		}
		s.entries[r.ID] = id
	}
	return nil
}

// Cancel implements Sink: removes the not-yet-fired registration and any
// already-delivered copy for the identifier.
func (s *CronSink) Cancel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
	delete(s.delivered, id)
	return nil
}

// CancelAll implements Sink.
func (s *CronSink) CancelAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.entries {
		s.cron.Remove(s.entries[id])
	}
	s.entries = make(map[string]cron.EntryID)
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	return nil
}

// Delivered reports whether a delivered copy of the identifier is retained.
func (s *CronSink) Delivered(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.delivered[id]
	return ok
}

// Pending returns the number of not-yet-fired registrations.
func (s *CronSink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries) + len(s.timers)
}

func (s *CronSink) removeLocked(id string) {
	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *CronSink) fire(r Reminder) {
	s.mu.Lock()
	// One-shot timers are spent; yearly entries stay registered so they
	// self-renew for future years.
	if t, ok := s.timers[r.ID]; ok {
		t.Stop()
		delete(s.timers, r.ID)
	}
	s.delivered[r.ID] = r
	s.mu.Unlock()

	slog.Info(config.MsgReminderFired,
		config.LogKeyComponent, config.CompNotify,
		config.LogKeyReminder, r.ID,
		config.LogKeyPersonID, r.PersonID,
	)
	if s.deliver != nil {
		s.deliver(r)
	}
}
