// Package app orchestrates the activation pass: import, auto-miss, bucket
// categorization, reminder rebuilds, widget snapshots, and the published
// HTTP content. It also implements the user actions the server exposes.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tartampluch/birthday-keeper/internal/config"
	"github.com/tartampluch/birthday-keeper/internal/engine"
	"github.com/tartampluch/birthday-keeper/internal/widget"
)

// PersonStore is the persistence surface the application drives.
type PersonStore interface {
	ListPersons(ctx context.Context) ([]engine.Person, error)
	GetPerson(ctx context.Context, id string) (engine.Person, error)
	UpsertPerson(ctx context.Context, p engine.Person) error
}

// Rescheduler rebuilds and cancels reminders.
type Rescheduler interface {
	RescheduleAll(ctx context.Context, persons []engine.Person) (int, bool)
	Cancel(ctx context.Context, personID string) error
}

// Publisher receives the rendered content for serving.
type Publisher interface {
	UpdateCalendar(data []byte)
	UpdateOverview(data []byte)
	UpdateWidget(entries []widget.Entry)
}

// SnapshotStore persists the widget projection for out-of-process readers.
type SnapshotStore interface {
	Save(ctx context.Context, entries []widget.Entry) error
}

// FeedBuilder renders persons as an ICS document.
type FeedBuilder interface {
	Build(persons []engine.Person) ([]byte, int, error)
}

// Syncer pulls contacts from the configured external source.
type Syncer interface {
	Sync(ctx context.Context, src config.SourceSettings) (int, error)
}

// App wires the engine to its collaborators.
type App struct {
	Clock     engine.Clock
	Store     PersonStore
	Scheduler Rescheduler
	Feed      FeedBuilder
	Publisher Publisher
	Widget    SnapshotStore

	// Importer is optional; nil or an unconfigured source skips the
	// import step of the activation pass.
	Importer Syncer
	Settings config.Settings

	// mu serializes every person mutation. Activation passes arrive from
	// the interval ticker and the midnight cron, user actions from server
	// goroutines; an unserialized pass could write back a person snapshot
	// that predates a concurrent action and erase it.
	mu sync.Mutex
}

// Activate runs a full pass: import (best effort), auto-miss sweep,
// categorization, reminder rebuild, widget snapshot, and content publish.
func (a *App) Activate(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	log := slog.With(config.LogKeyComponent, config.CompApp)
	log.InfoContext(ctx, config.MsgActivation)
	start := time.Now()

	// Import failures must not take down the pass: the store still holds
	// the previous contact set.
	if a.Importer != nil && a.Settings.ImportConfigured() {
		if _, err := a.Importer.Sync(ctx, a.Settings.Source); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn(config.MsgImportFailed, config.LogKeyError, err)
		}
	}

	persons, err := a.Store.ListPersons(ctx)
	if err != nil {
		return err
	}

	now := a.Clock.Now()
	persons, missed, err := a.sweepAutoMiss(ctx, now, persons)
	if err != nil {
		return err
	}

	scheduled, rebuilt := a.Scheduler.RescheduleAll(ctx, persons)

	if err := a.publish(ctx, now, persons); err != nil {
		return err
	}

	log.InfoContext(ctx, config.MsgActivationDone,
		config.LogKeyCount, len(persons),
		config.LogKeyMissed, missed,
		config.LogKeyScheduled, scheduled,
		slog.Bool(config.LogKeyRebuilt, rebuilt),
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)
	return nil
}

// sweepAutoMiss finalizes entries whose pending window has lapsed.
func (a *App) sweepAutoMiss(ctx context.Context, now time.Time, persons []engine.Person) ([]engine.Person, int, error) {
	missed := 0
	for i := range persons {
		if !engine.ShouldAutoMiss(now, persons[i]) {
			continue
		}
		engine.MarkMissed(now, &persons[i])
		if err := a.Store.UpsertPerson(ctx, persons[i]); err != nil {
			return nil, missed, err
		}
		missed++
		slog.Info(config.MsgAutoMissed,
			config.LogKeyComponent, config.CompApp,
			config.LogKeyPersonID, persons[i].ID,
			config.LogKeyYear, persons[i].MissedYear,
		)
	}
	return persons, missed, nil
}

// publish renders and pushes every content surface from the same person list
// so the feed, the overview, and the widget never disagree.
func (a *App) publish(ctx context.Context, now time.Time, persons []engine.Person) error {
	overview, err := json.Marshal(buildOverview(now, persons))
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrOverviewEncode, err)
	}
	a.Publisher.UpdateOverview(overview)

	ics, _, err := a.Feed.Build(persons)
	if err != nil {
		return err
	}
	a.Publisher.UpdateCalendar(ics)

	entries := widget.Snapshot(now, persons)
	if err := a.Widget.Save(ctx, entries); err != nil {
		return err
	}
	a.Publisher.UpdateWidget(entries)
	return nil
}

// refresh republishes content and rebuilds reminders after a user action.
// It deliberately skips the import step. Callers hold mu.
func (a *App) refresh(ctx context.Context) error {
	persons, err := a.Store.ListPersons(ctx)
	if err != nil {
		return err
	}
	a.Scheduler.RescheduleAll(ctx, persons)
	return a.publish(ctx, a.Clock.Now(), persons)
}

// -----------------------------------------------------------------------------
// User Actions
// -----------------------------------------------------------------------------

// Congratulate resolves the person's current cycle as congratulated and
// cancels the now pointless reminder.
func (a *App) Congratulate(ctx context.Context, personID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, err := a.Store.GetPerson(ctx, personID)
	if err != nil {
		return err
	}
	engine.Congratulate(a.Clock.Now(), &p)
	if err := a.Store.UpsertPerson(ctx, p); err != nil {
		return err
	}
	if err := a.Scheduler.Cancel(ctx, personID); err != nil {
		slog.Warn(config.MsgCancelFailed,
			config.LogKeyComponent, config.CompApp,
			config.LogKeyPersonID, personID,
			config.LogKeyError, err,
		)
	}
	return a.refresh(ctx)
}

// Undo clears both lifecycle markers, returning the entry to pending.
func (a *App) Undo(ctx context.Context, personID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, err := a.Store.GetPerson(ctx, personID)
	if err != nil {
		return err
	}
	engine.Undo(&p)
	if err := a.Store.UpsertPerson(ctx, p); err != nil {
		return err
	}
	// refresh re-adds the reminder through the reschedule pass.
	return a.refresh(ctx)
}

// SetExcluded toggles list and reminder participation for a person.
func (a *App) SetExcluded(ctx context.Context, personID string, excluded bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, err := a.Store.GetPerson(ctx, personID)
	if err != nil {
		return err
	}
	p.Excluded = excluded
	if err := a.Store.UpsertPerson(ctx, p); err != nil {
		return err
	}
	if excluded {
		if err := a.Scheduler.Cancel(ctx, personID); err != nil {
			slog.Warn(config.MsgCancelFailed,
				config.LogKeyComponent, config.CompApp,
				config.LogKeyPersonID, personID,
				config.LogKeyError, err,
			)
		}
	}
	return a.refresh(ctx)
}
