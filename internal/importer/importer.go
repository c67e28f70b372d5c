// Package importer synchronizes the person store with an external vCard
// source (a local .vcf file or a CardDAV/WebDAV endpoint).
//
// Import never touches lifecycle markers: a re-imported contact keeps its
// congratulated/missed years and its exclusion flag from the store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/google/uuid"
	"github.com/zalando/go-keyring"

	"github.com/tartampluch/birthday-keeper/internal/config"
	"github.com/tartampluch/birthday-keeper/internal/engine"
)

// PersonStore is the subset of the storage layer the importer writes to.
type PersonStore interface {
	ListPersons(ctx context.Context) ([]engine.Person, error)
	UpsertPerson(ctx context.Context, p engine.Person) error
}

// Importer converts an external contact source into store records.
type Importer struct {
	Fetcher ContactFetcher
	Store   PersonStore
}

// Sync reads the configured contact source and upserts every parseable card.
// It returns the number of persons written to the store.
func (im *Importer) Sync(ctx context.Context, src config.SourceSettings) (int, error) {
	log := slog.With(
		config.LogKeyComponent, config.CompImporter,
		config.LogKeyMode, src.Mode,
	)
	log.InfoContext(ctx, config.MsgImportStarted)
	start := time.Now()

	reader, err := im.acquireStream(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%s: %w", config.ErrVCardParse, err)
	}
	// Best effort close. Errors in Close() for read-only streams are rarely actionable here.
	defer func() { _ = reader.Close() }()

	existing, err := im.existingByID(ctx)
	if err != nil {
		return 0, err
	}

	decoder := vcard.NewDecoder(reader)
	stats := struct{ processed, withBday, imported int }{0, 0, 0}

	for {
		if ctx.Err() != nil {
			return stats.imported, ctx.Err()
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Log error but continue to next card to maximize data recovery
			log.Warn(config.MsgSkippedCard, config.LogKeyError, err)
			continue
		}
		stats.processed++

		p, hasBday := cardToPerson(card)
		if hasBday {
			stats.withBday++
		}

		// Re-imports must not reset what the user has already acted on.
		if prev, ok := existing[p.ID]; ok {
			p.CongratulatedYear = prev.CongratulatedYear
			p.MissedYear = prev.MissedYear
			p.Excluded = prev.Excluded
		}

		if err := im.Store.UpsertPerson(ctx, p); err != nil {
			log.Warn("Failed to store imported person",
				config.LogKeyPersonID, p.ID,
				config.LogKeyError, err)
			continue
		}
		stats.imported++
	}

	log.InfoContext(ctx, config.MsgImportDone,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyTotal, stats.processed),
			slog.Int(config.LogKeyFound, stats.withBday),
			slog.Int(config.LogKeyImported, stats.imported),
		),
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)
	return stats.imported, nil
}

// acquireStream opens the appropriate data source based on configuration.
func (im *Importer) acquireStream(ctx context.Context, src config.SourceSettings) (io.ReadCloser, error) {
	switch src.Mode {
	case config.SourceModeLocal:
		if src.LocalPath == "" {
			return nil, errors.New(config.ErrLocalPathEmpty)
		}
		return os.Open(src.LocalPath)
	case config.SourceModeWeb:
		if src.WebURL == "" {
			return nil, errors.New(config.ErrWebURLEmpty)
		}
		if im.Fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		return im.Fetcher.Fetch(ctx, src.WebURL, src.WebUser, lookupPassword(src.WebUser))
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrModeUnsupport, src.Mode)
	}
}

func (im *Importer) existingByID(ctx context.Context) (map[string]engine.Person, error) {
	persons, err := im.Store.ListPersons(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]engine.Person, len(persons))
	for _, p := range persons {
		byID[p.ID] = p
	}
	return byID, nil
}

// lookupPassword retrieves the web credential from the system keyring.
// Absence is not an error: some endpoints only need the username or no auth.
func lookupPassword(user string) string {
	if user == "" {
		return ""
	}
	pwd, err := keyring.Get(config.KeyringService, user)
	if err != nil {
		slog.Debug(config.MsgPassFail,
			config.LogKeyComponent, config.CompImporter,
			config.LogKeyError, err)
		return ""
	}
	return pwd
}

// cardToPerson maps a decoded vCard onto a Person. The second return value
// reports whether a parseable birthday was present.
func cardToPerson(card vcard.Card) (engine.Person, bool) {
	var p engine.Person

	// Name Strategy: N (Structured) > FN (Formatted) > Fallback
	if n := card.Get(config.VCardN); n != nil && n.Value != "" {
		// N is family;given;additional;prefix;suffix
		parts := strings.Split(n.Value, ";")
		p.FamilyName = strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			p.GivenName = strings.TrimSpace(parts[1])
		}
	} else if fn := card.Get(config.VCardFN); fn != nil {
		p.GivenName = strings.TrimSpace(fn.Value)
	}
	if p.DisplayName() == "" {
		p.GivenName = config.FallbackName
	}

	if tel := card.Get(config.VCardTEL); tel != nil {
		p.Phone = strings.TrimSpace(tel.Value)
	}

	hasBday := false
	bdayValue := ""
	if bday := card.Get(config.VCardBDAY); bday != nil && bday.Value != "" {
		bdayValue = bday.Value
		if month, day, year, err := parseDate(bday.Value); err == nil {
			p.SetBirthday(month, day, year)
			hasBday = true
		} else {
			slog.Debug(config.MsgSkippedDate,
				config.LogKeyComponent, config.CompImporter,
				config.LogKeyValue, bday.Value)
		}
	}

	p.ID = stableID(card, p.DisplayName(), bdayValue)
	return p, hasBday
}

// stableID derives an identifier that survives re-imports. The card's own UID
// wins; otherwise a deterministic UUID is hashed from the card contents.
func stableID(card vcard.Card, name, bday string) string {
	if uid := card.Get(config.VCardUID); uid != nil && uid.Value != "" {
		return uid.Value
	}
	input := fmt.Sprintf(config.FormatHashInput, name, bday, config.UIDSalt)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(input)).String()
}

// parseDate handles various vCard date formats. A zero year means the card
// carried a truncated date (year unknown).
func parseDate(value string) (time.Month, int, int, error) {
	// Full dates (Year known)
	formatsWithYear := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}
	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return t.Month(), t.Day(), t.Year(), nil
		}
	}

	// Truncated dates (Year unknown) - vCard specific
	// Safe leap year fallback so --02-29 survives normalization
	formatsWithoutYear := []string{config.DateFormatNoYearD, config.DateFormatNoYearB}
	for _, f := range formatsWithoutYear {
		if t, err := time.Parse(f, value); err == nil {
			safe := time.Date(config.DefaultLeapYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return safe.Month(), safe.Day(), 0, nil
		}
	}

	return 0, 0, 0, errors.New(config.ErrDateParse)
}
