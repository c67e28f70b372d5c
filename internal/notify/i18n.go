package notify

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/tartampluch/birthday-keeper/internal/config"
)

//go:embed locales/*.json
var localeFS embed.FS

// Localization wraps the translation bundle for reminder and feed content.
// It implements Formatter.
type Localization struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer

	// Languages lists the locale codes detected in the embedded files.
	Languages []string
}

// NewLocalization loads the embedded locale files and selects lang.
func NewLocalization(lang string) *Localization {
	l := &Localization{}
	l.bundle = i18n.NewBundle(language.English)
	l.bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
		return l
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := l.bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}

		l.Languages = append(l.Languages, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
			config.LogKeyFile, name,
		)
	}

	l.SetLanguage(lang)
	return l
}

// SetLanguage switches the active localizer.
func (l *Localization) SetLanguage(lang string) {
	if lang == "" {
		lang = config.DefaultLanguage
	}
	l.localizer = i18n.NewLocalizer(l.bundle, lang)
}

// msg translates a key with template data, returning ok=false when the key
// cannot be resolved so callers can fall back.
func (l *Localization) msg(key string, data map[string]any) (string, bool) {
	if l.localizer == nil {
		return "", false
	}
	out, err := l.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
		return "", false
	}
	return out, true
}

// Title implements Formatter.
func (l *Localization) Title(name string) string {
	if out, ok := l.msg(config.TKeyNotifTitle, map[string]any{"Name": name}); ok {
		return out
	}
	return fmt.Sprintf(config.FallbackNotifTitle, name)
}

// Body implements Formatter.
func (l *Localization) Body(name string, turningAge int, ageKnown bool) string {
	if ageKnown {
		if out, ok := l.msg(config.TKeyNotifBodyAge, map[string]any{"Name": name, "Age": turningAge}); ok {
			return out
		}
		return fmt.Sprintf(config.FallbackNotifBody, name, turningAge)
	}
	if out, ok := l.msg(config.TKeyNotifBodyGeneric, map[string]any{"Name": name}); ok {
		return out
	}
	return fmt.Sprintf(config.FallbackNotifNoAge, name)
}

// EventSummary renders the calendar feed summary line for an occurrence.
func (l *Localization) EventSummary(name string, age int, ageKnown bool) string {
	switch {
	case ageKnown && age == 0:
		if out, ok := l.msg(config.TKeyEvtSummaryBirth, map[string]any{"Name": name}); ok {
			return out
		}
	case ageKnown:
		if out, ok := l.msg(config.TKeyEvtSummaryAge, map[string]any{"Name": name, "Age": age}); ok {
			return out
		}
	default:
		if out, ok := l.msg(config.TKeyEvtSummary, map[string]any{"Name": name}); ok {
			return out
		}
	}
	return fmt.Sprintf(config.FallbackSummary, name)
}
