package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// Settings holds the user-editable runtime configuration, loaded from a YAML
// file. Zero values fall back to the defaults defined in this package.
type Settings struct {
	// DataDir overrides the platform data directory (database, widget store).
	DataDir string `yaml:"data_dir,omitempty"`

	// ServerPort is the local HTTP port serving the feed and the API.
	ServerPort string `yaml:"server_port,omitempty"`

	// RefreshMinutes is the interval between background activation passes.
	// 0 disables the interval worker (the midnight trigger still runs).
	RefreshMinutes int `yaml:"refresh_minutes"`

	// Language selects the notification/feed language (ISO 639-1).
	Language string `yaml:"language,omitempty"`

	// RemindersEnabled models the reminder permission: when false, scheduling
	// passes are a no-op.
	RemindersEnabled bool `yaml:"reminders_enabled"`

	// Source configures the optional contact import collaborator.
	Source SourceSettings `yaml:"source"`
}

// SourceSettings configures where contact data is imported from.
type SourceSettings struct {
	// Mode is SourceModeLocal or SourceModeWeb. Empty disables import.
	Mode string `yaml:"mode,omitempty"`

	// LocalPath is the absolute path to a .vcf file (local mode).
	LocalPath string `yaml:"local_path,omitempty"`

	// WebURL is the CardDAV/WebDAV address (web mode). The password is looked
	// up in the system keyring, never stored in this file.
	WebURL  string `yaml:"web_url,omitempty"`
	WebUser string `yaml:"web_user,omitempty"`
}

// DefaultSettings returns a Settings populated with package defaults.
func DefaultSettings() Settings {
	return Settings{
		ServerPort:       DefaultPort,
		RefreshMinutes:   DefaultRefreshMin,
		Language:         DefaultLanguage,
		RemindersEnabled: true,
	}
}

// LoadSettings reads and validates the YAML settings file at path.
// A missing file is not an error: defaults are returned so the application
// can start unconfigured.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("%s: %w", ErrSettingsRead, err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("%s: %w", ErrSettingsParse, err)
	}

	s.applyDefaults()
	if err := s.validate(); err != nil {
		return DefaultSettings(), err
	}

	slog.Debug(MsgSettingsLoaded,
		LogKeyComponent, CompSettings,
		LogKeyFile, path,
		LogKeyPort, s.ServerPort,
		LogKeyMode, s.Source.Mode,
	)
	return s, nil
}

func (s *Settings) applyDefaults() {
	if s.ServerPort == "" {
		s.ServerPort = DefaultPort
	}
	if s.Language == "" || !slices.Contains(SupportedLanguages, s.Language) {
		s.Language = DefaultLanguage
	}
	if s.RefreshMinutes < 0 {
		s.RefreshMinutes = DefaultRefreshMin
	}
}

func (s *Settings) validate() error {
	port, err := strconv.Atoi(s.ServerPort)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrPortRequired, err)
	}
	if port < MinPort || port > MaxPort {
		return errors.New(ErrPortRange)
	}

	switch s.Source.Mode {
	case "", SourceModeLocal, SourceModeWeb:
	default:
		return fmt.Errorf("%s: %q", ErrModeUnsupport, s.Source.Mode)
	}

	if s.Source.Mode == SourceModeLocal && s.Source.LocalPath != "" {
		switch strings.ToLower(filepath.Ext(s.Source.LocalPath)) {
		case ExtVCF, ExtVCard:
		default:
			return fmt.Errorf("%s: %q", ErrLocalPathExt, s.Source.LocalPath)
		}
	}
	return nil
}

// RefreshInterval converts the configured minutes into a worker interval.
// Zero disables the interval trigger (the midnight trigger still runs).
func (s *Settings) RefreshInterval() time.Duration {
	if s.RefreshMinutes <= DisabledInterval {
		return 0
	}
	return time.Duration(s.RefreshMinutes) * time.Minute
}

// ImportConfigured reports whether a contact source is set up.
func (s *Settings) ImportConfigured() bool {
	switch s.Source.Mode {
	case SourceModeLocal:
		return s.Source.LocalPath != ""
	case SourceModeWeb:
		return s.Source.WebURL != ""
	default:
		return false
	}
}
