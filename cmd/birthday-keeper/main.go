package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/tartampluch/birthday-keeper/internal/app"
	"github.com/tartampluch/birthday-keeper/internal/config"
	"github.com/tartampluch/birthday-keeper/internal/engine"
	"github.com/tartampluch/birthday-keeper/internal/feed"
	"github.com/tartampluch/birthday-keeper/internal/importer"
	"github.com/tartampluch/birthday-keeper/internal/notify"
	"github.com/tartampluch/birthday-keeper/internal/server"
	"github.com/tartampluch/birthday-keeper/internal/storage"
	"github.com/tartampluch/birthday-keeper/internal/widget"
)

// main is the application entry point.
// It delegates execution to runMain to ensure that deferred function calls
// (like closing log files) are executed before the process terminates.
// os.Exit() does not run defers, so we must return an integer code first.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
// Returns config.ExitCodeSuccess on success, config.ExitCodeError on failure.
func runMain() int {
	// -------------------------------------------------------------------------
	// 1. CLI Argument Parsing
	// -------------------------------------------------------------------------
	showVersion := flag.Bool(config.FlagVersion, false, config.FlagDescVersion)
	debugMode := flag.Bool(config.FlagDebug, false, config.FlagDescDebug)
	settingsPath := flag.String(config.FlagConfig, "", config.FlagDescConfig)
	flag.Parse()

	if *showVersion {
		printVersion()
		return config.ExitCodeSuccess
	}

	// -------------------------------------------------------------------------
	// 2. Logging Initialization
	// -------------------------------------------------------------------------
	// We configure structured logging (slog) early to capture startup issues.
	logCloser := setupLogging(*debugMode)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close() // Best effort close
		}()
	}

	// -------------------------------------------------------------------------
	// 3. Context & Signal Handling
	// -------------------------------------------------------------------------
	// Create a root context that cancels on SIGINT (Ctrl+C) or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo()

	// -------------------------------------------------------------------------
	// 4. Application Logic
	// -------------------------------------------------------------------------
	if err := run(ctx, *settingsPath); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// run loads settings, wires dependencies, and keeps the worker and the HTTP
// server alive until the context is cancelled.
func run(ctx context.Context, settingsPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if settingsPath == "" {
		p, err := defaultSettingsPath()
		if err != nil {
			return err
		}
		settingsPath = p
	}

	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return err
	}

	dataDir, err := resolveDataDir(settings)
	if err != nil {
		return err
	}

	store, err := storage.Open(filepath.Join(dataDir, config.DatabaseFileName))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	// Dependency Injection.
	clock := engine.RealClock{}
	loc := notify.NewLocalization(settings.Language)

	sink := notify.NewCronSink(settings.RemindersEnabled, nil)
	sink.Start(ctx)

	scheduler := &notify.Scheduler{
		Clock:  clock,
		Sink:   sink,
		Format: loc,
	}

	application := &app.App{
		Clock:     clock,
		Store:     store,
		Scheduler: scheduler,
		Feed: &feed.Builder{
			Clock:        clock,
			Format:       loc.EventSummary,
			AlarmTrigger: config.DefaultAlarmTrigger,
		},
		Widget:   widget.NewStore(store),
		Settings: settings,
	}
	if settings.ImportConfigured() {
		application.Importer = &importer.Importer{
			Fetcher: importer.NewHTTPFetcher(),
			Store:   store,
		}
	}

	srv := server.New(settings.ServerPort, application)
	application.Publisher = srv

	worker := &app.Worker{
		App:      application,
		Interval: settings.RefreshInterval(),
	}

	// Both loops block until ctx is cancelled. The first hard failure tears
	// the other one down.
	errCh := make(chan error, 2)
	go func() { errCh <- srv.Start(ctx) }()
	go func() { errCh <- worker.Run(ctx) }()

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) && firstErr == nil {
			firstErr = err
			cancel()
		}
	}
	return firstErr
}

// resolveDataDir returns the directory holding the database, creating it if
// needed. An explicit setting wins over the platform default.
func resolveDataDir(settings config.Settings) (string, error) {
	dir := settings.DataDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("%s: %w", config.ErrDataDir, err)
		}
		dir = filepath.Join(base, config.AppID)
	}
	if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}
	return dir, nil
}

func defaultSettingsPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrDataDir, err)
	}
	return filepath.Join(base, config.AppID, config.SettingsFileName), nil
}

// printVersion outputs the build information to stdout and exits.
func printVersion() {
	fmt.Printf(config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger.
func setupLogging(debugMode bool) io.Closer {
	var writers []io.Writer
	var logFile *os.File

	// 1. Always write to Stdout.
	writers = append(writers, os.Stdout)

	// 2. Attempt to set up a file writer in the user's cache directory.
	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)

	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}
