package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Birthday-Keeper/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Birthday Keeper"
	AppID             = "com.github.tartampluch.birthday-keeper"
	KeyringService    = "com.github.tartampluch.birthday-keeper"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	DatabaseFileName  = "keeper.db"
	SettingsFileName  = "settings.yaml"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for sensitive files like logs and the database.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	// Used for creating secure data directories.
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion      = "version"
	FlagDebug        = "debug"
	FlagConfig       = "config"
	FlagDescVersion  = "Show application version and exit"
	FlagDescDebug    = "Enable debug logging to stdout"
	FlagDescConfig   = "Path to the YAML settings file"
	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// Settings Defaults
// -----------------------------------------------------------------------------

const (
	SourceModeWeb   = "web"
	SourceModeLocal = "local"

	DefaultPort       = "18080"
	DefaultRefreshMin = 60
	DefaultLanguage   = "en"
	DefaultLeapYear   = 2000 // Leap year fallback for dates like --02-29
	DisabledInterval  = 0

	// MidnightCronSpec forces a lifecycle pass right after the local date flips.
	MidnightCronSpec = "0 0 * * *"
)

// SupportedLanguages defines the list of available notification languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// -----------------------------------------------------------------------------
// Lifecycle & Scheduling Limits
// -----------------------------------------------------------------------------

const (
	// MaxPendingReminders is the platform ceiling on concurrently scheduled
	// local reminders. Candidates beyond this count are dropped, farthest first.
	MaxPendingReminders = 64

	// AutoMissDays is the number of whole days after an occurrence at which an
	// unresolved entry is automatically marked Missed.
	AutoMissDays = 2

	// MissedYesterdayDays is the exact daysSince value for the transient
	// "missed yesterday" window.
	MissedYesterdayDays = 1

	// PastWindowDays keeps recently resolved entries visible in the Past
	// bucket across the New Year boundary, when the occurrence year no longer
	// matches the current calendar year.
	PastWindowDays = 45

	// WidgetHorizonDays is the inclusive upper bound on adjusted daysUntil for
	// widget projection entries.
	WidgetHorizonDays = 7

	// TodayReminderDelay is the short fuse used for same-day reminders. A
	// month/day recurring trigger fires at local midnight; once that midnight
	// has passed, such a trigger would skip a full year instead of firing today.
	TodayReminderDelay = 2 * time.Second

	// SentinelFutureYear and SentinelPastYear anchor the "no birthday set"
	// sentinels used for sorting: infinitely far in the future / past.
	SentinelFutureYear = 9999
	SentinelPastYear   = 1

	// ReminderIDPrefix keys one reminder per person for point cancellation.
	ReminderIDPrefix = "birthday-"
)

// -----------------------------------------------------------------------------
// Widget Projection Store
// -----------------------------------------------------------------------------

const (
	WidgetStoreNamespace = "widget"
	WidgetStoreKey       = "projection"

	WidgetLabelNone     = "None this week"
	WidgetLabelBirthday = "Birthday"
	WidgetLabelUpcoming = "Upcoming"

	// DateLabelFormat is the preformatted month/day label (e.g. "Jun 15").
	DateLabelFormat = "Jan 2"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyNotifTitle       = "notif_title"
	TKeyNotifBodyAge     = "notif_body_age"
	TKeyNotifBodyGeneric = "notif_body_generic"
	TKeyEvtSummary       = "event_summary"
	TKeyEvtSummaryAge    = "event_summary_age"
	TKeyEvtSummaryBirth  = "event_summary_birth"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//Birthday Keeper//Feed//EN"
	ICalCalName   = "Birthdays"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "birthdaykeeper"

	// iCal/vCard Fields
	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	VCardBDAY = "BDAY"
	VCardFN   = "FN"
	VCardN    = "N"
	VCardUID  = "UID"
	VCardTEL  = "TEL"

	DefaultICalRefresh = 1 * time.Hour

	// DefaultAlarmTrigger is the ISO8601 offset for feed alarms (one day before).
	DefaultAlarmTrigger = "-P1D"
)

// -----------------------------------------------------------------------------
// Data Formats, Limits & File Extensions
// -----------------------------------------------------------------------------

const (
	// Date layouts used for parsing vCard BDAY fields
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	// Limits
	MinPort = 1
	MaxPort = 65535

	// UID Generation
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s-%d@%s"
	UIDSalt         = "birthday-keeper-v1-"

	// File Extensions
	ExtVCF   = ".vcf"
	ExtVCard = ".vcard"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethodsRead  = "GET, HEAD"
	AllowedMethodsWrite = "POST"
	MaxHTTPResponseSize = 256 * 1024 * 1024 // 256MB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	AddrSeparator       = ":"

	// Routes
	RouteFeed         = "/feed.ics"
	RouteOverview     = "/api/overview"
	RouteWidget       = "/api/widget"
	RouteCongratulate = "/api/congratulate"
	RouteUndo         = "/api/undo"
	RouteExclude      = "/api/exclude"

	// Query / form parameters
	ParamPersonID = "id"
	ParamOffset   = "offset"
	ParamExcluded = "excluded"
	ParamQuery    = "q"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeApplicationJSON = "application/json; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrLocalPathEmpty  = "configuration error: local path is empty"
	ErrWebURLEmpty     = "configuration error: web URL is empty"
	ErrFetcherMissing  = "internal error: network fetcher is not initialized"
	ErrModeUnsupport   = "configuration error: unsupported source mode"
	ErrServerStartup   = "server startup failed"
	ErrServerShutdown  = "server shutdown failed"
	ErrPortRequired    = "server port is required"
	ErrPortRange       = "server port must be between 1 and 65535"
	ErrInvalidURL      = "invalid URL structure"
	ErrRequestBuild    = "failed to build fetch request"
	ErrFetchNetwork    = "network error during fetch"
	ErrFetchStatus     = "unexpected response status"
	ErrProtocol        = "unsupported protocol scheme (http/https only)"
	ErrVCardParse      = "failed to parse vCard stream"
	ErrICalEncode      = "failed to encode iCalendar data"
	ErrDateParse       = "unable to parse date"
	ErrLogFile         = "failed to open log file"
	ErrDataDir         = "could not determine user data dir"
	ErrCacheDir        = "could not determine user cache dir"
	ErrCreateDir       = "could not create app data dir"
	ErrAppFailed       = "application failed unexpectedly"
	ErrWriteResp       = "failed to write response body"
	ErrLocalesAccess   = "failed to access embedded locales"
	ErrLocaleLoad      = "failed to load locale file"
	ErrSettingsRead    = "failed to read settings file"
	ErrSettingsParse   = "failed to parse settings file"
	ErrLocalPathExt    = "local source path must be a vCard file"
	ErrStoreOpen       = "failed to open database"
	ErrStoreMigrate    = "failed to apply database migrations"
	ErrStorePath       = "database path is required"
	ErrPersonNotFound  = "person not found"
	ErrPersonIDEmpty   = "person id is required"
	ErrSnapshotEncode  = "failed to encode widget snapshot"
	ErrOverviewEncode  = "failed to encode overview"
	ErrSnapshotDecode  = "failed to decode widget snapshot"
	ErrCronSpecBuild   = "failed to register yearly trigger"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Data initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgInternalErr  = "Internal Server Error"
	HTTPMsgBadRequest   = "Bad Request"
	HTTPMsgNotFound     = "Not Found"
)

// -----------------------------------------------------------------------------
// Fallbacks & Defaults
// -----------------------------------------------------------------------------

const (
	FallbackNotifTitle = "Birthday: %s"
	FallbackNotifBody  = "%s is turning %d today."
	FallbackNotifNoAge = "It is %s's birthday today."
	FallbackSummary    = "Birthday: %s"
	FallbackName       = "Unknown"

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	// Using a constant avoids hardcoded magic strings in the feed logic.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	MsgAppStarting    = "Starting application"
	MsgAppStop        = "Application stopped gracefully"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgCacheUpdated   = "Response cache updated"
	MsgActivation     = "Activation pass started"
	MsgActivationDone = "Activation pass finished"
	MsgActivationFail = "Activation pass failed"
	MsgAutoMissed     = "Entry automatically marked missed"
	MsgWorkerStart    = "Background worker started"
	MsgWorkerStop     = "Worker stopping due to context cancellation"
	MsgRescheduled    = "Reminders rebuilt"
	MsgReminderSkip   = "Reminder add failed, continuing batch"
	MsgReminderOff    = "Reminder permission absent, scheduling skipped"
	MsgReminderFired  = "Reminder delivered"
	MsgFetchStarted   = "Contact download started"
	MsgFetchBody      = "Contact download response received"
	MsgImportStarted  = "Contact import started"
	MsgImportDone     = "Contact import finished"
	MsgImportFailed   = "Contact import failed, keeping stored persons"
	MsgCancelFailed   = "Reminder cancellation failed"
	MsgSkippedCard    = "Skipping malformed vCard"
	MsgSkippedDate    = "Skipping invalid date format"
	MsgSettingsLoaded = "Settings loaded"
	MsgStoreOpened    = "Database opened"
	MsgSnapshotSaved  = "Widget snapshot written"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgPassFail       = "Password retrieval failed (might be empty)"
	MsgLogWarning     = "Warning: %s at %s: %v\n"
	MsgBdayToday      = "Birthday found today"
	MsgFeedGenerated  = "Calendar feed generated"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyLength    = "content_length"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyMode      = "mode"
	LogKeyInterval  = "interval"
	LogKeyPersonID  = "person_id"
	LogKeyName      = "name"
	LogKeyCount     = "count"
	LogKeyScheduled = "scheduled"
	LogKeyRebuilt   = "rebuilt"
	LogKeyDropped   = "dropped"
	LogKeyImported  = "imported"
	LogKeyTotal     = "total_cards"
	LogKeyFound     = "birthdays_found"
	LogKeyToday     = "birthdays_today"
	LogKeyMissed    = "auto_missed"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyValue     = "value"
	LogKeyStats     = "stats"
	LogKeyDuration  = "duration_ms"
	LogKeyReminder  = "reminder_id"
	LogKeyYear      = "year"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompNotify   = "notify"
	CompWidget   = "widget"
	CompStorage  = "storage"
	CompImporter = "importer"
	CompFeed     = "feed"
	CompServer   = "server"
	CompApp      = "app"
	CompWorker   = "worker"
	CompMain     = "main"
	CompI18n     = "i18n"
	CompSettings = "settings"
)
