// Package server exposes the rendered feed, the overview, and the widget
// projection over a localhost HTTP listener, plus the action endpoints the
// companion clients call.
package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/tartampluch/birthday-keeper/internal/config"
	"github.com/tartampluch/birthday-keeper/internal/storage"
	"github.com/tartampluch/birthday-keeper/internal/widget"
)

// cacheItem stores rendered content and its metadata for HTTP caching.
type cacheItem struct {
	data         []byte
	mime         string
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

// Actions is the application surface the POST endpoints drive.
type Actions interface {
	Congratulate(ctx context.Context, personID string) error
	Undo(ctx context.Context, personID string) error
	SetExcluded(ctx context.Context, personID string, excluded bool) error
	Search(ctx context.Context, query string) ([]byte, error)
}

// Server handles serving the generated content via HTTP.
type Server struct {
	Port    string
	Actions Actions

	// Caches use atomic.Pointer for lock-free reads. Content is read
	// frequently by clients but updated infrequently (only on activation
	// passes), so this beats a RWMutex by eliminating contention on the
	// hot path (HTTP GET).
	calendar atomic.Pointer[cacheItem]
	overview atomic.Pointer[cacheItem]

	// snapshot holds the widget entries; the projection depends on the
	// request's day offset so it cannot be pre-rendered.
	snapshot atomic.Pointer[[]widget.Entry]
}

// New creates a new instance of the server.
func New(port string, actions Actions) *Server {
	return &Server{
		Port:    port,
		Actions: actions,
	}
}

// Start initializes the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.Port == "" {
		return errors.New(config.ErrPortRequired)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteFeed, s.handleCalendar)
	mux.HandleFunc(config.RouteOverview, s.handleOverview)
	mux.HandleFunc(config.RouteWidget, s.handleWidget)
	mux.HandleFunc(config.RouteCongratulate, s.handleAction)
	mux.HandleFunc(config.RouteUndo, s.handleAction)
	mux.HandleFunc(config.RouteExclude, s.handleAction)

	srv := &http.Server{
		Addr:         config.LocalhostBindAddr + config.AddrSeparator + s.Port,
		Handler:      mux,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, s.Port,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// UpdateCalendar atomically replaces the served ICS content.
func (s *Server) UpdateCalendar(data []byte) {
	s.calendar.Store(newCacheItem(data, config.MimeTextCalendar))
}

// UpdateOverview atomically replaces the served overview JSON.
func (s *Server) UpdateOverview(data []byte) {
	s.overview.Store(newCacheItem(data, config.MimeApplicationJSON))
}

// UpdateWidget atomically replaces the widget snapshot.
func (s *Server) UpdateWidget(entries []widget.Entry) {
	s.snapshot.Store(&entries)
}

func newCacheItem(data []byte, mime string) *cacheItem {
	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	item := &cacheItem{
		data:         data,
		mime:         mime,
		etag:         etag,
		lastModified: time.Now().UTC().Format(http.TimeFormat),
	}

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag,
	)
	return item
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, s.calendar.Load())
}

// handleOverview serves the cached bucket list, or a live search when the
// query parameter is present.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if query := r.URL.Query().Get(config.ParamQuery); query != "" {
		s.handleSearch(w, r, query)
		return
	}
	s.serveCached(w, r, s.overview.Load())
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, query string) {
	if r.Method != http.MethodGet {
		w.Header().Set(config.HeaderAllow, config.AllowedMethodsRead)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}
	if s.Actions == nil {
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	data, err := s.Actions.Search(r.Context(), query)
	if err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
		http.Error(w, config.HTTPMsgInternalErr, http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HeaderContentType, config.MimeApplicationJSON)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	if _, err := w.Write(data); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}

// serveCached writes cached content with HTTP caching support.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, item *cacheItem) {
	// 1. Method Validation
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethodsRead)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	// 2. Readiness Check
	if item == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	// 3. Set Response Headers
	w.Header().Set(config.HeaderContentType, item.mime)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	// 4. Check Conditional Headers (Client Caching)
	if match := r.Header.Get(config.HeaderIfNoneMatch); match == item.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil {
				// If server content is not newer than client cache, return 304.
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	// 5. Serve Content
	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}

// widgetResponse is the JSON shape consumed by the widget client.
type widgetResponse struct {
	Section string         `json:"section"`
	Entries []widget.Entry `json:"entries"`
}

// handleWidget serves the projection for an optional day offset. The offset
// lets a client ask "what does the widget show N days from now" without the
// engine re-running.
func (s *Server) handleWidget(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set(config.HeaderAllow, config.AllowedMethodsRead)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	snap := s.snapshot.Load()
	if snap == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	offset := 0
	if raw := r.URL.Query().Get(config.ParamOffset); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, config.HTTPMsgBadRequest, http.StatusBadRequest)
			return
		}
		offset = parsed
	}

	visible := widget.Project(*snap, offset)
	resp := widgetResponse{
		Section: widget.SectionLabel(widget.Nearest(visible)),
		Entries: visible,
	}

	w.Header().Set(config.HeaderContentType, config.MimeApplicationJSON)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}

// handleAction dispatches the POST endpoints to the application layer.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set(config.HeaderAllow, config.AllowedMethodsWrite)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}
	if s.Actions == nil {
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	personID := r.FormValue(config.ParamPersonID)
	if personID == "" {
		http.Error(w, config.HTTPMsgBadRequest, http.StatusBadRequest)
		return
	}

	var err error
	switch r.URL.Path {
	case config.RouteCongratulate:
		err = s.Actions.Congratulate(r.Context(), personID)
	case config.RouteUndo:
		err = s.Actions.Undo(r.Context(), personID)
	case config.RouteExclude:
		excluded, parseErr := strconv.ParseBool(r.FormValue(config.ParamExcluded))
		if parseErr != nil {
			http.Error(w, config.HTTPMsgBadRequest, http.StatusBadRequest)
			return
		}
		err = s.Actions.SetExcluded(r.Context(), personID, excluded)
	default:
		http.Error(w, config.HTTPMsgNotFound, http.StatusNotFound)
		return
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, config.HTTPMsgNotFound, http.StatusNotFound)
	case err != nil:
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPersonID, personID,
			config.LogKeyError, err,
		)
		http.Error(w, config.HTTPMsgInternalErr, http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
