package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/birthday-keeper/internal/config"
	"github.com/tartampluch/birthday-keeper/internal/storage"
	"github.com/tartampluch/birthday-keeper/internal/widget"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

type MockActions struct {
	mock.Mock
}

func (m *MockActions) Congratulate(ctx context.Context, personID string) error {
	return m.Called(ctx, personID).Error(0)
}

func (m *MockActions) Undo(ctx context.Context, personID string) error {
	return m.Called(ctx, personID).Error(0)
}

func (m *MockActions) SetExcluded(ctx context.Context, personID string, excluded bool) error {
	return m.Called(ctx, personID, excluded).Error(0)
}

func (m *MockActions) Search(ctx context.Context, query string) ([]byte, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func postForm(route string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, route, strings.NewReader(form.Encode()))
	req.Header.Set(config.HeaderContentType, "application/x-www-form-urlencoded")
	return req
}

// -----------------------------------------------------------------------------
// Unit Tests (White-Box Testing of Handler Logic)
// -----------------------------------------------------------------------------

// TestHandler_ServingContent verifies that the handler correctly writes
// the standard HTTP headers and body content when data is available.
func TestHandler_ServingContent(t *testing.T) {
	srv := New("0", nil) // Port irrelevant for handler tests
	expectedICS := []byte("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR")
	srv.UpdateCalendar(expectedICS)

	req := httptest.NewRequest(http.MethodGet, config.RouteFeed, nil)
	w := httptest.NewRecorder()
	srv.handleCalendar(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))
	assert.Equal(t, config.MimeNoSniff, resp.Header.Get(config.HeaderXContentType))
	assert.Contains(t, resp.Header.Get(config.HeaderCacheControl), "no-cache")
	assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, expectedICS, body)
}

// TestHandler_Caching verifies that the server respects ETag headers
// (If-None-Match) and returns 304 Not Modified to save bandwidth.
func TestHandler_Caching(t *testing.T) {
	srv := New("0", nil)
	srv.UpdateOverview([]byte(`{"today":[]}`))

	req1 := httptest.NewRequest(http.MethodGet, config.RouteOverview, nil)
	w1 := httptest.NewRecorder()
	srv.handleOverview(w1, req1)
	etag := w1.Result().Header.Get(config.HeaderETag)
	require.NotEmpty(t, etag)

	req2 := httptest.NewRequest(http.MethodGet, config.RouteOverview, nil)
	req2.Header.Set(config.HeaderIfNoneMatch, etag)
	w2 := httptest.NewRecorder()
	srv.handleOverview(w2, req2)

	assert.Equal(t, http.StatusNotModified, w2.Code)
	assert.Empty(t, w2.Body.Bytes(), "304 must carry no body")
}

// TestHandler_Overview_Search verifies that a query parameter bypasses the
// cached bucket list and serves a live search instead.
func TestHandler_Overview_Search(t *testing.T) {
	actions := new(MockActions)
	result := []byte(`{"query":"ali","results":[{"id":"p1"}]}`)
	actions.On("Search", mock.Anything, "ali").Return(result, nil)

	srv := New("0", actions)
	srv.UpdateOverview([]byte(`{"today":[]}`))

	req := httptest.NewRequest(http.MethodGet, config.RouteOverview+"?q=ali", nil)
	w := httptest.NewRecorder()
	srv.handleOverview(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, config.MimeApplicationJSON, w.Result().Header.Get(config.HeaderContentType))
	assert.Equal(t, result, w.Body.Bytes())
	actions.AssertExpectations(t)
}

func TestHandler_Overview_SearchError(t *testing.T) {
	actions := new(MockActions)
	actions.On("Search", mock.Anything, "x").Return(nil, fmt.Errorf("store gone"))

	srv := New("0", actions)

	req := httptest.NewRequest(http.MethodGet, config.RouteOverview+"?q=x", nil)
	w := httptest.NewRecorder()
	srv.handleOverview(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	srv := New("0", nil)
	srv.UpdateCalendar([]byte("x"))

	req := httptest.NewRequest(http.MethodPost, config.RouteFeed, nil)
	w := httptest.NewRecorder()
	srv.handleCalendar(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, config.AllowedMethodsRead, w.Result().Header.Get(config.HeaderAllow))
}

func TestHandler_Initializing(t *testing.T) {
	srv := New("0", nil)

	req := httptest.NewRequest(http.MethodGet, config.RouteFeed, nil)
	w := httptest.NewRecorder()
	srv.handleCalendar(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, config.RetryAfterSeconds, w.Result().Header.Get(config.HeaderRetryAfter))
}

// -----------------------------------------------------------------------------
// Widget Projection Endpoint
// -----------------------------------------------------------------------------

func TestHandler_Widget_Offsets(t *testing.T) {
	srv := New("0", nil)
	srv.UpdateWidget([]widget.Entry{
		{ID: "p1", Name: "Alice", DaysUntil: 5, DateLabel: "Jun 20"},
		{ID: "p2", Name: "Bob", DaysUntil: 9, DateLabel: "Jun 24"},
	})

	tests := []struct {
		name        string
		query       string
		wantSection string
		wantCount   int
	}{
		{"No offset", "", config.WidgetLabelUpcoming, 1},
		{"Offset moves second entry into horizon", "?offset=2", config.WidgetLabelUpcoming, 2},
		{"Offset lands on the birthday", "?offset=5", config.WidgetLabelBirthday, 2},
		{"Everything behind", "?offset=10", config.WidgetLabelNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, config.RouteWidget+tt.query, nil)
			w := httptest.NewRecorder()
			srv.handleWidget(w, req)

			require.Equal(t, http.StatusOK, w.Code)

			var resp struct {
				Section string         `json:"section"`
				Entries []widget.Entry `json:"entries"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantSection, resp.Section)
			assert.Len(t, resp.Entries, tt.wantCount)
		})
	}
}

func TestHandler_Widget_BadOffset(t *testing.T) {
	srv := New("0", nil)
	srv.UpdateWidget(nil)

	for _, q := range []string{"?offset=abc", "?offset=-1"} {
		req := httptest.NewRequest(http.MethodGet, config.RouteWidget+q, nil)
		w := httptest.NewRecorder()
		srv.handleWidget(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

// -----------------------------------------------------------------------------
// Action Endpoints
// -----------------------------------------------------------------------------

func TestHandler_Actions_Dispatch(t *testing.T) {
	actions := new(MockActions)
	actions.On("Congratulate", mock.Anything, "p1").Return(nil)
	actions.On("Undo", mock.Anything, "p1").Return(nil)
	actions.On("SetExcluded", mock.Anything, "p1", true).Return(nil)

	srv := New("0", actions)

	tests := []struct {
		route string
		form  url.Values
	}{
		{config.RouteCongratulate, url.Values{config.ParamPersonID: {"p1"}}},
		{config.RouteUndo, url.Values{config.ParamPersonID: {"p1"}}},
		{config.RouteExclude, url.Values{config.ParamPersonID: {"p1"}, config.ParamExcluded: {"true"}}},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		srv.handleAction(w, postForm(tt.route, tt.form))
		assert.Equalf(t, http.StatusNoContent, w.Code, "route %s", tt.route)
	}

	actions.AssertExpectations(t)
}

func TestHandler_Actions_Validation(t *testing.T) {
	actions := new(MockActions)
	srv := New("0", actions)

	// Missing person id
	w := httptest.NewRecorder()
	srv.handleAction(w, postForm(config.RouteCongratulate, url.Values{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Malformed excluded flag
	w = httptest.NewRecorder()
	srv.handleAction(w, postForm(config.RouteExclude, url.Values{
		config.ParamPersonID: {"p1"},
		config.ParamExcluded: {"maybe"},
	}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// GET is not a write
	req := httptest.NewRequest(http.MethodGet, config.RouteCongratulate, nil)
	w = httptest.NewRecorder()
	srv.handleAction(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	actions.AssertNotCalled(t, "Congratulate", mock.Anything, mock.Anything)
}

func TestHandler_Actions_ErrorMapping(t *testing.T) {
	actions := new(MockActions)
	actions.On("Congratulate", mock.Anything, "ghost").Return(storage.ErrNotFound)
	actions.On("Undo", mock.Anything, "p1").Return(fmt.Errorf("disk on fire"))

	srv := New("0", actions)

	w := httptest.NewRecorder()
	srv.handleAction(w, postForm(config.RouteCongratulate, url.Values{config.ParamPersonID: {"ghost"}}))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	srv.handleAction(w, postForm(config.RouteUndo, url.Values{config.ParamPersonID: {"p1"}}))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// -----------------------------------------------------------------------------
// Concurrency & Lifecycle
// -----------------------------------------------------------------------------

// TestServer_RaceCondition validates the thread-safety of atomic.Pointer usage.
// Run this with `go test -race`.
func TestServer_RaceCondition(t *testing.T) {
	srv := New("0", nil)
	var wg sync.WaitGroup

	duration := 500 * time.Millisecond
	end := time.Now().Add(duration)

	for w := 0; w < 5; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			i := 0
			for time.Now().Before(end) {
				srv.UpdateCalendar([]byte(fmt.Sprintf("VERSION:%d-%d", id, i)))
				i++
				time.Sleep(1 * time.Microsecond)
			}
		}(w)
	}

	for r := 0; r < 20; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) {
				req := httptest.NewRequest(http.MethodGet, config.RouteFeed, nil)
				w := httptest.NewRecorder()
				srv.handleCalendar(w, req)

				if w.Code != http.StatusOK && w.Code != http.StatusServiceUnavailable {
					t.Errorf("Unexpected status code during race test: %d", w.Code)
				}
			}
		}()
	}

	wg.Wait()
}

// TestServer_Lifecycle spins up the actual TCP listener to verify network
// binding and graceful shutdown logic.
func TestServer_Lifecycle(t *testing.T) {
	const port = "18099"

	srv := New(port, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- srv.Start(ctx)
	}()

	feedURL := "http://127.0.0.1:" + port + config.RouteFeed

	require.Eventually(t, func() bool {
		resp, err := http.Get(feedURL)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}, 2*time.Second, 50*time.Millisecond, "Server failed to bind/listen in time")

	// 1. Check Initial State (503)
	resp, err := http.Get(feedURL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()

	// 2. Update Data
	srv.UpdateCalendar([]byte("BEGIN:VCALENDAR\nEND:VCALENDAR"))

	// 3. Check Served Content (200)
	resp, err = http.Get(feedURL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))

	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")

	// 4. Test Shutdown
	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Server did not shut down in time")
	}
}
