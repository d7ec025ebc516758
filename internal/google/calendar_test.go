package google

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"calgen/internal/generator"
	"calgen/internal/mixin"
	"calgen/internal/models"
	"calgen/internal/provider"
	"calgen/internal/publish"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

const eventsBody = `{
  "kind": "calendar#events",
  "items": [
    {"id": "20240101_abc", "summary": "New Year's Day", "description": "Public holiday",
     "start": {"date": "2024-01-01"}, "end": {"date": "2024-01-02"}},
    {"id": "20240214_def", "summary": "Valentine's Day", "description": "Observance\nTo hide observances, go to Google Calendar Settings",
     "start": {"date": "2024-02-14"}, "end": {"date": "2024-02-15"}},
    {"id": "timed", "summary": "Timed", "description": "Observance",
     "start": {"dateTime": "2024-03-01T10:00:00Z"}, "end": {"dateTime": "2024-03-01T11:00:00Z"}}
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *CalendarClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), discard, "key",
		option.WithEndpoint(srv.URL+"/calendar/v3/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return c
}

func TestQueryFiltersByCategory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-01T00:00:00Z", r.URL.Query().Get("timeMin"))
		assert.Equal(t, "2025-01-01T00:00:00Z", r.URL.Query().Get("timeMax"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(eventsBody))
	})

	national, err := c.Query(context.Background(), provider.Request{Locale: "US", Year: 2024, Category: models.CategoryNational})
	require.NoError(t, err)
	require.Len(t, national, 1)

	ev, err := c.Normalize(national[0], 2024, models.CategoryNational)
	require.NoError(t, err)
	assert.Equal(t, "20240101_abc-2024", ev.UID())
	assert.Equal(t, models.NewDate(2024, time.January, 1), ev.Date)
	assert.Equal(t, models.CategoryNational, ev.Category)

	observance, err := c.Query(context.Background(), provider.Request{Locale: "US", Year: 2024, Category: models.CategoryObservance})
	require.NoError(t, err)
	require.Len(t, observance, 2)

	_, err = c.Normalize(observance[1], 2024, models.CategoryObservance)
	assert.True(t, errors.Is(err, provider.ErrSkipRecord), "timed events have no start.date")
}

func TestQueryMapsAPIErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   int
	}{
		{
			name:   "invalid key message",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`,
			want:   http.StatusUnauthorized,
		},
		{
			name:   "invalid key reason",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":400,"message":"Bad Request","errors":[{"reason":"keyInvalid","message":"Bad Request"}]}}`,
			want:   http.StatusUnauthorized,
		},
		{
			name:   "invalid key error info",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":400,"message":"Bad Request","details":[{"@type":"type.googleapis.com/google.rpc.ErrorInfo","reason":"API_KEY_INVALID"}]}}`,
			want:   http.StatusUnauthorized,
		},
		{
			name:   "daily limit",
			status: http.StatusForbidden,
			body:   `{"error":{"code":403,"message":"Daily Limit Exceeded","errors":[{"reason":"dailyLimitExceeded","message":"Daily Limit Exceeded"}]}}`,
			want:   http.StatusTooManyRequests,
		},
		{
			name:   "rate limit",
			status: http.StatusForbidden,
			body:   `{"error":{"code":403,"message":"Rate Limit Exceeded","errors":[{"reason":"rateLimitExceeded","message":"Rate Limit Exceeded"}]}}`,
			want:   http.StatusTooManyRequests,
		},
		{
			name:   "other forbidden",
			status: http.StatusForbidden,
			body:   `{"error":{"code":403,"message":"The caller does not have permission","errors":[{"reason":"forbidden"}]}}`,
			want:   http.StatusForbidden,
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"error":{"code":404,"message":"Not Found","errors":[{"reason":"notFound"}]}}`,
			want:   http.StatusNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			_, err := c.Query(context.Background(), provider.Request{Locale: "CA", Year: 2024, Category: models.CategoryNational})
			var se *provider.StatusError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, tc.want, se.StatusCode)
			assert.NotEmpty(t, se.Detail)
		})
	}
}

func TestQueryUnsupportedLocale(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	_, err := c.Query(context.Background(), provider.Request{Locale: "JP", Year: 2024, Category: models.CategoryNational})
	assert.True(t, errors.Is(err, provider.ErrCountryNotSupported))
	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.ElementsMatch(t, []string{"AU", "CA", "DE", "FR", "GB", "IE", "MX", "NZ", "US"}, c.Locales())
}

func TestCalendarID(t *testing.T) {
	id, ok := CalendarID("US")
	assert.True(t, ok)
	assert.Equal(t, "en.usa#holiday@group.v.calendar.google.com", id)

	_, ok = CalendarID("ZZ")
	assert.False(t, ok)
}

func TestInvalidKeyAbortsRun(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid. Please pass a valid API key."}}`))
	})
	dir := t.TempDir()
	sink, err := publish.NewDirSink(dir)
	require.NoError(t, err)

	g := generator.New(discard, c, sink, generator.Options{Years: 2, Mixins: mixin.Default()})
	_, err = g.Run(context.Background(), []models.Locale{{Code: "CA", Name: "Canada"}, {Code: "US", Name: "United States"}})
	require.Error(t, err)

	var fatal *generator.FatalError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, "CA", fatal.Request.Locale)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no request after the key is rejected")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
