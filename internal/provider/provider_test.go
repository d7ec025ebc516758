package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calgen/internal/models"
)

func TestRawRecordAccessors(t *testing.T) {
	rec := RawRecord{
		"name":   "Founders Day",
		"id":     float64(1001),
		"public": "true",
		"date":   map[string]any{"iso": "2024-03-15T00:00:00Z"},
		"nested": "not-an-object",
	}

	s, ok := rec.String("name")
	assert.True(t, ok)
	assert.Equal(t, "Founders Day", s)

	s, ok = rec.String("id")
	assert.True(t, ok)
	assert.Equal(t, "1001", s)

	b, ok := rec.Bool("public")
	assert.True(t, ok)
	assert.True(t, b)

	d, err := rec.Date("date", "iso")
	require.NoError(t, err)
	assert.Equal(t, models.NewDate(2024, time.March, 15), d)

	_, ok = rec.String("nested", "deeper")
	assert.False(t, ok, "walking through a string must not panic")
	_, ok = rec.String("missing", "iso")
	assert.False(t, ok)
	_, err = rec.Date("date")
	assert.Error(t, err, "an object is not a date")

	id, ok := rec.FirstString([]string{"urlid"}, []string{"id"})
	assert.True(t, ok)
	assert.Equal(t, "1001", id)
}

func TestRecordsKeepsNonObjectsAsEmpty(t *testing.T) {
	recs := Records([]any{map[string]any{"a": "b"}, "junk", nil})
	require.Len(t, recs, 3)
	assert.Empty(t, recs[1])
	assert.Empty(t, recs[2])
}

func TestLocaleSetCheck(t *testing.T) {
	set := LocaleSet{"CA", "US"}
	assert.NoError(t, set.Check("test", "US"))

	err := set.Check("test", "FR")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCountryNotSupported))
	var ule *UnsupportedLocaleError
	require.True(t, errors.As(err, &ule))
	assert.Equal(t, "FR", ule.Locale)
}

func newTestClient(srv *httptest.Server) *JSONClient {
	return &JSONClient{
		Provider:    "test",
		BaseURL:     srv.URL + "/holidays",
		HTTPClient:  srv.Client(),
		RecordsPath: []string{"response", "holidays"},
		DetailPath:  []string{"meta", "error_detail"},
	}
}

func TestJSONClientGet(t *testing.T) {
	var gotQuery url.Values
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{"meta":{"code":200},"response":{"holidays":[{"name":"A"},{"name":"B"}]}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	c.HTTPClient = &http.Client{Transport: &userAgentTransport{UserAgent: userAgent, Transport: http.DefaultTransport}}

	recs, err := c.Get(context.Background(), url.Values{"country": {"US"}, "year": {"2024"}})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "A", recs[0]["name"])
	assert.Equal(t, "US", gotQuery.Get("country"))
	assert.Equal(t, userAgent, gotUA)
}

func TestJSONClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"meta":{"code":429,"error_detail":"quota exceeded"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Get(context.Background(), nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, "quota exceeded", se.Detail)
	assert.Contains(t, se.Error(), "quota exceeded")
}

func TestJSONClientMalformedEnvelope(t *testing.T) {
	for name, body := range map[string]string{
		"empty response array": `{"meta":{"code":200},"response":[]}`,
		"missing holidays":     `{"meta":{"code":200},"response":{}}`,
		"not json":             `<html>oops</html>`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv).Get(context.Background(), nil)
			assert.True(t, errors.Is(err, ErrMalformedPayload), "got %v", err)
		})
	}
}

func TestJSONClientRedactsCredentials(t *testing.T) {
	c := &JSONClient{
		Provider:    "test",
		BaseURL:     "http://127.0.0.1:1/holidays",
		HTTPClient:  &http.Client{Timeout: time.Second},
		RecordsPath: []string{"holidays"},
	}
	_, err := c.Get(context.Background(), url.Values{"api_key": {"secret-key"}})
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "secret-key"), err.Error())
}
