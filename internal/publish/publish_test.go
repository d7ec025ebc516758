package publish

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirSinkPut(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewDirSink(dir)
	require.NoError(t, err)

	require.NoError(t, s.Put(context.Background(), "CanadaHolidays.ics", []byte("first")))
	require.NoError(t, s.Put(context.Background(), "CanadaHolidays.ics", []byte("second")))

	got, err := os.ReadFile(filepath.Join(dir, "CanadaHolidays.ics"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestDirSinkRejectsPaths(t *testing.T) {
	s, err := NewDirSink(t.TempDir())
	require.NoError(t, err)
	for _, name := range []string{"", "..", "../escape.ics", "a/b.ics"} {
		assert.Error(t, s.Put(context.Background(), name, []byte("x")), name)
	}
}

func TestDirSinkCancelled(t *testing.T) {
	s, err := NewDirSink(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Put(ctx, "x.ics", nil), context.Canceled)
}

type recordingSink struct {
	names []string
	err   error
}

func (r *recordingSink) Put(_ context.Context, name string, _ []byte) error {
	if r.err != nil {
		return r.err
	}
	r.names = append(r.names, name)
	return nil
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	require.NoError(t, MultiSink{a, b}.Put(context.Background(), "manifest.json", nil))
	assert.Equal(t, []string{"manifest.json"}, a.names)
	assert.Equal(t, []string{"manifest.json"}, b.names)

	failing := &recordingSink{err: errors.New("disk full")}
	c := &recordingSink{}
	assert.Error(t, MultiSink{failing, c}.Put(context.Background(), "x.ics", nil))
	assert.Empty(t, c.names)
}

func TestWebDAVSinkPut(t *testing.T) {
	var mu sync.Mutex
	var user, pass, agent string
	uploads := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		uploads[r.URL.Path] = string(body)
		user, pass, _ = r.BasicAuth()
		agent = r.Header.Get("User-Agent")
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s, err := NewWebDAVSink(slog.New(slog.NewTextHandler(io.Discard, nil)), srv.URL+"/holidays", "alice", "secret")
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "UnitedStatesHolidays.ics", []byte("BEGIN:VCALENDAR")))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "BEGIN:VCALENDAR", uploads["/holidays/UnitedStatesHolidays.ics"])
	assert.Equal(t, "alice", user)
	assert.Equal(t, "secret", pass)
	assert.Equal(t, "calgen/1.0", agent)
}

func TestWebDAVSinkServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s, err := NewWebDAVSink(slog.New(slog.NewTextHandler(io.Discard, nil)), srv.URL+"/", "", "")
	require.NoError(t, err)
	assert.Error(t, s.Put(context.Background(), "manifest.json", []byte("[]")))
}
