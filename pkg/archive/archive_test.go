package archive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const closestBody = `{"archived_snapshots":{"closest":{"available":true,
"url":"http://web.archive.org/web/20240101120000/https://example.com/",
"timestamp":"20240101120000","status":"200"}}}`

// waybackServer serves availability lookups that report a snapshot only
// after a save request has been seen.
type waybackServer struct {
	srv       *httptest.Server
	saved     atomic.Bool
	available atomic.Int32
	saves     atomic.Int32
	saveCode  int
}

func newWaybackServer(t *testing.T, saveCode int) *waybackServer {
	t.Helper()
	w := &waybackServer{saveCode: saveCode}
	w.srv = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/wayback/available":
			w.available.Add(1)
			assert.Equal(t, "https://example.com/", r.URL.Query().Get("url"))
			if w.saved.Load() && w.saveCode == http.StatusOK {
				_, _ = rw.Write([]byte(closestBody))
				return
			}
			_, _ = rw.Write([]byte(`{"archived_snapshots":{}}`))
		case strings.HasPrefix(r.URL.Path, "/save/"):
			w.saves.Add(1)
			assert.Equal(t, "/save/https://example.com/", r.URL.Path)
			w.saved.Store(true)
			rw.WriteHeader(w.saveCode)
		default:
			http.NotFound(rw, r)
		}
	}))
	t.Cleanup(w.srv.Close)
	return w
}

func TestLatestSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("url") == "https://example.com/" {
			_, _ = w.Write([]byte(closestBody))
			return
		}
		_, _ = w.Write([]byte(`{"url":"x","archived_snapshots":{}}`))
	}))
	defer srv.Close()
	c := New(apiclient.WithBaseURL(srv.URL))

	s, err := c.LatestSnapshot(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "http://web.archive.org/web/20240101120000/https://example.com/", s.ArchiveURL)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), s.Timestamp)
	assert.Equal(t, 200, s.StatusCode)
	assert.Equal(t, "https://example.com/", s.OriginalURL)

	_, err = c.LatestSnapshot(context.Background(), "https://never-archived.example/")
	assert.ErrorIs(t, err, apiclient.ErrNotFound)

	_, err = c.LatestSnapshot(context.Background(), "")
	assert.ErrorIs(t, err, apiclient.ErrConfig)
}

func TestArchiveURLSubmitsThenVerifies(t *testing.T) {
	w := newWaybackServer(t, http.StatusOK)
	c := New(apiclient.WithBaseURL(w.srv.URL))

	r, err := c.ArchiveURL(context.Background(), "https://example.com/", CaptureOptions{Wait: true, Delay: time.Millisecond})
	require.NoError(t, err)
	assert.True(t, r.Success)
	require.NotNil(t, r.Snapshot)
	assert.Contains(t, r.ArchiveURL, "20240101120000")
	assert.Equal(t, int32(1), w.saves.Load())
	assert.Equal(t, int32(2), w.available.Load())
}

func TestArchiveURLWithoutWaitReportsSubmission(t *testing.T) {
	w := newWaybackServer(t, http.StatusOK)
	c := New(apiclient.WithBaseURL(w.srv.URL))

	r, err := c.ArchiveURL(context.Background(), "https://example.com/", CaptureOptions{})
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Nil(t, r.Snapshot)
	assert.Equal(t, int32(1), w.available.Load(), "no re-check without wait")

	rejected := newWaybackServer(t, http.StatusTooManyRequests)
	c = New(apiclient.WithBaseURL(rejected.srv.URL))
	r, err = c.ArchiveURL(context.Background(), "https://example.com/", CaptureOptions{})
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, "status code: 429", r.Error)
}

func TestArchiveURLSnapshotNotYetAvailable(t *testing.T) {
	w := newWaybackServer(t, http.StatusFound)
	c := New(apiclient.WithBaseURL(w.srv.URL))

	r, err := c.ArchiveURL(context.Background(), "https://example.com/", CaptureOptions{Wait: true, Delay: time.Millisecond})
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Contains(t, r.Error, "not yet available")
}

func TestArchiveURLReturnsExistingSnapshot(t *testing.T) {
	var saves atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/save/") {
			saves.Add(1)
		}
		_, _ = w.Write([]byte(closestBody))
	}))
	defer srv.Close()

	r, err := New(apiclient.WithBaseURL(srv.URL)).ArchiveURL(context.Background(), "https://example.com/", CaptureOptions{Wait: true})
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Zero(t, saves.Load())
}

func TestArchiveURLHonoursContext(t *testing.T) {
	w := newWaybackServer(t, http.StatusOK)
	c := New(apiclient.WithBaseURL(w.srv.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.ArchiveURL(ctx, "https://example.com/", CaptureOptions{Wait: true, Delay: time.Minute})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAllSnapshotsParsesCDX(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/cdx/search/cdx", r.URL.Path)
		assert.Equal(t, "json", q.Get("output"))
		assert.Equal(t, "20230101", q.Get("from"))
		assert.Empty(t, q.Get("to"))
		if q.Get("url") == "empty.example" {
			return
		}
		_, _ = w.Write([]byte(`[
["urlkey","timestamp","original","mimetype","statuscode","digest","length"],
["com,example)/","20230105000000","https://example.com/","text/html","200","AAA","100"],
["com,example)/","20230210101010","https://example.com/","text/html","-","BBB","120"],
["short","row"]]`))
	}))
	defer srv.Close()
	c := New(apiclient.WithBaseURL(srv.URL))
	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	snaps, err := c.AllSnapshots(context.Background(), "example.com", 0, from, time.Time{})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "https://web.archive.org/web/20230105000000/https://example.com/", snaps[0].ArchiveURL)
	assert.Equal(t, 200, snaps[0].StatusCode)
	assert.Equal(t, 0, snaps[1].StatusCode)
	assert.Equal(t, 2, snaps.Fields()["count"])

	none, err := c.AllSnapshots(context.Background(), "empty.example", 10, from, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMultiProviders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/wayback/available":
			_, _ = w.Write([]byte(`{"archived_snapshots":{}}`))
		case strings.HasPrefix(r.URL.Path, "/timemap/json/"):
			assert.Equal(t, "/timemap/json/http://example.com/", r.URL.Path)
			_, _ = w.Write([]byte(`{"mementos":{"list":[{"uri":"http://a/1"},{"uri":"http://a/2"}]}}`))
		case r.URL.Path == "/elsewhere":
			http.NotFound(w, r)
		default:
			// archive.is and 12ft share a path shape; both see a redirect.
			assert.Equal(t, http.MethodHead, r.Method)
			http.Redirect(w, r, "/elsewhere", http.StatusFound)
		}
	}))
	defer srv.Close()
	m := NewMulti(apiclient.WithBaseURL(srv.URL))
	ctx := context.Background()

	r, err := m.Check(ctx, "example.com/", ProviderMemento)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, "http://a/2", r.ArchiveURL)

	r, err = m.Check(ctx, "https://example.com/", Provider12ft)
	require.NoError(t, err)
	assert.True(t, r.Success, "12ft counts an unfollowed redirect as available")
	assert.Equal(t, "https://12ft.io/https://example.com/", r.ArchiveURL)

	r, err = m.Check(ctx, "https://example.com/", "WAYBACK")
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, "no Wayback snapshot found", r.Error)

	_, err = m.Check(ctx, "https://example.com/", "archive.today")
	assert.ErrorIs(t, err, apiclient.ErrConfig)

	all, err := m.AllArchives(ctx, "https://example.com/")
	require.NoError(t, err)
	assert.Len(t, all, len(Providers))
	assert.False(t, all[ProviderArchiveIs].Success, "redirect target is not a snapshot")
}
