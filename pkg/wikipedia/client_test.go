package wikipedia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/w/api.php", r.URL.Path)
		switch {
		case q.Get("action") == "opensearch":
			_, _ = w.Write([]byte(`["go",["Go (game)","Go (programming language)"],["Board game",""],["https://en.wikipedia.org/wiki/Go_(game)"]]`))
		case q.Get("list") == "random":
			assert.Equal(t, "0", q.Get("rnnamespace"))
			_, _ = w.Write([]byte(`{"query":{"random":[{"id":5,"ns":0,"title":"Some Page"}]}}`))
		case q.Get("titles") == "Missing Thing":
			_, _ = w.Write([]byte(`{"query":{"pages":{"-1":{"ns":0,"title":"Missing Thing","missing":""}}}}`))
		case q.Get("prop") == "extracts|pageimages":
			assert.Equal(t, "1", q.Get("exintro"))
			_, _ = w.Write([]byte(`{"query":{"pages":{"25039021":{"pageid":25039021,"title":"Go (programming language)",
"extract":"Go is a language.","original":{"source":"https://upload.example/go.png"}}}}}`))
		default:
			_, _ = w.Write([]byte(`{"query":{"pages":{"7":{"pageid":7,"title":"Go (programming language)","extract":"Go is a statically typed language."}}}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearch(t *testing.T) {
	c := New("", apiclient.WithBaseURL(newServer(t).URL))

	res, err := c.Search(context.Background(), "go", 2)
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "Board game", res.Results[0].Description)
	assert.Equal(t, "", res.Results[1].URL, "shorter url column degrades to empty")
	assert.Equal(t, 2, res.Fields()["count"])
}

func TestSummaryAndContent(t *testing.T) {
	c := New("en", apiclient.WithBaseURL(newServer(t).URL))
	ctx := context.Background()

	s, err := c.Summary(ctx, "Go (programming language)")
	require.NoError(t, err)
	assert.Equal(t, int64(25039021), s.PageID)
	assert.Equal(t, "https://upload.example/go.png", s.Image)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Go_(programming_language)", s.URL)

	a, err := c.FullContent(ctx, "Go (programming language)")
	require.NoError(t, err)
	assert.Equal(t, 6, a.WordCount)

	_, err = c.Summary(ctx, "Missing Thing")
	assert.ErrorIs(t, err, apiclient.ErrNotFound)
}

func TestRandom(t *testing.T) {
	c := New("de", apiclient.WithBaseURL(newServer(t).URL))

	r, err := c.Random(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, r.Articles, 1)
	assert.Equal(t, "https://de.wikipedia.org/wiki/Some_Page", r.Articles[0].URL)
}
