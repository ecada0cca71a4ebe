package semanticscholar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const searchBody = `{"total":3,"data":[
{"paperId":"p1","title":"Attention","authors":[{"name":"Vaswani"},{"name":null}],"year":2017,
 "externalIds":{"DOI":"10.5555/attn","ArXiv":"1706.03762"},"citationCount":100},
{"paperId":"p2","title":"","authors":[]},
{"paperId":"p3","title":"BERT","authors":[],"year":2018}]}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/graph/v1/paper/search":
			assert.Equal(t, "secret", r.Header.Get("x-api-key"))
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			assert.Contains(t, r.URL.Query().Get("fields"), "externalIds")
			_, _ = w.Write([]byte(searchBody))
		case "/graph/v1/paper/arXiv:1706.03762":
			_, _ = w.Write([]byte(`{"paperId":"p1","title":"Attention","externalIds":{"DOI":"10.5555/attn"}}`))
		default:
			http.Error(w, `{"error":"Paper not found"}`, http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchDropsUntitledPapers(t *testing.T) {
	c := New("secret", apiclient.WithBaseURL(newServer(t).URL))

	ps, err := c.Search(context.Background(), "transformers", 5, nil)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "Attention", ps[0].Title)
	assert.Equal(t, []string{"Vaswani"}, ps[0].Authors)
	assert.Equal(t, "10.5555/attn", ps[0].DOI)
	assert.Equal(t, 100, ps[0].Citations)
	assert.Equal(t, "BERT", ps[1].Title)
}

func TestSearchAsyncMatchesSearch(t *testing.T) {
	c := New("secret", apiclient.WithBaseURL(newServer(t).URL))

	want, err := c.Search(context.Background(), "transformers", 5, nil)
	require.NoError(t, err)

	res, ok := <-c.SearchAsync(context.Background(), "transformers", 5, nil)
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, want, res.Papers)

	res = <-c.SearchAsync(context.Background(), " ", 5, nil)
	assert.ErrorIs(t, res.Err, apiclient.ErrConfig)
}

func TestGetByDOIAndArxiv(t *testing.T) {
	c := New("secret", apiclient.WithBaseURL(newServer(t).URL))

	p, err := c.GetByArxivID(context.Background(), "arxiv:1706.03762", nil)
	require.NoError(t, err)
	assert.Equal(t, "p1", p.PaperID)

	_, err = c.GetByDOI(context.Background(), "10.0000/missing", nil)
	assert.ErrorIs(t, err, apiclient.ErrNotFound)
}
