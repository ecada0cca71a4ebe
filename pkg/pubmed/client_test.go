package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const summaryBody = `{"header":{},"result":{"uids":["222","111"],
"111":{"uid":"111","title":"First","authors":[{"name":"Smith J"},{"name":""}],
 "fulljournalname":"Journal of Tests","pubdate":"2023 Jan","elocationid":"pii: X. doi: 10.1000/abc","pubtype":["Review"]},
"222":{"uid":"222","title":"Second","authors":[],"source":"J Short","pubdate":"2022"},
"999":{"uid":"999","error":"cannot get document summary"}}}`

func newServer(t *testing.T, idlist string) (*httptest.Server, *int32, *int32) {
	t.Helper()
	var searches, summaries int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/entrez/eutils/esearch.fcgi":
			atomic.AddInt32(&searches, 1)
			assert.Equal(t, "pubmed", q.Get("db"))
			_, _ = w.Write([]byte(`{"esearchresult":{"idlist":` + idlist + `}}`))
		case "/entrez/eutils/esummary.fcgi":
			atomic.AddInt32(&summaries, 1)
			_, _ = w.Write([]byte(summaryBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &searches, &summaries
}

func TestSearchKeepsSearchOrderWithOneSummaryCall(t *testing.T) {
	srv, searches, summaries := newServer(t, `["111","222"]`)
	c := New(Config{}, apiclient.WithBaseURL(srv.URL))

	as, err := c.Search(context.Background(), "crispr", SearchOptions{MaxResults: 2})
	require.NoError(t, err)
	require.Len(t, as, 2)
	assert.Equal(t, "111", as[0].PMID)
	assert.Equal(t, "222", as[1].PMID)
	assert.Equal(t, int32(1), atomic.LoadInt32(searches))
	assert.Equal(t, int32(1), atomic.LoadInt32(summaries))

	assert.Equal(t, []string{"Smith J"}, as[0].Authors)
	assert.Equal(t, "10.1000/abc", as[0].DOI)
	assert.Equal(t, "Journal of Tests", as[0].Journal)
	assert.Equal(t, "J Short", as[1].Journal, "falls back to source")
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/111/", as[0].Fields()["url"])
}

func TestSearchBuildsTerm(t *testing.T) {
	var term, sort, retmax string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		term = r.URL.Query().Get("term")
		sort = r.URL.Query().Get("sort")
		retmax = r.URL.Query().Get("retmax")
		assert.Equal(t, "k", r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{"esearchresult":{"idlist":[]}}`))
	}))
	defer srv.Close()
	c := New(Config{APIKey: "k"}, apiclient.WithBaseURL(srv.URL))

	as, err := c.Search(context.Background(), "sepsis", SearchOptions{Sort: SortDate, Journal: "Lancet", DateRange: "2020:2024"})
	require.NoError(t, err)
	assert.Empty(t, as)
	assert.Equal(t, "sepsis AND Lancet[Journal] AND 2020:2024[Date - Publication]", term)
	assert.Equal(t, "pub date", sort)
	assert.Equal(t, "10", retmax)

	_, err = c.Search(context.Background(), "sepsis", SearchOptions{MaxResults: 3})
	require.NoError(t, err)
	assert.Equal(t, "3", retmax)

	_, err = c.SearchByAuthor(context.Background(), "Doe J", SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Doe J[Author]", term)
	assert.Equal(t, "pub date", sort)

	_, err = c.SearchReviews(context.Background(), "asthma", SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, `asthma AND "Review"[Publication Type]`, term)
	assert.Equal(t, "relevance", sort)
}

func TestSearchRejectsBadSort(t *testing.T) {
	srv, searches, _ := newServer(t, `[]`)
	c := New(Config{}, apiclient.WithBaseURL(srv.URL))

	_, err := c.Search(context.Background(), "x", SearchOptions{Sort: "citations"})
	assert.ErrorIs(t, err, apiclient.ErrConfig)
	assert.Zero(t, atomic.LoadInt32(searches))
}

func TestGetByID(t *testing.T) {
	srv, _, _ := newServer(t, `[]`)
	c := New(Config{}, apiclient.WithBaseURL(srv.URL))

	a, err := c.GetByID(context.Background(), "PMID: 111")
	require.NoError(t, err)
	assert.Equal(t, "First", a.Title)

	_, err = c.GetByID(context.Background(), "999")
	assert.ErrorIs(t, err, apiclient.ErrNotFound)

	as, err := c.GetByIDs(context.Background(), []string{"222", "999", "111"})
	require.NoError(t, err)
	require.Len(t, as, 2)
	assert.Equal(t, "222", as[0].PMID)
}
