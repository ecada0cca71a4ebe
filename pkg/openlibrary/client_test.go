package openlibrary

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
		switch r.URL.Path {
		case "/search.json":
			_, _ = w.Write([]byte(`{"numFound":1,"docs":[{"title":"Dune","author_name":["Frank Herbert"],
"first_publish_year":1965,"subject":["a","b","c","d","e","f","g"],"key":"/works/OL1W","cover_i":42}]}`))
		case "/api/books":
			if q.Get("bibkeys") == "ISBN:9780441013593" {
				_, _ = w.Write([]byte(`{"ISBN:9780441013593":{"title":"Dune","authors":[{"name":"Frank Herbert"}],
"publishers":[{"name":"Ace"}],"number_of_pages":528,"cover":{"large":"https://covers.example/l.jpg"}}}`))
				return
			}
			_, _ = w.Write([]byte(`{}`))
		case "/search/authors.json":
			assert.Equal(t, "herbert", q.Get("q"))
			_, _ = w.Write([]byte(`{"numFound":1,"docs":[{"key":"OL79034A","name":"Frank Herbert","work_count":120,"top_work":"Dune"}]}`))
		case "/authors/OL79034A.json":
			_, _ = w.Write([]byte(`{"key":"/authors/OL79034A","name":"Frank Herbert","bio":{"type":"/type/text","value":"Author of Dune."},"photos":[7,8]}`))
		case "/subjects/science_fiction.json":
			assert.Equal(t, "3", q.Get("limit"))
			_, _ = w.Write([]byte(`{"work_count":100,"works":[{"title":"Dune","authors":[{"name":"Frank Herbert"}],"cover_id":9}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchTrimsSubjects(t *testing.T) {
	c := New(apiclient.WithBaseURL(newServer(t).URL))

	res, err := c.Search(context.Background(), "dune", 0)
	require.NoError(t, err)
	require.Len(t, res.Books, 1)
	assert.Len(t, res.Books[0].Subjects, 5)
	assert.Equal(t, int64(42), res.Books[0].CoverID)
}

func TestGetByISBN(t *testing.T) {
	c := New(apiclient.WithBaseURL(newServer(t).URL))

	e, err := c.GetByISBN(context.Background(), "978-0441013593")
	require.NoError(t, err)
	assert.Equal(t, []string{"Frank Herbert"}, e.Authors)
	assert.Equal(t, 528, e.NumberOfPages)
	assert.Equal(t, "https://covers.example/l.jpg", e.Cover)

	_, err = c.GetByISBN(context.Background(), "0000000000")
	assert.ErrorIs(t, err, apiclient.ErrNotFound)
}

func TestAuthorAndSubject(t *testing.T) {
	c := New(apiclient.WithBaseURL(newServer(t).URL))
	ctx := context.Background()

	found, err := c.SearchAuthors(ctx, "herbert", 0)
	require.NoError(t, err)
	require.Len(t, found.Authors, 1)

	a, err := c.GetAuthor(ctx, found.Authors[0].Key)
	require.NoError(t, err)
	assert.Equal(t, "Author of Dune.", a.Bio)
	assert.Equal(t, int64(7), a.Photo)

	_, err = c.GetAuthor(ctx, "/authors/OL0A")
	assert.ErrorIs(t, err, apiclient.ErrNotFound)

	s, err := c.Subject(ctx, "science_fiction", 3)
	require.NoError(t, err)
	assert.Equal(t, 100, s.WorkCount)
	assert.Equal(t, []string{"Frank Herbert"}, s.Works[0].Authors)
}

func TestBioAcceptsPlainString(t *testing.T) {
	assert.Equal(t, "plain", bio([]byte(`"plain"`)))
	assert.Equal(t, "", bio(nil))
}
