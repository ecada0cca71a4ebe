package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

func TestNewRequiresKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	_, err := New("")
	assert.ErrorIs(t, err, apiclient.ErrConfig)

	t.Setenv(EnvAPIKey, "env-key")
	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, "env-key", c.apiKey)
}

func TestTopHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/v2/top-headlines", r.URL.Path)
		assert.Equal(t, "k", q.Get("apiKey"))
		assert.Equal(t, "us", q.Get("country"))
		assert.Equal(t, "technology", q.Get("category"))
		assert.Equal(t, "20", q.Get("pageSize"))
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":1,"articles":[{"source":{"id":null,"name":"Wire"},
"author":null,"title":"Chips","url":"https://wire.example/chips","publishedAt":"2024-05-01T00:00:00Z"}]}`))
	}))
	defer srv.Close()
	c, err := New("k", apiclient.WithBaseURL(srv.URL))
	require.NoError(t, err)

	res, err := c.TopHeadlines(context.Background(), HeadlineOptions{Category: "technology"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalResults)
	a := res.Fields()["articles"].([]map[string]any)[0]
	assert.Equal(t, "Wire", a["source"])
	assert.Equal(t, "", a["author"])
}

func TestEverythingAndSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/v2/everything":
			assert.Equal(t, "publishedAt", q.Get("sortBy"))
			assert.Equal(t, "2024-01-01", q.Get("from"))
			assert.Empty(t, q.Get("to"))
			_, _ = w.Write([]byte(`{"status":"ok","totalResults":0,"articles":[]}`))
		case "/v2/sources":
			_, _ = w.Write([]byte(`{"status":"ok","sources":[{"id":"bbc-news","name":"BBC News","language":"en"}]}`))
		default:
			http.Error(w, `{"status":"error","code":"apiKeyInvalid"}`, http.StatusUnauthorized)
		}
	}))
	defer srv.Close()
	c, err := New("k", apiclient.WithBaseURL(srv.URL))
	require.NoError(t, err)

	res, err := c.Everything(context.Background(), "fusion", EverythingOptions{From: "2024-01-01"})
	require.NoError(t, err)
	assert.Empty(t, res.Articles)

	src, err := c.Sources(context.Background(), "", "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, src.Fields()["count"])

	_, err = c.Everything(context.Background(), "", EverythingOptions{})
	assert.ErrorIs(t, err, apiclient.ErrConfig)
}
