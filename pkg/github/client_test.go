package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

func TestBearerTokenAndRepositorySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ghp_test", r.Header.Get("Authorization"))
		assert.Equal(t, "/search/repositories", r.URL.Path)
		assert.Equal(t, "stars", r.URL.Query().Get("sort"))
		assert.Equal(t, "desc", r.URL.Query().Get("order"))
		assert.Equal(t, "30", r.URL.Query().Get("per_page"))
		_, _ = w.Write([]byte(`{"total_count":1,"items":[{"full_name":"golang/go","stargazers_count":120000,
"language":"Go","topics":["go"],"html_url":"https://github.com/golang/go","license":{"name":"BSD-3-Clause"}}]}`))
	}))
	defer srv.Close()

	c := New("ghp_test", apiclient.WithBaseURL(srv.URL))
	res, err := c.SearchRepositories(context.Background(), "language:go", "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalCount)
	require.Len(t, res.Repositories, 1)
	assert.Equal(t, "golang/go", res.Repositories[0].Name)
	assert.Equal(t, "BSD-3-Clause", res.Repositories[0].Fields()["license"])
}

func TestTokenFromEnvironment(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvAPIKey, "from-env")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer from-env", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"total_count":0,"items":[]}`))
	}))
	defer srv.Close()

	_, err := New("", apiclient.WithBaseURL(srv.URL)).SearchCode(context.Background(), "addClass", 5)
	require.NoError(t, err)
}

func TestGetRepositoryNotFound(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvAPIKey, "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New("", apiclient.WithBaseURL(srv.URL)).GetRepository(context.Background(), "nobody", "nothing")
	assert.ErrorIs(t, err, apiclient.ErrNotFound)
}

func TestSearchIssuesRepoName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "created", r.URL.Query().Get("sort"))
		_, _ = w.Write([]byte(`{"total_count":1,"items":[{"title":"panic","number":7,"state":"open",
"repository_url":"https://api.github.com/repos/golang/go","user":{"login":"gopher"},"labels":[{"name":"bug"}]}]}`))
	}))
	defer srv.Close()

	res, err := New("x", apiclient.WithBaseURL(srv.URL)).SearchIssues(context.Background(), "panic", "", "", 10)
	require.NoError(t, err)
	f := res.Fields()["issues"].([]map[string]any)[0]
	assert.Equal(t, "golang/go", f["repository"])
	assert.Equal(t, []string{"bug"}, f["labels"])
	assert.Equal(t, "gopher", f["user"])
}
