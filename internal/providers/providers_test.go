package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/researchdata/internal/config"
	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

type stubResult struct{ op string }

func (s stubResult) Kind() string           { return "stub." + s.op }
func (s stubResult) Fields() map[string]any { return map[string]any{"op": s.op} }

func stubSource(name string) *source {
	echo := func(op string) opFunc {
		return func(_ context.Context, a Args) (apiclient.Result, error) {
			r := a.read()
			r.required("q")
			if r.err != nil {
				return nil, r.err
			}
			return stubResult{op: op}, nil
		}
	}
	return &source{
		name:        name,
		description: name + " source",
		ops:         map[string]opFunc{"search": echo("search"), "get": echo("get")},
	}
}

func testConfig() *config.Config {
	return &config.Config{CacheDir: "unused", Timeout: 5 * time.Second}
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()
	require.NotNil(t, registry)
	assert.Empty(t, registry.List())
}

func TestRegisterResolvesAliases(t *testing.T) {
	registry := NewRegistry()
	registry.Register(stubSource("Wikipedia"), "wiki", "WP")

	for _, name := range []string{"wikipedia", "WIKI", " wp "} {
		p, ok := registry.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, "Wikipedia", p.Name())
	}
	_, ok := registry.Get("encyclopedia")
	assert.False(t, ok)
	assert.Equal(t, []string{"wiki", "wp"}, registry.Aliases("wikipedia"))
}

func TestListIsSorted(t *testing.T) {
	registry := NewRegistry()
	for _, n := range []string{"pubmed", "arxiv", "census"} {
		registry.Register(stubSource(n))
	}
	assert.Equal(t, []string{"arxiv", "census", "pubmed"}, registry.List())
}

func TestRunUnknownSourceAndOperation(t *testing.T) {
	registry := NewRegistry()
	registry.Register(stubSource("arxiv"))
	ctx := context.Background()

	_, err := registry.Run(ctx, "nope", "search", nil)
	require.ErrorIs(t, err, apiclient.ErrConfig)
	assert.Contains(t, err.Error(), "arxiv")

	_, err = registry.Run(ctx, "arxiv", "delete", nil)
	require.ErrorIs(t, err, apiclient.ErrConfig)
	assert.Contains(t, err.Error(), "get, search")

	res, err := registry.Run(ctx, "arxiv", "SEARCH", Args{"q": "x"})
	require.NoError(t, err)
	assert.Equal(t, "stub.search", res.Kind())
}

func TestMissingArgumentIsConfigError(t *testing.T) {
	registry := NewRegistry()
	registry.Register(stubSource("arxiv"))

	_, err := registry.Run(context.Background(), "arxiv", "get", nil)
	require.ErrorIs(t, err, apiclient.ErrConfig)
	assert.Contains(t, err.Error(), `"q"`)
}

func TestParseArgs(t *testing.T) {
	a, err := ParseArgs([]string{"query=machine learning", "max=5", "expr=a=b"})
	require.NoError(t, err)
	assert.Equal(t, Args{"query": "machine learning", "max": "5", "expr": "a=b"}, a)

	_, err = ParseArgs([]string{"novalue"})
	assert.ErrorIs(t, err, apiclient.ErrConfig)
	_, err = ParseArgs([]string{"=x"})
	assert.ErrorIs(t, err, apiclient.ErrConfig)
}

func TestReaderConversions(t *testing.T) {
	r := Args{"n": "7", "f": "1.5", "b": "true", "d": "12.30", "t": "20240102", "l": "a, b,,c"}.read()
	assert.Equal(t, 7, r.int("n", 0))
	assert.Equal(t, 3, r.int("missing", 3))
	assert.InDelta(t, 1.5, r.float("f"), 1e-9)
	assert.True(t, r.bool("b", false))
	assert.Equal(t, "12.3", r.decimal("d").String())
	assert.Equal(t, 2024, r.time("t", "20060102").Year())
	assert.Equal(t, []string{"a", "b", "c"}, r.list("l"))
	require.NoError(t, r.err)

	bad := Args{"n": "seven", "f": "x"}.read()
	bad.int("n", 0)
	bad.float("f")
	require.ErrorIs(t, bad.err, apiclient.ErrConfig)
	assert.Contains(t, bad.err.Error(), `"n"`)
}

func TestVariables(t *testing.T) {
	vs := variables("B01003_001E=population, B19013_001E")
	require.Len(t, vs, 2)
	assert.Equal(t, "population", vs[0].Name)
	assert.Equal(t, "B19013_001E", vs[1].Name)
}

func TestSetupRegistersEverySource(t *testing.T) {
	registry := Setup(testConfig())
	assert.Equal(t, []string{
		"archive", "arxiv", "census", "fec", "finance", "github", "myanimelist", "nasa",
		"news", "openlibrary", "pubmed", "semanticscholar", "weather", "wikipedia", "wolfram", "youtube",
	}, registry.List())

	for alias, canon := range map[string]string{"s2": "semanticscholar", "wa": "wolfram", "stocks": "finance", "mal": "myanimelist"} {
		got, ok := registry.Resolve(alias)
		require.True(t, ok, alias)
		assert.Equal(t, canon, got)
	}
	for _, name := range registry.List() {
		p, _ := registry.Get(name)
		assert.NotEmpty(t, p.Operations(), name)
		assert.NotEmpty(t, p.Description(), name)
	}
}

func TestMissingCredentialSurfacesOnUse(t *testing.T) {
	t.Setenv("NEWS_API_KEY", "")
	registry := Setup(testConfig())

	_, err := registry.Run(context.Background(), "news", "headlines", nil)
	require.ErrorIs(t, err, apiclient.ErrConfig)
	assert.Contains(t, err.Error(), "NEWS_API_KEY")
}

func TestRunAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search.json":
			assert.Equal(t, "dune", r.URL.Query().Get("q"))
			_, _ = w.Write([]byte(`{"numFound":1,"docs":[{"title":"Dune","author_name":["Frank Herbert"],"key":"/works/OL1W"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	registry := Setup(testConfig(), apiclient.WithBaseURL(srv.URL))

	res, err := registry.Run(context.Background(), "books", "search", Args{"query": "dune"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fields()["num_found"])

	_, err = registry.Run(context.Background(), "openlibrary", "author", Args{"key": "OL0A"})
	require.Error(t, err)
	assert.NotEqual(t, apiclient.StatusSuccess, apiclient.StatusOf(err))
}
