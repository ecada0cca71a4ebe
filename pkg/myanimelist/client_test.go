package myanimelist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

func TestNewFallsBackToAlternateEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvAPIKeyAlt, "")
	_, err := New("")
	assert.ErrorIs(t, err, apiclient.ErrConfig)

	t.Setenv(EnvAPIKeyAlt, "alt-id")
	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, "alt-id", c.clientID)
}

func TestMyAnimeList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cid", r.Header.Get("X-MAL-CLIENT-ID"))
		q := r.URL.Query()
		switch r.URL.Path {
		case "/v2/anime":
			assert.Equal(t, DefaultSearchFields, q.Get("fields"))
			_, _ = w.Write([]byte(`{"data":[{"node":{"id":1,"title":"Cowboy Bebop","mean":8.75,"rank":45,
"genres":[{"name":"Action"}],"studios":[{"name":"Sunrise"}]}},{"node":{"id":2,"title":"Unrated"}}]}`))
		case "/v2/anime/1":
			_, _ = w.Write([]byte(`{"id":1,"title":"Cowboy Bebop","synopsis":"Space.","start_season":{"year":1998,"season":"spring"}}`))
		case "/v2/anime/season/2024/fall":
			assert.Equal(t, "20", q.Get("limit"))
			_, _ = w.Write([]byte(`{"data":[{"node":{"id":3,"title":"New Show"}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c, err := New("cid", apiclient.WithBaseURL(srv.URL))
	require.NoError(t, err)
	ctx := context.Background()

	res, err := c.SearchAnime(ctx, "bebop", 0, "")
	require.NoError(t, err)
	require.Len(t, res.Anime, 2)
	assert.Equal(t, []string{"Sunrise"}, res.Anime[0].Studios)
	assert.Nil(t, res.Anime[1].MeanScore)

	a, err := c.AnimeDetails(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1998, a.StartSeason.Year)

	_, err = c.AnimeDetails(ctx, 999)
	assert.ErrorIs(t, err, apiclient.ErrNotFound)

	s, err := c.Season(ctx, 2024, "Fall", 0)
	require.NoError(t, err)
	assert.Equal(t, "fall 2024", s.Fields()["season"])

	_, err = c.Season(ctx, 2024, "monsoon", 0)
	assert.ErrorIs(t, err, apiclient.ErrConfig)
}
