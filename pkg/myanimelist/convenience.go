package myanimelist

import "context"

func Search(ctx context.Context, query string, limit int) (*AnimeList, error) {
	c, err := New("")
	if err != nil {
		return nil, err
	}
	return c.SearchAnime(ctx, query, limit, "")
}
