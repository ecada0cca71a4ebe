package youtube

import "context"

func Search(ctx context.Context, query string, maxResults int) (*VideoSearch, error) {
	c, err := New("")
	if err != nil {
		return nil, err
	}
	return c.SearchVideos(ctx, query, SearchOptions{MaxResults: maxResults})
}
