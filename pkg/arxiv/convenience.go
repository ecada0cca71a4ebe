package arxiv

import "context"

func Search(ctx context.Context, query string, maxResults int, sort string) (Papers, error) {
	return New().Search(ctx, query, maxResults, sort)
}

func GetByID(ctx context.Context, id string) (*Paper, error) {
	return New().GetByID(ctx, id)
}
