package semanticscholar

import "context"

func Search(ctx context.Context, query string, limit int) (Papers, error) {
	return New("").Search(ctx, query, limit, nil)
}

func GetByDOI(ctx context.Context, doi string) (*Paper, error) {
	return New("").GetByDOI(ctx, doi, nil)
}
