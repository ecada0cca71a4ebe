package pubmed

import "context"

func Search(ctx context.Context, query string, maxResults int, sort string) (Articles, error) {
	return New(Config{}).Search(ctx, query, SearchOptions{MaxResults: maxResults, Sort: sort})
}

func GetByID(ctx context.Context, pmid string) (*Article, error) {
	return New(Config{}).GetByID(ctx, pmid)
}
