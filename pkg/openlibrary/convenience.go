package openlibrary

import "context"

func Search(ctx context.Context, query string, limit int) (*SearchResults, error) {
	return New().Search(ctx, query, limit)
}

func GetByISBN(ctx context.Context, isbn string) (*Edition, error) {
	return New().GetByISBN(ctx, isbn)
}
