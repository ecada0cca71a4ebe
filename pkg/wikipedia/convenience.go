package wikipedia

import "context"

func Search(ctx context.Context, query string, limit int) (*SearchResults, error) {
	return New(DefaultLanguage).Search(ctx, query, limit)
}

func GetSummary(ctx context.Context, title string) (*Summary, error) {
	return New(DefaultLanguage).Summary(ctx, title)
}
