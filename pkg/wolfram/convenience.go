package wolfram

import "context"

// Query returns the short answer for query using WOLFRAMALPHA_APP_ID.
func Query(ctx context.Context, query string) (string, error) {
	c, err := New("")
	if err != nil {
		return "", err
	}
	a, err := c.Short(ctx, query)
	if err != nil {
		return "", err
	}
	return a.Result, nil
}
