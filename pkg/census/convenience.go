package census

import "context"

// FetchACS builds a client from the environment, runs one query and discards
// the client.
func FetchACS(ctx context.Context, q ACSQuery) (*Dataset, error) {
	c, err := New(Config{})
	if err != nil {
		return nil, err
	}
	return c.FetchACS(ctx, q)
}

// FetchPopulation is FetchACS for total population with a throwaway client.
func FetchPopulation(ctx context.Context, year int, geography, state string) (*Dataset, error) {
	c, err := New(Config{})
	if err != nil {
		return nil, err
	}
	return c.FetchPopulation(ctx, year, geography, state)
}
