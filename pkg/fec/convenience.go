package fec

import "context"

func SearchCandidates(ctx context.Context, name string, cycle int) (*Page, error) {
	c, err := New("")
	if err != nil {
		return nil, err
	}
	return c.SearchCandidates(ctx, CandidateQuery{Name: name, Cycle: cycle})
}
