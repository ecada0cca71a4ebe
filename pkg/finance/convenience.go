package finance

import "context"

func Daily(ctx context.Context, symbol string) (*Series, error) {
	c, err := New("")
	if err != nil {
		return nil, err
	}
	return c.Daily(ctx, symbol, OutputCompact)
}

func ExchangeRate(ctx context.Context, from, to string) (*FXRate, error) {
	c, err := New("")
	if err != nil {
		return nil, err
	}
	return c.FXRate(ctx, from, to)
}
