// Package finance reads equity, FX and crypto series from Alpha Vantage.
// Prices are decimals; Alpha Vantage sends them as strings.
package finance

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const (
	DefaultBaseURL = "https://www.alphavantage.co/query"
	EnvAPIKey      = "ALPHAVANTAGE_API_KEY"

	OutputCompact = "compact"
	OutputFull    = "full"
	DefaultMarket = "USD"
)

type Client struct {
	api    *apiclient.Client
	apiKey string
}

func New(apiKey string, opts ...apiclient.Option) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
	}
	if apiKey == "" {
		return nil, apiclient.MissingCredential("finance", EnvAPIKey)
	}
	return &Client{api: apiclient.New("finance", opts...), apiKey: apiKey}, nil
}

type Price struct {
	Date          string          `json:"date"`
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Close         decimal.Decimal `json:"close"`
	AdjustedClose decimal.Decimal `json:"adjusted_close"`
	Volume        int64           `json:"volume"`
}

// Series is a daily price history, most recent first.
type Series struct {
	Symbol   string            `json:"symbol"`
	Metadata map[string]string `json:"metadata"`
	Prices   []Price           `json:"prices"`
}

func (s *Series) Kind() string { return "finance.daily" }

func (s *Series) Fields() map[string]any {
	return map[string]any{"symbol": s.Symbol, "metadata": s.Metadata, "prices": s.Prices}
}

type FXRate struct {
	From          string          `json:"from_currency"`
	To            string          `json:"to_currency"`
	Rate          decimal.Decimal `json:"exchange_rate"`
	LastRefreshed string          `json:"last_refreshed"`
	Bid           decimal.Decimal `json:"bid_price"`
	Ask           decimal.Decimal `json:"ask_price"`
}

func (f *FXRate) Kind() string { return "finance.fx_rate" }

func (f *FXRate) Fields() map[string]any {
	return map[string]any{
		"from_currency":  f.From,
		"to_currency":    f.To,
		"exchange_rate":  f.Rate,
		"last_refreshed": f.LastRefreshed,
		"bid_price":      f.Bid,
		"ask_price":      f.Ask,
	}
}

type Quote struct {
	Date      string          `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	MarketCap decimal.Decimal `json:"market_cap"`
}

type CryptoSeries struct {
	Symbol   string            `json:"symbol"`
	Market   string            `json:"market"`
	Metadata map[string]string `json:"metadata"`
	Quotes   []Quote           `json:"quotes"`
}

func (c *CryptoSeries) Kind() string { return "finance.crypto_daily" }

func (c *CryptoSeries) Fields() map[string]any {
	return map[string]any{"symbol": c.Symbol, "market": c.Market, "metadata": c.Metadata, "quotes": c.Quotes}
}

// Daily returns adjusted daily prices. outputSize is "compact" (the last 100
// points, the default) or "full".
func (c *Client) Daily(ctx context.Context, symbol, outputSize string) (*Series, error) {
	if symbol == "" {
		return nil, apiclient.Configf("finance: symbol is required")
	}
	switch outputSize {
	case "":
		outputSize = OutputCompact
	case OutputCompact, OutputFull:
	default:
		return nil, apiclient.Configf("finance: output size must be %q or %q, got %q", OutputCompact, OutputFull, outputSize)
	}
	var body struct {
		Meta   map[string]string            `json:"Meta Data"`
		Series map[string]map[string]string `json:"Time Series (Daily)"`
	}
	if err := c.query(ctx, "daily", apiclient.Params{}.
		Add("function", "TIME_SERIES_DAILY_ADJUSTED").
		Add("symbol", symbol).
		Add("outputsize", outputSize), &body); err != nil {
		return nil, err
	}
	out := &Series{Symbol: symbol, Metadata: body.Meta, Prices: make([]Price, 0, len(body.Series))}
	for date, v := range body.Series {
		out.Prices = append(out.Prices, Price{
			Date:          date,
			Open:          dec(v["1. open"]),
			High:          dec(v["2. high"]),
			Low:           dec(v["3. low"]),
			Close:         dec(v["4. close"]),
			AdjustedClose: dec(v["5. adjusted close"]),
			Volume:        dec(v["6. volume"]).IntPart(),
		})
	}
	slices.SortFunc(out.Prices, func(a, b Price) int { return strings.Compare(b.Date, a.Date) })
	return out, nil
}

func (c *Client) FXRate(ctx context.Context, from, to string) (*FXRate, error) {
	if from == "" || to == "" {
		return nil, apiclient.Configf("finance: both currencies are required")
	}
	var body struct {
		Rate map[string]string `json:"Realtime Currency Exchange Rate"`
	}
	if err := c.query(ctx, "fx_rate", apiclient.Params{}.
		Add("function", "CURRENCY_EXCHANGE_RATE").
		Add("from_currency", from).
		Add("to_currency", to), &body); err != nil {
		return nil, err
	}
	r := body.Rate
	return &FXRate{
		From:          r["1. From_Currency Code"],
		To:            r["3. To_Currency Code"],
		Rate:          dec(r["5. Exchange Rate"]),
		LastRefreshed: r["6. Last Refreshed"],
		Bid:           dec(r["8. Bid Price"]),
		Ask:           dec(r["9. Ask Price"]),
	}, nil
}

// CryptoDaily returns daily quotes for a digital currency priced in market.
func (c *Client) CryptoDaily(ctx context.Context, symbol, market string) (*CryptoSeries, error) {
	if symbol == "" {
		return nil, apiclient.Configf("finance: symbol is required")
	}
	if market == "" {
		market = DefaultMarket
	}
	var body struct {
		Meta   map[string]string            `json:"Meta Data"`
		Series map[string]map[string]string `json:"Time Series (Digital Currency Daily)"`
	}
	if err := c.query(ctx, "crypto_daily", apiclient.Params{}.
		Add("function", "DIGITAL_CURRENCY_DAILY").
		Add("symbol", symbol).
		Add("market", market), &body); err != nil {
		return nil, err
	}
	out := &CryptoSeries{Symbol: symbol, Market: market, Metadata: body.Meta, Quotes: make([]Quote, 0, len(body.Series))}
	for date, v := range body.Series {
		out.Quotes = append(out.Quotes, Quote{
			Date:      date,
			Open:      dec(v["1a. open ("+market+")"]),
			High:      dec(v["2a. high ("+market+")"]),
			Low:       dec(v["3a. low ("+market+")"]),
			Close:     dec(v["4a. close ("+market+")"]),
			Volume:    dec(v["5. volume"]),
			MarketCap: dec(v["6. market cap (USD)"]),
		})
	}
	slices.SortFunc(out.Quotes, func(a, b Quote) int { return strings.Compare(b.Date, a.Date) })
	return out, nil
}

// query runs one call. Alpha Vantage reports throttling and bad symbols with
// a 200 and a "Note" or "Error Message" body, which become client errors.
func (c *Client) query(ctx context.Context, op string, params apiclient.Params, v any) error {
	resp, err := c.api.Fetch(ctx, apiclient.Request{
		Op:       op,
		Endpoint: DefaultBaseURL,
		Params:   params,
		Auth:     apiclient.Auth{Token: c.apiKey, Required: true, Param: "apikey", Env: EnvAPIKey},
	})
	if err != nil {
		return fmt.Errorf("finance %s: %w", op, err)
	}
	var probe map[string]json.RawMessage
	if err := resp.Decode(&probe); err != nil {
		return fmt.Errorf("finance %s: %w", op, err)
	}
	for _, k := range []string{"Note", "Error Message", "Information"} {
		if raw, ok := probe[k]; ok {
			var msg string
			_ = json.Unmarshal(raw, &msg)
			return fmt.Errorf("finance %s: %w", op, apiclient.Malformed(resp.URL, "%s", msg))
		}
	}
	if err := resp.Decode(v); err != nil {
		return fmt.Errorf("finance %s: %w", op, err)
	}
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
