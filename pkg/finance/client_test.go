package finance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New("demo", apiclient.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func TestNewRequiresKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	_, err := New("")
	assert.ErrorIs(t, err, apiclient.ErrConfig)
}

func TestDailySortedMostRecentFirst(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "TIME_SERIES_DAILY_ADJUSTED", q.Get("function"))
		assert.Equal(t, "compact", q.Get("outputsize"))
		assert.Equal(t, "demo", q.Get("apikey"))
		_, _ = w.Write([]byte(`{"Meta Data":{"2. Symbol":"IBM"},"Time Series (Daily)":{
"2024-01-02":{"1. open":"160.10","2. high":"161","3. low":"159.5","4. close":"160.90","5. adjusted close":"158.2","6. volume":"3100000"},
"2024-01-03":{"1. open":"161.00","2. high":"162","3. low":"160","4. close":"161.50","5. adjusted close":"159.0","6. volume":"2900000"}}}`))
	})

	s, err := c.Daily(context.Background(), "IBM", "")
	require.NoError(t, err)
	require.Len(t, s.Prices, 2)
	assert.Equal(t, "2024-01-03", s.Prices[0].Date)
	assert.Equal(t, "161.5", s.Prices[0].Close.String())
	assert.Equal(t, int64(2900000), s.Prices[0].Volume)
	assert.Equal(t, "IBM", s.Metadata["2. Symbol"])
}

func TestThrottleNoteIsClientError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`))
	})

	_, err := c.FXRate(context.Background(), "USD", "EUR")
	require.ErrorIs(t, err, apiclient.ErrClient)
	assert.Contains(t, err.Error(), "call frequency")
}

func TestErrorMessageIsClientError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Error Message":"Invalid API call."}`))
	})

	_, err := c.Daily(context.Background(), "NOPE", OutputFull)
	assert.ErrorIs(t, err, apiclient.ErrClient)
}

func TestFXRate(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Realtime Currency Exchange Rate":{"1. From_Currency Code":"USD","3. To_Currency Code":"EUR",
"5. Exchange Rate":"0.91230000","6. Last Refreshed":"2024-01-03 10:00:01","8. Bid Price":"0.9122","9. Ask Price":"0.9124"}}`))
	})

	fx, err := c.FXRate(context.Background(), "USD", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "EUR", fx.To)
	assert.Equal(t, "0.9123", fx.Rate.String())
	assert.True(t, fx.Ask.GreaterThan(fx.Bid))
}

func TestCryptoDailyUsesMarketColumns(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "EUR", r.URL.Query().Get("market"))
		_, _ = w.Write([]byte(`{"Time Series (Digital Currency Daily)":{"2024-01-01":{"1a. open (EUR)":"38000.5",
"4a. close (EUR)":"39000","5. volume":"12.5","6. market cap (USD)":"1000"}}}`))
	})

	cs, err := c.CryptoDaily(context.Background(), "BTC", "EUR")
	require.NoError(t, err)
	require.Len(t, cs.Quotes, 1)
	assert.Equal(t, "38000.5", cs.Quotes[0].Open.String())
	assert.True(t, cs.Quotes[0].High.IsZero())
}

func TestBadOutputSize(t *testing.T) {
	t.Setenv(EnvAPIKey, "k")
	c, err := New("")
	require.NoError(t, err)
	_, err = c.Daily(context.Background(), "IBM", "huge")
	assert.ErrorIs(t, err, apiclient.ErrConfig)
}
