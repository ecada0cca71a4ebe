package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/researchdata/internal/config"
	"github.com/briangreenhill/researchdata/internal/providers"
	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

func TestNewLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, &config.Config{LogLevel: "warn"})
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestRegistryRecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"numFound":0,"docs":[]}`))
	}))
	t.Cleanup(srv.Close)

	reg := prometheus.NewRegistry()
	cfg := &config.Config{Timeout: 5 * time.Second}
	registry := Registry(cfg, zerolog.Nop(), reg, apiclient.WithBaseURL(srv.URL))

	_, err := registry.Run(context.Background(), "openlibrary", "search", providers.Args{"query": "x"})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	var requests float64
	for _, f := range families {
		if f.GetName() == "researchdata_api_requests_total" {
			for _, m := range f.GetMetric() {
				requests += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(1), requests)
}

func TestWorkNeedsRedis(t *testing.T) {
	err := Work(context.Background(), &config.Config{}, NewLogger(&bytes.Buffer{}, &config.Config{}))
	assert.ErrorIs(t, err, apiclient.ErrConfig)
}
