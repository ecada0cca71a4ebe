package providers

import (
	"context"

	"github.com/briangreenhill/researchdata/cache"
	"github.com/briangreenhill/researchdata/internal/config"
	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

// Setup creates a registry with every built-in source. Clients are built per
// call, so a source whose credential is missing still registers and reports
// the configuration error when used.
func Setup(cfg *config.Config, opts ...apiclient.Option) *Registry {
	registry := NewRegistry()
	base := append([]apiclient.Option{apiclient.WithTimeout(cfg.Timeout)}, opts...)

	registry.Register(censusSource(cfg, base), "acs", "saipe")
	registry.Register(weatherSource(base), "noaa", "nws")
	registry.Register(archiveSource(base), "wayback", "internetarchive", "archives")
	registry.Register(pubmedSource(cfg, base), "ncbi", "medline")
	registry.Register(semanticScholarSource(cfg, base), "ss", "s2", "semantic_scholar")
	registry.Register(arxivSource(base))
	registry.Register(wikipediaSource(base), "wiki")
	registry.Register(githubSource(cfg, base), "gh")
	registry.Register(newsSource(cfg, base), "newsapi")
	registry.Register(openLibrarySource(base), "books", "open_library")
	registry.Register(nasaSource(cfg, base))
	registry.Register(financeSource(cfg, base), "alphavantage", "alpha_vantage", "stocks")
	registry.Register(youtubeSource(cfg, base), "yt")
	registry.Register(fecSource(cfg, base), "openfec", "campaign_finance")
	registry.Register(malSource(cfg, base), "mal", "anime")
	registry.Register(wolframSource(cfg, base), "wolframalpha", "wa")

	return registry
}

type metadataKey struct{}

// WithCensusMetadata makes census operations run under ctx record into m,
// so a caller can keep one collection record across many calls.
func WithCensusMetadata(ctx context.Context, m *cache.Metadata) context.Context {
	return context.WithValue(ctx, metadataKey{}, m)
}

func censusMetadata(ctx context.Context) *cache.Metadata {
	m, _ := ctx.Value(metadataKey{}).(*cache.Metadata)
	return m
}

// wrap converts a typed result into apiclient.Result without leaking a typed
// nil on error.
func wrap[T apiclient.Result](v T, err error) (apiclient.Result, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}
