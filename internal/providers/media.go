package providers

import (
	"context"

	"github.com/briangreenhill/researchdata/internal/config"
	"github.com/briangreenhill/researchdata/pkg/apiclient"
	"github.com/briangreenhill/researchdata/pkg/finance"
	"github.com/briangreenhill/researchdata/pkg/myanimelist"
	"github.com/briangreenhill/researchdata/pkg/news"
	"github.com/briangreenhill/researchdata/pkg/wolfram"
	"github.com/briangreenhill/researchdata/pkg/youtube"
)

func newsSource(cfg *config.Config, opts []apiclient.Option) *source {
	return &source{
		name:        "news",
		description: "NewsAPI headlines, article search and sources",
		ops: map[string]opFunc{
			"headlines": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				o := news.HeadlineOptions{
					Country:  r.str("country", ""),
					Category: r.str("category", ""),
					Query:    r.str("query", ""),
					PageSize: r.int("page_size", 0),
				}
				if r.err != nil {
					return nil, r.err
				}
				c, err := news.New(cfg.Keys.News, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.TopHeadlines(ctx, o))
			},
			"everything": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				q := r.required("query")
				o := news.EverythingOptions{
					From:     r.str("from", ""),
					To:       r.str("to", ""),
					Language: r.str("language", ""),
					SortBy:   r.str("sort_by", ""),
					PageSize: r.int("page_size", 0),
				}
				if r.err != nil {
					return nil, r.err
				}
				c, err := news.New(cfg.Keys.News, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.Everything(ctx, q, o))
			},
			"sources": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				c, err := news.New(cfg.Keys.News, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.Sources(ctx, r.str("category", ""), r.str("language", ""), r.str("country", "")))
			},
		},
	}
}

func financeSource(cfg *config.Config, opts []apiclient.Option) *source {
	return &source{
		name:        "finance",
		description: "Alpha Vantage stock, currency and crypto prices",
		ops: map[string]opFunc{
			"daily": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				symbol, size := r.required("symbol"), r.str("output_size", finance.OutputCompact)
				if r.err != nil {
					return nil, r.err
				}
				c, err := finance.New(cfg.Keys.AlphaVantage, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.Daily(ctx, symbol, size))
			},
			"fx": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				from, to := r.required("from"), r.required("to")
				if r.err != nil {
					return nil, r.err
				}
				c, err := finance.New(cfg.Keys.AlphaVantage, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.FXRate(ctx, from, to))
			},
			"crypto": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				symbol, market := r.required("symbol"), r.str("market", finance.DefaultMarket)
				if r.err != nil {
					return nil, r.err
				}
				c, err := finance.New(cfg.Keys.AlphaVantage, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.CryptoDaily(ctx, symbol, market))
			},
		},
	}
}

func youtubeSource(cfg *config.Config, opts []apiclient.Option) *source {
	return &source{
		name:        "youtube",
		description: "YouTube Data API video search, channels and playlists",
		ops: map[string]opFunc{
			"search": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				q := r.required("query")
				o := youtube.SearchOptions{
					MaxResults: r.int("max", youtube.DefaultMaxResults),
					Order:      r.str("order", youtube.DefaultOrder),
					SafeSearch: r.str("safe_search", youtube.DefaultSafeSearch),
					Duration:   r.str("duration", ""),
				}
				if r.err != nil {
					return nil, r.err
				}
				c, err := youtube.New(cfg.Keys.YouTube, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.SearchVideos(ctx, q, o))
			},
			"channel": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				id := r.required("id")
				if r.err != nil {
					return nil, r.err
				}
				c, err := youtube.New(cfg.Keys.YouTube, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.ChannelStatistics(ctx, id))
			},
			"playlist": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				id, limit := r.required("id"), r.int("max", youtube.DefaultPlaylistMax)
				if r.err != nil {
					return nil, r.err
				}
				c, err := youtube.New(cfg.Keys.YouTube, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.PlaylistItems(ctx, id, limit))
			},
		},
	}
}

func malSource(cfg *config.Config, opts []apiclient.Option) *source {
	return &source{
		name:        "myanimelist",
		description: "MyAnimeList anime search, details and seasonal charts",
		ops: map[string]opFunc{
			"search": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				q, limit, fields := r.required("query"), r.int("limit", myanimelist.DefaultLimit), r.str("fields", "")
				if r.err != nil {
					return nil, r.err
				}
				c, err := myanimelist.New(cfg.Keys.MyAnimeList, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.SearchAnime(ctx, q, limit, fields))
			},
			"anime": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				id := r.int("id", 0)
				if r.err == nil && id <= 0 {
					r.fail(apiclient.Configf("argument %q must be a positive integer", "id"))
				}
				if r.err != nil {
					return nil, r.err
				}
				c, err := myanimelist.New(cfg.Keys.MyAnimeList, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.AnimeDetails(ctx, id))
			},
			"season": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				year, season, limit := r.int("year", 0), r.required("season"), r.int("limit", myanimelist.DefaultSeasonLimit)
				if r.err == nil && year == 0 {
					r.fail(apiclient.Configf("argument %q is required", "year"))
				}
				if r.err != nil {
					return nil, r.err
				}
				c, err := myanimelist.New(cfg.Keys.MyAnimeList, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.Season(ctx, year, season, limit))
			},
		},
	}
}

func wolframSource(cfg *config.Config, opts []apiclient.Option) *source {
	// query builds an op around one single-argument client method.
	query := func(run func(c *wolfram.Client, ctx context.Context, q string) (*wolfram.Answer, error), arg string) opFunc {
		return func(ctx context.Context, a Args) (apiclient.Result, error) {
			r := a.read()
			q := r.required(arg)
			if r.err != nil {
				return nil, r.err
			}
			c, err := wolfram.New(cfg.Keys.WolframAlpha, opts...)
			if err != nil {
				return nil, err
			}
			return wrap(run(c, ctx, q))
		}
	}
	return &source{
		name:        "wolfram",
		description: "Wolfram|Alpha short answers, full results and unit conversion",
		ops: map[string]opFunc{
			"short":     query((*wolfram.Client).Short, "query"),
			"spoken":    query((*wolfram.Client).Spoken, "query"),
			"full":      query((*wolfram.Client).Full, "query"),
			"calculate": query((*wolfram.Client).Calculate, "expression"),
			"define":    query((*wolfram.Client).Define, "word"),
			"image": func(_ context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				q := r.required("query")
				if r.err != nil {
					return nil, r.err
				}
				c, err := wolfram.New(cfg.Keys.WolframAlpha, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.ImageURL(q))
			},
			"convert": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				value, from, to := r.required("value"), r.required("from"), r.required("to")
				if r.err != nil {
					return nil, r.err
				}
				c, err := wolfram.New(cfg.Keys.WolframAlpha, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.Convert(ctx, value, from, to))
			},
		},
	}
}
