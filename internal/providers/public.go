package providers

import (
	"context"
	"strings"

	"github.com/briangreenhill/researchdata/internal/config"
	"github.com/briangreenhill/researchdata/pkg/apiclient"
	"github.com/briangreenhill/researchdata/pkg/archive"
	"github.com/briangreenhill/researchdata/pkg/census"
	"github.com/briangreenhill/researchdata/pkg/fec"
	"github.com/briangreenhill/researchdata/pkg/nasa"
	"github.com/briangreenhill/researchdata/pkg/weather"
)

// DefaultCensusYear is used when a census operation gets no year.
const DefaultCensusYear = 2022

func censusSource(cfg *config.Config, opts []apiclient.Option) *source {
	client := func(ctx context.Context) (*census.Client, error) {
		return census.New(census.Config{
			APIKey:       cfg.Keys.Census,
			CacheDir:     cfg.CacheDir,
			DisableCache: !cfg.UseCache,
			Timeout:      cfg.Timeout,
			Metadata:     censusMetadata(ctx),
		}, opts...)
	}
	return &source{
		name:        "census",
		description: "US Census Bureau ACS tables, cached on disk",
		ops: map[string]opFunc{
			"acs": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				q := census.ACSQuery{
					Year:      r.int("year", DefaultCensusYear),
					Dataset:   r.str("dataset", census.DefaultDataset),
					Variables: variables(r.required("variables")),
					Geography: r.str("geography", census.DefaultGeo),
					State:     r.str("state", ""),
				}
				if r.err != nil {
					return nil, r.err
				}
				c, err := client(ctx)
				if err != nil {
					return nil, err
				}
				return wrap(c.FetchACS(ctx, q))
			},
			"saipe": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				year, geo, state := r.int("year", DefaultCensusYear), r.str("geography", "county"), r.str("state", "")
				if r.err != nil {
					return nil, r.err
				}
				c, err := client(ctx)
				if err != nil {
					return nil, err
				}
				return wrap(c.FetchSAIPE(ctx, year, geo, state))
			},
			"population": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				year, geo, state := r.int("year", DefaultCensusYear), r.str("geography", census.DefaultGeo), r.str("state", "")
				if r.err != nil {
					return nil, r.err
				}
				c, err := client(ctx)
				if err != nil {
					return nil, err
				}
				return wrap(c.FetchPopulation(ctx, year, geo, state))
			},
		},
	}
}

// variables parses "CODE=name,CODE2". A bare code names its own column.
func variables(list string) []census.Variable {
	var out []census.Variable
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, name, ok := strings.Cut(part, "=")
		if !ok || name == "" {
			name = code
		}
		out = append(out, census.Variable{Code: code, Name: name})
	}
	return out
}

func weatherSource(opts []apiclient.Option) *source {
	return &source{
		name:        "weather",
		description: "NOAA National Weather Service forecasts and alerts",
		ops: map[string]opFunc{
			"current": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				lat, lon := r.float("lat"), r.float("lon")
				if r.err != nil {
					return nil, r.err
				}
				return wrap(weather.New(opts...).CurrentWeather(ctx, lat, lon))
			},
			"forecast": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				lat, lon, periods := r.float("lat"), r.float("lon"), r.int("periods", 0)
				if r.err != nil {
					return nil, r.err
				}
				return wrap(weather.New(opts...).Forecast(ctx, lat, lon, periods))
			},
			"alerts": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				state := r.required("state")
				if r.err != nil {
					return nil, r.err
				}
				return wrap(weather.New(opts...).Alerts(ctx, state))
			},
		},
	}
}

func archiveSource(opts []apiclient.Option) *source {
	return &source{
		name:        "archive",
		description: "Wayback Machine snapshots and captures, plus archive.is, Memento and 12ft checks",
		ops: map[string]opFunc{
			"latest": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				url := r.required("url")
				if r.err != nil {
					return nil, r.err
				}
				return wrap(archive.New(opts...).LatestSnapshot(ctx, url))
			},
			"at": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				url, ts := r.required("url"), r.time("timestamp", archive.TimestampLayout)
				if r.err != nil {
					return nil, r.err
				}
				return wrap(archive.New(opts...).SnapshotAt(ctx, url, ts))
			},
			"capture": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				url, wait := r.required("url"), r.bool("wait", false)
				if r.err != nil {
					return nil, r.err
				}
				return wrap(archive.New(opts...).ArchiveURL(ctx, url, archive.CaptureOptions{Wait: wait}))
			},
			"snapshots": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				url := r.required("url")
				limit := r.int("limit", archive.DefaultSnapshotLimit)
				from, to := r.time("from", "20060102"), r.time("to", "20060102")
				if r.err != nil {
					return nil, r.err
				}
				return wrap(archive.New(opts...).AllSnapshots(ctx, url, limit, from, to))
			},
			"check": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				url, provider := r.required("url"), r.str("provider", archive.ProviderWayback)
				if r.err != nil {
					return nil, r.err
				}
				return wrap(archive.NewMulti(opts...).Check(ctx, url, provider))
			},
			"all": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				url := r.required("url")
				if r.err != nil {
					return nil, r.err
				}
				return wrap(archive.NewMulti(opts...).AllArchives(ctx, url))
			},
		},
	}
}

func nasaSource(cfg *config.Config, opts []apiclient.Option) *source {
	client := func() *nasa.Client { return nasa.New(cfg.Keys.NASA, opts...) }
	return &source{
		name:        "nasa",
		description: "NASA APOD, Mars rover photos, Landsat imagery and near earth objects",
		ops: map[string]opFunc{
			"apod": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				date, count := r.str("date", ""), r.int("count", 0)
				if r.err != nil {
					return nil, r.err
				}
				return wrap(client().APOD(ctx, date, count))
			},
			"mars": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				sol, rover, camera := r.int("sol", 1000), r.str("rover", nasa.DefaultRover), r.str("camera", "")
				if r.err != nil {
					return nil, r.err
				}
				return wrap(client().MarsPhotos(ctx, sol, rover, camera))
			},
			"earth": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				lat, lon, date := r.float("lat"), r.float("lon"), r.str("date", "")
				if r.err != nil {
					return nil, r.err
				}
				return wrap(client().EarthImagery(ctx, lat, lon, date, 0))
			},
			"neo": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				return wrap(client().NearEarthObjects(ctx, r.str("start", ""), r.str("end", "")))
			},
		},
	}
}

func fecSource(cfg *config.Config, opts []apiclient.Option) *source {
	schedule := func(r *reader) fec.ScheduleQuery {
		return fec.ScheduleQuery{
			CommitteeID:     r.str("committee_id", ""),
			ContributorName: r.str("contributor_name", ""),
			MinAmount:       r.decimal("min_amount"),
			MaxDate:         r.str("max_date", ""),
			PerPage:         r.int("per_page", 0),
		}
	}
	return &source{
		name:        "fec",
		description: "Federal Election Commission candidate and committee finances",
		ops: map[string]opFunc{
			"candidates": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				q := fec.CandidateQuery{
					Name:    r.str("name", ""),
					Office:  strings.ToUpper(r.str("office", "")),
					State:   r.str("state", ""),
					Party:   r.str("party", ""),
					Cycle:   r.int("cycle", 0),
					PerPage: r.int("per_page", 0),
				}
				if r.err != nil {
					return nil, r.err
				}
				c, err := fec.New(cfg.Keys.FEC, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.SearchCandidates(ctx, q))
			},
			"candidate_totals": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				id, cycle := r.required("id"), r.int("cycle", 0)
				if r.err != nil {
					return nil, r.err
				}
				c, err := fec.New(cfg.Keys.FEC, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.CandidateTotals(ctx, id, cycle))
			},
			"committee": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				id := r.required("id")
				if r.err != nil {
					return nil, r.err
				}
				c, err := fec.New(cfg.Keys.FEC, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.Committee(ctx, id))
			},
			"committee_totals": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				id, cycle := r.required("id"), r.int("cycle", 0)
				if r.err != nil {
					return nil, r.err
				}
				c, err := fec.New(cfg.Keys.FEC, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.CommitteeTotals(ctx, id, cycle))
			},
			"disbursements": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				q := schedule(r)
				if r.err != nil {
					return nil, r.err
				}
				c, err := fec.New(cfg.Keys.FEC, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.Disbursements(ctx, q))
			},
			"contributions": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				q := schedule(r)
				if r.err != nil {
					return nil, r.err
				}
				c, err := fec.New(cfg.Keys.FEC, opts...)
				if err != nil {
					return nil, err
				}
				return wrap(c.Contributions(ctx, q))
			},
		},
	}
}
