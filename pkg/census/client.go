// Package census fetches American Community Survey tables from the Census
// Bureau API and caches them on disk.
package census

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/researchdata/cache"
	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const (
	DefaultBaseURL = "https://api.census.gov/data"
	DefaultDataset = "acs5"
	DefaultGeo     = "county:*"
	EnvAPIKey      = "CENSUS_API_KEY"
)

type Config struct {
	// APIKey falls back to CENSUS_API_KEY. The API works without one at a
	// lower request quota.
	APIKey       string
	CacheDir     string
	DisableCache bool
	Timeout      time.Duration
	// Metadata lets a caller carry collection metadata across client
	// instances. A fresh record is created when nil.
	Metadata     *cache.Metadata
}

type Client struct {
	api    *apiclient.Client
	apiKey string
	cache  *cache.FileCache
	meta   *cache.Metadata
	logger zerolog.Logger
}

func New(cfg Config, opts ...apiclient.Option) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(EnvAPIKey)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = apiclient.DefaultTimeout
	}
	if cfg.Timeout < 0 {
		return nil, apiclient.Configf("census: timeout must be positive, got %s", cfg.Timeout)
	}

	api := apiclient.New("census", append([]apiclient.Option{apiclient.WithTimeout(cfg.Timeout)}, opts...)...)
	logger := api.Logger().With().Logger()

	fc, err := cache.NewFileCache(cfg.CacheDir, cache.WithEnabled(!cfg.DisableCache), cache.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("census: %w", err)
	}
	meta := cfg.Metadata
	if meta == nil {
		meta = cache.NewMetadata()
	}
	return &Client{api: api, apiKey: cfg.APIKey, cache: fc, meta: meta, logger: logger}, nil
}

// Variable maps a Census variable code to the column name it gets in the
// result.
type Variable struct {
	Code string
	Name string
}

type ACSQuery struct {
	Year      int
	Dataset   string
	Variables []Variable
	Geography string
	State     string
}

// Dataset is the tabular result of a Census fetch.
type Dataset struct {
	Key    string
	Source string
	Table  *cache.Table
}

func (d *Dataset) Kind() string { return "census.dataset" }

func (d *Dataset) Fields() map[string]any {
	cols := make([]string, len(d.Table.Columns))
	for i, c := range d.Table.Columns {
		cols[i] = c.Name
	}
	return map[string]any{
		"key":     d.Key,
		"source":  d.Source,
		"rows":    d.Table.Len(),
		"columns": cols,
		"records": d.Table.Records(),
	}
}

// FetchACS returns the requested variables for every geography matched by
// q.Geography, optionally limited to one state.
func (c *Client) FetchACS(ctx context.Context, q ACSQuery) (*Dataset, error) {
	if q.Year <= 0 {
		return nil, apiclient.Configf("census: year is required")
	}
	if len(q.Variables) == 0 {
		return nil, apiclient.Configf("census: at least one variable is required")
	}
	if q.Dataset == "" {
		q.Dataset = DefaultDataset
	}
	if q.Geography == "" {
		q.Geography = DefaultGeo
	}

	codes := make([]string, len(q.Variables))
	pairs := make([]string, len(q.Variables))
	names := map[string]string{"NAME": "name"}
	for i, v := range q.Variables {
		if v.Code == "" || v.Name == "" {
			return nil, apiclient.Configf("census: variable %d needs both a code and a name", i)
		}
		codes[i] = v.Code
		pairs[i] = v.Code + "=" + v.Name
		names[v.Code] = v.Name
	}
	sorted := append([]string(nil), codes...)
	sort.Strings(sorted)

	prefix := fmt.Sprintf("acs_%d_%s_%s_%s", q.Year, q.Dataset, strings.ReplaceAll(q.Geography, ":", "_"), strings.Join(sorted, "-"))
	if q.State != "" {
		prefix += "_state" + q.State
	}
	key := cache.KeyFor(prefix, map[string]string{
		"year":      strconv.Itoa(q.Year),
		"dataset":   q.Dataset,
		"geography": q.Geography,
		"state":     q.State,
	}, map[string][]string{"variables": pairs})

	params := apiclient.Params{}.
		Add("get", strings.Join(append([]string{"NAME"}, codes...), ",")).
		Add("for", q.Geography)
	if q.State != "" {
		params = params.Add("in", "state:"+q.State)
	}

	label := fmt.Sprintf("Census ACS %s %d", q.Dataset, q.Year)
	return c.fetch(ctx, key, label, apiclient.Request{
		Op:       "acs",
		Endpoint: fmt.Sprintf("%s/%d/acs/%s", DefaultBaseURL, q.Year, q.Dataset),
		Params:   params,
	}, func(t *cache.Table) {
		if strings.Contains(q.Geography, "county") {
			addFIPS(t)
		}
		t.Rename(names)
		for _, v := range q.Variables {
			numeric(t, v.Name)
		}
	})
}

// FetchSAIPE approximates Small Area Income and Poverty Estimates from the
// ACS poverty universe, adding a poverty_rate percentage column. geography is
// a level such as "county", "state" or "us".
func (c *Client) FetchSAIPE(ctx context.Context, year int, geography, state string) (*Dataset, error) {
	if year <= 0 {
		return nil, apiclient.Configf("census: year is required")
	}
	if geography == "" {
		geography = "county"
	}
	prefix := fmt.Sprintf("saipe_%d_%s", year, geography)
	if state != "" {
		prefix += "_state" + state
	}
	key := cache.KeyFor(prefix, map[string]string{
		"year":      strconv.Itoa(year),
		"geography": geography,
		"state":     state,
	}, nil)

	params := apiclient.Params{}.
		Add("get", "NAME,B17001_001E,B17001_002E").
		Add("for", geography+":*")
	if state != "" && geography == "county" {
		params = params.Add("in", "state:"+state)
	}

	label := fmt.Sprintf("Census ACS %d (SAIPE proxy)", year)
	return c.fetch(ctx, key, label, apiclient.Request{
		Op:       "saipe",
		Endpoint: fmt.Sprintf("%s/%d/acs/acs5", DefaultBaseURL, year),
		Params:   params,
	}, func(t *cache.Table) {
		if geography == "county" {
			addFIPS(t)
		}
		t.Rename(map[string]string{"NAME": "name", "B17001_001E": "total_pop", "B17001_002E": "poverty_pop"})
		numeric(t, "total_pop")
		numeric(t, "poverty_pop")
		t.Derive(cache.Column{Name: "poverty_rate", Kind: cache.KindFloat}, func(rec map[string]any) any {
			total, ok1 := asFloat(rec["total_pop"])
			poor, ok2 := asFloat(rec["poverty_pop"])
			if !ok1 || !ok2 || total == 0 {
				return nil
			}
			return math.Round(poor/total*100*100) / 100
		})
	})
}

// FetchPopulation returns total population (B01003_001E) as
// total_population.
func (c *Client) FetchPopulation(ctx context.Context, year int, geography, state string) (*Dataset, error) {
	return c.FetchACS(ctx, ACSQuery{
		Year:      year,
		Variables: []Variable{{Code: "B01003_001E", Name: "total_population"}},
		Geography: geography,
		State:     state,
	})
}

func (c *Client) fetch(ctx context.Context, key cache.Key, label string, req apiclient.Request, shape func(*cache.Table)) (*Dataset, error) {
	id := key.String()
	if t, ok := c.cache.Lookup(key); ok {
		c.meta.Record(id, cache.SourceCached, t.Len())
		c.logger.Info().Str("key", id).Int("rows", t.Len()).Msg("using cached census data")
		return &Dataset{Key: id, Source: cache.SourceCached, Table: t}, nil
	}

	req.Auth = apiclient.Auth{Token: c.apiKey, Param: "key", Env: EnvAPIKey}
	resp, err := c.api.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("census %s: %w", req.Op, err)
	}
	if resp.StatusCode == http.StatusNoContent || len(resp.Payload) == 0 {
		return nil, fmt.Errorf("census %s: %w", req.Op, apiclient.NotFound(resp.URL, "no data for this query"))
	}

	var rows [][]any
	if err := resp.Decode(&rows); err != nil {
		return nil, fmt.Errorf("census %s: %w", req.Op, err)
	}
	t, err := tableFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("census %s: %w", req.Op, apiclient.Malformed(resp.URL, "%v", err))
	}
	shape(t)

	if err := c.cache.Store(key, t); err != nil {
		c.logger.Warn().Err(err).Str("key", id).Msg("cache write failed")
	}
	c.meta.Record(id, label, t.Len())
	c.logger.Info().Str("key", id).Int("rows", t.Len()).Msg("fetched census data")
	return &Dataset{Key: id, Source: label, Table: t}, nil
}

// tableFromRows converts the API's array-of-arrays body, whose first row is
// the header, into a string-typed table.
func tableFromRows(rows [][]any) (*cache.Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("response has no header row")
	}
	t := cache.NewTable()
	for _, h := range rows[0] {
		name, ok := h.(string)
		if !ok {
			return nil, fmt.Errorf("header cell %v is not a string", h)
		}
		t.Columns = append(t.Columns, cache.Column{Name: name, Kind: cache.KindString})
	}
	for i, r := range rows[1:] {
		if len(r) != len(t.Columns) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", i+1, len(r), len(t.Columns))
		}
		if err := t.Append(r...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func addFIPS(t *cache.Table) {
	if t.Index("state") < 0 || t.Index("county") < 0 {
		return
	}
	t.Derive(cache.Column{Name: "fips", Kind: cache.KindString}, func(rec map[string]any) any {
		return fmt.Sprint(rec["state"]) + fmt.Sprint(rec["county"])
	})
}

// numeric retypes a column to int when every parseable value is integral and
// to float otherwise. Values that do not parse become missing.
func numeric(t *cache.Table, name string) {
	j := t.Index(name)
	if j < 0 {
		return
	}
	kind := cache.KindInt
	for _, row := range t.Rows {
		if cache.Coerce(cache.KindFloat, row[j]) != nil && cache.Coerce(cache.KindInt, row[j]) == nil {
			kind = cache.KindFloat
			break
		}
	}
	t.Retype(name, kind)
}

func asFloat(v any) (float64, bool) {
	f, ok := cache.Coerce(cache.KindFloat, v).(float64)
	return f, ok
}

// Metadata returns what this client has fetched so far.
func (c *Client) Metadata() cache.MetadataSnapshot { return c.meta.Snapshot() }

// SaveMetadata writes the collection metadata to path as JSON.
func (c *Client) SaveMetadata(path string) error {
	if err := c.meta.Save(path); err != nil {
		return err
	}
	c.logger.Info().Str("path", path).Msg("metadata saved")
	return nil
}

// ClearCache removes cached tables matching pattern, or all when empty.
func (c *Client) ClearCache(pattern string) (int, error) { return c.cache.Clear(pattern) }

// Description summarizes how a dataset was collected, for provenance notes
// shipped alongside exported data.
type Description struct {
	Source         string    `json:"source"`
	Dataset        string    `json:"dataset"`
	CollectionDate time.Time `json:"collection_date"`
	APIKeyUsed     bool      `json:"api_key_used"`
	CacheEnabled   bool      `json:"cache_enabled"`
	CacheDirectory string    `json:"cache_directory"`
}

func (c *Client) Describe(source, dataset string) Description {
	return Description{
		Source:         source,
		Dataset:        dataset,
		CollectionDate: time.Now(),
		APIKeyUsed:     c.apiKey != "",
		CacheEnabled:   c.cache.Enabled(),
		CacheDirectory: c.cache.Dir(),
	}
}
