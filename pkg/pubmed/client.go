// Package pubmed searches PubMed through the NCBI E-utilities: an esearch
// call for matching PMIDs followed by a single esummary call for all of them.
package pubmed

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const (
	SearchURL  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	SummaryURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esummary.fcgi"

	EnvAPIKey = "NCBI_API_KEY"

	SortRelevance = "relevance"
	SortDate      = "date"

	DefaultMaxResults = 10
)

type Config struct {
	// APIKey raises NCBI rate limits. Optional.
	APIKey string
	// Email lets NCBI contact heavy users. Optional.
	Email  string
}

type Client struct {
	api    *apiclient.Client
	apiKey string
	email  string
}

func New(cfg Config, opts ...apiclient.Option) *Client {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv(EnvAPIKey)
	}
	return &Client{api: apiclient.New("pubmed", opts...), apiKey: key, email: cfg.Email}
}

type Article struct {
	PMID             string   `json:"pmid"`
	Title            string   `json:"title"`
	Authors          []string `json:"authors"`
	Journal          string   `json:"journal"`
	PublicationDate  string   `json:"publication_date"`
	DOI              string   `json:"doi,omitempty"`
	PublicationTypes []string `json:"publication_types,omitempty"`
}

func (a Article) URL() string { return "https://pubmed.ncbi.nlm.nih.gov/" + a.PMID + "/" }

func (a *Article) Kind() string { return "pubmed.article" }

func (a *Article) Fields() map[string]any {
	return map[string]any{
		"pmid":              a.PMID,
		"title":             a.Title,
		"authors":           a.Authors,
		"journal":           a.Journal,
		"publication_date":  a.PublicationDate,
		"doi":               a.DOI,
		"publication_types": a.PublicationTypes,
		"url":               a.URL(),
		"source":            "PubMed",
	}
}

type Articles []Article

func (as Articles) Kind() string { return "pubmed.articles" }

func (as Articles) Fields() map[string]any {
	list := make([]map[string]any, len(as))
	for i := range as {
		list[i] = as[i].Fields()
	}
	return map[string]any{"count": len(as), "articles": list}
}

type SearchOptions struct {
	MaxResults int
	// Sort is SortRelevance or SortDate. Empty means relevance.
	Sort       string
	Journal    string
	// DateRange is a publication date filter such as "2020/01/01:2024/01/01".
	DateRange  string
}

// Search returns articles in the order esearch ranked them.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (Articles, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apiclient.Configf("pubmed: query is required")
	}
	sort := opts.Sort
	switch sort {
	case "", SortRelevance:
		sort = "relevance"
	case SortDate:
		sort = "pub date"
	default:
		return nil, apiclient.Configf("pubmed: invalid sort %q, must be %q or %q", opts.Sort, SortRelevance, SortDate)
	}
	limit := opts.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	term := query
	if opts.Journal != "" {
		term += " AND " + opts.Journal + "[Journal]"
	}
	if opts.DateRange != "" {
		term += " AND " + opts.DateRange + "[Date - Publication]"
	}

	var body struct {
		Result struct {
			IDs []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	err := c.api.FetchJSON(ctx, apiclient.Request{
		Op:       "esearch",
		Endpoint: SearchURL,
		Auth:     c.auth(),
		Params: c.credentials(apiclient.Params{}.
			Add("db", "pubmed").
			Add("term", term).
			Add("retmax", strconv.Itoa(limit)).
			Add("retmode", "json").
			Add("sort", sort)),
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("pubmed search: %w", err)
	}
	if len(body.Result.IDs) == 0 {
		c.api.Logger().Info().Str("query", query).Msg("no pubmed results")
		return Articles{}, nil
	}
	return c.summaries(ctx, body.Result.IDs)
}

// GetByID returns one article. An unknown PMID is not-found.
func (c *Client) GetByID(ctx context.Context, pmid string) (*Article, error) {
	id := cleanPMID(pmid)
	if id == "" {
		return nil, apiclient.Configf("pubmed: pmid is required")
	}
	as, err := c.summaries(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(as) == 0 {
		return nil, apiclient.NotFound(SummaryURL, "pubmed article %s not found", id)
	}
	return &as[0], nil
}

// GetByIDs returns the articles that exist, in the order requested.
func (c *Client) GetByIDs(ctx context.Context, pmids []string) (Articles, error) {
	ids := make([]string, 0, len(pmids))
	for _, p := range pmids {
		if id := cleanPMID(p); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return Articles{}, nil
	}
	return c.summaries(ctx, ids)
}

func (c *Client) SearchByAuthor(ctx context.Context, author string, opts SearchOptions) (Articles, error) {
	if opts.Sort == "" {
		opts.Sort = SortDate
	}
	return c.Search(ctx, author+"[Author]", opts)
}

func (c *Client) SearchByMeSH(ctx context.Context, term string, opts SearchOptions) (Articles, error) {
	return c.Search(ctx, term+"[MeSH Terms]", opts)
}

func (c *Client) SearchClinicalTrials(ctx context.Context, query string, opts SearchOptions) (Articles, error) {
	return c.Search(ctx, query+` AND "Clinical Trial"[Publication Type]`, opts)
}

func (c *Client) SearchReviews(ctx context.Context, query string, opts SearchOptions) (Articles, error) {
	return c.Search(ctx, query+` AND "Review"[Publication Type]`, opts)
}

type summary struct {
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	FullJournal string   `json:"fulljournalname"`
	Source      string   `json:"source"`
	PubDate     string   `json:"pubdate"`
	ELocationID string   `json:"elocationid"`
	PubTypes    []string `json:"pubtype"`
	Error       string   `json:"error"`
}

func (c *Client) summaries(ctx context.Context, ids []string) (Articles, error) {
	resp, err := c.api.Fetch(ctx, apiclient.Request{
		Op:       "esummary",
		Endpoint: SummaryURL,
		Auth:     c.auth(),
		Params: c.credentials(apiclient.Params{}.
			Add("db", "pubmed").
			Add("id", strings.Join(ids, ",")).
			Add("retmode", "json")),
	})
	if err != nil {
		return nil, fmt.Errorf("pubmed summary: %w", err)
	}
	var body struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("pubmed summary: %w", err)
	}

	// esummary may reorder its uids; the caller's order wins.
	out := make(Articles, 0, len(ids))
	for _, uid := range ids {
		raw, ok := body.Result[uid]
		if !ok {
			continue
		}
		var s summary
		if err := json.Unmarshal(raw, &s); err != nil || s.Error != "" {
			continue
		}
		out = append(out, s.article(uid))
	}
	return out, nil
}

func (s summary) article(pmid string) Article {
	a := Article{
		PMID:             pmid,
		Title:            s.Title,
		Authors:          make([]string, 0, len(s.Authors)),
		Journal:          s.FullJournal,
		PublicationDate:  s.PubDate,
		PublicationTypes: s.PubTypes,
	}
	if a.Journal == "" {
		a.Journal = s.Source
	}
	for _, au := range s.Authors {
		if au.Name != "" {
			a.Authors = append(a.Authors, au.Name)
		}
	}
	if i := strings.Index(strings.ToLower(s.ELocationID), "doi:"); i >= 0 {
		a.DOI = strings.TrimSpace(s.ELocationID[i+len("doi:"):])
	}
	return a
}

func (c *Client) credentials(p apiclient.Params) apiclient.Params {
	return p.AddIf("email", c.email)
}

func (c *Client) auth() apiclient.Auth {
	return apiclient.Auth{Token: c.apiKey, Param: "api_key", Env: EnvAPIKey}
}

func cleanPMID(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "PMID:")
	s = strings.TrimPrefix(s, "pmid:")
	return strings.TrimSpace(s)
}
