// Package semanticscholar reads paper metadata from the Semantic Scholar
// Graph API.
package semanticscholar

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const (
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"
	EnvAPIKey      = "SEMANTIC_SCHOLAR_API_KEY"
	DefaultLimit   = 10
)

var DefaultFields = []string{
	"title",
	"authors",
	"year",
	"abstract",
	"externalIds",
	"venue",
	"url",
	"paperId",
	"citationCount",
	"referenceCount",
	"influentialCitationCount",
}

type Client struct {
	api    *apiclient.Client
	apiKey string
}

// New builds a client. The key is optional and only raises rate limits.
func New(apiKey string, opts ...apiclient.Option) *Client {
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
	}
	return &Client{api: apiclient.New("semanticscholar", opts...), apiKey: apiKey}
}

type Paper struct {
	PaperID     string   `json:"paper_id"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Year        int      `json:"year,omitempty"`
	Abstract    string   `json:"abstract,omitempty"`
	DOI         string   `json:"doi,omitempty"`
	Venue       string   `json:"venue,omitempty"`
	URL         string   `json:"url,omitempty"`
	Citations   int      `json:"citation_count"`
	References  int      `json:"reference_count"`
	Influential int      `json:"influential_citation_count"`
	Keywords    []string `json:"keywords,omitempty"`
}

func (p *Paper) Kind() string { return "semanticscholar.paper" }

func (p *Paper) Fields() map[string]any {
	return map[string]any{
		"paper_id":                   p.PaperID,
		"title":                      p.Title,
		"authors":                    p.Authors,
		"year":                       p.Year,
		"abstract":                   p.Abstract,
		"doi":                        p.DOI,
		"venue":                      p.Venue,
		"url":                        p.URL,
		"citation_count":             p.Citations,
		"reference_count":            p.References,
		"influential_citation_count": p.Influential,
		"source":                     "semantic_scholar",
	}
}

type Papers []Paper

func (ps Papers) Kind() string { return "semanticscholar.papers" }

func (ps Papers) Fields() map[string]any {
	list := make([]map[string]any, len(ps))
	for i := range ps {
		list[i] = ps[i].Fields()
	}
	return map[string]any{"count": len(ps), "papers": list}
}

type rawPaper struct {
	PaperID string `json:"paperId"`
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Year        int            `json:"year"`
	Abstract    string         `json:"abstract"`
	ExternalIDs map[string]any `json:"externalIds"`
	Venue       string         `json:"venue"`
	URL         string         `json:"url"`
	Citations   int            `json:"citationCount"`
	References  int            `json:"referenceCount"`
	Influential int            `json:"influentialCitationCount"`
	Topics      []struct {
		Topic string `json:"topic"`
	} `json:"topics"`
}

func (r rawPaper) paper() Paper {
	p := Paper{
		PaperID:     r.PaperID,
		Title:       r.Title,
		Authors:     make([]string, 0, len(r.Authors)),
		Year:        r.Year,
		Abstract:    r.Abstract,
		Venue:       r.Venue,
		URL:         r.URL,
		Citations:   r.Citations,
		References:  r.References,
		Influential: r.Influential,
	}
	for _, a := range r.Authors {
		if a.Name != "" {
			p.Authors = append(p.Authors, a.Name)
		}
	}
	for _, t := range r.Topics {
		if t.Topic != "" {
			p.Keywords = append(p.Keywords, t.Topic)
		}
	}
	if doi, ok := r.ExternalIDs["DOI"].(string); ok {
		p.DOI = doi
	}
	return p
}

// Search returns papers matching query. Results without a title are
// dropped. Nil fields means DefaultFields.
func (c *Client) Search(ctx context.Context, query string, limit int, fields []string) (Papers, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apiclient.Configf("semanticscholar: query is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	var body struct {
		Data []rawPaper `json:"data"`
	}
	err := c.api.FetchJSON(ctx, apiclient.Request{
		Op:       "search",
		Endpoint: DefaultBaseURL + "/paper/search",
		Auth:     c.auth(),
		Params: apiclient.Params{}.
			Add("query", query).
			Add("limit", strconv.Itoa(limit)).
			Add("fields", joinFields(fields)),
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("semanticscholar search: %w", err)
	}
	out := make(Papers, 0, len(body.Data))
	for _, r := range body.Data {
		if r.Title == "" {
			continue
		}
		out = append(out, r.paper())
	}
	c.api.Logger().Info().Str("query", query).Int("papers", len(out)).Msg("semantic scholar search")
	return out, nil
}

// SearchResult is delivered once on the channel returned by SearchAsync.
type SearchResult struct {
	Papers Papers
	Err    error
}

// SearchAsync runs Search in a goroutine. The channel receives exactly one
// value and is then closed.
func (c *Client) SearchAsync(ctx context.Context, query string, limit int, fields []string) <-chan SearchResult {
	ch := make(chan SearchResult, 1)
	go func() {
		defer close(ch)
		ps, err := c.Search(ctx, query, limit, fields)
		ch <- SearchResult{Papers: ps, Err: err}
	}()
	return ch
}

// GetByDOI looks up a paper by DOI or by any prefixed Semantic Scholar id
// such as "arXiv:2301.07041". A 404 is not-found.
func (c *Client) GetByDOI(ctx context.Context, doi string, fields []string) (*Paper, error) {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return nil, apiclient.Configf("semanticscholar: doi is required")
	}
	var r rawPaper
	err := c.api.FetchJSON(ctx, apiclient.Request{
		Op:       "paper",
		Endpoint: DefaultBaseURL + "/paper/" + doi,
		Auth:     c.auth(),
		Params:   apiclient.Params{}.Add("fields", joinFields(fields)),
		NotFound: true,
	}, &r)
	if err != nil {
		return nil, fmt.Errorf("semanticscholar paper %s: %w", doi, err)
	}
	p := r.paper()
	return &p, nil
}

func (c *Client) GetByArxivID(ctx context.Context, id string, fields []string) (*Paper, error) {
	id = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(id), "arxiv:"), "arXiv:")
	if id == "" {
		return nil, apiclient.Configf("semanticscholar: arxiv id is required")
	}
	return c.GetByDOI(ctx, "arXiv:"+id, fields)
}

func (c *Client) auth() apiclient.Auth {
	return apiclient.Auth{Token: c.apiKey, Header: "x-api-key", Env: EnvAPIKey}
}

func joinFields(fields []string) string {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	return strings.Join(fields, ",")
}
