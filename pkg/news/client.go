// Package news wraps NewsAPI.org: top headlines, full-archive search and
// the source directory. An API key is required.
package news

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const (
	DefaultBaseURL  = "https://newsapi.org/v2"
	EnvAPIKey       = "NEWS_API_KEY"
	DefaultPageSize = 20
)

type Client struct {
	api    *apiclient.Client
	apiKey string
}

// New fails with a configuration error when no key is given or set in
// NEWS_API_KEY.
func New(apiKey string, opts ...apiclient.Option) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
	}
	if apiKey == "" {
		return nil, apiclient.MissingCredential("news", EnvAPIKey)
	}
	return &Client{api: apiclient.New("news", opts...), apiKey: apiKey}, nil
}

type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content,omitempty"`
	URL         string `json:"url"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
	PublishedAt string `json:"publishedAt"`
	Author      string `json:"author"`
	ImageURL    string `json:"urlToImage"`
}

func (a Article) fields() map[string]any {
	return map[string]any{
		"title":        a.Title,
		"description":  a.Description,
		"content":      a.Content,
		"url":          a.URL,
		"source":       a.Source.Name,
		"published_at": a.PublishedAt,
		"author":       a.Author,
		"image_url":    a.ImageURL,
	}
}

type Articles struct {
	Query        string    `json:"-"`
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

func (a *Articles) Kind() string { return "news.articles" }

func (a *Articles) Fields() map[string]any {
	list := make([]map[string]any, len(a.Articles))
	for i := range a.Articles {
		list[i] = a.Articles[i].fields()
	}
	return map[string]any{"query": a.Query, "status": a.Status, "total_results": a.TotalResults, "articles": list}
}

type Source struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Category    string `json:"category"`
	Country     string `json:"country"`
	Language    string `json:"language"`
}

type Sources struct {
	Sources []Source `json:"sources"`
}

func (s *Sources) Kind() string { return "news.sources" }

func (s *Sources) Fields() map[string]any {
	return map[string]any{"sources": s.Sources, "count": len(s.Sources)}
}

type HeadlineOptions struct {
	Country  string
	Category string
	Query    string
	PageSize int
}

func (c *Client) TopHeadlines(ctx context.Context, opts HeadlineOptions) (*Articles, error) {
	if opts.Country == "" {
		opts.Country = "us"
	}
	out := &Articles{Query: opts.Query}
	err := c.get(ctx, "top-headlines", apiclient.Params{}.
		Add("country", opts.Country).
		AddIf("category", opts.Category).
		AddIf("q", opts.Query).
		Add("pageSize", pageSize(opts.PageSize)), out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type EverythingOptions struct {
	// From and To are YYYY-MM-DD dates.
	From     string
	To       string
	Language string
	// SortBy is relevancy, popularity or publishedAt.
	SortBy   string
	PageSize int
}

func (c *Client) Everything(ctx context.Context, query string, opts EverythingOptions) (*Articles, error) {
	if query == "" {
		return nil, apiclient.Configf("news: query is required")
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.SortBy == "" {
		opts.SortBy = "publishedAt"
	}
	out := &Articles{Query: query}
	err := c.get(ctx, "everything", apiclient.Params{}.
		Add("q", query).
		Add("language", opts.Language).
		Add("sortBy", opts.SortBy).
		Add("pageSize", pageSize(opts.PageSize)).
		AddIf("from", opts.From).
		AddIf("to", opts.To), out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Sources(ctx context.Context, category, language, country string) (*Sources, error) {
	if language == "" {
		language = "en"
	}
	out := &Sources{}
	err := c.get(ctx, "sources", apiclient.Params{}.
		Add("language", language).
		AddIf("category", category).
		AddIf("country", country), out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params apiclient.Params, out any) error {
	err := c.api.FetchJSON(ctx, apiclient.Request{
		Op:       path,
		Endpoint: DefaultBaseURL + "/" + path,
		Params:   params,
		Auth:     apiclient.Auth{Token: c.apiKey, Required: true, Param: "apiKey", Env: EnvAPIKey},
	}, out)
	if err != nil {
		return fmt.Errorf("news %s: %w", path, err)
	}
	return nil
}

func pageSize(n int) string {
	if n <= 0 {
		n = DefaultPageSize
	}
	return strconv.Itoa(n)
}
