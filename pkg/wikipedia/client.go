// Package wikipedia reads article search results, summaries and text from
// the MediaWiki action API of a single language edition.
package wikipedia

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const (
	DefaultLanguage  = "en"
	DefaultUserAgent = "researchdata-wikipedia/1.0"
	DefaultLimit     = 10
)

type Client struct {
	api  *apiclient.Client
	lang string
}

func New(lang string, opts ...apiclient.Option) *Client {
	if lang == "" {
		lang = DefaultLanguage
	}
	base := []apiclient.Option{apiclient.WithUserAgent(DefaultUserAgent)}
	return &Client{api: apiclient.New("wikipedia", append(base, opts...)...), lang: lang}
}

func (c *Client) endpoint() string {
	return "https://" + c.lang + ".wikipedia.org/w/api.php"
}

func (c *Client) articleURL(title string) string {
	return "https://" + c.lang + ".wikipedia.org/wiki/" + strings.ReplaceAll(title, " ", "_")
}

type Hit struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type SearchResults struct {
	Query   string `json:"query"`
	Results []Hit  `json:"results"`
}

func (s *SearchResults) Kind() string { return "wikipedia.search" }

func (s *SearchResults) Fields() map[string]any {
	return map[string]any{"query": s.Query, "results": s.Results, "count": len(s.Results)}
}

type Summary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	PageID  int64  `json:"page_id"`
	Image   string `json:"image,omitempty"`
	URL     string `json:"url"`
}

func (s *Summary) Kind() string { return "wikipedia.summary" }

func (s *Summary) Fields() map[string]any {
	return map[string]any{"title": s.Title, "summary": s.Summary, "page_id": s.PageID, "image": s.Image, "url": s.URL}
}

type Article struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	PageID    int64  `json:"page_id"`
	WordCount int    `json:"word_count"`
	URL       string `json:"url"`
}

func (a *Article) Kind() string { return "wikipedia.article" }

func (a *Article) Fields() map[string]any {
	return map[string]any{"title": a.Title, "content": a.Content, "page_id": a.PageID, "word_count": a.WordCount, "url": a.URL}
}

type Random struct {
	Articles []Hit `json:"articles"`
}

func (r *Random) Kind() string { return "wikipedia.random" }

func (r *Random) Fields() map[string]any {
	return map[string]any{"articles": r.Articles, "count": len(r.Articles)}
}

// Search uses opensearch, which answers [query, titles, descriptions, urls].
func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResults, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apiclient.Configf("wikipedia: query is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	var body []any
	err := c.api.FetchJSON(ctx, apiclient.Request{
		Op:       "opensearch",
		Endpoint: c.endpoint(),
		Params: apiclient.Params{}.
			Add("action", "opensearch").
			Add("search", query).
			Add("limit", strconv.Itoa(limit)).
			Add("format", "json"),
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("wikipedia search: %w", err)
	}
	out := &SearchResults{Query: query, Results: []Hit{}}
	if len(body) < 4 {
		return out, nil
	}
	titles, _ := body[1].([]any)
	descs, _ := body[2].([]any)
	urls, _ := body[3].([]any)
	for i, t := range titles {
		h := Hit{Title: fmt.Sprint(t)}
		if i < len(descs) {
			h.Description, _ = descs[i].(string)
		}
		if i < len(urls) {
			h.URL, _ = urls[i].(string)
		}
		out.Results = append(out.Results, h)
	}
	return out, nil
}

type page struct {
	PageID   int64   `json:"pageid"`
	Title    string  `json:"title"`
	Extract  string  `json:"extract"`
	Missing  *string `json:"missing"`
	Invalid  *string `json:"invalid"`
	Original struct {
		Source string `json:"source"`
	} `json:"original"`
}

func (c *Client) page(ctx context.Context, op, title string, extra apiclient.Params) (*page, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apiclient.Configf("wikipedia: title is required")
	}
	var body struct {
		Query struct {
			Pages map[string]page `json:"pages"`
		} `json:"query"`
	}
	resp, err := c.api.Fetch(ctx, apiclient.Request{
		Op:       op,
		Endpoint: c.endpoint(),
		Params: append(apiclient.Params{}.
			Add("action", "query").
			Add("titles", title).
			Add("format", "json").
			Add("redirects", "1").
			Add("explaintext", "1"), extra...),
	})
	if err != nil {
		return nil, fmt.Errorf("wikipedia %s: %w", op, err)
	}
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("wikipedia %s: %w", op, err)
	}
	for id, p := range body.Query.Pages {
		// Missing titles come back under a negative page id.
		if strings.HasPrefix(id, "-") || p.Missing != nil || p.Invalid != nil {
			continue
		}
		return &p, nil
	}
	return nil, apiclient.NotFound(resp.URL, "wikipedia article %q not found", title)
}

// Summary returns the plain-text lead section and the page image.
func (c *Client) Summary(ctx context.Context, title string) (*Summary, error) {
	p, err := c.page(ctx, "summary", title, apiclient.Params{}.
		Add("prop", "extracts|pageimages").
		Add("exintro", "1").
		Add("piprop", "original"))
	if err != nil {
		return nil, err
	}
	return &Summary{
		Title:   p.Title,
		Summary: p.Extract,
		PageID:  p.PageID,
		Image:   p.Original.Source,
		URL:     c.articleURL(p.Title),
	}, nil
}

func (c *Client) FullContent(ctx context.Context, title string) (*Article, error) {
	p, err := c.page(ctx, "content", title, apiclient.Params{}.Add("prop", "extracts"))
	if err != nil {
		return nil, err
	}
	return &Article{
		Title:     p.Title,
		Content:   p.Extract,
		PageID:    p.PageID,
		WordCount: len(strings.Fields(p.Extract)),
		URL:       c.articleURL(p.Title),
	}, nil
}

// Random returns up to limit random main-namespace articles.
func (c *Client) Random(ctx context.Context, limit int) (*Random, error) {
	if limit <= 0 {
		limit = 1
	}
	var body struct {
		Query struct {
			Random []struct {
				ID    int64  `json:"id"`
				Title string `json:"title"`
			} `json:"random"`
		} `json:"query"`
	}
	err := c.api.FetchJSON(ctx, apiclient.Request{
		Op:       "random",
		Endpoint: c.endpoint(),
		Params: apiclient.Params{}.
			Add("action", "query").
			Add("list", "random").
			Add("rnnamespace", "0").
			Add("rnlimit", strconv.Itoa(limit)).
			Add("format", "json"),
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("wikipedia random: %w", err)
	}
	out := &Random{Articles: make([]Hit, 0, len(body.Query.Random))}
	for _, r := range body.Query.Random {
		out.Articles = append(out.Articles, Hit{Title: r.Title, URL: c.articleURL(r.Title)})
	}
	return out, nil
}
