// Package arxiv queries the arXiv export API, which answers with an Atom
// feed.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const (
	QueryURL = "http://export.arxiv.org/api/query"

	SortRelevance = "relevance"
	SortDate      = "date"

	DefaultMaxResults = 5
)

type Client struct {
	api *apiclient.Client
}

func New(opts ...apiclient.Option) *Client {
	base := []apiclient.Option{apiclient.WithHeader("Accept", "application/atom+xml")}
	return &Client{api: apiclient.New("arxiv", append(base, opts...)...)}
}

type Paper struct {
	ID              string    `json:"arxiv_id"`
	EntryID         string    `json:"entry_id"`
	Title           string    `json:"title"`
	Authors         []string  `json:"authors"`
	Summary         string    `json:"summary"`
	Published       time.Time `json:"published"`
	Updated         time.Time `json:"updated"`
	PDFURL          string    `json:"pdf_url"`
	Categories      []string  `json:"categories"`
	PrimaryCategory string    `json:"primary_category,omitempty"`
	DOI             string    `json:"doi,omitempty"`
	Comment         string    `json:"comment,omitempty"`
	JournalRef      string    `json:"journal_ref,omitempty"`
}

func (p *Paper) Kind() string { return "arxiv.paper" }

func (p *Paper) Fields() map[string]any {
	return map[string]any{
		"arxiv_id":         p.ID,
		"entry_id":         p.EntryID,
		"title":            p.Title,
		"authors":          p.Authors,
		"summary":          p.Summary,
		"published":        p.Published.Format(time.RFC3339),
		"updated":          p.Updated.Format(time.RFC3339),
		"pdf_url":          p.PDFURL,
		"categories":       p.Categories,
		"primary_category": p.PrimaryCategory,
		"doi":              p.DOI,
		"comment":          p.Comment,
		"journal_ref":      p.JournalRef,
	}
}

type Papers []Paper

func (ps Papers) Kind() string { return "arxiv.papers" }

func (ps Papers) Fields() map[string]any {
	list := make([]map[string]any, len(ps))
	for i := range ps {
		list[i] = ps[i].Fields()
	}
	return map[string]any{"count": len(ps), "papers": list}
}

type feed struct {
	Entries []entry `xml:"http://www.w3.org/2005/Atom entry"`
}

type entry struct {
	ID        string `xml:"http://www.w3.org/2005/Atom id"`
	Title     string `xml:"http://www.w3.org/2005/Atom title"`
	Summary   string `xml:"http://www.w3.org/2005/Atom summary"`
	Published string `xml:"http://www.w3.org/2005/Atom published"`
	Updated   string `xml:"http://www.w3.org/2005/Atom updated"`
	Authors   []struct {
		Name string `xml:"http://www.w3.org/2005/Atom name"`
	} `xml:"http://www.w3.org/2005/Atom author"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Title string `xml:"title,attr"`
		Type  string `xml:"type,attr"`
	} `xml:"http://www.w3.org/2005/Atom link"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"http://www.w3.org/2005/Atom category"`
	Primary struct {
		Term string `xml:"term,attr"`
	} `xml:"http://arxiv.org/schemas/atom primary_category"`
	DOI        string `xml:"http://arxiv.org/schemas/atom doi"`
	Comment    string `xml:"http://arxiv.org/schemas/atom comment"`
	JournalRef string `xml:"http://arxiv.org/schemas/atom journal_ref"`
}

func (e entry) paper() Paper {
	p := Paper{
		EntryID:         e.ID,
		ID:              e.ID[strings.LastIndex(e.ID, "/")+1:],
		Title:           squash(e.Title),
		Summary:         strings.TrimSpace(e.Summary),
		Authors:         make([]string, 0, len(e.Authors)),
		Categories:      make([]string, 0, len(e.Categories)),
		PrimaryCategory: e.Primary.Term,
		DOI:             strings.TrimSpace(e.DOI),
		Comment:         squash(e.Comment),
		JournalRef:      squash(e.JournalRef),
	}
	p.Published, _ = time.Parse(time.RFC3339, strings.TrimSpace(e.Published))
	p.Updated, _ = time.Parse(time.RFC3339, strings.TrimSpace(e.Updated))
	for _, a := range e.Authors {
		p.Authors = append(p.Authors, squash(a.Name))
	}
	for _, c := range e.Categories {
		p.Categories = append(p.Categories, c.Term)
	}
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			p.PDFURL = l.Href
			break
		}
	}
	return p
}

// Search runs a query in arXiv search syntax. sort is SortRelevance or
// SortDate (last updated, newest first).
func (c *Client) Search(ctx context.Context, query string, maxResults int, sort string) (Papers, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apiclient.Configf("arxiv: query is required")
	}
	var sortBy string
	switch sort {
	case "", SortRelevance:
		sortBy = "relevance"
	case SortDate:
		sortBy = "lastUpdatedDate"
	default:
		return nil, apiclient.Configf("arxiv: invalid sort %q, must be %q or %q", sort, SortRelevance, SortDate)
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return c.query(ctx, "search", apiclient.Params{}.
		Add("search_query", query).
		Add("start", "0").
		Add("max_results", strconv.Itoa(maxResults)).
		Add("sortBy", sortBy).
		Add("sortOrder", "descending"))
}

// GetByID returns one paper. An id arXiv does not know is not-found.
func (c *Client) GetByID(ctx context.Context, id string) (*Paper, error) {
	id = cleanID(id)
	if id == "" {
		return nil, apiclient.Configf("arxiv: id is required")
	}
	ps, err := c.GetByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, apiclient.NotFound(QueryURL, "arxiv paper %s not found", id)
	}
	return &ps[0], nil
}

// GetByIDs may return fewer papers than ids.
func (c *Client) GetByIDs(ctx context.Context, ids []string) (Papers, error) {
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = cleanID(id); id != "" {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return Papers{}, nil
	}
	return c.query(ctx, "id_list", apiclient.Params{}.
		Add("id_list", strings.Join(clean, ",")).
		Add("max_results", strconv.Itoa(len(clean))))
}

func (c *Client) SearchByAuthor(ctx context.Context, author string, maxResults int, sort string) (Papers, error) {
	if sort == "" {
		sort = SortDate
	}
	return c.Search(ctx, `au:"`+author+`"`, maxResults, sort)
}

func (c *Client) SearchByCategory(ctx context.Context, category string, maxResults int, sort string) (Papers, error) {
	if sort == "" {
		sort = SortDate
	}
	return c.Search(ctx, "cat:"+category, maxResults, sort)
}

func (c *Client) query(ctx context.Context, op string, params apiclient.Params) (Papers, error) {
	resp, err := c.api.Fetch(ctx, apiclient.Request{Op: op, Endpoint: QueryURL, Params: params})
	if err != nil {
		return nil, fmt.Errorf("arxiv %s: %w", op, err)
	}
	var f feed
	if err := xml.Unmarshal(resp.Payload, &f); err != nil {
		return nil, fmt.Errorf("arxiv %s: %w", op, apiclient.Malformed(resp.URL, "decode feed: %v", err))
	}
	out := make(Papers, 0, len(f.Entries))
	for _, e := range f.Entries {
		// arXiv reports a bad id as an entry pointing at its errors page.
		if e.ID == "" || strings.Contains(e.ID, "/api/errors") {
			continue
		}
		out = append(out, e.paper())
	}
	c.api.Logger().Info().Str("op", op).Int("papers", len(out)).Msg("arxiv query")
	return out, nil
}

func cleanID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "arxiv:")
	return strings.TrimPrefix(id, "arXiv:")
}

func squash(s string) string { return strings.Join(strings.Fields(s), " ") }
