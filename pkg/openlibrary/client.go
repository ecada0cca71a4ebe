// Package openlibrary reads books, authors and subjects from Open Library.
// No key is needed.
package openlibrary

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const (
	DefaultBaseURL   = "https://openlibrary.org"
	DefaultUserAgent = "researchdata-openlibrary/1.0"
	DefaultLimit     = 10

	maxSubjects = 5
)

type Client struct {
	api *apiclient.Client
}

func New(opts ...apiclient.Option) *Client {
	base := []apiclient.Option{apiclient.WithUserAgent(DefaultUserAgent)}
	return &Client{api: apiclient.New("openlibrary", append(base, opts...)...)}
}

type Book struct {
	Title            string   `json:"title"`
	Authors          []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	ISBN             []string `json:"isbn"`
	Publishers       []string `json:"publisher"`
	Languages        []string `json:"language"`
	Subjects         []string `json:"subject"`
	Key              string   `json:"key"`
	CoverID          int64    `json:"cover_i"`
}

type SearchResults struct {
	Query    string `json:"-"`
	NumFound int    `json:"numFound"`
	Books    []Book `json:"docs"`
}

func (s *SearchResults) Kind() string { return "openlibrary.search" }

func (s *SearchResults) Fields() map[string]any {
	return map[string]any{"query": s.Query, "num_found": s.NumFound, "books": s.Books}
}

type named struct {
	Name string `json:"name"`
}

func names(ns []named) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Name)
	}
	return out
}

type Edition struct {
	ISBN          string   `json:"isbn"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	PublishDate   string   `json:"publish_date"`
	Publishers    []string `json:"publishers"`
	NumberOfPages int      `json:"number_of_pages"`
	Subjects      []string `json:"subjects"`
	Cover         string   `json:"cover"`
	URL           string   `json:"url"`
}

func (e *Edition) Kind() string { return "openlibrary.edition" }

func (e *Edition) Fields() map[string]any {
	return map[string]any{
		"isbn":            e.ISBN,
		"title":           e.Title,
		"authors":         e.Authors,
		"publish_date":    e.PublishDate,
		"publishers":      e.Publishers,
		"number_of_pages": e.NumberOfPages,
		"subjects":        e.Subjects,
		"cover":           e.Cover,
		"url":             e.URL,
	}
}

type Author struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
	DeathDate string `json:"death_date"`
	Bio       string `json:"bio"`
	Photo     int64  `json:"photo,omitempty"`
	Wikipedia string `json:"wikipedia"`
}

func (a *Author) Kind() string { return "openlibrary.author" }

func (a *Author) Fields() map[string]any {
	return map[string]any{
		"key":        a.Key,
		"name":       a.Name,
		"birth_date": a.BirthDate,
		"death_date": a.DeathDate,
		"bio":        a.Bio,
		"photo":      a.Photo,
		"wikipedia":  a.Wikipedia,
	}
}

type Work struct {
	Title            string   `json:"title"`
	Authors          []string `json:"authors"`
	FirstPublishYear int      `json:"first_publish_year"`
	Key              string   `json:"key"`
	CoverID          int64    `json:"cover_id"`
}

type Subject struct {
	Name      string `json:"subject"`
	WorkCount int    `json:"work_count"`
	Works     []Work `json:"books"`
}

func (s *Subject) Kind() string { return "openlibrary.subject" }

func (s *Subject) Fields() map[string]any {
	return map[string]any{"subject": s.Name, "work_count": s.WorkCount, "books": s.Works}
}

func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResults, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apiclient.Configf("openlibrary: query is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := &SearchResults{Query: query}
	err := c.api.FetchJSON(ctx, apiclient.Request{
		Op:       "search",
		Endpoint: DefaultBaseURL + "/search.json",
		Params:   apiclient.Params{}.Add("q", query).Add("limit", strconv.Itoa(limit)),
	}, out)
	if err != nil {
		return nil, fmt.Errorf("openlibrary search: %w", err)
	}
	for i := range out.Books {
		if len(out.Books[i].Subjects) > maxSubjects {
			out.Books[i].Subjects = out.Books[i].Subjects[:maxSubjects]
		}
	}
	return out, nil
}

// GetByISBN looks up an edition through the books API. The API answers an
// unknown ISBN with an empty object, which is reported as not-found.
func (c *Client) GetByISBN(ctx context.Context, isbn string) (*Edition, error) {
	isbn = strings.ReplaceAll(strings.TrimSpace(isbn), "-", "")
	if isbn == "" {
		return nil, apiclient.Configf("openlibrary: isbn is required")
	}
	bibkey := "ISBN:" + isbn
	resp, err := c.api.Fetch(ctx, apiclient.Request{
		Op:       "isbn",
		Endpoint: DefaultBaseURL + "/api/books",
		Params: apiclient.Params{}.
			Add("bibkeys", bibkey).
			Add("format", "json").
			Add("jscmd", "data"),
	})
	if err != nil {
		return nil, fmt.Errorf("openlibrary isbn: %w", err)
	}
	var body map[string]struct {
		Title         string  `json:"title"`
		Authors       []named `json:"authors"`
		PublishDate   string  `json:"publish_date"`
		Publishers    []named `json:"publishers"`
		NumberOfPages int     `json:"number_of_pages"`
		Subjects      []named `json:"subjects"`
		Cover         struct {
			Large string `json:"large"`
		} `json:"cover"`
		URL string `json:"url"`
	}
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("openlibrary isbn: %w", err)
	}
	d, ok := body[bibkey]
	if !ok {
		return nil, apiclient.NotFound(resp.URL, "no book with ISBN %s", isbn)
	}
	return &Edition{
		ISBN:          isbn,
		Title:         d.Title,
		Authors:       names(d.Authors),
		PublishDate:   d.PublishDate,
		Publishers:    names(d.Publishers),
		NumberOfPages: d.NumberOfPages,
		Subjects:      names(d.Subjects),
		Cover:         d.Cover.Large,
		URL:           d.URL,
	}, nil
}

type AuthorMatch struct {
	Key        string   `json:"key"`
	Name       string   `json:"name"`
	BirthDate  string   `json:"birth_date"`
	TopWork    string   `json:"top_work"`
	WorkCount  int      `json:"work_count"`
	TopSubject []string `json:"top_subjects"`
}

type AuthorResults struct {
	Query    string        `json:"-"`
	NumFound int           `json:"numFound"`
	Authors  []AuthorMatch `json:"docs"`
}

func (a *AuthorResults) Kind() string { return "openlibrary.authors" }

func (a *AuthorResults) Fields() map[string]any {
	return map[string]any{"query": a.Query, "num_found": a.NumFound, "authors": a.Authors}
}

// SearchAuthors matches author names. Keys come back bare ("OL23919A") and
// can be passed to GetAuthor as-is.
func (c *Client) SearchAuthors(ctx context.Context, query string, limit int) (*AuthorResults, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apiclient.Configf("openlibrary: query is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := &AuthorResults{Query: query}
	err := c.api.FetchJSON(ctx, apiclient.Request{
		Op:       "search_authors",
		Endpoint: DefaultBaseURL + "/search/authors.json",
		Params:   apiclient.Params{}.Add("q", query).Add("limit", strconv.Itoa(limit)),
	}, out)
	if err != nil {
		return nil, fmt.Errorf("openlibrary search authors: %w", err)
	}
	for i := range out.Authors {
		if len(out.Authors[i].TopSubject) > maxSubjects {
			out.Authors[i].TopSubject = out.Authors[i].TopSubject[:maxSubjects]
		}
	}
	return out, nil
}

// GetAuthor accepts "OL23919A" or "/authors/OL23919A".
func (c *Client) GetAuthor(ctx context.Context, key string) (*Author, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apiclient.Configf("openlibrary: author key is required")
	}
	if !strings.HasPrefix(key, "/authors/") {
		key = "/authors/" + key
	}
	var body struct {
		Key       string          `json:"key"`
		Name      string          `json:"name"`
		BirthDate string          `json:"birth_date"`
		DeathDate string          `json:"death_date"`
		Bio       json.RawMessage `json:"bio"`
		Photos    []int64         `json:"photos"`
		Wikipedia string          `json:"wikipedia"`
	}
	err := c.api.FetchJSON(ctx, apiclient.Request{
		Op:       "author",
		Endpoint: DefaultBaseURL + key + ".json",
		NotFound: true,
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("openlibrary author: %w", err)
	}
	a := &Author{
		Key:       body.Key,
		Name:      body.Name,
		BirthDate: body.BirthDate,
		DeathDate: body.DeathDate,
		Bio:       bio(body.Bio),
		Wikipedia: body.Wikipedia,
	}
	if len(body.Photos) > 0 {
		a.Photo = body.Photos[0]
	}
	return a, nil
}

// Subject lists works for a subject slug such as "science_fiction".
func (c *Client) Subject(ctx context.Context, subject string, limit int) (*Subject, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, apiclient.Configf("openlibrary: subject is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	var body struct {
		WorkCount int `json:"work_count"`
		Works     []struct {
			Title            string  `json:"title"`
			Authors          []named `json:"authors"`
			FirstPublishYear int     `json:"first_publish_year"`
			Key              string  `json:"key"`
			CoverID          int64   `json:"cover_id"`
		} `json:"works"`
	}
	err := c.api.FetchJSON(ctx, apiclient.Request{
		Op:       "subject",
		Endpoint: DefaultBaseURL + "/subjects/" + subject + ".json",
		Params:   apiclient.Params{}.Add("limit", strconv.Itoa(limit)),
		NotFound: true,
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("openlibrary subject: %w", err)
	}
	out := &Subject{Name: subject, WorkCount: body.WorkCount, Works: make([]Work, 0, len(body.Works))}
	for _, w := range body.Works {
		out.Works = append(out.Works, Work{
			Title:            w.Title,
			Authors:          names(w.Authors),
			FirstPublishYear: w.FirstPublishYear,
			Key:              w.Key,
			CoverID:          w.CoverID,
		})
	}
	return out, nil
}

// bio is either a plain string or {"type": ..., "value": ...}.
func bio(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var typed struct {
		Value string `json:"value"`
	}
	if json.Unmarshal(raw, &typed) == nil {
		return typed.Value
	}
	return ""
}
