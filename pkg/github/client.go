// Package github searches repositories, code and issues through the GitHub
// REST API. A token is optional; without one GitHub allows 60 requests an
// hour.
package github

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const (
	DefaultBaseURL = "https://api.github.com"
	EnvToken       = "GITHUB_TOKEN"
	EnvAPIKey      = "GITHUB_API_KEY"
	DefaultPerPage = 30
)

type Client struct {
	api *apiclient.Client
}

// New builds a client. token falls back to GITHUB_TOKEN, then
// GITHUB_API_KEY. With a token, requests carry it as a bearer credential.
func New(token string, opts ...apiclient.Option) *Client {
	if token == "" {
		token = os.Getenv(EnvToken)
	}
	if token == "" {
		token = os.Getenv(EnvAPIKey)
	}
	base := []apiclient.Option{apiclient.WithHeader("Accept", "application/vnd.github.v3+json")}
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		base = append(base, apiclient.WithHTTPClient(&http.Client{Transport: &oauth2.Transport{Source: src}}))
	}
	c := &Client{api: apiclient.New("github", append(base, opts...)...)}
	if token == "" {
		c.api.Logger().Warn().Msg("no GitHub token; rate limits will be restrictive")
	}
	return c
}

type Repository struct {
	Name        string   `json:"full_name"`
	Description string   `json:"description"`
	Stars       int      `json:"stargazers_count"`
	Forks       int      `json:"forks_count"`
	Watchers    int      `json:"watchers_count"`
	Language    string   `json:"language"`
	Topics      []string `json:"topics"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
	URL         string   `json:"html_url"`
	Homepage    string   `json:"homepage"`
	License     *struct {
		Name string `json:"name"`
	} `json:"license"`
}

func (r *Repository) Kind() string { return "github.repository" }

func (r *Repository) Fields() map[string]any {
	f := map[string]any{
		"name":        r.Name,
		"description": r.Description,
		"stars":       r.Stars,
		"forks":       r.Forks,
		"watchers":    r.Watchers,
		"language":    r.Language,
		"topics":      r.Topics,
		"created_at":  r.CreatedAt,
		"updated_at":  r.UpdatedAt,
		"url":         r.URL,
		"homepage":    r.Homepage,
		"license":     "",
	}
	if r.License != nil {
		f["license"] = r.License.Name
	}
	return f
}

type RepositorySearch struct {
	Query        string       `json:"query"`
	TotalCount   int          `json:"total_count"`
	Repositories []Repository `json:"items"`
}

func (s *RepositorySearch) Kind() string { return "github.repositories" }

func (s *RepositorySearch) Fields() map[string]any {
	repos := make([]map[string]any, len(s.Repositories))
	for i := range s.Repositories {
		repos[i] = s.Repositories[i].Fields()
	}
	return map[string]any{"query": s.Query, "total_count": s.TotalCount, "repositories": repos}
}

type CodeHit struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	URL        string `json:"html_url"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

type CodeSearch struct {
	Query      string    `json:"query"`
	TotalCount int       `json:"total_count"`
	Results    []CodeHit `json:"items"`
}

func (s *CodeSearch) Kind() string { return "github.code" }

func (s *CodeSearch) Fields() map[string]any {
	hits := make([]map[string]any, len(s.Results))
	for i, h := range s.Results {
		hits[i] = map[string]any{"name": h.Name, "path": h.Path, "repository": h.Repository.FullName, "url": h.URL}
	}
	return map[string]any{"query": s.Query, "total_count": s.TotalCount, "results": hits}
}

type Issue struct {
	Title      string `json:"title"`
	Number     int    `json:"number"`
	State      string `json:"state"`
	CreatedAt  string `json:"created_at"`
	URL        string `json:"html_url"`
	Repository string `json:"repository_url"`
	User       struct {
		Login string `json:"login"`
	} `json:"user"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

// Repo returns "owner/name" from the issue's repository API URL.
func (i Issue) Repo() string {
	parts := strings.Split(strings.TrimSuffix(i.Repository, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1]
}

type IssueSearch struct {
	Query      string  `json:"query"`
	TotalCount int     `json:"total_count"`
	Issues     []Issue `json:"items"`
}

func (s *IssueSearch) Kind() string { return "github.issues" }

func (s *IssueSearch) Fields() map[string]any {
	issues := make([]map[string]any, len(s.Issues))
	for i, is := range s.Issues {
		labels := make([]string, 0, len(is.Labels))
		for _, l := range is.Labels {
			labels = append(labels, l.Name)
		}
		issues[i] = map[string]any{
			"title":      is.Title,
			"number":     is.Number,
			"state":      is.State,
			"user":       is.User.Login,
			"repository": is.Repo(),
			"created_at": is.CreatedAt,
			"url":        is.URL,
			"labels":     labels,
		}
	}
	return map[string]any{"query": s.Query, "total_count": s.TotalCount, "issues": issues}
}

// SearchRepositories sorts by stars, forks or updated.
func (c *Client) SearchRepositories(ctx context.Context, query, sort, order string, perPage int) (*RepositorySearch, error) {
	out := &RepositorySearch{Query: query}
	if err := c.search(ctx, "repositories", query, withDefault(sort, "stars"), order, perPage, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SearchCode(ctx context.Context, query string, perPage int) (*CodeSearch, error) {
	out := &CodeSearch{Query: query}
	if err := c.search(ctx, "code", query, "", "", perPage, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchIssues covers issues and pull requests, sorted by created, updated
// or comments.
func (c *Client) SearchIssues(ctx context.Context, query, sort, order string, perPage int) (*IssueSearch, error) {
	out := &IssueSearch{Query: query}
	if err := c.search(ctx, "issues", query, withDefault(sort, "created"), order, perPage, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRepository returns one repository. An unknown repository is not-found.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	if owner == "" || repo == "" {
		return nil, apiclient.Configf("github: owner and repo are required")
	}
	var r Repository
	err := c.api.FetchJSON(ctx, apiclient.Request{
		Op:       "repository",
		Endpoint: fmt.Sprintf("%s/repos/%s/%s", DefaultBaseURL, owner, repo),
		NotFound: true,
	}, &r)
	if err != nil {
		return nil, fmt.Errorf("github repository %s/%s: %w", owner, repo, err)
	}
	return &r, nil
}

func (c *Client) search(ctx context.Context, kind, query, sort, order string, perPage int, out any) error {
	if strings.TrimSpace(query) == "" {
		return apiclient.Configf("github: query is required")
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	params := apiclient.Params{}.Add("q", query).AddIf("sort", sort)
	if sort != "" {
		params = params.Add("order", withDefault(order, "desc"))
	}
	err := c.api.FetchJSON(ctx, apiclient.Request{
		Op:       "search_" + kind,
		Endpoint: DefaultBaseURL + "/search/" + kind,
		Params:   params.Add("per_page", strconv.Itoa(perPage)),
	}, out)
	if err != nil {
		return fmt.Errorf("github search %s: %w", kind, err)
	}
	return nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
