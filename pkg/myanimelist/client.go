// Package myanimelist reads anime listings from the MyAnimeList v2 API using
// a client id.
package myanimelist

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const (
	DefaultBaseURL = "https://api.myanimelist.net/v2"
	EnvAPIKey      = "MAL_API_KEY"
	EnvAPIKeyAlt   = "MYANIMELIST_API_KEY"

	DefaultSearchFields = "mean,rank,popularity,num_episodes,genres,studios"
	detailFields        = "synopsis,mean,rank,popularity,num_episodes,start_season,genres,studios,rating"
	seasonFields        = "mean,rank,genres"

	DefaultLimit       = 10
	DefaultSeasonLimit = 20
)

var Seasons = []string{"winter", "spring", "summer", "fall"}

type Client struct {
	api      *apiclient.Client
	clientID string
}

func New(clientID string, opts ...apiclient.Option) (*Client, error) {
	for _, env := range []string{EnvAPIKey, EnvAPIKeyAlt} {
		if clientID != "" {
			break
		}
		clientID = os.Getenv(env)
	}
	if clientID == "" {
		return nil, apiclient.MissingCredential("myanimelist", EnvAPIKey)
	}
	return &Client{api: apiclient.New("myanimelist", opts...), clientID: clientID}, nil
}

type named struct {
	Name string `json:"name"`
}

type StartSeason struct {
	Year   int    `json:"year"`
	Season string `json:"season"`
}

type node struct {
	ID          int          `json:"id"`
	Title       string       `json:"title"`
	Synopsis    string       `json:"synopsis"`
	Mean        *float64     `json:"mean"`
	Rank        *int         `json:"rank"`
	Popularity  *int         `json:"popularity"`
	NumEpisodes int          `json:"num_episodes"`
	StartSeason *StartSeason `json:"start_season"`
	Genres      []named      `json:"genres"`
	Studios     []named      `json:"studios"`
	Rating      string       `json:"rating"`
}

// Anime is a title. Scores and ranks are nil when MAL has not computed them.
type Anime struct {
	ID          int          `json:"id"`
	Title       string       `json:"title"`
	Synopsis    string       `json:"synopsis,omitempty"`
	MeanScore   *float64     `json:"mean_score"`
	Rank        *int         `json:"rank,omitempty"`
	Popularity  *int         `json:"popularity,omitempty"`
	NumEpisodes int          `json:"num_episodes,omitempty"`
	StartSeason *StartSeason `json:"start_season,omitempty"`
	Genres      []string     `json:"genres"`
	Studios     []string     `json:"studios,omitempty"`
	Rating      string       `json:"rating,omitempty"`
}

func (a *Anime) Kind() string { return "myanimelist.anime" }

func (a *Anime) Fields() map[string]any {
	return map[string]any{
		"id":           a.ID,
		"title":        a.Title,
		"synopsis":     a.Synopsis,
		"mean_score":   a.MeanScore,
		"rank":         a.Rank,
		"popularity":   a.Popularity,
		"num_episodes": a.NumEpisodes,
		"start_season": a.StartSeason,
		"genres":       a.Genres,
		"studios":      a.Studios,
		"rating":       a.Rating,
	}
}

type AnimeList struct {
	Anime  []Anime `json:"anime"`
	Season string  `json:"season,omitempty"`
}

func (l *AnimeList) Kind() string {
	if l.Season != "" {
		return "myanimelist.season"
	}
	return "myanimelist.search"
}

func (l *AnimeList) Fields() map[string]any {
	f := map[string]any{"anime": l.Anime, "total": len(l.Anime)}
	if l.Season != "" {
		f["season"] = l.Season
	}
	return f
}

func (n node) anime() Anime {
	return Anime{
		ID:          n.ID,
		Title:       n.Title,
		Synopsis:    n.Synopsis,
		MeanScore:   n.Mean,
		Rank:        n.Rank,
		Popularity:  n.Popularity,
		NumEpisodes: n.NumEpisodes,
		StartSeason: n.StartSeason,
		Genres:      names(n.Genres),
		Studios:     names(n.Studios),
		Rating:      n.Rating,
	}
}

// SearchAnime matches titles. fields is MAL's comma separated field list;
// empty means DefaultSearchFields.
func (c *Client) SearchAnime(ctx context.Context, query string, limit int, fields string) (*AnimeList, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apiclient.Configf("myanimelist: query is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if fields == "" {
		fields = DefaultSearchFields
	}
	return c.list(ctx, "search", "/anime", "", apiclient.Params{}.
		Add("q", query).
		Add("limit", strconv.Itoa(limit)).
		Add("fields", fields))
}

func (c *Client) AnimeDetails(ctx context.Context, id int) (*Anime, error) {
	if id <= 0 {
		return nil, apiclient.Configf("myanimelist: anime id must be positive")
	}
	var n node
	if err := c.api.FetchJSON(ctx, c.request("details", "/anime/"+strconv.Itoa(id),
		apiclient.Params{}.Add("fields", detailFields), true), &n); err != nil {
		return nil, fmt.Errorf("myanimelist details: %w", err)
	}
	a := n.anime()
	return &a, nil
}

// Season lists anime airing in one season of a year.
func (c *Client) Season(ctx context.Context, year int, season string, limit int) (*AnimeList, error) {
	season = strings.ToLower(season)
	if !validSeason(season) {
		return nil, apiclient.Configf("myanimelist: season must be one of %s", strings.Join(Seasons, ", "))
	}
	if limit <= 0 {
		limit = DefaultSeasonLimit
	}
	return c.list(ctx, "season", "/anime/season/"+strconv.Itoa(year)+"/"+season,
		season+" "+strconv.Itoa(year), apiclient.Params{}.
			Add("limit", strconv.Itoa(limit)).
			Add("fields", seasonFields))
}

func (c *Client) list(ctx context.Context, op, path, label string, params apiclient.Params) (*AnimeList, error) {
	var body struct {
		Data []struct {
			Node node `json:"node"`
		} `json:"data"`
	}
	if err := c.api.FetchJSON(ctx, c.request(op, path, params, false), &body); err != nil {
		return nil, fmt.Errorf("myanimelist %s: %w", op, err)
	}
	out := &AnimeList{Season: label, Anime: make([]Anime, 0, len(body.Data))}
	for _, d := range body.Data {
		out.Anime = append(out.Anime, d.Node.anime())
	}
	return out, nil
}

func (c *Client) request(op, path string, params apiclient.Params, notFound bool) apiclient.Request {
	return apiclient.Request{
		Op:       op,
		Endpoint: DefaultBaseURL + path,
		Params:   params,
		Auth:     apiclient.Auth{Token: c.clientID, Required: true, Header: "X-MAL-CLIENT-ID", Env: EnvAPIKey},
		NotFound: notFound,
	}
}

func validSeason(s string) bool {
	for _, v := range Seasons {
		if s == v {
			return true
		}
	}
	return false
}

func names(ns []named) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Name)
	}
	return out
}
