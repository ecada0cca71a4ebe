// Package youtube reads videos, channels and playlists from the YouTube Data
// API v3.
package youtube

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"
	EnvAPIKey      = "YOUTUBE_API_KEY"

	DefaultOrder       = "relevance"
	DefaultSafeSearch  = "moderate"
	DefaultMaxResults  = 10
	DefaultPlaylistMax = 25

	maxResults = 50
)

type Client struct {
	api    *apiclient.Client
	apiKey string
}

func New(apiKey string, opts ...apiclient.Option) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
	}
	if apiKey == "" {
		return nil, apiclient.MissingCredential("youtube", EnvAPIKey)
	}
	return &Client{api: apiclient.New("youtube", opts...), apiKey: apiKey}, nil
}

type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Video struct {
	VideoID      string               `json:"video_id"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	ChannelTitle string               `json:"channel_title"`
	ChannelID    string               `json:"channel_id"`
	PublishTime  string               `json:"publish_time"`
	Thumbnails   map[string]Thumbnail `json:"thumbnails"`
}

type VideoSearch struct {
	Query         string  `json:"query"`
	Videos        []Video `json:"videos"`
	NextPageToken string  `json:"next_page_token"`
}

func (v *VideoSearch) Kind() string { return "youtube.search" }

func (v *VideoSearch) Fields() map[string]any {
	return map[string]any{
		"query":           v.Query,
		"total_results":   len(v.Videos),
		"videos":          v.Videos,
		"next_page_token": v.NextPageToken,
	}
}

type Channel struct {
	ChannelID   string               `json:"channel_id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	PublishedAt string               `json:"published_at"`
	CustomURL   string               `json:"custom_url"`
	Country     string               `json:"country"`
	Thumbnails  map[string]Thumbnail `json:"thumbnails"`
	ViewCount   int64                `json:"view_count"`
	// Subscribers is nil when the channel hides its count.
	Subscribers *int64               `json:"subscriber_count"`
	VideoCount  int64                `json:"video_count"`
	Keywords    string               `json:"keywords"`
}

func (c *Channel) Kind() string { return "youtube.channel" }

func (c *Channel) Fields() map[string]any {
	return map[string]any{
		"channel_id":       c.ChannelID,
		"title":            c.Title,
		"description":      c.Description,
		"published_at":     c.PublishedAt,
		"custom_url":       c.CustomURL,
		"country":          c.Country,
		"thumbnails":       c.Thumbnails,
		"view_count":       c.ViewCount,
		"subscriber_count": c.Subscribers,
		"video_count":      c.VideoCount,
		"keywords":         c.Keywords,
	}
}

type PlaylistItem struct {
	VideoID     string               `json:"video_id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	PublishedAt string               `json:"published_at"`
	Position    int                  `json:"position"`
	Thumbnails  map[string]Thumbnail `json:"thumbnails"`
}

type Playlist struct {
	PlaylistID    string         `json:"playlist_id"`
	Items         []PlaylistItem `json:"items"`
	NextPageToken string         `json:"next_page_token"`
}

func (p *Playlist) Kind() string { return "youtube.playlist" }

func (p *Playlist) Fields() map[string]any {
	return map[string]any{
		"playlist_id":     p.PlaylistID,
		"items":           p.Items,
		"total_results":   len(p.Items),
		"next_page_token": p.NextPageToken,
	}
}

type SearchOptions struct {
	MaxResults int
	// Order is relevance, date, rating, title, videoCount or viewCount.
	Order      string
	SafeSearch string
	// Duration is any, short, medium or long.
	Duration   string
}

type snippet struct {
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	ChannelTitle string               `json:"channelTitle"`
	ChannelID    string               `json:"channelId"`
	PublishTime  string               `json:"publishTime"`
	PublishedAt  string               `json:"publishedAt"`
	CustomURL    string               `json:"customUrl"`
	Country      string               `json:"country"`
	Position     int                  `json:"position"`
	Thumbnails   map[string]Thumbnail `json:"thumbnails"`
}

func (c *Client) SearchVideos(ctx context.Context, query string, opts SearchOptions) (*VideoSearch, error) {
	if query == "" {
		return nil, apiclient.Configf("youtube: query is required")
	}
	if opts.MaxResults == 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.Order == "" {
		opts.Order = DefaultOrder
	}
	if opts.SafeSearch == "" {
		opts.SafeSearch = DefaultSafeSearch
	}
	var body struct {
		NextPageToken string `json:"nextPageToken"`
		Items         []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet snippet `json:"snippet"`
		} `json:"items"`
	}
	if err := c.get(ctx, "search", "/search", false, apiclient.Params{}.
		Add("part", "snippet").
		Add("type", "video").
		Add("q", query).
		Add("maxResults", strconv.Itoa(clamp(opts.MaxResults))).
		Add("order", opts.Order).
		Add("safeSearch", opts.SafeSearch).
		AddIf("videoDuration", opts.Duration), &body); err != nil {
		return nil, err
	}
	out := &VideoSearch{Query: query, NextPageToken: body.NextPageToken, Videos: make([]Video, 0, len(body.Items))}
	for _, it := range body.Items {
		out.Videos = append(out.Videos, Video{
			VideoID:      it.ID.VideoID,
			Title:        it.Snippet.Title,
			Description:  it.Snippet.Description,
			ChannelTitle: it.Snippet.ChannelTitle,
			ChannelID:    it.Snippet.ChannelID,
			PublishTime:  it.Snippet.PublishTime,
			Thumbnails:   it.Snippet.Thumbnails,
		})
	}
	return out, nil
}

// ChannelStatistics returns snippet and statistics for a channel. An empty
// items list means the channel does not exist.
func (c *Client) ChannelStatistics(ctx context.Context, channelID string) (*Channel, error) {
	if channelID == "" {
		return nil, apiclient.Configf("youtube: channel id is required")
	}
	var body struct {
		Items []struct {
			Snippet    snippet `json:"snippet"`
			Statistics struct {
				ViewCount       string `json:"viewCount"`
				SubscriberCount string `json:"subscriberCount"`
				Hidden          bool   `json:"hiddenSubscriberCount"`
				VideoCount      string `json:"videoCount"`
			} `json:"statistics"`
			Branding struct {
				Channel struct {
					Keywords string `json:"keywords"`
				} `json:"channel"`
			} `json:"brandingSettings"`
		} `json:"items"`
	}
	url, err := c.fetch(ctx, "channel", "/channels", apiclient.Params{}.
		Add("part", "snippet,statistics,brandingSettings").
		Add("id", channelID), &body)
	if err != nil {
		return nil, err
	}
	if len(body.Items) == 0 {
		return nil, fmt.Errorf("youtube channel: %w", apiclient.NotFound(url, "channel %s not found", channelID))
	}
	it := body.Items[0]
	ch := &Channel{
		ChannelID:   channelID,
		Title:       it.Snippet.Title,
		Description: it.Snippet.Description,
		PublishedAt: it.Snippet.PublishedAt,
		CustomURL:   it.Snippet.CustomURL,
		Country:     it.Snippet.Country,
		Thumbnails:  it.Snippet.Thumbnails,
		ViewCount:   atoi(it.Statistics.ViewCount),
		VideoCount:  atoi(it.Statistics.VideoCount),
		Keywords:    it.Branding.Channel.Keywords,
	}
	if !it.Statistics.Hidden {
		n := atoi(it.Statistics.SubscriberCount)
		ch.Subscribers = &n
	}
	return ch, nil
}

func (c *Client) PlaylistItems(ctx context.Context, playlistID string, limit int) (*Playlist, error) {
	if playlistID == "" {
		return nil, apiclient.Configf("youtube: playlist id is required")
	}
	if limit == 0 {
		limit = DefaultPlaylistMax
	}
	var body struct {
		NextPageToken string `json:"nextPageToken"`
		Items         []struct {
			Snippet        snippet `json:"snippet"`
			ContentDetails struct {
				VideoID string `json:"videoId"`
			} `json:"contentDetails"`
		} `json:"items"`
	}
	if err := c.get(ctx, "playlist", "/playlistItems", true, apiclient.Params{}.
		Add("part", "snippet,contentDetails").
		Add("playlistId", playlistID).
		Add("maxResults", strconv.Itoa(clamp(limit))), &body); err != nil {
		return nil, err
	}
	out := &Playlist{PlaylistID: playlistID, NextPageToken: body.NextPageToken, Items: make([]PlaylistItem, 0, len(body.Items))}
	for _, it := range body.Items {
		out.Items = append(out.Items, PlaylistItem{
			VideoID:     it.ContentDetails.VideoID,
			Title:       it.Snippet.Title,
			Description: it.Snippet.Description,
			PublishedAt: it.Snippet.PublishedAt,
			Position:    it.Snippet.Position,
			Thumbnails:  it.Snippet.Thumbnails,
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, op, path string, notFound bool, params apiclient.Params, v any) error {
	err := c.api.FetchJSON(ctx, c.request(op, path, params, notFound), v)
	if err != nil {
		return fmt.Errorf("youtube %s: %w", op, err)
	}
	return nil
}

// fetch is get for callers that need the display URL for their own errors.
func (c *Client) fetch(ctx context.Context, op, path string, params apiclient.Params, v any) (string, error) {
	resp, err := c.api.Fetch(ctx, c.request(op, path, params, false))
	if err != nil {
		return "", fmt.Errorf("youtube %s: %w", op, err)
	}
	if err := resp.Decode(v); err != nil {
		return "", fmt.Errorf("youtube %s: %w", op, err)
	}
	return resp.URL, nil
}

func (c *Client) request(op, path string, params apiclient.Params, notFound bool) apiclient.Request {
	return apiclient.Request{
		Op:       op,
		Endpoint: DefaultBaseURL + path,
		Params:   params,
		Auth:     apiclient.Auth{Token: c.apiKey, Required: true, Param: "key", Env: EnvAPIKey},
		NotFound: notFound,
	}
}

func clamp(n int) int {
	return max(1, min(n, maxResults))
}

func atoi(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
