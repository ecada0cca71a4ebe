// Package nasa wraps a handful of api.nasa.gov services: APOD, Mars rover
// photos, Landsat imagery and the NEO feed. Without NASA_API_KEY the shared
// DEMO_KEY is used, which is heavily rate limited.
package nasa

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const (
	DefaultBaseURL = "https://api.nasa.gov"
	EnvAPIKey      = "NASA_API_KEY"
	DemoKey        = "DEMO_KEY"
	DefaultRover   = "curiosity"
	DefaultDim     = 0.025

	dateLayout = "2006-01-02"
	neoWindow  = 7 * 24 * time.Hour
)

type Client struct {
	api    *apiclient.Client
	apiKey string
	now    func() time.Time
}

func New(apiKey string, opts ...apiclient.Option) *Client {
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
	}
	if apiKey == "" {
		apiKey = DemoKey
	}
	return &Client{api: apiclient.New("nasa", opts...), apiKey: apiKey, now: time.Now}
}

type Picture struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
	URL         string `json:"url"`
	HDURL       string `json:"hdurl"`
	MediaType   string `json:"media_type"`
	Copyright   string `json:"copyright"`
}

// APOD holds one picture, or several when a count was requested.
type APOD struct {
	Pictures []Picture
	single   bool
}

func (a *APOD) Kind() string { return "nasa.apod" }

func (a *APOD) Fields() map[string]any {
	if a.single && len(a.Pictures) == 1 {
		p := a.Pictures[0]
		return map[string]any{
			"date":        p.Date,
			"title":       p.Title,
			"explanation": p.Explanation,
			"url":         p.URL,
			"hdurl":       p.HDURL,
			"media_type":  p.MediaType,
			"copyright":   p.Copyright,
		}
	}
	return map[string]any{"apods": a.Pictures, "count": len(a.Pictures)}
}

type Photo struct {
	ID        int64  `json:"id"`
	Sol       int    `json:"sol"`
	Camera    string `json:"camera"`
	ImgSrc    string `json:"img_src"`
	EarthDate string `json:"earth_date"`
	Rover     string `json:"rover"`
}

type MarsPhotos struct {
	Rover  string  `json:"rover"`
	Sol    int     `json:"sol"`
	Photos []Photo `json:"photos"`
}

func (m *MarsPhotos) Kind() string { return "nasa.mars_photos" }

func (m *MarsPhotos) Fields() map[string]any {
	return map[string]any{"rover": m.Rover, "sol": m.Sol, "photos": m.Photos, "count": len(m.Photos)}
}

type Imagery struct {
	Date       string   `json:"date"`
	URL        string   `json:"url"`
	CloudScore *float64 `json:"cloud_score"`
	Latitude   float64  `json:"-"`
	Longitude  float64  `json:"-"`
}

func (i *Imagery) Kind() string { return "nasa.earth_imagery" }

func (i *Imagery) Fields() map[string]any {
	return map[string]any{
		"date":        i.Date,
		"url":         i.URL,
		"cloud_score": i.CloudScore,
		"location":    map[string]float64{"latitude": i.Latitude, "longitude": i.Longitude},
	}
}

type NEOFeed struct {
	ElementCount int                        `json:"element_count"`
	Objects      map[string]json.RawMessage `json:"near_earth_objects"`
	StartDate    string                     `json:"-"`
	EndDate      string                     `json:"-"`
}

func (n *NEOFeed) Kind() string { return "nasa.neo_feed" }

func (n *NEOFeed) Fields() map[string]any {
	perDay := make(map[string]int, len(n.Objects))
	for day, raw := range n.Objects {
		var objs []json.RawMessage
		if json.Unmarshal(raw, &objs) == nil {
			perDay[day] = len(objs)
		}
	}
	return map[string]any{
		"element_count": n.ElementCount,
		"per_day":       perDay,
		"start_date":    n.StartDate,
		"end_date":      n.EndDate,
	}
}

// APOD returns the picture for date (today when empty), or count random
// pictures when count is positive. count wins over date.
func (c *Client) APOD(ctx context.Context, date string, count int) (*APOD, error) {
	params := apiclient.Params{}
	if count > 0 {
		params = params.Add("count", strconv.Itoa(count))
	} else {
		params = params.AddIf("date", date)
	}
	resp, err := c.get(ctx, "apod", "/planetary/apod", params)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		var ps []Picture
		if err := resp.Decode(&ps); err != nil {
			return nil, fmt.Errorf("nasa apod: %w", err)
		}
		return &APOD{Pictures: ps}, nil
	}
	var p Picture
	if err := resp.Decode(&p); err != nil {
		return nil, fmt.Errorf("nasa apod: %w", err)
	}
	return &APOD{Pictures: []Picture{p}, single: true}, nil
}

func (c *Client) MarsPhotos(ctx context.Context, sol int, rover, camera string) (*MarsPhotos, error) {
	if rover == "" {
		rover = DefaultRover
	}
	resp, err := c.get(ctx, "mars_photos", "/mars-photos/api/v1/rovers/"+rover+"/photos", apiclient.Params{}.
		Add("sol", strconv.Itoa(sol)).
		AddIf("camera", camera))
	if err != nil {
		return nil, err
	}
	var body struct {
		Photos []struct {
			ID     int64 `json:"id"`
			Sol    int   `json:"sol"`
			Camera struct {
				Name string `json:"name"`
			} `json:"camera"`
			ImgSrc    string `json:"img_src"`
			EarthDate string `json:"earth_date"`
			Rover     struct {
				Name string `json:"name"`
			} `json:"rover"`
		} `json:"photos"`
	}
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("nasa mars photos: %w", err)
	}
	out := &MarsPhotos{Rover: rover, Sol: sol, Photos: make([]Photo, 0, len(body.Photos))}
	for _, p := range body.Photos {
		out.Photos = append(out.Photos, Photo{
			ID:        p.ID,
			Sol:       p.Sol,
			Camera:    p.Camera.Name,
			ImgSrc:    p.ImgSrc,
			EarthDate: p.EarthDate,
			Rover:     p.Rover.Name,
		})
	}
	return out, nil
}

// EarthImagery returns the Landsat image nearest date. dim is the tile
// width in degrees; zero means DefaultDim.
func (c *Client) EarthImagery(ctx context.Context, lat, lon float64, date string, dim float64) (*Imagery, error) {
	if dim <= 0 {
		dim = DefaultDim
	}
	resp, err := c.get(ctx, "earth_imagery", "/planetary/earth/imagery", apiclient.Params{}.
		Add("lat", strconv.FormatFloat(lat, 'f', -1, 64)).
		Add("lon", strconv.FormatFloat(lon, 'f', -1, 64)).
		Add("dim", strconv.FormatFloat(dim, 'f', -1, 64)).
		AddIf("date", date))
	if err != nil {
		return nil, err
	}
	out := &Imagery{Latitude: lat, Longitude: lon}
	if err := resp.Decode(out); err != nil {
		return nil, fmt.Errorf("nasa earth imagery: %w", err)
	}
	return out, nil
}

// NearEarthObjects lists near earth objects between two YYYY-MM-DD dates. Empty
// dates mean today and a week from today.
func (c *Client) NearEarthObjects(ctx context.Context, start, end string) (*NEOFeed, error) {
	now := c.now()
	if start == "" {
		start = now.Format(dateLayout)
	}
	if end == "" {
		end = now.Add(neoWindow).Format(dateLayout)
	}
	resp, err := c.get(ctx, "neo_feed", "/neo/rest/v1/feed", apiclient.Params{}.
		Add("start_date", start).
		Add("end_date", end))
	if err != nil {
		return nil, err
	}
	out := &NEOFeed{StartDate: start, EndDate: end}
	if err := resp.Decode(out); err != nil {
		return nil, fmt.Errorf("nasa neo feed: %w", err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, op, path string, params apiclient.Params) (*apiclient.Response, error) {
	resp, err := c.api.Fetch(ctx, apiclient.Request{
		Op:       op,
		Endpoint: DefaultBaseURL + path,
		Params:   params,
		Auth:     apiclient.Auth{Token: c.apiKey, Param: "api_key", Env: EnvAPIKey},
	})
	if err != nil {
		return nil, fmt.Errorf("nasa %s: %w", op, err)
	}
	return resp, nil
}
