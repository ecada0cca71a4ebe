// Package weather wraps the NOAA weather.gov API: forecasts by coordinate
// and active alerts by state. No key is needed but NOAA asks for a
// User-Agent that identifies the caller.
package weather

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const (
	DefaultBaseURL   = "https://api.weather.gov"
	DefaultUserAgent = "researchdata-weather/1.0"
	DefaultPeriods   = 7
)

type Client struct {
	api *apiclient.Client
}

func New(opts ...apiclient.Option) *Client {
	base := []apiclient.Option{
		apiclient.WithUserAgent(DefaultUserAgent),
		apiclient.WithHeader("Accept", "application/geo+json"),
	}
	return &Client{api: apiclient.New("weather", append(base, opts...)...)}
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city,omitempty"`
	State     string  `json:"state,omitempty"`
}

type Period struct {
	Name             string  `json:"name"`
	Temperature      float64 `json:"temperature"`
	TemperatureUnit  string  `json:"temperatureUnit"`
	WindSpeed        string  `json:"windSpeed"`
	WindDirection    string  `json:"windDirection"`
	Icon             string  `json:"icon"`
	ShortForecast    string  `json:"shortForecast"`
	DetailedForecast string  `json:"detailedForecast"`
}

type Current struct {
	Location Location
	Period   Period
}

func (c *Current) Kind() string { return "weather.current" }

func (c *Current) Fields() map[string]any {
	return map[string]any{
		"location":          c.Location,
		"name":              c.Period.Name,
		"temperature":       c.Period.Temperature,
		"temperature_unit":  c.Period.TemperatureUnit,
		"wind_speed":        c.Period.WindSpeed,
		"wind_direction":    c.Period.WindDirection,
		"short_forecast":    c.Period.ShortForecast,
		"detailed_forecast": c.Period.DetailedForecast,
	}
}

type Forecast struct {
	Location Location
	Periods  []Period
}

func (f *Forecast) Kind() string { return "weather.forecast" }

func (f *Forecast) Fields() map[string]any {
	return map[string]any{"location": f.Location, "forecast": f.Periods}
}

type Alert struct {
	Event       string `json:"event"`
	Headline    string `json:"headline"`
	Severity    string `json:"severity"`
	Urgency     string `json:"urgency"`
	Areas       string `json:"areaDesc"`
	Effective   string `json:"effective"`
	Expires     string `json:"expires"`
	Description string `json:"description"`
}

type Alerts struct {
	State  string
	Alerts []Alert
}

func (a *Alerts) Kind() string { return "weather.alerts" }

func (a *Alerts) Fields() map[string]any {
	return map[string]any{"state": a.State, "alerts": a.Alerts, "count": len(a.Alerts)}
}

// CurrentWeather returns the first forecast period for the coordinate.
func (c *Client) CurrentWeather(ctx context.Context, lat, lon float64) (*Current, error) {
	f, err := c.Forecast(ctx, lat, lon, 1)
	if err != nil {
		return nil, err
	}
	return &Current{Location: f.Location, Period: f.Periods[0]}, nil
}

// Forecast resolves the coordinate to its NOAA grid point, then fetches that
// grid's forecast. At most periods entries are returned; zero means
// DefaultPeriods.
func (c *Client) Forecast(ctx context.Context, lat, lon float64, periods int) (*Forecast, error) {
	if periods <= 0 {
		periods = DefaultPeriods
	}
	point := fmt.Sprintf("%s/points/%s,%s", DefaultBaseURL, coord(lat), coord(lon))
	resp, err := c.api.Fetch(ctx, apiclient.Request{Op: "points", Endpoint: point, NotFound: true})
	if err != nil {
		return nil, fmt.Errorf("weather points: %w", err)
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, fmt.Errorf("weather points: %w", err)
	}
	forecastURL := apiclient.SearchString("properties.forecast", doc)
	if forecastURL == "" {
		return nil, fmt.Errorf("weather points: %w", apiclient.Malformed(resp.URL, "could not get forecast URL for location"))
	}
	loc := Location{
		Latitude:  lat,
		Longitude: lon,
		City:      apiclient.SearchString("properties.relativeLocation.properties.city", doc),
		State:     apiclient.SearchString("properties.relativeLocation.properties.state", doc),
	}

	var body struct {
		Properties struct {
			Periods []Period `json:"periods"`
		} `json:"properties"`
	}
	if err := c.api.FetchJSON(ctx, apiclient.Request{Op: "forecast", Endpoint: forecastURL}, &body); err != nil {
		return nil, fmt.Errorf("weather forecast: %w", err)
	}
	ps := body.Properties.Periods
	if len(ps) == 0 {
		return nil, fmt.Errorf("weather forecast: %w", apiclient.Malformed(forecastURL, "no forecast data available"))
	}
	if len(ps) > periods {
		ps = ps[:periods]
	}
	return &Forecast{Location: loc, Periods: ps}, nil
}

// Alerts lists active alerts for a two-letter state or marine area code.
func (c *Client) Alerts(ctx context.Context, state string) (*Alerts, error) {
	if state == "" {
		return nil, apiclient.Configf("weather: state is required")
	}
	var body struct {
		Features []struct {
			Properties Alert `json:"properties"`
		} `json:"features"`
	}
	err := c.api.FetchJSON(ctx, apiclient.Request{
		Op:       "alerts",
		Endpoint: DefaultBaseURL + "/alerts/active/area/" + state,
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("weather alerts: %w", err)
	}
	out := &Alerts{State: state, Alerts: make([]Alert, 0, len(body.Features))}
	for _, f := range body.Features {
		out.Alerts = append(out.Alerts, f.Properties)
	}
	return out, nil
}

// NOAA redirects coordinates with more than four decimal places.
func coord(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}
