// Package archive looks up and requests captures of web pages in the
// Internet Archive's Wayback Machine, and checks a few other archive
// services for existing copies.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const (
	SaveURL      = "https://web.archive.org/save/"
	AvailableURL = "https://archive.org/wayback/available"
	CDXURL       = "https://web.archive.org/cdx/search/cdx"

	// TimestampLayout is the Wayback 14-digit timestamp.
	TimestampLayout = "20060102150405"

	DefaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultCaptureDelay  = 5 * time.Second
	DefaultSnapshotLimit = 100

	saveTimeout = 60 * time.Second
)

type Snapshot struct {
	URL         string    `json:"url"`
	Timestamp   time.Time `json:"timestamp"`
	StatusCode  int       `json:"status_code"`
	OriginalURL string    `json:"original_url"`
	ArchiveURL  string    `json:"archive_url"`
}

func (s *Snapshot) Kind() string { return "archive.snapshot" }

func (s *Snapshot) Fields() map[string]any {
	return map[string]any{
		"url":          s.URL,
		"timestamp":    s.Timestamp.Format(time.RFC3339),
		"status_code":  s.StatusCode,
		"original_url": s.OriginalURL,
		"archive_url":  s.ArchiveURL,
	}
}

// Snapshots is a CDX listing.
type Snapshots []Snapshot

func (s Snapshots) Kind() string { return "archive.snapshots" }

func (s Snapshots) Fields() map[string]any {
	return map[string]any{"count": len(s), "snapshots": []Snapshot(s)}
}

// Result reports a capture or provider lookup. Failures that the caller may
// want to inspect rather than handle are carried in Error.
type Result struct {
	Provider   string    `json:"provider"`
	Success    bool      `json:"success"`
	ArchiveURL string    `json:"archive_url,omitempty"`
	Snapshot   *Snapshot `json:"snapshot,omitempty"`
	Error      string    `json:"error,omitempty"`
}

func (r *Result) Kind() string { return "archive.result" }

func (r *Result) Fields() map[string]any {
	f := map[string]any{"provider": r.Provider, "success": r.Success}
	if r.ArchiveURL != "" {
		f["archive_url"] = r.ArchiveURL
	}
	if r.Error != "" {
		f["error"] = r.Error
	}
	return f
}

type Client struct {
	api *apiclient.Client
}

func New(opts ...apiclient.Option) *Client {
	base := []apiclient.Option{
		apiclient.WithUserAgent(DefaultUserAgent),
		apiclient.WithHeader("Accept-Language", "en-US,en;q=0.5"),
	}
	return &Client{api: apiclient.New("wayback", append(base, opts...)...)}
}

// LatestSnapshot returns the most recent capture of url. It returns an error
// matching apiclient.ErrNotFound when the page was never archived.
func (c *Client) LatestSnapshot(ctx context.Context, url string) (*Snapshot, error) {
	return c.closest(ctx, url, "")
}

// SnapshotAt returns the capture closest to ts.
func (c *Client) SnapshotAt(ctx context.Context, url string, ts time.Time) (*Snapshot, error) {
	return c.closest(ctx, url, ts.UTC().Format(TimestampLayout))
}

func (c *Client) closest(ctx context.Context, url, ts string) (*Snapshot, error) {
	if url == "" {
		return nil, apiclient.Configf("wayback: url is required")
	}
	resp, err := c.api.Fetch(ctx, apiclient.Request{
		Op:       "available",
		Endpoint: AvailableURL,
		Params:   apiclient.Params{}.Add("url", url).AddIf("timestamp", ts),
	})
	if err != nil {
		return nil, fmt.Errorf("wayback available: %w", err)
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, fmt.Errorf("wayback available: %w", err)
	}
	closest := apiclient.SearchMap("archived_snapshots.closest", doc)
	if closest == nil {
		return nil, apiclient.NotFound(resp.URL, "no archived snapshot of %s", url)
	}

	s := &Snapshot{OriginalURL: url, StatusCode: http.StatusOK}
	s.URL = apiclient.SearchString("url", closest)
	s.ArchiveURL = s.URL
	if code, err := strconv.Atoi(apiclient.SearchString("status", closest)); err == nil {
		s.StatusCode = code
	}
	if t, err := time.Parse(TimestampLayout, apiclient.SearchString("timestamp", closest)); err == nil {
		s.Timestamp = t
	}
	return s, nil
}

type CaptureOptions struct {
	// Wait re-checks availability after Delay. Without it only the
	// submission status is reported.
	Wait  bool
	Delay time.Duration
}

// ArchiveURL returns an existing snapshot when there is one, and otherwise
// asks the Wayback Machine to capture url.
func (c *Client) ArchiveURL(ctx context.Context, url string, opts CaptureOptions) (*Result, error) {
	existing, err := c.LatestSnapshot(ctx, url)
	switch {
	case err == nil:
		return &Result{Provider: "wayback", Success: true, ArchiveURL: existing.ArchiveURL, Snapshot: existing}, nil
	case !errors.Is(err, apiclient.ErrNotFound):
		return nil, err
	}

	resp, err := c.api.Execute(ctx, apiclient.Request{
		Op:       "save",
		Endpoint: SaveURL + url,
		Header:   map[string]string{"Accept": "text/html,application/xhtml+xml"},
		Timeout:  saveTimeout,
	})
	if err != nil {
		return nil, err
	}
	if resp.Status == apiclient.StatusNetworkError {
		return nil, fmt.Errorf("wayback save: %w", resp.Err())
	}
	submitted := resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusFound

	if !opts.Wait {
		r := &Result{Provider: "wayback", Success: submitted}
		if !submitted {
			r.Error = fmt.Sprintf("status code: %d", resp.StatusCode)
		}
		return r, nil
	}

	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultCaptureDelay
	}
	c.api.Logger().Info().Str("url", url).Dur("delay", delay).Msg("waiting for capture")
	if err := sleep(ctx, delay); err != nil {
		return nil, err
	}

	snap, err := c.LatestSnapshot(ctx, url)
	switch {
	case err == nil:
		return &Result{Provider: "wayback", Success: true, ArchiveURL: snap.ArchiveURL, Snapshot: snap}, nil
	case errors.Is(err, apiclient.ErrNotFound):
		return &Result{Provider: "wayback", Error: "archive request submitted but snapshot not yet available"}, nil
	default:
		return nil, err
	}
}

// AllSnapshots lists captures from the CDX index, oldest first. Zero from
// and to leave the range open.
func (c *Client) AllSnapshots(ctx context.Context, url string, limit int, from, to time.Time) (Snapshots, error) {
	if url == "" {
		return nil, apiclient.Configf("wayback: url is required")
	}
	if limit <= 0 {
		limit = DefaultSnapshotLimit
	}
	params := apiclient.Params{}.
		Add("url", url).
		Add("output", "json").
		Add("limit", strconv.Itoa(limit))
	if !from.IsZero() {
		params = params.Add("from", from.Format("20060102"))
	}
	if !to.IsZero() {
		params = params.Add("to", to.Format("20060102"))
	}

	resp, err := c.api.Fetch(ctx, apiclient.Request{Op: "cdx", Endpoint: CDXURL, Params: params, Timeout: saveTimeout})
	if err != nil {
		return nil, fmt.Errorf("wayback cdx: %w", err)
	}
	// CDX answers an unknown url with an empty body.
	if len(bytes.TrimSpace(resp.Payload)) == 0 {
		return Snapshots{}, nil
	}
	var rows [][]string
	if err := resp.Decode(&rows); err != nil {
		return nil, fmt.Errorf("wayback cdx: %w", err)
	}
	if len(rows) < 2 {
		return Snapshots{}, nil
	}

	out := make(Snapshots, 0, len(rows)-1)
	for _, row := range rows[1:] {
		// urlkey, timestamp, original, mimetype, statuscode, digest, length
		if len(row) < 5 {
			continue
		}
		ts, err := time.Parse(TimestampLayout, row[1])
		if err != nil {
			continue
		}
		archived := fmt.Sprintf("https://web.archive.org/web/%s/%s", row[1], row[2])
		code, _ := strconv.Atoi(row[4])
		out = append(out, Snapshot{
			URL:         archived,
			Timestamp:   ts,
			StatusCode:  code,
			OriginalURL: url,
			ArchiveURL:  archived,
		})
	}
	return out, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
