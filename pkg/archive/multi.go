package archive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const (
	ProviderWayback   = "wayback"
	ProviderArchiveIs = "archiveis"
	ProviderMemento   = "memento"
	Provider12ft      = "12ft"

	ArchiveIsURL = "https://archive.is/"
	MementoURL   = "http://timetravel.mementoweb.org/timemap/json/"
	TwelveFtURL  = "https://12ft.io/"

	probeTimeout = 10 * time.Second
)

// Providers lists every provider Multi understands, in lookup order.
var Providers = []string{ProviderWayback, ProviderArchiveIs, ProviderMemento, Provider12ft}

// Multi looks for an existing copy of a page across several archive services.
// Lookups never capture.
type Multi struct {
	wayback *Client
	api     *apiclient.Client
}

func NewMulti(opts ...apiclient.Option) *Multi {
	base := []apiclient.Option{apiclient.WithUserAgent(DefaultUserAgent), apiclient.WithTimeout(probeTimeout)}
	return &Multi{
		wayback: New(opts...),
		api:     apiclient.New("archive", append(base, opts...)...),
	}
}

// Check checks one provider. Provider failures are reported in the Result; the
// error is reserved for an unknown provider.
func (m *Multi) Check(ctx context.Context, url, provider string) (*Result, error) {
	if url == "" {
		return nil, apiclient.Configf("archive: url is required")
	}
	var r *Result
	switch strings.ToLower(provider) {
	case ProviderWayback, "":
		r = m.fromWayback(ctx, url)
	case ProviderArchiveIs:
		r = m.fromArchiveIs(ctx, url)
	case ProviderMemento:
		r = m.fromMemento(ctx, url)
	case Provider12ft:
		r = m.from12ft(ctx, url)
	default:
		return nil, apiclient.Configf("archive: unknown provider %q, use one of %s", provider, strings.Join(Providers, ", "))
	}
	return r, nil
}

// Checks maps provider names to their results.
type Checks map[string]*Result

func (c Checks) Kind() string { return "archive.checks" }

func (c Checks) Fields() map[string]any {
	out := make(map[string]any, len(c))
	for p, r := range c {
		out[p] = r.Fields()
	}
	return out
}

// AllArchives checks every provider in turn.
func (m *Multi) AllArchives(ctx context.Context, url string) (Checks, error) {
	out := make(Checks, len(Providers))
	for _, p := range Providers {
		r, err := m.Check(ctx, url, p)
		if err != nil {
			return nil, err
		}
		out[p] = r
	}
	return out, nil
}

func (m *Multi) fromWayback(ctx context.Context, url string) *Result {
	s, err := m.wayback.LatestSnapshot(ctx, url)
	switch {
	case err == nil:
		return &Result{Provider: ProviderWayback, Success: true, ArchiveURL: s.ArchiveURL, Snapshot: s}
	case errors.Is(err, apiclient.ErrNotFound):
		return &Result{Provider: ProviderWayback, Error: "no Wayback snapshot found"}
	default:
		return &Result{Provider: ProviderWayback, Error: err.Error()}
	}
}

func (m *Multi) fromArchiveIs(ctx context.Context, url string) *Result {
	target := ArchiveIsURL + url
	resp, err := m.api.Execute(ctx, apiclient.Request{Op: "archiveis", Method: http.MethodHead, Endpoint: target})
	if err != nil {
		return &Result{Provider: ProviderArchiveIs, Error: err.Error()}
	}
	if resp.StatusCode == http.StatusOK {
		return &Result{Provider: ProviderArchiveIs, Success: true, ArchiveURL: target}
	}
	if resp.Status == apiclient.StatusNetworkError {
		return &Result{Provider: ProviderArchiveIs, Error: "archive.is: " + resp.Message}
	}
	return &Result{Provider: ProviderArchiveIs, Error: "no archive.is snapshot found"}
}

func (m *Multi) fromMemento(ctx context.Context, url string) *Result {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	resp, err := m.api.Fetch(ctx, apiclient.Request{Op: "memento", Endpoint: MementoURL + url, NotFound: true})
	if errors.Is(err, apiclient.ErrNotFound) {
		return &Result{Provider: ProviderMemento, Error: "no Memento snapshots found"}
	}
	if err != nil {
		return &Result{Provider: ProviderMemento, Error: "memento: " + err.Error()}
	}
	doc, err := resp.Document()
	if err != nil {
		return &Result{Provider: ProviderMemento, Error: "memento: " + err.Error()}
	}
	latest := apiclient.SearchString("mementos.list[-1].uri", doc)
	if latest == "" {
		return &Result{Provider: ProviderMemento, Error: "no Memento snapshots found"}
	}
	return &Result{Provider: ProviderMemento, Success: true, ArchiveURL: latest}
}

func (m *Multi) from12ft(ctx context.Context, url string) *Result {
	target := TwelveFtURL + url
	resp, err := m.api.Execute(ctx, apiclient.Request{
		Op:         "12ft",
		Method:     http.MethodHead,
		Endpoint:   target,
		NoRedirect: true,
	})
	if err != nil {
		return &Result{Provider: Provider12ft, Error: err.Error()}
	}
	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusFound:
		return &Result{Provider: Provider12ft, Success: true, ArchiveURL: target}
	case resp.Status == apiclient.StatusNetworkError:
		return &Result{Provider: Provider12ft, Error: "12ft.io: " + resp.Message}
	default:
		return &Result{Provider: Provider12ft, Error: fmt.Sprintf("12ft.io returned status %d", resp.StatusCode)}
	}
}
