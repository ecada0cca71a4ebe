// Package wolfram queries Wolfram|Alpha for short answers, spoken answers,
// image links and full pod output.
package wolfram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const (
	SimpleURL = "http://api.wolframalpha.com/v1/simple"
	ShortURL  = "http://api.wolframalpha.com/v1/result"
	SpokenURL = "http://api.wolframalpha.com/v1/spoken"
	FullURL   = "http://api.wolframalpha.com/v2/query"
	EnvAppID  = "WOLFRAMALPHA_APP_ID"

	TypeText   = "text"
	TypeSpoken = "spoken"
	TypeImage  = "image"
	TypeFull   = "full"
)

type Client struct {
	api   *apiclient.Client
	appID string
}

func New(appID string, opts ...apiclient.Option) (*Client, error) {
	if appID == "" {
		appID = os.Getenv(EnvAppID)
	}
	if appID == "" {
		return nil, apiclient.MissingCredential("wolfram", EnvAppID)
	}
	return &Client{api: apiclient.New("wolfram", opts...), appID: appID}, nil
}

type Subpod struct {
	Title     string `json:"title"`
	Plaintext string `json:"plaintext"`
}

type Pod struct {
	Title    string   `json:"title"`
	ID       string   `json:"id"`
	Position int      `json:"position"`
	Subpods  []Subpod `json:"subpods"`
}

// Answer is a resolved query. Result is empty for full queries without a
// Result pod.
type Answer struct {
	Query  string `json:"query"`
	Result string `json:"result"`
	Type   string `json:"result_type"`
	Pods   []Pod  `json:"pods,omitempty"`
}

func (a *Answer) Kind() string { return "wolfram." + a.Type }

func (a *Answer) Fields() map[string]any {
	f := map[string]any{"query": a.Query, "result": a.Result, "result_type": a.Type}
	if a.Pods != nil {
		f["pods"] = a.Pods
	}
	return f
}

// Short returns a plain text answer. Wolfram|Alpha answers 501 when it cannot
// interpret the input; that is reported as not-found.
func (c *Client) Short(ctx context.Context, query string) (*Answer, error) {
	return c.text(ctx, "short", ShortURL, TypeText, query, apiclient.Params{}.
		Add("i", query).
		Add("format", "plaintext"))
}

func (c *Client) Spoken(ctx context.Context, query string) (*Answer, error) {
	return c.text(ctx, "spoken", SpokenURL, TypeSpoken, query, apiclient.Params{}.Add("i", query))
}

// ImageURL builds a link to the Simple API image for query. It makes no
// request; the link embeds the app id.
func (c *Client) ImageURL(query string) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apiclient.Configf("wolfram: query is required")
	}
	v := url.Values{}
	v.Set("i", query)
	v.Set("appid", c.appID)
	return &Answer{Query: query, Result: SimpleURL + "?" + v.Encode(), Type: TypeImage}, nil
}

// Full returns every pod. The primary result is the first subpod of the pod
// titled or identified "Result".
func (c *Client) Full(ctx context.Context, query string) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apiclient.Configf("wolfram: query is required")
	}
	resp, err := c.api.Fetch(ctx, apiclient.Request{
		Op:       "full",
		Endpoint: FullURL,
		Params: apiclient.Params{}.
			Add("input", query).
			Add("output", "json").
			Add("format", "plaintext"),
		Auth: c.auth(),
	})
	if err != nil {
		return nil, fmt.Errorf("wolfram full: %w", err)
	}
	var body struct {
		QueryResult struct {
			Success bool  `json:"success"`
			Pods    []Pod `json:"pods"`
		} `json:"queryresult"`
	}
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("wolfram full: %w", err)
	}
	if !body.QueryResult.Success {
		// error is false or {"code": ..., "msg": ...}
		doc, _ := resp.Document()
		msg := apiclient.SearchString("queryresult.error.msg", doc)
		if msg == "" {
			msg = "query failed"
		}
		return nil, fmt.Errorf("wolfram full: %w", apiclient.NotFound(resp.URL, "%s", msg))
	}
	a := &Answer{Query: query, Type: TypeFull, Pods: body.QueryResult.Pods}
	for _, p := range a.Pods {
		if p.ID == "Result" || p.Title == "Result" {
			if len(p.Subpods) > 0 {
				a.Result = p.Subpods[0].Plaintext
			}
			break
		}
	}
	return a, nil
}

func (c *Client) Calculate(ctx context.Context, expression string) (*Answer, error) {
	return c.Short(ctx, expression)
}

func (c *Client) Convert(ctx context.Context, value, from, to string) (*Answer, error) {
	return c.Short(ctx, fmt.Sprintf("convert %s %s to %s", value, from, to))
}

func (c *Client) Define(ctx context.Context, word string) (*Answer, error) {
	return c.Short(ctx, "define "+word)
}

func (c *Client) text(ctx context.Context, op, endpoint, kind, query string, params apiclient.Params) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apiclient.Configf("wolfram: query is required")
	}
	resp, err := c.api.Execute(ctx, apiclient.Request{
		Op:       op,
		Endpoint: endpoint,
		Params:   params,
		Auth:     c.auth(),
	})
	if err != nil {
		return nil, fmt.Errorf("wolfram %s: %w", op, err)
	}
	if resp.StatusCode == http.StatusNotImplemented {
		return nil, fmt.Errorf("wolfram %s: %w", op, apiclient.NotFound(resp.URL, "could not understand %q", query))
	}
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("wolfram %s: %w", op, err)
	}
	return &Answer{Query: query, Result: strings.TrimSpace(string(resp.Payload)), Type: kind}, nil
}

func (c *Client) auth() apiclient.Auth {
	return apiclient.Auth{Token: c.appID, Required: true, Param: "appid", Env: EnvAppID}
}
