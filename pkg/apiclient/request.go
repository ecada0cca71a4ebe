package apiclient

import (
	"net/url"
	"strings"
	"time"
)

// Param is a single query parameter. Params keep insertion order on the wire.
type Param struct {
	Key   string
	Value string
}

type Params []Param

func (p Params) Add(key, value string) Params {
	return append(p, Param{Key: key, Value: value})
}

// AddIf appends the parameter only when value is non-empty.
func (p Params) AddIf(key, value string) Params {
	if value == "" {
		return p
	}
	return p.Add(key, value)
}

func (p Params) Get(key string) string {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}

func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// Auth describes where a static credential travels. Exactly one of Param or
// Header is normally set.
type Auth struct {
	Token    string
	Required bool
	// Param names the query parameter carrying the token.
	Param    string
	// Header names the header carrying the token, prefixed by Scheme if set.
	Header   string
	Scheme   string
	// Env is the environment variable a missing credential should be read
	// from, used in configuration errors.
	Env      string
}

// Request is one logical HTTP call. Timeout falls back to the client default
// when zero and must end up positive.
type Request struct {
	Op         string
	Method     string
	Endpoint   string
	Params     Params
	Auth       Auth
	Header     map[string]string
	Timeout    time.Duration
	// NotFound marks endpoints where a 404 is an affirmative "no such thing"
	// rather than a malformed request.
	NotFound   bool
	// NoRedirect returns 3xx responses as-is instead of following them.
	NoRedirect bool
}

func (r Request) method() string {
	if r.Method == "" {
		return "GET"
	}
	return r.Method
}

// displayURL is the request URL without the credential.
func (r Request) displayURL() string {
	if len(r.Params) == 0 {
		return r.Endpoint
	}
	return r.Endpoint + "?" + r.Params.Encode()
}

func (r Request) wireURL(base *url.URL) (string, error) {
	u, err := url.Parse(r.Endpoint)
	if err != nil {
		return "", err
	}
	if base != nil {
		u.Scheme = base.Scheme
		u.Host = base.Host
		prefix := strings.TrimSuffix(base.Path, "/")
		u.Path = prefix + u.Path
		if u.RawPath != "" {
			u.RawPath = prefix + u.RawPath
		}
	}
	params := r.Params
	if r.Auth.Param != "" && r.Auth.Token != "" {
		params = append(params[:len(params):len(params)], Param{Key: r.Auth.Param, Value: r.Auth.Token})
	}
	q := params.Encode()
	if u.RawQuery != "" && q != "" {
		q = u.RawQuery + "&" + q
	} else if u.RawQuery != "" {
		q = u.RawQuery
	}
	u.RawQuery = q
	return u.String(), nil
}
