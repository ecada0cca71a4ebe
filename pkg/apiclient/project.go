package apiclient

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/jmespath/go-jmespath"
)

// Result is implemented by every provider's result variants so callers can
// render any of them uniformly.
type Result interface {
	Kind() string
	Fields() map[string]any
}

// Decode unmarshals the payload into v. A payload that cannot be decoded is a
// client error: there is nothing usable to project.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return &Error{
			Status:     StatusClientError,
			StatusCode: r.StatusCode,
			URL:        r.URL,
			Message:    fmt.Sprintf("decode response: %v", err),
			Cause:      err,
		}
	}
	return nil
}

// Document decodes the payload into generic JSON values for Search.
func (r *Response) Document() (any, error) {
	var doc any
	if err := r.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Search evaluates a JMESPath expression against a decoded JSON document.
// A non-matching expression yields nil and no error.
func Search(expr string, doc any) (any, error) {
	v, err := jmespath.Search(expr, doc)
	if err != nil {
		return nil, fmt.Errorf("jmespath %q: %w", expr, err)
	}
	return v, nil
}

// SearchString is Search coerced to a string. Missing values and invalid
// expressions yield "".
func SearchString(expr string, doc any) string {
	v, err := Search(expr, doc)
	if err != nil || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// SearchMap is Search coerced to a JSON object. Anything else yields nil.
func SearchMap(expr string, doc any) map[string]any {
	v, _ := Search(expr, doc)
	m, _ := v.(map[string]any)
	return m
}
