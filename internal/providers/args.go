package providers

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

// Args are operation arguments as they arrive from the command line or a
// query string.
type Args map[string]string

// ParseArgs turns "key=value" pairs into Args.
func ParseArgs(pairs []string) (Args, error) {
	a := Args{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, apiclient.Configf("argument %q is not key=value", p)
		}
		a[strings.TrimSpace(k)] = v
	}
	return a, nil
}

// reader converts arguments and keeps the first error, so an operation can
// read all of its arguments and check once.
type reader struct {
	a   Args
	err error
}

func (a Args) read() *reader { return &reader{a: a} }

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.a[key]); v != "" {
		return v
	}
	return def
}

func (r *reader) required(key string) string {
	v := r.str(key, "")
	if v == "" {
		r.fail(apiclient.Configf("argument %q is required", key))
	}
	return v
}

func (r *reader) int(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(apiclient.Configf("argument %q: %q is not an integer", key, v))
	}
	return n
}

func (r *reader) float(key string) float64 {
	v := r.required(key)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(apiclient.Configf("argument %q: %q is not a number", key, v))
	}
	return f
}

func (r *reader) bool(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(apiclient.Configf("argument %q: %q is not a boolean", key, v))
	}
	return b
}

func (r *reader) decimal(key string) decimal.Decimal {
	v := r.str(key, "")
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		r.fail(apiclient.Configf("argument %q: %q is not a decimal", key, v))
	}
	return d
}

// time parses layout; empty yields the zero time.
func (r *reader) time(key, layout string) time.Time {
	v := r.str(key, "")
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(layout, v)
	if err != nil {
		r.fail(apiclient.Configf("argument %q: %q does not match %s", key, v, layout))
	}
	return t
}

func (r *reader) list(key string) []string {
	v := r.str(key, "")
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
