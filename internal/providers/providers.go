// Package providers registers every research data source behind one
// string-keyed interface so the CLI and the HTTP facade can dispatch
// uniformly.
package providers

import (
	"context"
	"sort"
	"strings"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

// Provider defines the interface that all data sources implement
type Provider interface {
	// Name returns the canonical source name (e.g., "pubmed", "census")
	Name() string

	Description() string

	// Operations lists the operation names Run accepts, sorted.
	Operations() []string

	// Run executes one named operation.
	Run(ctx context.Context, op string, args Args) (apiclient.Result, error)
}

type opFunc func(ctx context.Context, a Args) (apiclient.Result, error)

// source is the Provider every built-in data source uses.
type source struct {
	name        string
	description string
	ops         map[string]opFunc
}

func (s *source) Name() string        { return s.name }
func (s *source) Description() string { return s.description }

func (s *source) Operations() []string {
	names := make([]string, 0, len(s.ops))
	for n := range s.ops {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *source) Run(ctx context.Context, op string, args Args) (apiclient.Result, error) {
	fn, ok := s.ops[strings.ToLower(op)]
	if !ok {
		return nil, apiclient.Configf("%s: unknown operation %q, use one of %s", s.name, op, strings.Join(s.Operations(), ", "))
	}
	if args == nil {
		args = Args{}
	}
	return fn(ctx, args)
}

// Registry manages available data sources
type Registry struct {
	providers map[string]Provider
	aliases   map[string]string
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		aliases:   make(map[string]string),
	}
}

// Register adds a provider under its name and any aliases. A later
// registration with the same name replaces the earlier one.
func (r *Registry) Register(provider Provider, aliases ...string) {
	name := strings.ToLower(provider.Name())
	r.providers[name] = provider
	for _, a := range aliases {
		r.aliases[strings.ToLower(a)] = name
	}
}

// Resolve maps a name or alias to the canonical name.
func (r *Registry) Resolve(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := r.providers[name]; ok {
		return name, true
	}
	canon, ok := r.aliases[name]
	return canon, ok
}

// Get retrieves a provider by name or alias
func (r *Registry) Get(name string) (Provider, bool) {
	canon, ok := r.Resolve(name)
	if !ok {
		return nil, false
	}
	provider, exists := r.providers[canon]
	return provider, exists
}

// List returns all registered provider names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Aliases returns the aliases registered for a canonical name, sorted.
func (r *Registry) Aliases(name string) []string {
	var out []string
	for a, canon := range r.aliases {
		if canon == name {
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

// Run resolves source and runs op on it.
func (r *Registry) Run(ctx context.Context, source, op string, args Args) (apiclient.Result, error) {
	p, ok := r.Get(source)
	if !ok {
		return nil, apiclient.Configf("unknown source %q, use one of %s", source, strings.Join(r.List(), ", "))
	}
	return p.Run(ctx, op, args)
}
