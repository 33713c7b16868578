package ai

import (
	"fmt"
	"sort"

	"github.com/resumehq/resume-evaluator/internal/domain"
)

// Registry resolves provider tags to adapters. The mapping is total by
// construction: an unknown tag is an explicit configuration error, never a
// silent fallback to some other backend.
type Registry struct {
	providers  map[string]domain.Provider
	defaultTag string
}

// NewRegistry creates a registry whose empty-tag resolution falls back to
// defaultTag.
func NewRegistry(defaultTag string) *Registry {
	return &Registry{providers: map[string]domain.Provider{}, defaultTag: defaultTag}
}

// Register adds a provider under its own name, replacing any previous
// registration for that tag.
func (r *Registry) Register(p domain.Provider) {
	r.providers[p.Name()] = p
}

// Resolve maps a tag to its adapter. An empty tag resolves to the configured
// default; a tag with no registered adapter fails closed.
func (r *Registry) Resolve(tag string) (domain.Provider, error) {
	if tag == "" {
		tag = r.defaultTag
	}
	p, ok := r.providers[tag]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider tag %q", domain.ErrInvalidArgument, tag)
	}
	return p, nil
}

// ResolveFor applies the provider-selection precedence: explicit request tag,
// then the caller's stored preference, then the system default. Each step is
// strict: a requested or stored tag that no longer maps to an adapter is an
// error, not a reason to fall through.
func (r *Registry) ResolveFor(requested, preference string) (domain.Provider, error) {
	switch {
	case requested != "":
		return r.Resolve(requested)
	case preference != "":
		return r.Resolve(preference)
	default:
		return r.Resolve("")
	}
}

// Has reports whether tag maps to a registered adapter.
func (r *Registry) Has(tag string) bool {
	_, ok := r.providers[tag]
	return ok
}

// Tags returns the registered provider tags in sorted order.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.providers))
	for t := range r.providers {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}
