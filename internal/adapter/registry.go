package adapter

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no adapter is registered under an id.
var ErrNotFound = errors.New("source adapter not found")

// Registry is the static lookup table of configured source adapters.
// It is built once at startup and read-only afterwards.
type Registry struct {
	ids      []string
	adapters map[string]SourceAdapter
}

// NewRegistry validates and indexes the given adapters. Registration order is
// preserved by All and ByMode.
func NewRegistry(adapters ...SourceAdapter) (*Registry, error) {
	r := &Registry{adapters: make(map[string]SourceAdapter, len(adapters))}
	for _, a := range adapters {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.adapters[a.ID]; exists {
			return nil, fmt.Errorf("duplicate source adapter id %q", a.ID)
		}
		r.adapters[a.ID] = a
		r.ids = append(r.ids, a.ID)
	}
	return r, nil
}

// Get returns the adapter registered under id.
func (r *Registry) Get(id string) (SourceAdapter, error) {
	a, ok := r.adapters[id]
	if !ok {
		return SourceAdapter{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a, nil
}

// All returns every registered adapter in registration order.
func (r *Registry) All() []SourceAdapter {
	out := make([]SourceAdapter, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.adapters[id])
	}
	return out
}

// ByMode returns the registered adapters with the given extraction mode.
func (r *Registry) ByMode(mode Mode) []SourceAdapter {
	var out []SourceAdapter
	for _, id := range r.ids {
		if a := r.adapters[id]; a.Mode == mode {
			out = append(out, a)
		}
	}
	return out
}
