package sources

import "log/slog"

// Registry is an ordered, caller-owned collection of sources.
type Registry struct {
	sources []Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewCatalogRegistry registers an Executor for every built-in spec.
func NewCatalogRegistry(c Completer, logger *slog.Logger) *Registry {
	r := NewRegistry()
	for _, s := range Catalog() {
		r.Register(NewExecutor(s, c, logger))
	}
	return r
}

// Register appends a source; scheduling follows registration order.
func (r *Registry) Register(s Source) {
	r.sources = append(r.sources, s)
}

// Sources returns the registered sources in order.
func (r *Registry) Sources() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Names returns the registered source names in order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.sources))
	for i, s := range r.sources {
		out[i] = s.Name()
	}
	return out
}

// Len reports how many sources are registered.
func (r *Registry) Len() int { return len(r.sources) }
