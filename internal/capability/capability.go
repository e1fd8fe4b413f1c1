// Package capability implements the builtin effect surface the evaluator
// dispatches to as opaque calls (spec.md §6): http.*, json.*, db.*, env.*.
// It implements internal/evaluator.Capabilities so the evaluator never
// needs to import net/http, database/sql, or os directly.
package capability

import "codenerd/internal/evaluator"

// Bundle is a named group of capability functions, e.g. the "http" bundle
// exposing "get"/"post"/"put"/"delete".
type Bundle struct {
	Name  string
	Funcs map[string]evaluator.CapabilityFunc
}

// Registry aggregates bundles and implements evaluator.Capabilities.
type Registry struct {
	bundles map[string]*Bundle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bundles: map[string]*Bundle{}}
}

// Register adds (or replaces) a bundle.
func (r *Registry) Register(b *Bundle) {
	r.bundles[b.Name] = b
}

// Lookup implements evaluator.Capabilities.
func (r *Registry) Lookup(object, field string) (evaluator.CapabilityFunc, bool) {
	b, ok := r.bundles[object]
	if !ok {
		return nil, false
	}
	fn, ok := b.Funcs[field]
	return fn, ok
}

var _ evaluator.Capabilities = (*Registry)(nil)

// Standard builds a Registry with the four capability bundles spec.md §6
// names: http, json, db, env.
func Standard() *Registry {
	r := NewRegistry()
	r.Register(HTTPBundle())
	r.Register(JSONBundle())
	r.Register(EnvBundle())
	r.Register(DBBundle(NewDBRegistry()))
	return r
}
