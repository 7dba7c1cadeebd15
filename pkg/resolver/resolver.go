package resolver

import (
	"fmt"
	"strings"
)

// Resolver answers method classification queries against a loaded table.
type Resolver struct {
	name    string
	version string
	methods map[string]Resolution
}

// New builds a Resolver. The table is validated first.
func New(table *MethodTable) (*Resolver, error) {
	if table == nil {
		return nil, fmt.Errorf("%s - nil method table", logPrefix)
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}

	methods := make(map[string]Resolution, len(table.Methods))
	for _, m := range table.Methods {
		methods[strings.ToLower(strings.TrimSpace(m.Method))] = Resolution{
			Method:     m.Method,
			Kind:       m.Kind,
			Capability: strings.ToLower(m.Capability),
			Op:         m.Op,
		}
	}
	return &Resolver{name: table.Name, version: table.Version, methods: methods}, nil
}

// Classify looks up method case-insensitively.
func (r *Resolver) Classify(method string) (Resolution, bool) {
	res, ok := r.methods[strings.ToLower(strings.TrimSpace(method))]
	return res, ok
}

// Version returns the loaded table version.
func (r *Resolver) Version() string {
	return r.version
}

// Len returns the number of known methods.
func (r *Resolver) Len() int {
	return len(r.methods)
}
