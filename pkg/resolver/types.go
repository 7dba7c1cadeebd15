// Package resolver classifies inbound method names using a versioned method
// table: events, provider operations and plain passthrough calls.
package resolver

// Method kinds.
const (
	KindEvent       = "event"
	KindProvider    = "provider"
	KindPassthrough = "passthrough"
)

// Provider operations.
const (
	OpRegister = "register"
	OpInvoke   = "invoke"
	OpResponse = "response"
	OpError    = "error"
)

// MethodEntry is one row of the method table.
type MethodEntry struct {
	Method     string `json:"method" yaml:"method"`
	Kind       string `json:"kind" yaml:"kind"`
	Capability string `json:"capability,omitempty" yaml:"capability,omitempty"`
	Op         string `json:"op,omitempty" yaml:"op,omitempty"`
}

// MethodTable is the on-disk method table.
type MethodTable struct {
	Name    string        `json:"name,omitempty" yaml:"name,omitempty"`
	Version string        `json:"version" yaml:"version"`
	Methods []MethodEntry `json:"methods" yaml:"methods"`
}

// Resolution is the classification of one method.
type Resolution struct {
	Method     string
	Kind       string
	Capability string
	Op         string
}

// IsProvider reports whether r is a provider operation.
func (r Resolution) IsProvider() bool {
	return r.Kind == KindProvider
}
