// Package responder holds the named delivery endpoints the broker routes
// payloads to, and the directory used to look them up by name.
package responder

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/morezero/app2app-broker/pkg/broker"
)

const logPrefix = "responder:directory"

// Directory is a name to Responder lookup table. It implements broker.Locator.
type Directory struct {
	mu      sync.RWMutex
	entries map[string]broker.Responder
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{entries: make(map[string]broker.Responder)}
}

// Register binds name to r, replacing any previous binding.
func (d *Directory) Register(name string, r broker.Responder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[name] = r
	slog.Info(fmt.Sprintf("%s - registered responder %s", logPrefix, name))
}

// Unregister removes the binding for name.
func (d *Directory) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, name)
}

// Resolve returns the responder bound to name.
func (d *Directory) Resolve(name string) (broker.Responder, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.entries[name]
	if !ok {
		slog.Debug(fmt.Sprintf("%s - no responder named %s", logPrefix, name))
	}
	return r, ok
}

// Names returns the registered names, sorted.
func (d *Directory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.entries))
	for name := range d.entries {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Func adapts a plain function to broker.Responder.
type Func func(ctx context.Context, c broker.Context, payload string) error

// Respond calls f.
func (f Func) Respond(ctx context.Context, c broker.Context, payload string) error {
	return f(ctx, c, payload)
}
