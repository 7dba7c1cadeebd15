package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

const routerLogPrefix = "broker:router"

// Responder delivers a payload to the application identified by a Context.
type Responder interface {
	Respond(ctx context.Context, c Context, payload string) error
}

// Locator resolves a responder by its well-known name.
type Locator interface {
	Resolve(name string) (Responder, bool)
}

type bindState int

const (
	bindUnresolved bindState = iota
	bindResolved
	bindFailed
)

func (s bindState) String() string {
	switch s {
	case bindUnresolved:
		return "unresolved"
	case bindResolved:
		return "resolved"
	case bindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// binding caches one lazily resolved responder. A failed resolution is
// retried on the next delivery; a resolved handle is kept for the lifetime of
// the router.
type binding struct {
	name string

	mu     sync.Mutex
	state  bindState
	handle Responder
}

func (b *binding) acquire(loc Locator) (Responder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == bindResolved {
		return b.handle, nil
	}
	if loc != nil {
		if h, ok := loc.Resolve(b.name); ok && h != nil {
			b.handle = h
			b.state = bindResolved
			return h, nil
		}
	}
	b.state = bindFailed
	return nil, fmt.Errorf("%w: %s", ErrResponderUnavailable, b.name)
}

func (b *binding) current() bindState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ResponseRouter picks the responder for a Context's origin and delivers
// payloads to it.
type ResponseRouter struct {
	locator  Locator
	gateway  *binding
	delegate *binding

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewResponseRouter creates a router that resolves responders through loc.
func NewResponseRouter(loc Locator) *ResponseRouter {
	return &ResponseRouter{
		locator:  loc,
		gateway:  &binding{name: string(OriginGateway)},
		delegate: &binding{name: string(OriginLaunchDelegate)},
	}
}

// Deliver routes payload to the responder for c.Origin. Failures are logged
// and counted as drops; the error is returned for callers that care.
func (r *ResponseRouter) Deliver(ctx context.Context, c Context, payload string) error {
	if !c.Origin.Valid() {
		r.dropped.Add(1)
		err := fmt.Errorf("%w: %q", ErrUnknownOrigin, c.Origin)
		slog.Error(fmt.Sprintf("%s - dropping payload for %s: %v", routerLogPrefix, c, err))
		return err
	}
	b := r.gateway
	if c.Origin == OriginLaunchDelegate {
		b = r.delegate
	}

	h, err := b.acquire(r.locator)
	if err != nil {
		r.dropped.Add(1)
		slog.Error(fmt.Sprintf("%s - %s interface not available, dropping payload for %s", routerLogPrefix, b.name, c))
		return err
	}

	if err := h.Respond(ctx, c, payload); err != nil {
		r.dropped.Add(1)
		slog.Error(fmt.Sprintf("%s - respond via %s failed for %s: %v", routerLogPrefix, b.name, c, err))
		return err
	}
	r.delivered.Add(1)
	return nil
}

// Delivered returns the number of successful deliveries.
func (r *ResponseRouter) Delivered() uint64 { return r.delivered.Load() }

// Dropped returns the number of payloads that could not be delivered.
func (r *ResponseRouter) Dropped() uint64 { return r.dropped.Load() }
