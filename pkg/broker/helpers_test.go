package broker

import (
	"context"
	"errors"
	"sync"

	"github.com/morezero/app2app-broker/pkg/correlation"
	"github.com/morezero/app2app-broker/pkg/events"
	"github.com/morezero/app2app-broker/pkg/workerpool"
)

type delivery struct {
	ctx     Context
	payload string
}

// recorder is a Responder that keeps everything it is asked to deliver.
type recorder struct {
	mu   sync.Mutex
	got  []delivery
	fail error
}

func (r *recorder) Respond(_ context.Context, c Context, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.got = append(r.got, delivery{ctx: c, payload: payload})
	return nil
}

func (r *recorder) deliveries() []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery(nil), r.got...)
}

// mapLocator resolves responders from a fixed map and counts lookups.
type mapLocator struct {
	mu       sync.Mutex
	entries  map[string]Responder
	resolves map[string]int
}

func newMapLocator() *mapLocator {
	return &mapLocator{entries: map[string]Responder{}, resolves: map[string]int{}}
}

func (l *mapLocator) set(name string, r Responder) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[name] = r
}

func (l *mapLocator) Resolve(name string) (Responder, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resolves[name]++
	r, ok := l.entries[name]
	return r, ok
}

func (l *mapLocator) count(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolves[name]
}

// rejectQueue refuses every job.
type rejectQueue struct{}

func (rejectQueue) Submit(workerpool.Job) error { return errors.New("queue full") }

type fixture struct {
	broker   *Broker
	gateway  *recorder
	delegate *recorder
	locator  *mapLocator
	events   chan *events.ProviderChangedEvent
}

func newFixture() *fixture {
	f := &fixture{
		gateway:  &recorder{},
		delegate: &recorder{},
		locator:  newMapLocator(),
		events:   make(chan *events.ProviderChangedEvent, 64),
	}
	f.locator.set(string(OriginGateway), f.gateway)
	f.locator.set(string(OriginLaunchDelegate), f.delegate)
	f.broker = NewBroker(NewBrokerParams{
		Queue:     workerpool.Inline{},
		Locator:   f.locator,
		Generator: &correlation.Sequence{Prefix: "tx"},
		Publisher: events.NewCallbackPublisher(func(_ context.Context, e *events.ProviderChangedEvent) error {
			f.events <- e
			return nil
		}),
	})
	return f
}

func gatewayCtx(requestID int64, connectionID uint32, appID string) Context {
	return Context{RequestID: requestID, ConnectionID: connectionID, AppID: appID, Origin: OriginGateway}
}

func delegateCtx(requestID int64, connectionID uint32, appID string) Context {
	return Context{RequestID: requestID, ConnectionID: connectionID, AppID: appID, Origin: OriginLaunchDelegate}
}
