package broker

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/morezero/app2app-broker/pkg/correlation"
	"github.com/morezero/app2app-broker/pkg/events"
	"github.com/morezero/app2app-broker/pkg/registry"
	"github.com/morezero/app2app-broker/pkg/workerpool"
)

const logPrefix = "broker:broker"

// defaultPublishTimeout bounds one provider change publication (COMMS and the
// audit store) so a slow sink cannot hold a delivery worker indefinitely.
const defaultPublishTimeout = 5 * time.Second

// providerRecord holds every registration for one lower-cased capability: an
// optional bare owner and the app-qualified owners keyed by lower-cased appId.
// Records are copied before mutation so a value read from the registry is
// never changed underneath its reader.
type providerRecord struct {
	bare    Context
	hasBare bool
	byApp   map[string]Context
}

func (p providerRecord) clone() providerRecord {
	out := providerRecord{bare: p.bare, hasBare: p.hasBare}
	if len(p.byApp) > 0 {
		out.byApp = maps.Clone(p.byApp)
	}
	return out
}

func (p providerRecord) empty() bool {
	return !p.hasBare && len(p.byApp) == 0
}

// lookup returns the app-qualified owner for appID when one exists, otherwise
// the bare owner.
func (p providerRecord) lookup(appID string) (Context, string, bool) {
	if appID != "" {
		if c, ok := p.byApp[strings.ToLower(appID)]; ok {
			return c, strings.ToLower(appID), true
		}
	}
	if p.hasBare {
		return p.bare, "", true
	}
	return Context{}, "", false
}

// Stats is a point-in-time snapshot of broker counters.
type Stats struct {
	ProviderCapabilities int    `json:"providerCapabilities"`
	PendingTransactions  int    `json:"pendingTransactions"`
	Delivered            uint64 `json:"delivered"`
	Dropped              uint64 `json:"dropped"`
}

// NewBrokerParams holds the collaborators of a Broker. Nil or zero fields get
// in-process defaults.
type NewBrokerParams struct {
	Queue          workerpool.Queue
	Locator        Locator
	Generator      correlation.Generator
	Publisher      events.EventPublisher
	PublishTimeout time.Duration
}

// Broker matches capability invocations to registered providers and routes
// provider responses back to the original caller.
type Broker struct {
	queue     workerpool.Queue
	generator correlation.Generator
	publisher events.EventPublisher
	router    *ResponseRouter

	publishTimeout time.Duration

	providers    *registry.KeyedRegistry[string, providerRecord]
	transactions *registry.KeyedRegistry[string, Context]
}

// NewBroker creates a Broker.
func NewBroker(params NewBrokerParams) *Broker {
	queue := params.Queue
	if queue == nil {
		queue = workerpool.Inline{}
	}
	gen := params.Generator
	if gen == nil {
		gen = correlation.NewUUIDGenerator()
	}
	pub := params.Publisher
	if pub == nil {
		pub = &events.NoOpPublisher{}
	}
	publishTimeout := params.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}
	return &Broker{
		publishTimeout: publishTimeout,
		queue:          queue,
		generator:      gen,
		publisher:      pub,
		router:         NewResponseRouter(params.Locator),
		providers:      registry.New[string, providerRecord](),
		transactions:   registry.New[string, Context](),
	}
}

// RegisterProvider records (provide=true) or clears (provide=false) c as the
// provider of capability. Deregistration is one-shot: it removes the bare
// registration regardless of who owns it, and the app-qualified one for
// c.AppID when set.
func (b *Broker) RegisterProvider(ctx context.Context, c Context, provide bool, capability string) error {
	capKey := strings.ToLower(capability)
	appKey := strings.ToLower(c.AppID)

	b.providers.Update(capKey, func(old providerRecord, _ bool) (providerRecord, bool) {
		next := old.clone()
		if provide {
			next.bare = c
			next.hasBare = true
			if appKey != "" {
				if next.byApp == nil {
					next.byApp = make(map[string]Context, 1)
				}
				next.byApp[appKey] = c
			}
		} else {
			next.bare = Context{}
			next.hasBare = false
			if appKey != "" {
				delete(next.byApp, appKey)
			}
		}
		return next, !next.empty()
	})

	action := events.ActionRegistered
	if !provide {
		action = events.ActionUnregistered
	}
	if appKey != "" {
		slog.Info(fmt.Sprintf("%s - %s %s and %s for %s", logPrefix, action, capKey, CompositeKey(capKey, appKey), c))
	} else {
		slog.Info(fmt.Sprintf("%s - %s %s for %s", logPrefix, action, capKey, c))
	}

	b.publishChange(&events.ProviderChangedEvent{
		Capability:   capKey,
		AppID:        appKey,
		ConnectionID: c.ConnectionID,
		Origin:       string(c.Origin),
		Action:       action,
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
	})
	return nil
}

func (b *Broker) publishChange(event *events.ProviderChangedEvent) {
	err := b.queue.Submit(func(jobCtx context.Context) {
		ctx, cancel := context.WithTimeout(jobCtx, b.publishTimeout)
		defer cancel()
		if err := b.publisher.PublishChanged(ctx, event); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to publish provider change for %s: %v", logPrefix, event.Capability, err))
		}
	})
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - provider change event for %s not queued: %v", logPrefix, event.Capability, err))
	}
}

// InvokeProvider forwards params to the provider of capability. The caller
// context is recorded under a fresh correlation token and the envelope
// {"correlationId":token,"params":params} is delivered asynchronously.
func (b *Broker) InvokeProvider(ctx context.Context, c Context, capability string, params string) error {
	capKey := strings.ToLower(capability)

	raw, root, err := parseParams(params)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - invoke %s from %s: %v", logPrefix, capKey, c, err))
		return generalError(err, "failed to parse params for %s", capKey)
	}
	appID := requestedAppID(root)

	rec, _ := b.providers.Get(capKey)
	provider, matchedApp, ok := rec.lookup(appID)
	if !ok {
		slog.Error(fmt.Sprintf("%s - no provider registered for %s (appId=%q)", logPrefix, capKey, appID))
		return generalError(ErrProviderNotFound, "no provider registered for %s", capKey)
	}

	token := b.generator.Generate()
	envelope, err := buildEnvelope(token, raw)
	if err != nil {
		return generalError(fmt.Errorf("%w: %v", ErrMalformedPayload, err), "failed to build envelope for %s", capKey)
	}

	b.transactions.Add(token, c)

	err = b.queue.Submit(func(jobCtx context.Context) {
		_ = b.router.Deliver(jobCtx, provider, envelope)
	})
	if err != nil {
		b.transactions.Remove(token)
		slog.Error(fmt.Sprintf("%s - failed to queue invocation of %s: %v", logPrefix, capKey, err))
		return generalError(err, "failed to queue invocation of %s", capKey)
	}

	if matchedApp != "" {
		slog.Debug(fmt.Sprintf("%s - invoked %s via %s, correlationId=%s", logPrefix, capKey, CompositeKey(capKey, matchedApp), token))
	} else {
		slog.Debug(fmt.Sprintf("%s - invoked %s, correlationId=%s", logPrefix, capKey, token))
	}
	return nil
}

// HandleProviderResponse correlates a provider's payload with its pending
// transaction and delivers the result to the original caller. A response whose
// correlation id is unknown or already consumed is logged and ignored.
func (b *Broker) HandleProviderResponse(ctx context.Context, payload string, capability string) error {
	capKey := strings.ToLower(capability)

	token, result, err := extractCorrelation(payload, fieldResult)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - provider response for %s: %v", logPrefix, capKey, err))
		return generalError(err, "failed to extract correlation from %s response", capKey)
	}

	caller, ok := b.transactions.Take(token)
	if !ok {
		slog.Error(fmt.Sprintf("%s - no pending transaction for correlationId=%s (%s)", logPrefix, token, capKey))
		return nil
	}

	err = b.queue.Submit(func(jobCtx context.Context) {
		_ = b.router.Deliver(jobCtx, caller, result)
	})
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to queue response for correlationId=%s: %v", logPrefix, token, err))
	}
	return nil
}

// HandleProviderError accepts a provider error report. The payload is logged
// and discarded; the pending transaction, if any, stays in place.
func (b *Broker) HandleProviderError(ctx context.Context, payload string, capability string) error {
	slog.Debug(fmt.Sprintf("%s - provider error for %s ignored: %s", logPrefix, strings.ToLower(capability), payload))
	return nil
}

// Cleanup is called when a connection closes. Registrations and transactions
// owned by the connection are left in place.
func (b *Broker) Cleanup(ctx context.Context, connectionID uint32, origin string) error {
	slog.Info(fmt.Sprintf("%s - cleanup connectionId=%d origin=%s", logPrefix, connectionID, origin))
	return nil
}

// Pending reports whether a transaction is waiting under token.
func (b *Broker) Pending(token string) bool {
	_, ok := b.transactions.Get(token)
	return ok
}

// Stats returns current counters.
func (b *Broker) Stats() Stats {
	return Stats{
		ProviderCapabilities: b.providers.Len(),
		PendingTransactions:  b.transactions.Len(),
		Delivered:            b.router.Delivered(),
		Dropped:              b.router.Dropped(),
	}
}
