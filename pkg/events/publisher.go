package events

import (
	"context"
	"errors"
)

// EventPublisher is the interface for publishing provider change events.
type EventPublisher interface {
	PublishChanged(ctx context.Context, event *ProviderChangedEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (for in-process usage without events).
type NoOpPublisher struct{}

// PublishChanged is a no-op.
func (p *NoOpPublisher) PublishChanged(_ context.Context, _ *ProviderChangedEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls a callback function (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *ProviderChangedEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *ProviderChangedEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishChanged calls the callback.
func (p *CallbackPublisher) PublishChanged(ctx context.Context, event *ProviderChangedEvent) error {
	return p.callback(ctx, event)
}

// EventStore records provider change events.
type EventStore interface {
	InsertProviderEvent(ctx context.Context, event *ProviderChangedEvent) error
}

// StorePublisher writes every event to an EventStore.
type StorePublisher struct {
	store EventStore
}

// NewStorePublisher creates a StorePublisher.
func NewStorePublisher(store EventStore) *StorePublisher {
	return &StorePublisher{store: store}
}

// PublishChanged records the event.
func (p *StorePublisher) PublishChanged(ctx context.Context, event *ProviderChangedEvent) error {
	return p.store.InsertProviderEvent(ctx, event)
}

// Fanout publishes to every wrapped publisher and joins their errors.
type Fanout []EventPublisher

// PublishChanged publishes to all publishers, continuing past failures.
func (f Fanout) PublishChanged(ctx context.Context, event *ProviderChangedEvent) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.PublishChanged(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
