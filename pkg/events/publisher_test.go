package events

import (
	"context"
	"errors"
	"testing"
)

func TestNoOpPublisher(t *testing.T) {
	pub := &NoOpPublisher{}
	err := pub.PublishChanged(context.Background(), &ProviderChangedEvent{
		Capability: "play",
		Action:     ActionRegistered,
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCallbackPublisher(t *testing.T) {
	var captured *ProviderChangedEvent

	pub := NewCallbackPublisher(func(_ context.Context, event *ProviderChangedEvent) error {
		captured = event
		return nil
	})

	event := &ProviderChangedEvent{
		Capability:   "play",
		AppID:        "netflix",
		ConnectionID: 3,
		Origin:       "org.rdk.AppGateway",
		Action:       ActionRegistered,
		Timestamp:    "2025-01-01T00:00:00Z",
	}

	if err := pub.PublishChanged(context.Background(), event); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if captured == nil {
		t.Fatal("expected callback to be called")
	}
	if captured.AppID != "netflix" {
		t.Errorf("expected appId netflix, got %s", captured.AppID)
	}
}

type memoryStore struct {
	events []*ProviderChangedEvent
	err    error
}

func (m *memoryStore) InsertProviderEvent(_ context.Context, event *ProviderChangedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func TestStorePublisher(t *testing.T) {
	store := &memoryStore{}
	pub := NewStorePublisher(store)

	if err := pub.PublishChanged(context.Background(), &ProviderChangedEvent{Capability: "create"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.events) != 1 || store.events[0].Capability != "create" {
		t.Errorf("expected one recorded event for create, got %+v", store.events)
	}
}

func TestFanout_ContinuesPastFailures(t *testing.T) {
	failing := &memoryStore{err: errors.New("db down")}
	ok := &memoryStore{}
	calls := 0

	fan := Fanout{
		NewStorePublisher(failing),
		nil,
		NewCallbackPublisher(func(context.Context, *ProviderChangedEvent) error {
			calls++
			return nil
		}),
		NewStorePublisher(ok),
	}

	err := fan.PublishChanged(context.Background(), &ProviderChangedEvent{Capability: "play"})
	if err == nil || err.Error() != "db down" {
		t.Errorf("expected joined db down error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected callback once, got %d", calls)
	}
	if len(ok.events) != 1 {
		t.Errorf("expected healthy store to record the event, got %d", len(ok.events))
	}
}
