package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/app2app-broker/internal/testutil"
)

const commsPublisherTestPrefix = "events:comms_publisher_integration_test"

func TestCommsPublisher_PublishChanged_BothSubjects(t *testing.T) {
	nc, _ := testutil.StartNATS(t)

	publisher := NewCommsPublisher(nc, nil)

	granular := make(chan *ProviderChangedEvent, 1)
	global := make(chan *ProviderChangedEvent, 1)

	decodeInto := func(ch chan *ProviderChangedEvent) comms.MsgHandler {
		return func(msg *comms.Msg) {
			if got := msg.Header.Get(HeaderAction); got != ActionRegistered {
				t.Errorf("%s - %s header = %q", commsPublisherTestPrefix, HeaderAction, got)
			}
			if got := msg.Header.Get(HeaderCapability); got != "play" {
				t.Errorf("%s - %s header = %q", commsPublisherTestPrefix, HeaderCapability, got)
			}
			var event ProviderChangedEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				t.Errorf("%s - failed to unmarshal: %v", commsPublisherTestPrefix, err)
				return
			}
			ch <- &event
		}
	}

	sub1, err := nc.Subscribe("app2app.provider.changed.play", decodeInto(granular))
	if err != nil {
		t.Fatalf("%s - subscribe granular failed: %v", commsPublisherTestPrefix, err)
	}
	defer sub1.Unsubscribe()

	sub2, err := nc.Subscribe("app2app.provider.changed", decodeInto(global))
	if err != nil {
		t.Fatalf("%s - subscribe global failed: %v", commsPublisherTestPrefix, err)
	}
	defer sub2.Unsubscribe()
	nc.Flush()

	event := &ProviderChangedEvent{
		Capability:   "play",
		AppID:        "netflix",
		ConnectionID: 9,
		Origin:       "org.rdk.AppGateway",
		Action:       ActionRegistered,
		Timestamp:    "2025-01-01T00:00:00Z",
	}
	if err := publisher.PublishChanged(context.Background(), event); err != nil {
		t.Fatalf("%s - PublishChanged failed: %v", commsPublisherTestPrefix, err)
	}
	nc.Flush()

	for _, ch := range []struct {
		name string
		ch   chan *ProviderChangedEvent
	}{
		{"granular", granular},
		{"global", global},
	} {
		select {
		case got := <-ch.ch:
			if got.AppID != "netflix" || got.Action != ActionRegistered {
				t.Errorf("%s - %s event = %+v", commsPublisherTestPrefix, ch.name, got)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("%s - timeout waiting for %s event", commsPublisherTestPrefix, ch.name)
		}
	}
}

func TestNewCommsPublisher_GlobalSubject(t *testing.T) {
	nc, _ := testutil.StartNATS(t)

	tests := []struct {
		name string
		opts *CommsPublisherOpts
		want string
	}{
		{"nil opts", nil, "app2app.provider.changed"},
		{"empty override", &CommsPublisherOpts{}, "app2app.provider.changed"},
		{"override", &CommsPublisherOpts{GlobalChangeSubject: "custom.changed"}, "custom.changed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher := NewCommsPublisher(nc, tt.opts)
			subjects := publisher.Subjects("Keyboard.Standard")
			if len(subjects) != 2 {
				t.Fatalf("%s - expected 2 subjects, got %v", commsPublisherTestPrefix, subjects)
			}
			if subjects[0] != "app2app.provider.changed.keyboard_standard" {
				t.Errorf("%s - granular subject = %q", commsPublisherTestPrefix, subjects[0])
			}
			if subjects[1] != tt.want {
				t.Errorf("%s - global subject = %q, want %q", commsPublisherTestPrefix, subjects[1], tt.want)
			}
		})
	}
}
