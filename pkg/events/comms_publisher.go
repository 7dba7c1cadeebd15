package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/app2app-broker/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// Header keys set on every provider change message so subscribers can filter
// without decoding the body.
const (
	HeaderAction     = "App2App-Action"
	HeaderCapability = "App2App-Capability"
)

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// GlobalChangeSubject overrides the global change subject (PROVIDER_EVENT_SUBJECT).
	GlobalChangeSubject string
}

// CommsPublisher announces provider changes on COMMS: once on the
// per-capability subject and once on the global subject.
type CommsPublisher struct {
	nc                  *comms.Conn
	globalChangeSubject string
}

// NewCommsPublisher creates a CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	p := &CommsPublisher{nc: nc, globalChangeSubject: commsutil.SubjectProviderChanged}
	if opts != nil && opts.GlobalChangeSubject != "" {
		p.globalChangeSubject = opts.GlobalChangeSubject
	}
	return p
}

// Subjects returns the subjects an event for capability is published on.
func (p *CommsPublisher) Subjects(capability string) []string {
	return []string{commsutil.BuildProviderChangeSubject(capability), p.globalChangeSubject}
}

// PublishChanged publishes event on every subject from Subjects. All subjects
// are attempted; the joined error reports the ones that failed.
func (p *CommsPublisher) PublishChanged(_ context.Context, event *ProviderChangedEvent) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}

	var errs []error
	for _, subject := range p.Subjects(event.Capability) {
		msg := comms.NewMsg(subject)
		msg.Data = data
		msg.Header.Set(HeaderAction, event.Action)
		msg.Header.Set(HeaderCapability, event.Capability)
		if err := p.nc.PublishMsg(msg); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, subject, err))
			errs = append(errs, fmt.Errorf("%s: %w", subject, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Debug(fmt.Sprintf("%s - Published %s event for %s", commsPublisherLogPrefix, event.Action, event.Capability))
	return nil
}
