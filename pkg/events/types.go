// Package events defines provider change events and their publishers.
package events

// Provider change actions.
const (
	ActionRegistered   = "registered"
	ActionUnregistered = "unregistered"
)

// ProviderChangedEvent is emitted when an application starts or stops
// providing a capability.
type ProviderChangedEvent struct {
	Capability   string `json:"capability"`
	AppID        string `json:"appId,omitempty"`
	ConnectionID uint32 `json:"connectionId"`
	Origin       string `json:"origin"`
	Action       string `json:"action"`
	Timestamp    string `json:"timestamp"`
}
