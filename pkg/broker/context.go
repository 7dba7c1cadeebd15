// Package broker implements the app-to-app capability broker: provider
// registration, invocation dispatch and correlation of asynchronous provider
// responses back to the original caller.
package broker

import (
	"fmt"
	"strings"
)

// Origin names the transport surface a Context belongs to. The values double
// as the well-known names used to look up the matching responder.
type Origin string

const (
	// OriginGateway is the externally facing WebSocket gateway.
	OriginGateway Origin = "org.rdk.AppGateway"
	// OriginLaunchDelegate is the internal launch delegate.
	OriginLaunchDelegate Origin = "org.rdk.LaunchDelegate"
)

// ParseOrigin maps a tag onto a known Origin.
func ParseOrigin(s string) (Origin, error) {
	switch Origin(s) {
	case OriginGateway:
		return OriginGateway, nil
	case OriginLaunchDelegate:
		return OriginLaunchDelegate, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOrigin, s)
}

// Valid reports whether o is a known origin.
func (o Origin) Valid() bool {
	_, err := ParseOrigin(string(o))
	return err == nil
}

// Context identifies one logical request/response flow. It is a plain value:
// copy it freely and never mutate a stored copy.
type Context struct {
	RequestID    int64  `json:"requestId"`
	ConnectionID uint32 `json:"connectionId"`
	AppID        string `json:"appId,omitempty"`
	Origin       Origin `json:"origin"`
}

func (c Context) String() string {
	return fmt.Sprintf("requestId=%d connectionId=%d appId=%s origin=%s", c.RequestID, c.ConnectionID, c.AppID, c.Origin)
}

// CompositeKey returns the app-qualified registration key "<capability>.<appid>".
func CompositeKey(capability, appID string) string {
	return strings.ToLower(capability) + "." + strings.ToLower(appID)
}
