package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectBroker          = "app2app.broker.v1"
	SubjectProviderChanged = "app2app.provider.changed"
	SubjectDelegateRespond = "app2app.delegate.respond"
)

var subjectTokenReplacer = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")

// SafeToken turns an arbitrary name into a single COMMS subject token.
func SafeToken(name string) string {
	if name == "" {
		return "_"
	}
	return subjectTokenReplacer.Replace(strings.ToLower(name))
}

// BuildProviderChangeSubject builds the granular provider change subject for a capability.
func BuildProviderChangeSubject(capability string) string {
	return fmt.Sprintf("%s.%s", SubjectProviderChanged, SafeToken(capability))
}

// BuildResponderSubject builds the subject a named responder publishes deliveries on.
func BuildResponderSubject(prefix, name string) string {
	return fmt.Sprintf("%s.%s", prefix, SafeToken(name))
}
