package db

import "time"

// ProviderEvent represents a row in the provider_events table.
type ProviderEvent struct {
	ID           int64     `json:"id"`
	Capability   string    `json:"capability"`
	AppID        string    `json:"app_id"`
	ConnectionID uint32    `json:"connection_id"`
	Origin       string    `json:"origin"`
	Action       string    `json:"action"`
	OccurredAt   time.Time `json:"occurred_at"`
	Created      time.Time `json:"created"`
}
