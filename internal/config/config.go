// Package config provides server configuration loaded from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds app2app-broker configuration.
type Config struct {
	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"app2app-broker"`

	// Subjects (empty = built-in defaults)
	BrokerSubject         string `envconfig:"BROKER_SUBJECT"`
	ProviderEventSubject  string `envconfig:"PROVIDER_EVENT_SUBJECT"`
	LaunchDelegateSubject string `envconfig:"LAUNCH_DELEGATE_SUBJECT"`

	// Timeouts
	RequestTimeout time.Duration `envconfig:"BROKER_REQUEST_TIMEOUT" default:"25s"`
	// Upper bound for one provider change publication (COMMS + audit insert)
	EventPublishTimeout time.Duration `envconfig:"EVENT_PUBLISH_TIMEOUT" default:"5s"`

	// Delivery workers
	WorkerCount     int `envconfig:"WORKER_COUNT" default:"4"`
	WorkerQueueSize int `envconfig:"WORKER_QUEUE_SIZE" default:"256"`

	// Method table (empty = config/methods.{yaml,json} or the built-in table)
	MethodsFile string `envconfig:"METHODS_FILE"`

	// Audit database
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	AuditEnabled  bool   `envconfig:"AUDIT_ENABLED" default:"false"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// HTTP: health, stats and the WebSocket gateway
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`
	WSPath             string        `envconfig:"WS_PATH" default:"/ws"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ValidateForServe checks required config when running the broker server.
func (c *Config) ValidateForServe() error {
	if c.AuditEnabled && c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required when AUDIT_ENABLED is set", logPrefix)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - BROKER_REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.EventPublishTimeout <= 0 {
		return fmt.Errorf("%s - EVENT_PUBLISH_TIMEOUT must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("%s - WORKER_COUNT must be positive", logPrefix)
	}
	if c.WorkerQueueSize <= 0 {
		return fmt.Errorf("%s - WORKER_QUEUE_SIZE must be positive", logPrefix)
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		return fmt.Errorf("%s - WS_PATH must start with /", logPrefix)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%s - LOG_FORMAT must be text or json", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate, clear, events).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}
