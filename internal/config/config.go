// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package config

import (
	"strings"
	"time"

	"github.com/tomtom215/loandesk/internal/hub"
	"github.com/tomtom215/loandesk/internal/retry"
)

// Config holds all agent configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every optional setting
//  2. Config File: optional YAML file (config.yaml)
//  3. Environment Variables: override any mapped setting
//
// Configuration Categories:
//
//  1. Upstream:
//     - API: dashboard REST API (poll path, send message)
//     - Hub: realtime hub endpoints, transports and timing
//     - Retry: reconnection policy per hub
//
//  2. Local state:
//     - Poll: REST poll intervals
//     - Store: persisted chat store
//     - Notifications: notification center bounds
//
//  3. Runtime:
//     - Server: local HTTP API
//     - Logging, Supervisor
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	connector := hub.NewHubConnector(cfg.ConnectorConfig(cfg.Hub.NotificationPath))
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	API           APIConfig           `koanf:"api"`
	Hub           HubConfig           `koanf:"hub"`
	Retry         RetryConfig         `koanf:"retry"`
	Poll          PollConfig          `koanf:"poll"`
	Store         StoreConfig         `koanf:"store"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Server        ServerConfig        `koanf:"server"`
	Logging       LoggingConfig       `koanf:"logging"`
	Supervisor    SupervisorConfig    `koanf:"supervisor"`
}

// APIConfig points at the dashboard REST API.
//
// Environment Variables:
//   - API_BASE_URL: REST API base URL (required)
//   - API_TIMEOUT: per-request timeout (default: 15s)
//   - API_BREAKER_TIMEOUT: open-circuit period (default: 30s)
type APIConfig struct {
	BaseURL           string        `koanf:"base_url"`
	NotificationsPath string        `koanf:"notifications_path"`
	ConversationsPath string        `koanf:"conversations_path"`
	SendMessagePath   string        `koanf:"send_message_path"`
	Timeout           time.Duration `koanf:"timeout"`

	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout"`
}

// HubConfig configures both hub connections.
type HubConfig struct {
	// BaseURL is the hub origin. Empty means the API base URL.
	BaseURL          string `koanf:"base_url"`
	NotificationPath string `koanf:"notification_path"`
	ChatPath         string `koanf:"chat_path"`

	// Transports in fallback order: websockets, serversentevents, longpolling.
	Transports []string `koanf:"transports"`

	NegotiateTimeout  time.Duration `koanf:"negotiate_timeout"`
	KeepAliveInterval time.Duration `koanf:"keep_alive_interval"`
	ServerTimeout     time.Duration `koanf:"server_timeout"`

	// AccessToken is an optional bearer token used at startup. Without one
	// the hubs stay disconnected until credentials are set over the API.
	AccessToken string `koanf:"access_token"`

	// Targets are the hub methods carrying unified events.
	Targets []string `koanf:"targets"`

	// TokenLeeway tolerates clock skew when checking JWT expiry.
	TokenLeeway time.Duration `koanf:"token_leeway"`
}

// ParsedTransports returns the configured transports. Invalid names are
// rejected by Validate, so they are skipped here.
func (h HubConfig) ParsedTransports() []hub.TransportType {
	out := make([]hub.TransportType, 0, len(h.Transports))
	for _, name := range h.Transports {
		if t, err := hub.ParseTransport(name); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// ConnectorConfig builds the connector configuration for one hub path.
func (c *Config) ConnectorConfig(path string) hub.ConnectorConfig {
	return hub.ConnectorConfig{
		BaseURL:    c.HubBaseURL(),
		Path:       path,
		Transports: c.Hub.ParsedTransports(),
	}
}

// HubBaseURL returns the hub origin, defaulting to the API base URL.
func (c *Config) HubBaseURL() string {
	if strings.TrimSpace(c.Hub.BaseURL) != "" {
		return c.Hub.BaseURL
	}
	return c.API.BaseURL
}

// RetryConfig holds one reconnection policy per hub.
type RetryConfig struct {
	Notifications retry.Policy `koanf:"notifications"`
	Chat          retry.Policy `koanf:"chat"`
}

// PollConfig holds REST poll settings.
type PollConfig struct {
	NotificationsInterval time.Duration `koanf:"notifications_interval"`
	MessagesInterval      time.Duration `koanf:"messages_interval"`
	RefreshInterval       time.Duration `koanf:"refresh_interval"`
	RefreshBurst          int           `koanf:"refresh_burst"`
}

// StoreConfig configures the persisted chat store.
type StoreConfig struct {
	Path               string        `koanf:"path"`
	Namespace          string        `koanf:"namespace"`
	InMemory           bool          `koanf:"in_memory"`
	MaxMessagesPerRoom int           `koanf:"max_messages_per_room"`
	PersistInterval    time.Duration `koanf:"persist_interval"`
}

// NotificationsConfig bounds the notification center.
type NotificationsConfig struct {
	MaxItems int           `koanf:"max_items"`
	ToastTTL time.Duration `koanf:"toast_ttl"`
}

// ServerConfig holds local HTTP API settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	Timeout           time.Duration `koanf:"timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SupervisorConfig tunes the suture tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// Load reads configuration from defaults, an optional file and the
// environment, and validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
