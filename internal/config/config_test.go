// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.API.BaseURL = "https://api.loandesk.test"
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing api url", func(c *Config) { c.API.BaseURL = "" }, "API_BASE_URL is required"},
		{"api url with path", func(c *Config) { c.API.BaseURL = "https://api.loandesk.test/v1" }, "remove path"},
		{"api url bad scheme", func(c *Config) { c.API.BaseURL = "ftp://api.loandesk.test" }, "scheme must be http or https"},
		{"relative api path", func(c *Config) { c.API.SendMessagePath = "api/chat" }, "must start with /"},
		{"breaker ratio", func(c *Config) { c.API.BreakerFailureRatio = 1.5 }, "API_BREAKER_FAILURE_RATIO"},
		{"hub url", func(c *Config) { c.Hub.BaseURL = "wss://hubs.loandesk.test" }, "HUB_BASE_URL"},
		{"same hub paths", func(c *Config) { c.Hub.ChatPath = c.Hub.NotificationPath }, "must differ"},
		{"no transports", func(c *Config) { c.Hub.Transports = nil }, "at least one transport"},
		{"unknown transport", func(c *Config) { c.Hub.Transports = []string{"carrier-pigeon"} }, "HUB_TRANSPORTS"},
		{"repeated transport", func(c *Config) { c.Hub.Transports = []string{"ws", "websockets"} }, "twice"},
		{"zero negotiate timeout", func(c *Config) { c.Hub.NegotiateTimeout = 0 }, "HUB_NEGOTIATE_TIMEOUT"},
		{"server timeout below keep-alive", func(c *Config) { c.Hub.ServerTimeout = 10 * time.Second }, "must exceed"},
		{"no targets", func(c *Config) { c.Hub.Targets = nil }, "HUB_TARGETS"},
		{"negative retries", func(c *Config) { c.Retry.Chat.MaxRetryCount = -1 }, "retry.chat"},
		{"fast poll", func(c *Config) { c.Poll.MessagesInterval = 100 * time.Millisecond }, "POLL_MESSAGES_INTERVAL"},
		{"zero burst", func(c *Config) { c.Poll.RefreshBurst = 0 }, "POLL_REFRESH_BURST"},
		{"missing store path", func(c *Config) { c.Store.Path = "" }, "STORE_PATH"},
		{"namespace with colon", func(c *Config) { c.Store.Namespace = "a:b" }, "STORE_NAMESPACE"},
		{"zero per-room cap", func(c *Config) { c.Store.MaxMessagesPerRoom = 0 }, "STORE_MAX_MESSAGES_PER_ROOM"},
		{"zero notifications", func(c *Config) { c.Notifications.MaxItems = 0 }, "NOTIFICATIONS_MAX_ITEMS"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "HTTP_PORT"},
		{"cors origin", func(c *Config) { c.Server.CORSOrigins = []string{"not a url"} }, "CORS_ORIGINS"},
		{"rate limit", func(c *Config) { c.Server.RateLimitReqs = 0 }, "RATE_LIMIT_REQUESTS"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
		{"supervisor", func(c *Config) { c.Supervisor.FailureBackoff = -time.Second }, "supervisor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Allowed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"in-memory store without path", func(c *Config) { c.Store.InMemory = true; c.Store.Path = "" }},
		{"wildcard cors", func(c *Config) { c.Server.CORSOrigins = []string{"*"} }},
		{"rate limit disabled", func(c *Config) { c.Server.RateLimitDisabled = true; c.Server.RateLimitReqs = 0 }},
		{"trailing slash base url", func(c *Config) { c.API.BaseURL = "https://api.loandesk.test/" }},
		{"empty log format", func(c *Config) { c.Logging.Format = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestConnectorConfig(t *testing.T) {
	cfg := validConfig()
	cc := cfg.ConnectorConfig(cfg.Hub.ChatPath)
	if cc.BaseURL != "https://api.loandesk.test" || cc.Path != "/chat-hub" || len(cc.Transports) != 3 {
		t.Errorf("ConnectorConfig() = %+v", cc)
	}
}
