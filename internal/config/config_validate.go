// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/loandesk/internal/hub"
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateAPI,
		c.validateHub,
		c.validateRetry,
		c.validatePoll,
		c.validateStore,
		c.validateNotifications,
		c.validateServer,
		c.validateLogging,
		c.validateSupervisor,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if err := validateHTTPURL(c.API.BaseURL, "API_BASE_URL"); err != nil {
		return err
	}
	paths := map[string]string{
		"API_NOTIFICATIONS_PATH": c.API.NotificationsPath,
		"API_CONVERSATIONS_PATH": c.API.ConversationsPath,
		"API_SEND_MESSAGE_PATH":  c.API.SendMessagePath,
	}
	for name, path := range paths {
		if err := validatePath(path, name); err != nil {
			return err
		}
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}
	if c.API.BreakerFailureRatio <= 0 || c.API.BreakerFailureRatio > 1 {
		return fmt.Errorf("API_BREAKER_FAILURE_RATIO must be in (0, 1], got %v", c.API.BreakerFailureRatio)
	}
	if c.API.BreakerTimeout <= 0 {
		return fmt.Errorf("API_BREAKER_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateHub() error {
	if c.Hub.BaseURL != "" {
		if err := validateHTTPURL(c.Hub.BaseURL, "HUB_BASE_URL"); err != nil {
			return err
		}
	}
	if err := validatePath(c.Hub.NotificationPath, "HUB_NOTIFICATION_PATH"); err != nil {
		return err
	}
	if err := validatePath(c.Hub.ChatPath, "HUB_CHAT_PATH"); err != nil {
		return err
	}
	if c.Hub.NotificationPath == c.Hub.ChatPath {
		return fmt.Errorf("HUB_NOTIFICATION_PATH and HUB_CHAT_PATH must differ")
	}

	if len(c.Hub.Transports) == 0 {
		return fmt.Errorf("HUB_TRANSPORTS must list at least one transport")
	}
	seen := make(map[hub.TransportType]bool, len(c.Hub.Transports))
	for _, name := range c.Hub.Transports {
		t, err := hub.ParseTransport(name)
		if err != nil {
			return fmt.Errorf("HUB_TRANSPORTS: %w", err)
		}
		if seen[t] {
			return fmt.Errorf("HUB_TRANSPORTS lists %s twice", t)
		}
		seen[t] = true
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"HUB_NEGOTIATE_TIMEOUT", c.Hub.NegotiateTimeout},
		{"HUB_KEEP_ALIVE_INTERVAL", c.Hub.KeepAliveInterval},
		{"HUB_SERVER_TIMEOUT", c.Hub.ServerTimeout},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}
	if c.Hub.ServerTimeout <= c.Hub.KeepAliveInterval {
		return fmt.Errorf("HUB_SERVER_TIMEOUT (%s) must exceed HUB_KEEP_ALIVE_INTERVAL (%s)", c.Hub.ServerTimeout, c.Hub.KeepAliveInterval)
	}
	if c.Hub.TokenLeeway < 0 {
		return fmt.Errorf("HUB_TOKEN_LEEWAY must not be negative")
	}
	if len(c.Hub.Targets) == 0 {
		return fmt.Errorf("HUB_TARGETS must list at least one hub method")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if err := c.Retry.Notifications.Validate(); err != nil {
		return fmt.Errorf("retry.notifications: %w", err)
	}
	if err := c.Retry.Chat.Validate(); err != nil {
		return fmt.Errorf("retry.chat: %w", err)
	}
	return nil
}

func (c *Config) validatePoll() error {
	if c.Poll.NotificationsInterval < time.Second {
		return fmt.Errorf("POLL_NOTIFICATIONS_INTERVAL must be at least 1s")
	}
	if c.Poll.MessagesInterval < time.Second {
		return fmt.Errorf("POLL_MESSAGES_INTERVAL must be at least 1s")
	}
	if c.Poll.RefreshInterval <= 0 {
		return fmt.Errorf("POLL_REFRESH_INTERVAL must be positive")
	}
	if c.Poll.RefreshBurst < 1 {
		return fmt.Errorf("POLL_REFRESH_BURST must be at least 1")
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory {
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("STORE_PATH is required unless STORE_IN_MEMORY=true")
		}
		if !filepath.IsAbs(c.Store.Path) && strings.Contains(c.Store.Path, "..") {
			return fmt.Errorf("STORE_PATH must not traverse parent directories: %s", c.Store.Path)
		}
	}
	if strings.TrimSpace(c.Store.Namespace) == "" || strings.Contains(c.Store.Namespace, ":") {
		return fmt.Errorf("STORE_NAMESPACE must be non-empty and must not contain ':'")
	}
	if c.Store.MaxMessagesPerRoom < 1 {
		return fmt.Errorf("STORE_MAX_MESSAGES_PER_ROOM must be at least 1")
	}
	if c.Store.PersistInterval < time.Second {
		return fmt.Errorf("STORE_PERSIST_INTERVAL must be at least 1s")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.MaxItems < 1 {
		return fmt.Errorf("NOTIFICATIONS_MAX_ITEMS must be at least 1")
	}
	if c.Notifications.ToastTTL <= 0 {
		return fmt.Errorf("NOTIFICATIONS_TOAST_TTL must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			continue
		}
		if err := validateHTTPURL(origin, "CORS_ORIGINS"); err != nil {
			return err
		}
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
		}
		if c.Server.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

func (c *Config) validateSupervisor() error {
	if c.Supervisor.FailureThreshold < 0 || c.Supervisor.FailureDecay < 0 {
		return fmt.Errorf("supervisor failure threshold and decay must not be negative")
	}
	if c.Supervisor.FailureBackoff < 0 || c.Supervisor.ShutdownTimeout < 0 {
		return fmt.Errorf("supervisor durations must not be negative")
	}
	return nil
}
