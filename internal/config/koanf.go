// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/loandesk/internal/retry"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/loandesk/config.yaml",
	"/etc/loandesk/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults, overridden by file and env.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:             "",
			NotificationsPath:   "/api/notifications",
			ConversationsPath:   "/api/chat/conversations",
			SendMessagePath:     "/api/chat/messages",
			Timeout:             15 * time.Second,
			BreakerMinRequests:  5,
			BreakerFailureRatio: 0.6,
			BreakerTimeout:      30 * time.Second,
		},
		Hub: HubConfig{
			BaseURL:           "",
			NotificationPath:  "/notification-hub",
			ChatPath:          "/chat-hub",
			Transports:        []string{"websockets", "serversentevents", "longpolling"},
			NegotiateTimeout:  10 * time.Second,
			KeepAliveInterval: 15 * time.Second,
			ServerTimeout:     30 * time.Second,
			AccessToken:       "",
			Targets:           []string{"ReceiveNotification", "ReceiveMessage"},
			TokenLeeway:       30 * time.Second,
		},
		Retry: RetryConfig{
			Notifications: retry.NotificationPolicy(),
			Chat:          retry.ChatPolicy(),
		},
		Poll: PollConfig{
			NotificationsInterval: 15 * time.Second,
			MessagesInterval:      10 * time.Second,
			RefreshInterval:       2 * time.Second,
			RefreshBurst:          1,
		},
		Store: StoreConfig{
			Path:               "/data/loandesk",
			Namespace:          "loandesk",
			InMemory:           false,
			MaxMessagesPerRoom: 50,
			PersistInterval:    30 * time.Second,
		},
		Notifications: NotificationsConfig{
			MaxItems: 200,
			ToastTTL: 24 * time.Hour,
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8741,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"http://localhost:3000"},
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5.0,
			FailureDecay:     30.0,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in defaults
//  2. Config File: optional YAML file (if one exists)
//  3. Environment Variables: override any mapped setting
//
// Precedence is ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// API_BASE_URL -> api.base_url, HUB_TRANSPORTS -> hub.transports, ...
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first config file found, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"hub.transports",
	"hub.targets",
	"retry.notifications.schedule",
	"retry.chat.schedule",
	"server.cors_origins",
}

// processSliceFields converts comma-separated strings to slices for known
// slice fields. YAML lists are left untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// API
	"api_base_url":              "api.base_url",
	"api_notifications_path":    "api.notifications_path",
	"api_conversations_path":    "api.conversations_path",
	"api_send_message_path":     "api.send_message_path",
	"api_timeout":               "api.timeout",
	"api_breaker_min_requests":  "api.breaker_min_requests",
	"api_breaker_failure_ratio": "api.breaker_failure_ratio",
	"api_breaker_timeout":       "api.breaker_timeout",

	// Hub
	"hub_base_url":            "hub.base_url",
	"hub_notification_path":   "hub.notification_path",
	"hub_chat_path":           "hub.chat_path",
	"hub_transports":          "hub.transports",
	"hub_negotiate_timeout":   "hub.negotiate_timeout",
	"hub_keep_alive_interval": "hub.keep_alive_interval",
	"hub_server_timeout":      "hub.server_timeout",
	"hub_targets":             "hub.targets",
	"hub_token_leeway":        "hub.token_leeway",
	"access_token":            "hub.access_token",

	// Retry
	"notification_retry_max_count": "retry.notifications.max_retry_count",
	"notification_retry_interval":  "retry.notifications.retry_interval",
	"notification_retry_schedule":  "retry.notifications.schedule",
	"chat_retry_max_count":         "retry.chat.max_retry_count",
	"chat_retry_interval":          "retry.chat.retry_interval",
	"chat_retry_schedule":          "retry.chat.schedule",

	// Poll
	"poll_notifications_interval": "poll.notifications_interval",
	"poll_messages_interval":      "poll.messages_interval",
	"poll_refresh_interval":       "poll.refresh_interval",
	"poll_refresh_burst":          "poll.refresh_burst",

	// Store
	"store_path":                  "store.path",
	"store_namespace":             "store.namespace",
	"store_in_memory":             "store.in_memory",
	"store_max_messages_per_room": "store.max_messages_per_room",
	"store_persist_interval":      "store.persist_interval",

	// Notifications
	"notifications_max_items": "notifications.max_items",
	"notifications_toast_ttl": "notifications.toast_ttl",

	// Server
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_reqs",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc maps an environment variable name to a koanf path, or ""
// to skip it.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
