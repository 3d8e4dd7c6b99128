// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

/*
Package config provides configuration loading and validation for the agent.

# Configuration Sources

Koanf v2 layers three sources, later ones winning:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file: $CONFIG_PATH, config.yaml, config.yml,
    /etc/loandesk/config.yaml, /etc/loandesk/config.yml
 3. Environment variables, through an explicit mapping table

Comma-separated environment values become slices for list settings
(HUB_TRANSPORTS, HUB_TARGETS, CORS_ORIGINS, *_RETRY_SCHEDULE).

# Environment Variables

API:
  - API_BASE_URL: dashboard REST API base URL (required)
  - API_TIMEOUT: per-request timeout (default: 15s)
  - API_BREAKER_MIN_REQUESTS, API_BREAKER_FAILURE_RATIO, API_BREAKER_TIMEOUT

Hub:
  - HUB_BASE_URL: hub origin (default: API_BASE_URL)
  - HUB_NOTIFICATION_PATH (default: /notification-hub)
  - HUB_CHAT_PATH (default: /chat-hub)
  - HUB_TRANSPORTS (default: websockets,serversentevents,longpolling)
  - HUB_NEGOTIATE_TIMEOUT (10s), HUB_KEEP_ALIVE_INTERVAL (15s), HUB_SERVER_TIMEOUT (30s)
  - HUB_TARGETS (default: ReceiveNotification,ReceiveMessage)
  - ACCESS_TOKEN: optional startup bearer token

Retry:
  - NOTIFICATION_RETRY_MAX_COUNT (3), NOTIFICATION_RETRY_INTERVAL (5s)
  - CHAT_RETRY_MAX_COUNT (3), CHAT_RETRY_SCHEDULE (0s,2s,5s,10s,20s,30s)

Poll and store:
  - POLL_NOTIFICATIONS_INTERVAL (15s), POLL_MESSAGES_INTERVAL (10s)
  - POLL_REFRESH_INTERVAL (2s), POLL_REFRESH_BURST (1)
  - STORE_PATH (/data/loandesk), STORE_NAMESPACE (loandesk), STORE_IN_MEMORY
  - STORE_MAX_MESSAGES_PER_ROOM (50), STORE_PERSIST_INTERVAL (30s)

Server and logging:
  - HTTP_HOST (127.0.0.1), HTTP_PORT (8741), HTTP_TIMEOUT (30s)
  - CORS_ORIGINS, RATE_LIMIT_REQUESTS (120), RATE_LIMIT_WINDOW (1m), DISABLE_RATE_LIMIT
  - LOG_LEVEL (info), LOG_FORMAT (json), LOG_CALLER

# Validation

Validate rejects missing or malformed URLs, relative hub paths, unknown or
repeated transports, a server timeout not exceeding the keep-alive interval,
invalid retry policies and out-of-range intervals. Errors name the
environment variable to fix.
*/
package config
