// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

/*
rest_client.go - LoanDesk REST API client

The REST poll path reads authoritative snapshots from the dashboard API:

  - GET  {base}{notifications}            list notifications
  - GET  {base}{messages}/{roomID}/messages list one room's messages
  - POST {base}{send}                      send a chat message

List responses are accepted either as a bare JSON array or wrapped in an
envelope with a "data", "items" or "value" array. Every request carries the
bearer token from the configured hub.Credentials, evaluated per request.
*/

package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/loandesk/internal/hub"
	"github.com/tomtom215/loandesk/internal/logging"
	"github.com/tomtom215/loandesk/internal/metrics"
	"github.com/tomtom215/loandesk/internal/models"
)

// maxErrorBodySize limits how much of an error response is read.
const maxErrorBodySize = 64 * 1024

// Default REST paths, relative to the API base URL.
const (
	DefaultNotificationsPath = "/api/notifications"
	DefaultConversationsPath = "/api/chat/conversations"
	DefaultSendMessagePath   = "/api/chat/messages"
	DefaultRequestTimeout    = 15 * time.Second
)

// APIClient is the REST surface used by the poll and send paths.
type APIClient interface {
	ListNotifications(ctx context.Context) ([]models.Notification, error)
	ListRoomMessages(ctx context.Context, roomID string) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, req models.SendMessageRequest) (models.ChatMessage, error)
}

// StatusError is a non-2xx API response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Unauthorized reports whether the server rejected the credential.
func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// RESTConfig configures a RESTClient.
type RESTConfig struct {
	BaseURL           string
	NotificationsPath string
	ConversationsPath string
	SendMessagePath   string
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// RESTClient talks to the dashboard REST API.
type RESTClient struct {
	baseURL string
	paths   RESTConfig
	client  *http.Client
	creds   hub.Credentials
}

// NewRESTClient creates a client authenticating with creds.
func NewRESTClient(cfg RESTConfig, creds hub.Credentials) (*RESTClient, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", cfg.BaseURL)
	}
	if creds == nil {
		return nil, hub.ErrMissingCredential
	}
	if cfg.NotificationsPath == "" {
		cfg.NotificationsPath = DefaultNotificationsPath
	}
	if cfg.ConversationsPath == "" {
		cfg.ConversationsPath = DefaultConversationsPath
	}
	if cfg.SendMessagePath == "" {
		cfg.SendMessagePath = DefaultSendMessagePath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &RESTClient{
		baseURL: strings.TrimRight(u.String(), "/"),
		paths:   cfg,
		client:  client,
		creds:   creds,
	}, nil
}

// ListNotifications returns the current user's notifications.
func (c *RESTClient) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	body, err := c.do(ctx, http.MethodGet, c.paths.NotificationsPath, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Notification](body, "notification")
}

// ListRoomMessages returns the messages of one conversation.
func (c *RESTClient) ListRoomMessages(ctx context.Context, roomID string) ([]models.ChatMessage, error) {
	if roomID == "" {
		return nil, errors.New("room id is required")
	}
	path := c.paths.ConversationsPath + "/" + url.PathEscape(roomID) + "/messages"
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.ChatMessage](body, "chat_message")
}

// SendMessage posts a chat message and returns the server's echo.
func (c *RESTClient) SendMessage(ctx context.Context, req models.SendMessageRequest) (models.ChatMessage, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("encode message: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, c.paths.SendMessagePath, payload)
	if err != nil {
		return models.ChatMessage{}, err
	}

	var echo models.ChatMessage
	if len(bytes.TrimSpace(body)) == 0 {
		return echo, nil
	}
	if err := json.Unmarshal(unwrapEnvelope(body), &echo); err != nil {
		return models.ChatMessage{}, fmt.Errorf("failed to decode sent message: %w", err)
	}
	return echo, nil
}

// do executes one request and returns the body of a 2xx response.
func (c *RESTClient) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader = http.NoBody
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(readBodyForError(resp.Body)),
		}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// readBodyForError reads at most maxErrorBodySize bytes for diagnostics.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

var envelopeKeys = []string{"data", "items", "value"}

// unwrapEnvelope returns the payload inside a {"data": ...} style envelope,
// or body unchanged when it is not one.
func unwrapEnvelope(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return trimmed
	}
	for _, key := range envelopeKeys {
		if inner, ok := env[key]; ok && len(inner) > 0 && inner[0] != 'n' {
			return inner
		}
	}
	return trimmed
}

// decodeList decodes a JSON array item by item. An item that fails to
// decode is logged, counted and skipped; only a body that is not an array
// at all is an error.
func decodeList[T any](body []byte, kind string) ([]T, error) {
	payload := unwrapEnvelope(body)
	if len(payload) == 0 || string(payload) == "null" {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	items := make([]T, 0, len(raw))
	for i, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			metrics.PollerItemsDropped.WithLabelValues(kind).Inc()
			logging.Warn().Err(err).Str("kind", kind).Int("index", i).Msg("Dropping undecodable list item")
			continue
		}
		items = append(items, v)
	}
	return items, nil
}
