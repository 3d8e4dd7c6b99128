// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/loandesk/internal/logging"
)

// TransportType names a hub transport as the server advertises it.
type TransportType string

const (
	TransportWebSockets       TransportType = "WebSockets"
	TransportServerSentEvents TransportType = "ServerSentEvents"
	TransportLongPolling      TransportType = "LongPolling"
)

// DefaultTransports is the fallback order: full duplex first.
var DefaultTransports = []TransportType{
	TransportWebSockets,
	TransportServerSentEvents,
	TransportLongPolling,
}

// ParseTransport maps a configuration value onto a TransportType.
func ParseTransport(s string) (TransportType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "websockets", "websocket", "ws":
		return TransportWebSockets, nil
	case "serversentevents", "sse":
		return TransportServerSentEvents, nil
	case "longpolling", "long_polling", "poll":
		return TransportLongPolling, nil
	}
	return "", fmt.Errorf("unknown hub transport %q", s)
}

// maxNegotiateRedirects bounds negotiate responses that point at another hub URL.
const maxNegotiateRedirects = 5

// Session is an open transport that completed the hub handshake.
//
// Receive blocks until data arrives or the session is closed; the returned
// bytes may hold several records or a partial one. Close unblocks Receive and
// may be called more than once.
type Session interface {
	ConnectionID() string
	Transport() TransportType
	Receive() ([]byte, error)
	Send(ctx context.Context, data []byte) error
	Close() error
}

// Connector establishes sessions. ctx bounds only the connection setup; the
// returned session lives until it is closed.
type Connector interface {
	Connect(ctx context.Context, token string) (Session, error)
}

// ConnectorConfig configures a HubConnector.
type ConnectorConfig struct {
	BaseURL    string
	Path       string
	Transports []TransportType

	// HTTPClient is used for negotiation and the HTTP transports. It must
	// not set a Timeout because the SSE stream is long lived.
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

// HubConnector implements the negotiate-then-fallback connection protocol.
type HubConnector struct {
	baseURL    string
	path       string
	transports []TransportType
	client     *http.Client
	dialer     *websocket.Dialer
}

// NewHubConnector creates a connector. Configuration errors are reported by
// Validate and by every Connect call.
func NewHubConnector(cfg ConnectorConfig) *HubConnector {
	transports := cfg.Transports
	if len(transports) == 0 {
		transports = DefaultTransports
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &HubConnector{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		path:       "/" + strings.TrimLeft(strings.TrimSpace(cfg.Path), "/"),
		transports: transports,
		client:     client,
		dialer:     dialer,
	}
}

// Endpoint returns the hub URL.
func (c *HubConnector) Endpoint() string {
	return c.baseURL + c.path
}

// Validate checks that an endpoint is configured.
func (c *HubConnector) Validate() error {
	if c.baseURL == "" {
		return ErrMissingEndpoint
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingEndpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: base URL must be http or https, got %q", ErrMissingEndpoint, c.baseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: base URL has no host", ErrMissingEndpoint)
	}
	return nil
}

type availableTransport struct {
	Transport       string   `json:"transport"`
	TransferFormats []string `json:"transferFormats"`
}

type negotiateResponse struct {
	ConnectionID        string               `json:"connectionId"`
	ConnectionToken     string               `json:"connectionToken"`
	NegotiateVersion    int                  `json:"negotiateVersion"`
	AvailableTransports []availableTransport `json:"availableTransports"`
	URL                 string               `json:"url"`
	AccessToken         string               `json:"accessToken"`
	Error               string               `json:"error"`
}

// negotiation is the outcome of the negotiate exchange.
type negotiation struct {
	hubURL       string
	token        string
	connectionID string
	connToken    string
	offered      map[TransportType]bool
}

// Connect negotiates, opens the first offered transport in preference order
// and completes the hub handshake.
func (c *HubConnector) Connect(ctx context.Context, token string) (Session, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingCredential
	}

	neg, err := c.negotiate(ctx, c.Endpoint(), token)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, t := range c.transports {
		if !neg.offered[t] {
			continue
		}
		sess, err := c.open(ctx, t, neg)
		if err != nil {
			logging.Debug().
				Str("endpoint", c.Endpoint()).
				Str("transport", string(t)).
				Err(err).
				Msg("Hub transport unavailable, falling back")
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
			continue
		}

		sess, err = handshake(ctx, sess)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: server offered none of %v", ErrNoTransport, c.transports)
	}
	return nil, fmt.Errorf("%w: %w", ErrNoTransport, errors.Join(errs...))
}

func (c *HubConnector) negotiate(ctx context.Context, hubURL, token string) (*negotiation, error) {
	for i := 0; i <= maxNegotiateRedirects; i++ {
		resp, err := c.negotiateOnce(ctx, hubURL, token)
		if err != nil {
			return nil, err
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("hub: negotiate failed: %s", resp.Error)
		}
		if resp.URL != "" {
			hubURL = strings.TrimRight(resp.URL, "/")
			if resp.AccessToken != "" {
				token = resp.AccessToken
			}
			continue
		}

		neg := &negotiation{
			hubURL:       hubURL,
			token:        token,
			connectionID: resp.ConnectionID,
			connToken:    resp.ConnectionToken,
			offered:      make(map[TransportType]bool, len(resp.AvailableTransports)),
		}
		if resp.NegotiateVersion == 0 || neg.connToken == "" {
			neg.connToken = resp.ConnectionID
		}
		for _, at := range resp.AvailableTransports {
			if supportsText(at.TransferFormats) {
				neg.offered[TransportType(at.Transport)] = true
			}
		}
		return neg, nil
	}
	return nil, fmt.Errorf("hub: negotiate redirected more than %d times", maxNegotiateRedirects)
}

func (c *HubConnector) negotiateOnce(ctx context.Context, hubURL, token string) (*negotiateResponse, error) {
	u, err := url.Parse(hubURL + "/negotiate")
	if err != nil {
		return nil, fmt.Errorf("hub: build negotiate url: %w", err)
	}
	q := u.Query()
	q.Set("negotiateVersion", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("hub: create negotiate request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hub: negotiate: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: negotiate returned status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("hub: negotiate returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out negotiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("hub: decode negotiate response: %w", err)
	}
	return &out, nil
}

func (c *HubConnector) open(ctx context.Context, t TransportType, neg *negotiation) (Session, error) {
	target, err := url.Parse(neg.hubURL)
	if err != nil {
		return nil, fmt.Errorf("parse hub url: %w", err)
	}
	q := target.Query()
	q.Set("id", neg.connToken)
	target.RawQuery = q.Encode()

	switch t {
	case TransportWebSockets:
		return dialWebSocket(ctx, c.dialer, target, neg.token, neg.connectionID)
	case TransportServerSentEvents:
		return openSSE(ctx, c.client, target.String(), neg.token, neg.connectionID)
	case TransportLongPolling:
		return openLongPolling(ctx, c.client, target.String(), neg.token, neg.connectionID)
	default:
		return nil, fmt.Errorf("unsupported transport %q", t)
	}
}

func supportsText(formats []string) bool {
	if len(formats) == 0 {
		return true
	}
	for _, f := range formats {
		if strings.EqualFold(f, "Text") {
			return true
		}
	}
	return false
}

type receiveResult struct {
	data []byte
	err  error
}

// receiveContext bounds a Receive by ctx. On expiry the session is closed so
// the pending Receive returns.
func receiveContext(ctx context.Context, sess Session) ([]byte, error) {
	ch := make(chan receiveResult, 1)
	go func() {
		data, err := sess.Receive()
		ch <- receiveResult{data: data, err: err}
	}()
	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		_ = sess.Close()
		return nil, ctx.Err()
	}
}

// handshake sends the protocol handshake and waits for the server's reply.
// Records that arrive in the same read as the reply are kept for the caller.
func handshake(ctx context.Context, sess Session) (Session, error) {
	if err := sess.Send(ctx, HandshakeRecord()); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("hub: send handshake: %w", err)
	}

	var reader RecordReader
	for {
		data, err := receiveContext(ctx, sess)
		if err != nil {
			_ = sess.Close()
			return nil, fmt.Errorf("hub: await handshake: %w", err)
		}
		records, err := reader.Feed(data)
		if err != nil {
			_ = sess.Close()
			return nil, err
		}
		if len(records) == 0 {
			continue
		}
		if err := parseHandshakeResponse(records[0]); err != nil {
			_ = sess.Close()
			return nil, err
		}

		var rest []byte
		for _, rec := range records[1:] {
			rest = append(rest, rec...)
			rest = append(rest, RecordSeparator)
		}
		rest = append(rest, reader.Pending()...)
		if len(rest) == 0 {
			return sess, nil
		}
		return &bufferedSession{Session: sess, pending: rest}, nil
	}
}

// bufferedSession replays bytes read past the handshake before reading more.
type bufferedSession struct {
	Session
	pending []byte
}

func (s *bufferedSession) Receive() ([]byte, error) {
	if s.pending != nil {
		p := s.pending
		s.pending = nil
		return p, nil
	}
	return s.Session.Receive()
}
