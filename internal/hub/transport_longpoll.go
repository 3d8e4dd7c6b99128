// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const longPollDeleteTimeout = 2 * time.Second

// longPollingSession repeatedly GETs the hub URL for data and POSTs to send.
type longPollingSession struct {
	client       *http.Client
	url          string
	token        string
	connectionID string

	ctx    context.Context
	cancel context.CancelFunc

	pending   []byte
	closeOnce sync.Once
}

// openLongPolling performs the first poll, which the server answers as soon
// as the connection is registered.
func openLongPolling(ctx context.Context, client *http.Client, url, token, connectionID string) (Session, error) {
	sessCtx, cancel := context.WithCancel(context.Background())
	s := &longPollingSession{
		client:       client,
		url:          url,
		token:        token,
		connectionID: connectionID,
		ctx:          sessCtx,
		cancel:       cancel,
	}

	stop := context.AfterFunc(ctx, cancel)
	data, err := s.poll()
	if !stop() {
		cancel()
		return nil, fmt.Errorf("open long polling: %w", ctx.Err())
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open long polling: %w", err)
	}
	if len(data) > 0 {
		s.pending = data
	}
	return s, nil
}

func (s *longPollingSession) ConnectionID() string     { return s.connectionID }
func (s *longPollingSession) Transport() TransportType { return TransportLongPolling }

// Receive polls until the server returns data. 204 No Content means the
// server ended the connection and is reported as io.EOF.
func (s *longPollingSession) Receive() ([]byte, error) {
	if s.pending != nil {
		p := s.pending
		s.pending = nil
		return p, nil
	}
	for {
		data, err := s.poll()
		if err != nil {
			return nil, err
		}
		if len(data) > 0 {
			return data, nil
		}
	}
}

func (s *longPollingSession) poll() ([]byte, error) {
	pollURL := s.url
	sep := "&"
	if !strings.Contains(pollURL, "?") {
		sep = "?"
	}
	pollURL += sep + "_=" + strconv.FormatInt(time.Now().UnixMilli(), 10)

	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, pollURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create poll request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read poll response: %w", err)
		}
		return data, nil
	case http.StatusNoContent:
		return nil, io.EOF
	default:
		return nil, fmt.Errorf("poll returned status %d", resp.StatusCode)
	}
}

func (s *longPollingSession) Send(ctx context.Context, data []byte) error {
	return postRecord(ctx, s.client, s.url, s.token, data)
}

// Close cancels the outstanding poll and tells the server to drop the connection.
func (s *longPollingSession) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()

		ctx, cancel := context.WithTimeout(context.Background(), longPollDeleteTimeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.url, http.NoBody)
		if err != nil {
			return
		}
		req.Header.Set("Authorization", "Bearer "+s.token)
		if resp, err := s.client.Do(req); err == nil {
			resp.Body.Close()
		}
	})
	return nil
}
