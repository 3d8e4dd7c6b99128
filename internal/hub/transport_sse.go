// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package hub

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// sseSession receives over a text/event-stream and sends with POST.
type sseSession struct {
	client       *http.Client
	url          string
	token        string
	connectionID string

	body   io.ReadCloser
	reader *bufio.Reader
	cancel context.CancelFunc

	closeOnce sync.Once
}

// openSSE starts the event stream. ctx bounds only the wait for the response
// headers; the stream itself lives until Close.
func openSSE(ctx context.Context, client *http.Client, url, token, connectionID string) (Session, error) {
	streamCtx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, cancel)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, url, http.NoBody)
	if err != nil {
		stop()
		cancel()
		return nil, fmt.Errorf("create sse request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if !stop() {
		// ctx expired while waiting; streamCtx is already cancelled.
		if resp != nil {
			resp.Body.Close()
		}
		cancel()
		return nil, fmt.Errorf("open sse stream: %w", ctx.Err())
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open sse stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("sse stream returned status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("sse stream returned content type %q", ct)
	}

	return &sseSession{
		client:       client,
		url:          url,
		token:        token,
		connectionID: connectionID,
		body:         resp.Body,
		reader:       bufio.NewReader(resp.Body),
		cancel:       cancel,
	}, nil
}

func (s *sseSession) ConnectionID() string     { return s.connectionID }
func (s *sseSession) Transport() TransportType { return TransportServerSentEvents }

// Receive returns the data of the next event. Multi-line data fields are
// joined with newlines; comment lines are ignored.
func (s *sseSession) Receive() ([]byte, error) {
	var data []byte
	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if len(data) > 0 && err == io.EOF {
				return data, nil
			}
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")

		switch {
		case len(line) == 0:
			if len(data) > 0 {
				return data, nil
			}
		case line[0] == ':':
			// comment / keep-alive
		case bytes.HasPrefix(line, []byte("data:")):
			value := bytes.TrimPrefix(line[len("data:"):], []byte(" "))
			if data != nil {
				data = append(data, '\n')
			}
			data = append(data, value...)
		}
	}
}

func (s *sseSession) Send(ctx context.Context, data []byte) error {
	return postRecord(ctx, s.client, s.url, s.token, data)
}

func (s *sseSession) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.body.Close()
	})
	return nil
}

// postRecord sends data to the hub on the HTTP transports.
func postRecord(ctx context.Context, client *http.Client, url, token string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create send request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain;charset=UTF-8")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("send returned status %d", resp.StatusCode)
	}
	return nil
}
