// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package hub

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// RecordSeparator terminates every JSON hub record.
const RecordSeparator byte = 0x1E

// Protocol identifiers sent in the handshake.
const (
	ProtocolName    = "json"
	ProtocolVersion = 1
)

// maxBufferedRecord bounds a single partial record held between reads.
const maxBufferedRecord = 1 << 20

// MessageType is the "type" discriminator of a hub message.
type MessageType int

const (
	MessageInvocation       MessageType = 1
	MessageStreamItem       MessageType = 2
	MessageCompletion       MessageType = 3
	MessageStreamInvocation MessageType = 4
	MessageCancelInvocation MessageType = 5
	MessagePing             MessageType = 6
	MessageClose            MessageType = 7
)

func (t MessageType) String() string {
	switch t {
	case MessageInvocation:
		return "invocation"
	case MessagePing:
		return "ping"
	case MessageClose:
		return "close"
	default:
		return "other"
	}
}

// Message is a decoded hub message. Only the fields used by the client are kept.
type Message struct {
	Type           MessageType       `json:"type"`
	InvocationID   string            `json:"invocationId,omitempty"`
	Target         string            `json:"target,omitempty"`
	Arguments      []json.RawMessage `json:"arguments,omitempty"`
	Error          string            `json:"error,omitempty"`
	AllowReconnect bool              `json:"allowReconnect,omitempty"`
}

type handshakeRequest struct {
	Protocol string `json:"protocol"`
	Version  int    `json:"version"`
}

type handshakeResponse struct {
	Error string `json:"error,omitempty"`
}

var errRecordTooLarge = errors.New("hub: record exceeds buffer limit")

// EncodeRecord marshals v and appends the record separator.
func EncodeRecord(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode hub record: %w", err)
	}
	return append(data, RecordSeparator), nil
}

// HandshakeRecord returns the client handshake record.
func HandshakeRecord() []byte {
	rec, _ := EncodeRecord(handshakeRequest{Protocol: ProtocolName, Version: ProtocolVersion})
	return rec
}

// PingRecord returns a keep-alive record.
func PingRecord() []byte {
	rec, _ := EncodeRecord(Message{Type: MessagePing})
	return rec
}

// DecodeMessage parses one record body (without separator).
func DecodeMessage(record []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(record, &msg); err != nil {
		return Message{}, fmt.Errorf("decode hub message: %w", err)
	}
	if msg.Type == 0 {
		return Message{}, errors.New("decode hub message: missing type")
	}
	return msg, nil
}

// parseHandshakeResponse interprets the first record received on a session.
func parseHandshakeResponse(record []byte) error {
	var resp handshakeResponse
	if err := json.Unmarshal(record, &resp); err != nil {
		return fmt.Errorf("decode handshake response: %w", err)
	}
	if resp.Error != "" {
		return &HandshakeError{Message: resp.Error}
	}
	return nil
}

// RecordReader splits a byte stream into records, holding partial records
// across calls.
type RecordReader struct {
	buf []byte
}

// Feed appends data and returns every complete record, without separators.
// Empty records are skipped.
func (r *RecordReader) Feed(data []byte) ([][]byte, error) {
	r.buf = append(r.buf, data...)

	var records [][]byte
	for {
		idx := bytes.IndexByte(r.buf, RecordSeparator)
		if idx < 0 {
			break
		}
		if idx > 0 {
			records = append(records, bytes.Clone(r.buf[:idx]))
		}
		r.buf = r.buf[idx+1:]
	}

	if len(r.buf) > maxBufferedRecord {
		r.buf = nil
		return records, errRecordTooLarge
	}
	if len(r.buf) == 0 {
		r.buf = nil
	}
	return records, nil
}

// Pending returns the buffered partial record.
func (r *RecordReader) Pending() []byte {
	return r.buf
}
