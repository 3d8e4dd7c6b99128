// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package hub

import (
	"bytes"
	"errors"
	"testing"
)

func TestHandshakeRecord(t *testing.T) {
	want := []byte("{\"protocol\":\"json\",\"version\":1}\x1e")
	if got := HandshakeRecord(); !bytes.Equal(got, want) {
		t.Errorf("HandshakeRecord() = %q, want %q", got, want)
	}
}

func TestRecordReader_SplitsAndBuffers(t *testing.T) {
	var r RecordReader

	records, err := r.Feed([]byte("{\"type\":6}\x1e{\"type\":1,"))
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(records) != 1 || string(records[0]) != `{"type":6}` {
		t.Fatalf("records = %q", records)
	}
	if string(r.Pending()) != `{"type":1,` {
		t.Errorf("Pending() = %q", r.Pending())
	}

	records, _ = r.Feed([]byte("\"target\":\"ReceiveMessage\"}\x1e\x1e"))
	if len(records) != 1 || string(records[0]) != `{"type":1,"target":"ReceiveMessage"}` {
		t.Fatalf("records = %q", records)
	}
	if r.Pending() != nil {
		t.Errorf("Pending() = %q, want nil", r.Pending())
	}
}

func TestRecordReader_RejectsOversizedRecord(t *testing.T) {
	var r RecordReader
	_, err := r.Feed(bytes.Repeat([]byte("x"), maxBufferedRecord+1))
	if !errors.Is(err, errRecordTooLarge) {
		t.Errorf("Feed() error = %v, want errRecordTooLarge", err)
	}
	if r.Pending() != nil {
		t.Error("buffer should be dropped after overflow")
	}
}

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		record  string
		want    MessageType
		wantErr bool
	}{
		{"invocation", `{"type":1,"target":"ReceiveNotification","arguments":[{"id":1}]}`, MessageInvocation, false},
		{"ping", `{"type":6}`, MessagePing, false},
		{"close", `{"type":7,"error":"bye","allowReconnect":true}`, MessageClose, false},
		{"missing type", `{"target":"x"}`, 0, true},
		{"garbage", `not json`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeMessage([]byte(tt.record))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if msg.Type != tt.want {
				t.Errorf("Type = %v, want %v", msg.Type, tt.want)
			}
		})
	}

	msg, _ := DecodeMessage([]byte(`{"type":7,"error":"bye","allowReconnect":true}`))
	if msg.Error != "bye" || !msg.AllowReconnect {
		t.Errorf("close message = %+v", msg)
	}
}

func TestParseHandshakeResponse(t *testing.T) {
	if err := parseHandshakeResponse([]byte(`{}`)); err != nil {
		t.Errorf("empty response error = %v", err)
	}
	err := parseHandshakeResponse([]byte(`{"error":"Requested protocol 'json' is not available."}`))
	var hsErr *HandshakeError
	if !errors.As(err, &hsErr) {
		t.Fatalf("error = %v, want HandshakeError", err)
	}
	if err := parseHandshakeResponse([]byte(`{`)); err == nil {
		t.Error("malformed response should fail")
	}
}
