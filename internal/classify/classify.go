// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

// Package classify decides what kind of event a raw hub or poll payload is.
//
// Rules, applied in order:
//  1. A string "content" plus a sender identity (senderUserId or senderId)
//     plus a receiver identity (receiverUserId or receiverId) is Chat.
//  2. Otherwise a "type" (or "notificationType") field naming a known
//     notification type yields StatusChange or System.
//  3. Everything else, including malformed JSON, is Unknown.
//
// Classification is total: it never panics and never returns an error.
package classify

import (
	"github.com/goccy/go-json"

	"github.com/tomtom215/loandesk/internal/models"
)

// Kind is the classification result.
type Kind int

const (
	Unknown Kind = iota
	Chat
	StatusChange
	System
)

func (k Kind) String() string {
	switch k {
	case Chat:
		return "chat"
	case StatusChange:
		return "status_change"
	case System:
		return "system"
	default:
		return "unknown"
	}
}

var (
	senderKeys   = []string{"senderUserId", "senderId"}
	receiverKeys = []string{"receiverUserId", "receiverId"}
	typeKeys     = []string{"type", "notificationType"}
)

// Classify classifies a raw JSON payload.
func Classify(raw []byte) Kind {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Unknown
	}
	return ClassifyFields(fields)
}

// ClassifyFields classifies an already-decoded JSON object. A nil map is Unknown.
func ClassifyFields(fields map[string]any) Kind {
	if len(fields) == 0 {
		return Unknown
	}

	if _, ok := fields["content"].(string); ok && hasIdentity(fields, senderKeys) && hasIdentity(fields, receiverKeys) {
		return Chat
	}

	for _, key := range typeKeys {
		raw, ok := fields[key]
		if !ok || raw == nil {
			continue
		}
		switch typ, _ := models.ParseNotificationType(raw); typ {
		case models.NotificationStatusChanged:
			return StatusChange
		case models.NotificationSystem:
			return System
		}
	}
	return Unknown
}

// hasIdentity reports whether any of keys holds a non-empty string or a number.
func hasIdentity(fields map[string]any, keys []string) bool {
	for _, key := range keys {
		switch v := fields[key].(type) {
		case string:
			if v != "" {
				return true
			}
		case float64:
			return true
		}
	}
	return false
}
