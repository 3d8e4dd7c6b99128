// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// NotificationType is the server's notification-type enumeration.
type NotificationType string

const (
	// NotificationSystem is a system-wide notice (maintenance, policy change).
	NotificationSystem NotificationType = "System"

	// NotificationStatusChanged reports a loan request status transition.
	NotificationStatusChanged NotificationType = "StatusChanged"
)

// ParseNotificationType maps a wire value onto the enumeration. Names are
// matched case-insensitively; the numeric values 0 and 1 are the server's
// integer encoding of System and StatusChanged.
func ParseNotificationType(v any) (NotificationType, bool) {
	switch t := v.(type) {
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "system", "0":
			return NotificationSystem, true
		case "statuschanged", "status_changed", "1":
			return NotificationStatusChanged, true
		}
	case float64:
		return ParseNotificationType(strconv.FormatFloat(t, 'f', -1, 64))
	case int:
		return ParseNotificationType(strconv.Itoa(t))
	case json.Number:
		return ParseNotificationType(t.String())
	}
	return "", false
}

// Notification is a status-change or system notification.
type Notification struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Message         string           `json:"message"`
	Type            NotificationType `json:"notificationType"`
	RelatedEntityID string           `json:"relatedEntityId,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	IsRead          bool             `json:"isRead"`
}

type notificationWire struct {
	ID               any    `json:"id"`
	Title            string `json:"title"`
	Message          string `json:"message"`
	Type             any    `json:"type"`
	NotificationType any    `json:"notificationType"`
	RelatedEntityID  any    `json:"relatedEntityId"`
	CreatedAt        string `json:"createdAt"`
	IsRead           bool   `json:"isRead"`
}

// UnmarshalJSON decodes a notification, accepting either "type" or
// "notificationType" and numeric or string identifiers.
func (n *Notification) UnmarshalJSON(data []byte) error {
	var w notificationWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	raw := w.NotificationType
	if raw == nil {
		raw = w.Type
	}
	typ, ok := ParseNotificationType(raw)
	if !ok {
		return fmt.Errorf("notification %v: unknown type %v", w.ID, raw)
	}

	createdAt, err := ParseTimestamp(w.CreatedAt)
	if err != nil {
		return fmt.Errorf("notification %v: %w", w.ID, err)
	}

	*n = Notification{
		ID:              idString(w.ID),
		Title:           w.Title,
		Message:         w.Message,
		Type:            typ,
		RelatedEntityID: idString(w.RelatedEntityID),
		CreatedAt:       createdAt,
		IsRead:          w.IsRead,
	}
	return nil
}

func idString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
