// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"

	"github.com/tomtom215/loandesk/internal/models"
)

// checkStringEqual checks that got equals want
func checkStringEqual(t *testing.T, fieldName, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %q, got %q", fieldName, want, got)
	}
}

// checkIntEqual checks that got equals want
func checkIntEqual(t *testing.T, fieldName string, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %d, got %d", fieldName, want, got)
	}
}

// checkNoError fails the test immediately on err
func checkNoError(t *testing.T, what string, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", what, err)
	}
}

// fakeAPI is an in-memory APIClient.
type fakeAPI struct {
	mu            gosync.Mutex
	notifications []models.Notification
	messages      map[string][]models.ChatMessage
	roomErrors    map[string]error
	err           error

	notificationCalls int
	roomCalls         []string
	sent              []models.SendMessageRequest
}

var errFake = errors.New("fake api failure")

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		messages:   make(map[string][]models.ChatMessage),
		roomErrors: make(map[string]error),
	}
}

func (f *fakeAPI) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notificationCalls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Notification(nil), f.notifications...), nil
}

func (f *fakeAPI) ListRoomMessages(ctx context.Context, roomID string) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roomCalls = append(f.roomCalls, roomID)
	if f.err != nil {
		return nil, f.err
	}
	if err := f.roomErrors[roomID]; err != nil {
		return nil, err
	}
	return append([]models.ChatMessage(nil), f.messages[roomID]...), nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, req models.SendMessageRequest) (models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	if f.err != nil {
		return models.ChatMessage{}, f.err
	}
	return models.ChatMessage{ID: req.ClientID, ConversationID: req.ConversationID, Content: req.Content}, nil
}

func (f *fakeAPI) calls() (notifications int, rooms []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notificationCalls, append([]string(nil), f.roomCalls...)
}
