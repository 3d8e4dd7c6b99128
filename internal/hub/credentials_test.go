// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package hub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "staff-7",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestStaticToken(t *testing.T) {
	ctx := context.Background()
	if tok, err := StaticToken(" abc ").Token(ctx); err != nil || tok != "abc" {
		t.Errorf("Token() = %q, %v", tok, err)
	}
	if _, err := StaticToken("").Token(ctx); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("empty Token() error = %v", err)
	}
}

func TestTokenFunc(t *testing.T) {
	ctx := context.Background()
	if _, err := TokenFunc(func(context.Context) (string, error) { return "", nil }).Token(ctx); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("blank TokenFunc error = %v", err)
	}
	boom := errors.New("provider down")
	if _, err := TokenFunc(func(context.Context) (string, error) { return "", boom }).Token(ctx); !errors.Is(err, boom) {
		t.Errorf("failing TokenFunc error = %v", err)
	}
}

func TestTokenHolder(t *testing.T) {
	ctx := context.Background()
	h := NewTokenHolder("")
	if h.Present() {
		t.Error("empty holder should not be present")
	}
	if _, err := h.Token(ctx); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("Token() error = %v", err)
	}

	h.Set("login-token")
	if tok, err := h.Token(ctx); err != nil || tok != "login-token" {
		t.Errorf("Token() = %q, %v", tok, err)
	}

	h.Clear()
	if _, err := h.Token(ctx); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("Token() after Clear error = %v", err)
	}
}

func TestJWTCredentials(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	valid := signedToken(t, now.Add(time.Hour))
	expired := signedToken(t, now.Add(-time.Minute))

	tests := []struct {
		name    string
		token   string
		leeway  time.Duration
		wantErr error
	}{
		{"valid jwt", valid, 0, nil},
		{"expired jwt", expired, 0, ErrCredentialExpired},
		{"expired within leeway", expired, 2 * time.Minute, nil},
		{"opaque token", "opaque-reference-token", 0, nil},
		{"empty", "", 0, ErrMissingCredential},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewJWTCredentials(StaticToken(tt.token), tt.leeway)
			c.now = func() time.Time { return now }

			tok, err := c.Token(ctx)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Token() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || tok != tt.token {
				t.Errorf("Token() = %q, %v", tok, err)
			}
		})
	}
}

func TestJWTCredentials_ExpiredTokenNeverReachesConnector(t *testing.T) {
	conn := &fakeConnector{next: alwaysSucceed}
	m := NewManager("test", conn, fastPolicy())
	defer m.Close()

	creds := NewJWTCredentials(StaticToken(signedToken(t, time.Now().Add(-time.Hour))), 0)
	if err := m.Start(context.Background(), creds); !errors.Is(err, ErrCredentialExpired) {
		t.Errorf("Start() error = %v, want ErrCredentialExpired", err)
	}
	if n := conn.calls.Load(); n != 0 {
		t.Errorf("connector called %d times, want 0", n)
	}
}
