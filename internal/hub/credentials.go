// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package hub

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/loandesk/internal/logging"
)

// Credentials supplies the bearer token for a negotiation attempt. Token is
// called once per attempt, never cached by the connection.
type Credentials interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

// Token returns the token, or ErrMissingCredential when it is blank.
func (t StaticToken) Token(context.Context) (string, error) {
	tok := strings.TrimSpace(string(t))
	if tok == "" {
		return "", ErrMissingCredential
	}
	return tok, nil
}

// Present reports whether the token is non-blank.
func (t StaticToken) Present() bool {
	return strings.TrimSpace(string(t)) != ""
}

// TokenFunc adapts a function to Credentials.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	tok, err := f(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(tok) == "" {
		return "", ErrMissingCredential
	}
	return tok, nil
}

// TokenHolder is a mutable credential set at login and cleared at logout.
type TokenHolder struct {
	mu    sync.RWMutex
	token string
}

// NewTokenHolder creates a holder with an initial token, which may be empty.
func NewTokenHolder(token string) *TokenHolder {
	return &TokenHolder{token: strings.TrimSpace(token)}
}

// Set replaces the token.
func (h *TokenHolder) Set(token string) {
	h.mu.Lock()
	h.token = strings.TrimSpace(token)
	h.mu.Unlock()
}

// Clear removes the token.
func (h *TokenHolder) Clear() {
	h.Set("")
}

// Present reports whether a token is held.
func (h *TokenHolder) Present() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token != ""
}

// Token returns the held token.
func (h *TokenHolder) Token(context.Context) (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.token == "" {
		return "", ErrMissingCredential
	}
	return h.token, nil
}

// JWTCredentials rejects expired JWT bearer tokens before any transport is
// attempted. Tokens are not verified: the server owns signature validation.
// Opaque (non-JWT) tokens pass through unchanged.
type JWTCredentials struct {
	Source Credentials
	Leeway time.Duration

	now    func() time.Time
	parser *jwt.Parser
}

// NewJWTCredentials wraps src with an expiry check.
func NewJWTCredentials(src Credentials, leeway time.Duration) *JWTCredentials {
	return &JWTCredentials{
		Source: src,
		Leeway: leeway,
		now:    time.Now,
		parser: jwt.NewParser(),
	}
}

// Present reports whether the source holds a token. Sources that cannot
// tell without being called are assumed present.
func (c *JWTCredentials) Present() bool {
	return c.Source != nil && credentialPresent(c.Source)
}

// Token returns the source token unless it is a JWT whose exp has passed.
func (c *JWTCredentials) Token(ctx context.Context) (string, error) {
	if c.Source == nil {
		return "", ErrMissingCredential
	}
	tok, err := c.Source.Token(ctx)
	if err != nil {
		return "", err
	}

	parser := c.parser
	if parser == nil {
		parser = jwt.NewParser()
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(tok, &claims); err != nil {
		logging.Debug().Err(err).Msg("Bearer token is not a JWT; skipping expiry check")
		return tok, nil
	}
	if claims.ExpiresAt == nil {
		return tok, nil
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	if exp := claims.ExpiresAt.Time; now().After(exp.Add(c.Leeway)) {
		return "", fmt.Errorf("%w at %s", ErrCredentialExpired, exp.UTC().Format(time.RFC3339))
	}
	return tok, nil
}

// credentialPresent asks creds whether it holds a token, when it can answer
// without producing one.
func credentialPresent(creds Credentials) bool {
	if p, ok := creds.(interface{ Present() bool }); ok {
		return p.Present()
	}
	return true
}
