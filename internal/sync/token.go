// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/cloudsync/internal/config"
)

// TokenSource supplies the auth token. It is asked once per request,
// immediately before transmission.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource always returns the same token.
type StaticTokenSource string

// Token returns the static token.
func (s StaticTokenSource) Token(context.Context) (string, error) {
	return string(s), nil
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// JWTTokenSource mints short-lived HS256 tokens and reuses each one until it
// is close to expiry.
type JWTTokenSource struct {
	secret  []byte
	issuer  string
	subject string
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewJWTTokenSource creates a token source signing with secret.
func NewJWTTokenSource(secret, issuer, subject string, ttl time.Duration) *JWTTokenSource {
	return &JWTTokenSource{
		secret:  []byte(secret),
		issuer:  issuer,
		subject: subject,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Token returns the cached token, minting a new one in the last fifth of its lifetime.
func (s *JWTTokenSource) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(s.ttl/5).Before(s.expires) {
		return s.token, nil
	}

	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   s.subject,
		ID:        uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	s.token = signed
	s.expires = now.Add(s.ttl)
	return signed, nil
}

// TokenSourceFromConfig picks JWT signing when a secret is configured, a static
// token otherwise, and nil when neither is set.
func TokenSourceFromConfig(cfg config.APIConfig) TokenSource {
	switch {
	case cfg.JWTSecret != "":
		return NewJWTTokenSource(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTSubject, cfg.JWTTTL)
	case cfg.Token != "":
		return StaticTokenSource(cfg.Token)
	default:
		return nil
	}
}
