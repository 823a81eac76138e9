// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redis stores pending password reset codes in Redis so that every
// instance of the service sees the same codes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/auth"
)

// DefaultKeyPrefix namespaces reset code keys.
const DefaultKeyPrefix = "accounts:reset:"

// ResetCodeStore implements auth.ResetCodeStore on a Redis client. Entry
// expiry is delegated to Redis key TTLs.
type ResetCodeStore struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
}

// Option configures a ResetCodeStore.
type Option func(*ResetCodeStore)

// WithKeyPrefix replaces DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *ResetCodeStore) { s.prefix = prefix }
}

// NewResetCodeStore creates a store backed by client.
func NewResetCodeStore(client goredis.UniversalClient, opts ...Option) *ResetCodeStore {
	s := &ResetCodeStore{client: client, prefix: DefaultKeyPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ResetCodeStore) key(email string) string {
	return s.prefix + email
}

// Put stores code under code.Email, replacing any existing entry. A code whose
// expiry has already passed removes the entry instead.
func (s *ResetCodeStore) Put(ctx context.Context, code *auth.ResetCode) error {
	if code == nil || code.Email == "" {
		return oops.Code("RESET_CODE_INVALID").Errorf("reset code must have an email")
	}

	ttl, live := expiration(code, s.now())
	if !live {
		return s.Delete(ctx, code.Email)
	}

	payload, err := json.Marshal(code)
	if err != nil {
		return oops.With("store_operation", "marshal").Wrap(err)
	}
	if err := s.client.Set(ctx, s.key(code.Email), payload, ttl).Err(); err != nil {
		return oops.With("redis_command", "SET").Wrap(err)
	}
	return nil
}

// Get returns the entry for email, or an error wrapping auth.ErrNotFound.
func (s *ResetCodeStore) Get(ctx context.Context, email string) (*auth.ResetCode, error) {
	payload, err := s.client.Get(ctx, s.key(email)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, oops.With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("redis_command", "GET").Wrap(err)
	}

	var code auth.ResetCode
	if err := json.Unmarshal(payload, &code); err != nil {
		return nil, oops.With("store_operation", "unmarshal").With("email", email).Wrap(err)
	}
	return &code, nil
}

// Delete removes the entry for email.
func (s *ResetCodeStore) Delete(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, s.key(email)).Err(); err != nil {
		return oops.With("redis_command", "DEL").Wrap(err)
	}
	return nil
}

// Ping checks that Redis is reachable.
func (s *ResetCodeStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return oops.Code("REDIS_UNAVAILABLE").With("redis_command", "PING").Wrap(err)
	}
	return nil
}

// expiration returns the key TTL for code. Zero means no expiry; live is false
// when the code has already expired.
func expiration(code *auth.ResetCode, now time.Time) (ttl time.Duration, live bool) {
	if code.ExpiresAt.IsZero() {
		return 0, true
	}
	ttl = code.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return 0, false
	}
	// Redis PX has millisecond resolution; never round a live code down to "no expiry".
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	return ttl, true
}

// Compile-time interface check.
var _ auth.ResetCodeStore = (*ResetCodeStore)(nil)
