// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"math/big"
	"strconv"
	"time"

	"github.com/samber/oops"
)

// Reset code configuration.
const (
	ResetCodeMin    = 100000
	ResetCodeMax    = 999999
	ResetCodeLength = 6

	// DefaultResetCodeTTL is how long an issued code stays valid.
	DefaultResetCodeTTL = 10 * time.Minute
)

// ResetCode is a pending password reset, keyed by normalized email.
type ResetCode struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	// ExpiresAt is zero when the code never expires.
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// IsExpired reports whether the code has expired at now.
func (c *ResetCode) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// GenerateResetCode returns a 6-digit code drawn uniformly from [100000, 999999].
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(ResetCodeMax-ResetCodeMin+1))
	if err != nil {
		return "", oops.Code("RESET_CODE_GENERATE_FAILED").Wrap(err)
	}
	return strconv.FormatInt(n.Int64()+ResetCodeMin, 10), nil
}

// ResetCodeStore holds pending reset codes. Each method is atomic for a single
// email; implementations need no locking across emails.
type ResetCodeStore interface {
	// Put stores code under code.Email, replacing any existing entry.
	Put(ctx context.Context, code *ResetCode) error

	// Get returns the entry for email, or ErrNotFound.
	Get(ctx context.Context, email string) (*ResetCode, error)

	// Delete removes the entry for email. Deleting a missing entry is not an error.
	Delete(ctx context.Context, email string) error
}

// ResetCodeRegistry issues and checks one-time reset codes on top of a ResetCodeStore.
type ResetCodeRegistry struct {
	store    ResetCodeStore
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
}

// RegistryOption configures a ResetCodeRegistry.
type RegistryOption func(*ResetCodeRegistry)

// WithCodeTTL sets the code lifetime. Zero disables expiry.
func WithCodeTTL(ttl time.Duration) RegistryOption {
	return func(r *ResetCodeRegistry) { r.ttl = ttl }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *ResetCodeRegistry) { r.now = now }
}

// WithCodeGenerator overrides code generation.
func WithCodeGenerator(generate func() (string, error)) RegistryOption {
	return func(r *ResetCodeRegistry) { r.generate = generate }
}

// NewResetCodeRegistry creates a registry backed by store.
func NewResetCodeRegistry(store ResetCodeStore, opts ...RegistryOption) (*ResetCodeRegistry, error) {
	if store == nil {
		return nil, oops.Code("RESET_REGISTRY_INVALID").Errorf("reset code store is required")
	}
	r := &ResetCodeRegistry{
		store:    store,
		ttl:      DefaultResetCodeTTL,
		now:      time.Now,
		generate: GenerateResetCode,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.ttl < 0 {
		return nil, oops.Code("RESET_REGISTRY_INVALID").With("ttl", r.ttl.String()).Errorf("code ttl cannot be negative")
	}
	return r, nil
}

// TTL returns the configured code lifetime.
func (r *ResetCodeRegistry) TTL() time.Duration {
	return r.ttl
}

// Issue generates a fresh code for email, overwriting any pending one.
func (r *ResetCodeRegistry) Issue(ctx context.Context, email string) (string, error) {
	code, err := r.generate()
	if err != nil {
		return "", err
	}

	now := r.now().UTC()
	entry := &ResetCode{
		Email:     email,
		Code:      code,
		CreatedAt: now,
	}
	if r.ttl > 0 {
		entry.ExpiresAt = now.Add(r.ttl)
	}

	if err := r.store.Put(ctx, entry); err != nil {
		return "", oops.With("store_operation", "put").Wrap(err)
	}
	return code, nil
}

// Verify reports whether code matches the live entry for email. It does not consume the entry.
func (r *ResetCodeRegistry) Verify(ctx context.Context, email, code string) (bool, error) {
	entry, err := r.live(ctx, email)
	if err != nil || entry == nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(entry.Code), []byte(code)) == 1, nil
}

// Exists reports whether a live code was issued for email.
func (r *ResetCodeRegistry) Exists(ctx context.Context, email string) (bool, error) {
	entry, err := r.live(ctx, email)
	if err != nil {
		return false, err
	}
	return entry != nil, nil
}

// Consume removes the entry for email. It is a no-op if none exists.
func (r *ResetCodeRegistry) Consume(ctx context.Context, email string) error {
	if err := r.store.Delete(ctx, email); err != nil {
		return oops.With("store_operation", "delete").Wrap(err)
	}
	return nil
}

// live returns the unexpired entry for email, or nil. Removing expired
// entries is left to the store so a concurrent Issue is never clobbered.
func (r *ResetCodeRegistry) live(ctx context.Context, email string) (*ResetCode, error) {
	entry, err := r.store.Get(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.With("store_operation", "get").Wrap(err)
	}
	if entry.IsExpired(r.now()) {
		return nil, nil
	}
	return entry, nil
}
