// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
)

// MemoryResetCodeStore keeps reset codes in process memory. Codes do not
// survive a restart and are not shared between processes.
type MemoryResetCodeStore struct {
	entries sync.Map // email -> *ResetCode
	now     func() time.Time
}

// NewMemoryResetCodeStore creates an empty store.
func NewMemoryResetCodeStore() *MemoryResetCodeStore {
	return &MemoryResetCodeStore{now: time.Now}
}

// Put stores code under code.Email, replacing any existing entry.
func (s *MemoryResetCodeStore) Put(_ context.Context, code *ResetCode) error {
	if code == nil || code.Email == "" {
		return oops.Code("RESET_CODE_INVALID").Errorf("reset code must have an email")
	}
	stored := *code
	s.entries.Store(code.Email, &stored)
	return nil
}

// Get returns a copy of the entry for email. Expired entries are dropped and reported missing.
func (s *MemoryResetCodeStore) Get(_ context.Context, email string) (*ResetCode, error) {
	v, ok := s.entries.Load(email)
	if !ok {
		return nil, oops.With("email", email).Wrap(ErrNotFound)
	}
	entry := v.(*ResetCode) //nolint:errcheck,forcetypeassert // only *ResetCode is stored
	if entry.IsExpired(s.now()) {
		s.entries.CompareAndDelete(email, entry)
		return nil, oops.With("email", email).Wrap(ErrNotFound)
	}
	out := *entry
	return &out, nil
}

// Delete removes the entry for email.
func (s *MemoryResetCodeStore) Delete(_ context.Context, email string) error {
	s.entries.Delete(email)
	return nil
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryResetCodeStore) Len() int {
	n := 0
	s.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// DeleteExpired removes every expired entry and returns how many were removed.
func (s *MemoryResetCodeStore) DeleteExpired() int {
	now := s.now()
	removed := 0
	s.entries.Range(func(k, v any) bool {
		entry := v.(*ResetCode) //nolint:errcheck,forcetypeassert // only *ResetCode is stored
		if entry.IsExpired(now) && s.entries.CompareAndDelete(k, v) {
			removed++
		}
		return true
	})
	return removed
}

// RunJanitor calls DeleteExpired every interval until ctx is done.
func (s *MemoryResetCodeStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.DeleteExpired(); n > 0 {
				slog.DebugContext(ctx, "expired reset codes removed", "count", n)
			}
		}
	}
}

// Compile-time interface check.
var _ ResetCodeStore = (*MemoryResetCodeStore)(nil)
