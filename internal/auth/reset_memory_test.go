// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/accounts/internal/auth"
)

func TestMemoryResetCodeStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := auth.NewMemoryResetCodeStore()

	_, err := store.Get(ctx, "alice@example.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	entry := &auth.ResetCode{Email: "alice@example.com", Code: "123456", CreatedAt: time.Now()}
	require.NoError(t, store.Put(ctx, entry))

	got, err := store.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", got.Code)

	// Stored values are copies.
	entry.Code = "000000"
	got.Code = "999999"
	again, err := store.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", again.Code)

	require.NoError(t, store.Delete(ctx, "alice@example.com"))
	require.NoError(t, store.Delete(ctx, "alice@example.com"))
	_, err = store.Get(ctx, "alice@example.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestMemoryResetCodeStore_RejectsMissingEmail(t *testing.T) {
	store := auth.NewMemoryResetCodeStore()
	assert.Error(t, store.Put(context.Background(), nil))
	assert.Error(t, store.Put(context.Background(), &auth.ResetCode{Code: "123456"}))
}

func TestMemoryResetCodeStore_ExpiredEntriesAreMissing(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := auth.NewMemoryResetCodeStore()
	store.SetClock(clock.Now)

	require.NoError(t, store.Put(ctx, &auth.ResetCode{
		Email:     "alice@example.com",
		Code:      "123456",
		ExpiresAt: clock.Now().Add(time.Minute),
	}))

	clock.Advance(time.Minute)
	_, err := store.Get(ctx, "alice@example.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryResetCodeStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := auth.NewMemoryResetCodeStore()
	store.SetClock(clock.Now)

	require.NoError(t, store.Put(ctx, &auth.ResetCode{Email: "a@example.com", ExpiresAt: clock.Now().Add(time.Minute)}))
	require.NoError(t, store.Put(ctx, &auth.ResetCode{Email: "b@example.com", ExpiresAt: clock.Now().Add(time.Hour)}))
	require.NoError(t, store.Put(ctx, &auth.ResetCode{Email: "c@example.com"}))

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, store.DeleteExpired())
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 0, store.DeleteExpired())
}

func TestMemoryResetCodeStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := auth.NewMemoryResetCodeStore()
	reg, err := auth.NewResetCodeRegistry(store)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				code, err := reg.Issue(ctx, "alice@example.com")
				assert.NoError(t, err)
				_, err = reg.Verify(ctx, "alice@example.com", code)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	exists, err := reg.Exists(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryResetCodeStore_RunJanitor(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock()
	store := auth.NewMemoryResetCodeStore()
	store.SetClock(clock.Now)
	require.NoError(t, store.Put(context.Background(), &auth.ResetCode{
		Email:     "alice@example.com",
		ExpiresAt: clock.Now().Add(time.Second),
	}))
	clock.Advance(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		store.RunJanitor(ctx, 5*time.Millisecond)
	}()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}
