// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/holomush/accounts/pkg/errutil"
)

func TestPoolOptions_Defaults(t *testing.T) {
	opts := PoolOptions{}.withDefaults()
	assert.Equal(t, uint64(5), opts.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, opts.BaseDelay)

	opts = PoolOptions{MaxAttempts: 2, BaseDelay: time.Second}.withDefaults()
	assert.Equal(t, uint64(2), opts.MaxAttempts)
	assert.Equal(t, time.Second, opts.BaseDelay)
}

func TestOpenPool_InvalidURL(t *testing.T) {
	_, err := OpenPool(context.Background(), "postgres://%zz", PoolOptions{})
	errutil.AssertErrorCode(t, err, "DB_CONFIG_INVALID")
}
