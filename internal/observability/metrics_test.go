// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/internal/auth/authtest"
)

func TestMetrics_ObserveRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveRequest("/api/v1/users", 201, 0)
	m.ObserveRequest("/api/v1/users", 201, 0)
	m.ObserveRequest("/api/v1/users", 409, 0)

	assert.InDelta(t, 2, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/api/v1/users", "201")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/api/v1/users", "409")), 0)
}

func TestMetrics_InstrumentNotifier(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	inner := authtest.NewNotifier()
	n := m.InstrumentNotifier(inner)

	require.NoError(t, n.Deliver(context.Background(), "alice@example.com", auth.Message{Body: "123456"}))

	inner.Err = errors.New("smtp: 421")
	assert.Error(t, n.Deliver(context.Background(), "alice@example.com", auth.Message{Body: "654321"}))

	assert.InDelta(t, 1, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("failure")), 0)
	assert.Len(t, inner.Messages("alice@example.com"), 2)
}
