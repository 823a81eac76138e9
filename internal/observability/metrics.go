// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/accounts/internal/auth"
)

// Metrics contains the accounts service's Prometheus metrics.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	NotificationsTotal  *prometheus.CounterVec
}

// NewMetrics creates and registers the service metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_http_requests_total",
				Help: "Total number of HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "accounts_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_notifications_total",
				Help: "Total number of notification deliveries by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(m.HTTPRequestsTotal, m.HTTPRequestDuration, m.NotificationsTotal)
	return m
}

// ObserveRequest records one handled HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// InstrumentNotifier counts the deliveries made through next.
func (m *Metrics) InstrumentNotifier(next auth.Notifier) auth.Notifier {
	return auth.NotifierFunc(func(ctx context.Context, destination string, msg auth.Message) error {
		if err := next.Deliver(ctx, destination, msg); err != nil {
			m.NotificationsTotal.WithLabelValues("failure").Inc()
			return err
		}
		m.NotificationsTotal.WithLabelValues("success").Inc()
		return nil
	})
}
