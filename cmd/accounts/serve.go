// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/internal/auth/postgres"
	resetredis "github.com/holomush/accounts/internal/auth/redis"
	"github.com/holomush/accounts/internal/config"
	"github.com/holomush/accounts/internal/httpapi"
	"github.com/holomush/accounts/internal/logging"
	"github.com/holomush/accounts/internal/notify"
	"github.com/holomush/accounts/internal/observability"
	"github.com/holomush/accounts/internal/store"
)

// janitorInterval is how often expired in-memory reset codes are swept.
const janitorInterval = time.Minute

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the accounts HTTP API and the metrics/health server. The
database schema must already be migrated (see "accounts migrate up").`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// readinessCheck is one dependency the readiness probe pings.
type readinessCheck func(ctx context.Context) error

func allReady(checks ...readinessCheck) observability.ReadinessChecker {
	return func(ctx context.Context) error {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.SetDefault("accounts", version, cfg.Log.Format, level)
	logger.InfoContext(ctx, "starting accounts service", "config", *cfg)

	pool, err := store.OpenPool(ctx, cfg.Database.URL, store.PoolOptions{})
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	checks := []readinessCheck{pool.Ping}

	codes, closeCodes, err := newResetCodeStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCodes()
	if pinger, ok := codes.(interface{ Ping(context.Context) error }); ok {
		checks = append(checks, pinger.Ping)
	}

	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, allReady(checks...))
		metrics = obsServer.Metrics()
	} else {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}

	registry, err := auth.NewResetCodeRegistry(codes, auth.WithCodeTTL(cfg.Reset.CodeTTL))
	if err != nil {
		return err
	}
	svc, err := auth.NewServiceWithLogger(
		postgres.NewUserRepository(pool),
		auth.NewArgon2idHasher(),
		registry,
		metrics.InstrumentNotifier(notifier),
		logger,
	)
	if err != nil {
		return err
	}

	app := httpapi.New(svc, httpapi.WithLogger(logger), httpapi.WithObserver(metrics))
	listener, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	httpErrCh := make(chan error, 1)
	go func() {
		defer close(httpErrCh)
		if serveErr := app.Listener(listener, fiber.ListenConfig{DisableStartupMessage: true}); serveErr != nil {
			httpErrCh <- serveErr
		}
	}()
	logger.InfoContext(ctx, "http api listening", "addr", listener.Addr().String())

	if obsServer != nil {
		obsErrCh, startErr := obsServer.Start()
		if startErr != nil {
			shutdownHTTP(app, cfg.HTTP.ShutdownTimeout)
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr, ok := <-httpErrCh:
		if ok && serveErr != nil {
			logger.Error("http api failed", "error", serveErr)
		}
	}

	shutdownHTTP(app, cfg.HTTP.ShutdownTimeout)
	if obsServer != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if stopErr := obsServer.Stop(stopCtx); stopErr != nil {
			logger.Warn("error stopping observability server", "error", stopErr)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

func shutdownHTTP(app *fiber.App, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		slog.Warn("error stopping http api", "error", err)
	}
}

// newResetCodeStore builds the configured code store. The in-memory store gets
// a janitor goroutine that runs until ctx is done.
func newResetCodeStore(ctx context.Context, cfg *config.Config) (auth.ResetCodeStore, func(), error) {
	switch cfg.Reset.Store {
	case config.StoreRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		codes := resetredis.NewResetCodeStore(client)
		if err := codes.Ping(ctx); err != nil {
			_ = client.Close() //nolint:errcheck // ping error takes precedence
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				slog.Warn("error closing redis client", "error", err)
			}
		}
		return codes, closeFn, nil
	case config.StoreMemory:
		codes := auth.NewMemoryResetCodeStore()
		go codes.RunJanitor(ctx, janitorInterval)
		return codes, func() {}, nil
	}
	return nil, nil, oops.Code("CONFIG_INVALID").With("key", "reset.store").Errorf("unknown reset code store %q", cfg.Reset.Store)
}

// newNotifier builds the configured reset code delivery.
func newNotifier(cfg *config.Config, logger *slog.Logger) (auth.Notifier, error) {
	switch cfg.Notifier.Kind {
	case config.NotifierSMTP:
		return notify.NewSMTPNotifier(cfg.SMTP.Notifier())
	case config.NotifierLog:
		logger.Warn("reset codes are written to the log; use notifier.kind=smtp in production")
		return notify.NewLogNotifier(logger), nil
	}
	return nil, oops.Code("CONFIG_INVALID").With("key", "notifier.kind").Errorf("unknown notifier %q", cfg.Notifier.Kind)
}

// monitorServerErrors cancels ctx when a server reports an error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
