// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the account service as a JSON API.
package httpapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/oklog/ulid/v2"

	"github.com/holomush/accounts/internal/auth"
)

// AccountService is the account behavior the API serves.
type AccountService interface {
	Register(ctx context.Context, in auth.RegisterInput) (auth.Profile, error)
	Login(ctx context.Context, email, password string) (auth.Profile, error)
	ListUsers(ctx context.Context) ([]auth.Profile, error)
	UpdateUser(ctx context.Context, id ulid.ULID, update auth.ProfileUpdate) (auth.Profile, error)
	DeleteUser(ctx context.Context, id ulid.ULID) error
	UserExists(ctx context.Context, email, phone string) (bool, error)
	RequestPasswordReset(ctx context.Context, email string) error
	VerifyResetCode(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, newPassword string) error
}

// RequestObserver records handled requests.
type RequestObserver interface {
	ObserveRequest(route string, status int, elapsed time.Duration)
}

type options struct {
	logger   *slog.Logger
	observer RequestObserver
}

// Option configures the API.
type Option func(*options)

// WithLogger sets the access and error logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver records every request on observer.
func WithObserver(observer RequestObserver) Option {
	return func(o *options) { o.observer = observer }
}

// New builds the fiber app serving svc.
func New(svc AccountService, opts ...Option) *fiber.App {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:      "accounts",
		ErrorHandler: errorHandler(o.logger),
	})

	app.Use(accessLog(o.logger, o.observer))
	app.Use(recoverer.New())

	app.Get("/healthz", func(c fiber.Ctx) error {
		return respond(c, fiber.StatusOK, MessageOK, nil)
	})

	h := &handlers{svc: svc}
	v1 := app.Group("/api/v1")
	v1.Post("/users", h.register)
	v1.Get("/users", h.listUsers)
	v1.Get("/users/exists", h.userExists)
	v1.Patch("/users/:id", h.updateUser)
	v1.Delete("/users/:id", h.deleteUser)
	v1.Post("/login", h.login)
	v1.Post("/password/forgot", h.forgotPassword)
	v1.Post("/password/verify", h.verifyCode)
	v1.Post("/password/reset", h.resetPassword)

	return app
}

// accessLog logs and observes each request once the chain has returned.
// The error handler runs later, so the status is derived from the error.
func accessLog(logger *slog.Logger, observer RequestObserver) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		status := c.Response().StatusCode()
		if err != nil {
			status, _ = classify(err)
		}

		route := c.Route().Path
		if isRouteMiss(err) {
			route = "unmatched"
		}

		logger.DebugContext(c.Context(), "http request",
			"method", c.Method(),
			"route", route,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
		)
		if observer != nil {
			observer.ObserveRequest(route, status, elapsed)
		}
		return err
	}
}
