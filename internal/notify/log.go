// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"context"
	"log/slog"

	"github.com/holomush/accounts/internal/auth"
)

// LogNotifier writes messages to a logger instead of sending them. It is meant
// for local development, where the reset code can be read from the log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Deliver logs msg at info level.
func (n *LogNotifier) Deliver(ctx context.Context, destination string, msg auth.Message) error {
	n.logger.InfoContext(ctx, "notification",
		"destination", destination,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}

var _ auth.Notifier = (*LogNotifier)(nil)
