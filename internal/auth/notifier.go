// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"fmt"
	"time"
)

// Message is an out-of-band notification.
type Message struct {
	Subject string
	Body    string
}

// Notifier delivers a message to a destination such as an email address.
type Notifier interface {
	Deliver(ctx context.Context, destination string, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, destination string, msg Message) error

// Deliver calls f.
func (f NotifierFunc) Deliver(ctx context.Context, destination string, msg Message) error {
	return f(ctx, destination, msg)
}

// ResetCodeMessage builds the email that carries a reset code.
func ResetCodeMessage(code string, ttl time.Duration) Message {
	body := fmt.Sprintf("Your password reset code is %s.\n", code)
	if ttl > 0 {
		body += fmt.Sprintf("It expires in %s.\n", ttl.Round(time.Minute))
	}
	body += "If you did not ask to reset your password, you can ignore this message.\n"
	return Message{
		Subject: "Password reset code",
		Body:    body,
	}
}
