// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import "github.com/gofiber/fiber/v3"

// Envelope is the body of every API response.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Response messages.
const (
	MessageOK             = "ok"
	MessageInternalError  = "something went wrong, please try again"
	MessageInvalidBody    = "invalid request body"
	MessageInvalidUserID  = "invalid user id"
	MessageDuplicate      = "an account with these details already exists"
	MessageRouteNotFound  = "route not found"
	MessageUserDeleted    = "user deleted"
	MessageResetSent      = "reset code sent"
	MessageCodeVerified   = "reset code verified"
	MessagePasswordUpdate = "password updated"
)

func respond(c fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{Status: status, Message: message, Data: data})
}
