// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/pkg/errutil"
)

// Request errors raised by the handlers themselves.
const (
	CodeInvalidBody   = "HTTP_INVALID_BODY"
	CodeInvalidUserID = "HTTP_INVALID_USER_ID"
)

func errInvalidBody(err error) error {
	return oops.Code(CodeInvalidBody).Wrap(err)
}

func errInvalidUserID(id string, err error) error {
	return oops.Code(CodeInvalidUserID).With("id", id).Wrap(err)
}

// classify maps err to a status and a client-safe message.
// Anything unrecognized is a 500 with a generic message.
func classify(err error) (int, string) {
	switch errutil.Code(err) {
	case auth.CodeValidation:
		return fiber.StatusBadRequest, err.Error()
	case CodeInvalidBody:
		return fiber.StatusBadRequest, MessageInvalidBody
	case CodeInvalidUserID:
		return fiber.StatusBadRequest, MessageInvalidUserID
	case auth.CodeDuplicateKey:
		return fiber.StatusConflict, MessageDuplicate
	case auth.CodeNotFound:
		return fiber.StatusNotFound, err.Error()
	case auth.CodeInvalidCredentials:
		return fiber.StatusUnauthorized, err.Error()
	case auth.CodeInvalidCode:
		return fiber.StatusBadRequest, err.Error()
	case auth.CodeNoPendingRequest:
		return fiber.StatusConflict, err.Error()
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code > 0 && fiberErr.Code < 500 {
		msg := fiberErr.Message
		if fiberErr.Code == fiber.StatusNotFound {
			msg = MessageRouteNotFound
		}
		return fiberErr.Code, msg
	}
	return fiber.StatusInternalServerError, MessageInternalError
}

// errorHandler writes err as an Envelope. Server errors are logged with their
// oops context and never echoed to the client.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		status, msg := classify(err)
		if status >= fiber.StatusInternalServerError {
			errutil.LogErrorContext(c.Context(), logger, "request failed", err)
		}
		return respond(c, status, msg, nil)
	}
}

func isRouteMiss(err error) bool {
	var fiberErr *fiber.Error
	return errors.As(err, &fiberErr) && fiberErr.Code == fiber.StatusNotFound
}
