// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateKey is returned by repositories when a uniqueness constraint is violated.
var ErrDuplicateKey = errors.New("duplicate key")

// Error codes returned by the auth service.
const (
	CodeValidation         = "AUTH_VALIDATION_FAILED"
	CodeDuplicateKey       = "AUTH_DUPLICATE_KEY"
	CodeNotFound           = "AUTH_NOT_FOUND"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeInvalidCode        = "AUTH_INVALID_CODE"
	CodeNoPendingRequest   = "AUTH_NO_PENDING_REQUEST"
	CodeDependencyFailure  = "AUTH_DEPENDENCY_FAILURE"
)

// ErrValidation creates an error for malformed or missing input.
func ErrValidation(field, reason string) error {
	return oops.Code(CodeValidation).
		With("field", field).
		Errorf("%s %s", field, reason)
}

// ErrDuplicate creates an error for an already registered email, username or phone.
func ErrDuplicate(cause error) error {
	b := oops.Code(CodeDuplicateKey).With("message", "an account with these details already exists")
	if cause != nil {
		return b.Wrap(cause)
	}
	return b.Errorf("an account with these details already exists")
}

// ErrUserNotFound creates an error for a missing user.
func ErrUserNotFound(key, value string) error {
	return oops.Code(CodeNotFound).
		With(key, value).
		Errorf("user not found")
}

// ErrInvalidCredentials is the single error returned for every failed login.
// It never says whether the email or the password was wrong.
func ErrInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid email or password")
}

// ErrInvalidCode creates an error for a reset code that does not match.
func ErrInvalidCode() error {
	return oops.Code(CodeInvalidCode).Errorf("invalid or expired reset code")
}

// ErrNoPendingRequest creates an error for a reset attempted without a live code.
func ErrNoPendingRequest() error {
	return oops.Code(CodeNoPendingRequest).Errorf("no pending password reset request")
}

// ErrDependency wraps a store, hasher or notifier failure.
func ErrDependency(operation string, cause error) error {
	return oops.Code(CodeDependencyFailure).
		With("operation", operation).
		Wrap(cause)
}
