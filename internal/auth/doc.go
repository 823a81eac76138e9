// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth implements account registration, credential login and
// password recovery.
//
// # Domain Types
//
//   - User - the persisted record, including the password hash
//   - Profile - the public projection of a User; it never carries the hash
//   - ResetCode - a pending one-time code, keyed by email
//
// Users should be created with NewUser from normalized, validated
// RegisterInput.
//
// # Password Recovery
//
// Recovery is a three-step flow driven by Service:
//
//	RequestPasswordReset -> VerifyResetCode -> ResetPassword
//
// RequestPasswordReset issues a 6-digit code through a ResetCodeRegistry and
// sends it with a Notifier. A new request replaces the pending code.
// VerifyResetCode may be called any number of times. ResetPassword requires a
// pending code and consumes it on success.
//
// The registry sits on a ResetCodeStore. MemoryResetCodeStore keeps codes in
// process memory; use the redis package when several processes serve the API.
package auth
