// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package notify implements auth.Notifier over SMTP and over the process log.
package notify
