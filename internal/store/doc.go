// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store opens the PostgreSQL connection pool and manages the schema
// of the accounts database through embedded golang-migrate migrations.
package store
