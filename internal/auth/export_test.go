// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "time"

// SetClock overrides the store's time source in tests.
func (s *MemoryResetCodeStore) SetClock(now func() time.Time) {
	s.now = now
}
