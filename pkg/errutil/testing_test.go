// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/holomush/accounts/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("AUTH_VALIDATION_FAILED").Errorf("email is required")
	errutil.AssertErrorCode(t, err, "AUTH_VALIDATION_FAILED")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("field", "email").Errorf("email is required")
	errutil.AssertErrorContext(t, err, "field", "email")
}
