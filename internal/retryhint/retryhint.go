// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

// Package retryhint recovers structured retry timing from free-text service
// error messages.
//
// The identity service throttles repeated verification-code requests and
// reports the remaining wait only inside a human-readable sentence such as
// "please wait 45 seconds before requesting another code". Extract pulls the
// integer out of that sentence so the client can show a live countdown
// instead of raw server prose. The wording is owned by the service; when it
// changes, extraction fails closed and callers fall back to displaying the
// message as-is.
package retryhint

import (
	"regexp"
	"strconv"
)

// waitPattern matches an integer immediately preceding a "second"/"seconds"
// token. The leading group rejects captures that are actually the tail of a
// larger number or a negative value ("-3 seconds" must not yield 3).
var waitPattern = regexp.MustCompile(`(?i)(?:^|[^0-9-])([0-9]+)\s*seconds?\b`)

// Extract returns the number of seconds advised by a throttling message.
// It reports ok=false when the message carries no usable hint: no integer
// before a seconds token, a zero or negative value, or a capture too large
// to parse.
func Extract(message string) (seconds int, ok bool) {
	if message == "" {
		return 0, false
	}

	m := waitPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
