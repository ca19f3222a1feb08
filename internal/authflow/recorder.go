// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

package authflow

// Operation labels for attempt metrics.
const (
	OpLogin     = "login"
	OpRegister  = "register"
	OpVerify    = "verify"
	OpResend    = "resend"
	OpFederated = "federated"
)

// Status labels for attempt metrics.
const (
	StatusSuccess    = "success"
	StatusValidation = "validation"
	StatusFailure    = "failure"
	StatusThrottled  = "throttled"
)

// Recorder receives one call per attempted operation so hosts can export
// outcome metrics without the flow depending on a metrics library.
type Recorder interface {
	RecordAttempt(operation, status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAttempt(string, string) {}
