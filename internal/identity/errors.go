// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

package identity

import (
	"github.com/samber/oops"
)

// Error codes for account service failures.
const (
	CodeRejected       = "ACCOUNT_REJECTED"
	CodeUnreachable    = "ACCOUNT_UNREACHABLE"
	CodeMalformedReply = "ACCOUNT_MALFORMED_REPLY"
)

// ErrRejected creates an error for a request the account service refused.
// The message is the service's human-readable text, shown to users verbatim.
func ErrRejected(message string, status int) error {
	if message == "" {
		return oops.Code(CodeRejected).
			With("status", status).
			Errorf("account service rejected request")
	}
	return oops.Code(CodeRejected).
		With("message", message).
		With("status", status).
		Errorf("account service rejected request: %s", message)
}

// ErrUnreachable creates an error for a transport-level failure.
func ErrUnreachable(cause error) error {
	return oops.Code(CodeUnreachable).Wrap(cause)
}

// ErrMalformedReply creates an error for a reply that could not be decoded.
func ErrMalformedReply(cause error) error {
	return oops.Code(CodeMalformedReply).Wrap(cause)
}

// FailureMessage extracts a user-facing message from an account service error.
// For rejections it returns the service's own text so hosts (and the retry
// hint extractor) see exactly what the service said.
func FailureMessage(err error) string {
	if err == nil {
		return "Something went wrong. Try again."
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "Something went wrong. Try again."
	}

	switch oopsErr.Code() {
	case CodeRejected:
		if msg, ok := oopsErr.Context()["message"].(string); ok && msg != "" {
			return msg
		}
		return "The account service rejected the request."
	case CodeUnreachable:
		return "Could not reach the account service. Check your connection and try again."
	case CodeMalformedReply:
		return "The account service sent a reply that could not be read. Try again."
	default:
		return "Something went wrong. Try again."
	}
}
