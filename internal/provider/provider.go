// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

// Package provider obtains opaque sign-in credentials from third-party
// identity providers. The credential is handed to the account service as-is;
// nothing in this package inspects it.
package provider

import (
	"context"

	"github.com/samber/oops"
)

// Bridge begins a third-party sign-in and yields the opaque credential the
// account service accepts for federated login.
type Bridge interface {
	// Credential blocks until the sign-in completes, fails, or ctx is done.
	Credential(ctx context.Context) (string, error)
}

// Error codes for provider sign-in failures.
const (
	CodeProviderDenied      = "PROVIDER_DENIED"
	CodeProviderTimeout     = "PROVIDER_TIMEOUT"
	CodeProviderUnreachable = "PROVIDER_UNREACHABLE"
	CodeProviderFailed      = "PROVIDER_FAILED"
)

// FailureMessage extracts a user-facing message from a provider error.
func FailureMessage(err error) string {
	if err == nil {
		return "Provider sign-in failed. Try again."
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "Provider sign-in failed. Try again."
	}

	switch oopsErr.Code() {
	case CodeProviderDenied:
		return "The provider denied the sign-in request."
	case CodeProviderTimeout:
		return "The sign-in was not approved in time. Try again."
	case CodeProviderUnreachable:
		return "Could not reach the provider. Check your connection and try again."
	default:
		return "Provider sign-in failed. Try again."
	}
}
