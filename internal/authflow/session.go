// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

package authflow

import "github.com/samber/oops"

// Mode selects which flavor of the dialog is active.
type Mode int

const (
	// ModeLogin authenticates an existing account.
	ModeLogin Mode = iota
	// ModeRegister creates an account in two steps: credentials, then
	// email-code verification.
	ModeRegister
)

// String returns the lowercase name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeLogin:
		return "login"
	case ModeRegister:
		return "register"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name ("login" or "register") to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "login":
		return ModeLogin, nil
	case "register":
		return ModeRegister, nil
	default:
		return ModeLogin, oops.With("mode", s).Errorf("unknown mode %q", s)
	}
}

// Step is the position within the registration flow. Login always behaves
// as StepCredentials.
type Step int

const (
	// StepCredentials collects email and password.
	StepCredentials Step = iota
	// StepVerify collects the emailed six-digit code. Only reachable in
	// ModeRegister.
	StepVerify
)

// String returns the lowercase name of the step.
func (s Step) String() string {
	switch s {
	case StepCredentials:
		return "credentials"
	case StepVerify:
		return "verify"
	default:
		return "unknown"
	}
}

// Session is the dialog state for one open episode. Values handed to hosts
// are copies; only the controller mutates the live session.
type Session struct {
	Mode Mode
	Step Step

	// Raw user input, as typed.
	Email            string
	Password         string
	ConfirmPassword  string
	VerificationCode string

	// Submitting is true while an email/password/code operation is in
	// flight; ProviderSubmitting while a federated login is. At most one
	// of the two is true at a time.
	Submitting         bool
	ProviderSubmitting bool

	// CooldownSecondsRemaining is the resend throttle. Never negative.
	CooldownSecondsRemaining int

	// At most one of the two is set by any action's outcome.
	ErrorMessage string
	InfoMessage  string
}
