// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

package authflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/ReisolRius/MoRius-sub003/internal/identity"
	"github.com/ReisolRius/MoRius-sub003/internal/retryhint"
)

// Submit acts on the current mode and step: log in, request registration, or
// verify the emailed code. Validation failures never reach the network.
// While any operation is in flight, further calls are dropped, not queued.
func (c *Controller) Submit(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.session.Submitting || c.session.ProviderSubmitting {
		c.mu.Unlock()
		return
	}
	c.session.ErrorMessage = ""
	c.session.InfoMessage = ""

	switch {
	case c.session.Mode == ModeLogin:
		c.submitLogin(ctx)
	case c.session.Step == StepCredentials:
		c.submitRegister(ctx)
	default:
		c.submitVerify(ctx)
	}
}

// submitLogin is called with c.mu held and releases it.
func (c *Controller) submitLogin(ctx context.Context) {
	email := normalizeEmail(c.session.Email)
	password := c.session.Password
	if email == "" || password == "" {
		c.failValidation(OpLogin, "Enter your email and password.")
		return
	}

	episode := c.beginSubmit()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		result, err := c.service.Login(ctx, email, password)
		c.finishLogin(episode, result, err)
	}()
}

// submitRegister is called with c.mu held and releases it.
func (c *Controller) submitRegister(ctx context.Context) {
	email := strings.TrimSpace(c.session.Email)
	password := c.session.Password
	switch {
	case email == "":
		c.failValidation(OpRegister, "Enter your email address.")
		return
	case len(password) < 8:
		c.failValidation(OpRegister, "Password must be at least 8 characters.")
		return
	case password != c.session.ConfirmPassword:
		c.failValidation(OpRegister, "Passwords do not match.")
		return
	}

	episode := c.beginSubmit()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ack, err := c.service.Register(ctx, email, password)
		c.finishRegister(episode, OpRegister, ack, err)
	}()
}

// submitVerify is called with c.mu held and releases it.
func (c *Controller) submitVerify(ctx context.Context) {
	email := strings.TrimSpace(c.session.Email)
	code := strings.TrimSpace(c.session.VerificationCode)
	if !isVerificationCode(code) {
		c.failValidation(OpVerify, "Enter the 6-digit code from your email.")
		return
	}

	episode := c.beginSubmit()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		result, err := c.service.Verify(ctx, email, code)
		c.finishVerify(episode, result, err)
	}()
}

// ResendCode asks the service to email another verification code. While the
// cooldown runs this refreshes the info message and issues no network call;
// otherwise it repeats the registration request. Only meaningful in Verify.
func (c *Controller) ResendCode(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.session.Step != StepVerify || c.session.Submitting || c.session.ProviderSubmitting {
		c.mu.Unlock()
		return
	}
	c.session.ErrorMessage = ""
	c.session.InfoMessage = ""

	// The resend repeats the registration call, so it needs both fields.
	email := strings.TrimSpace(c.session.Email)
	password := c.session.Password
	if email == "" || password == "" {
		c.failValidation(OpResend, "Enter your email and password, then try again.")
		return
	}

	if remaining := c.session.CooldownSecondsRemaining; remaining > 0 {
		c.session.InfoMessage = fmt.Sprintf("You can request another code in %d seconds.", remaining)
		snap := c.session
		c.mu.Unlock()
		c.notifyChange(snap)
		return
	}

	episode := c.beginSubmit()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ack, err := c.service.Register(ctx, email, password)
		c.finishRegister(episode, OpResend, ack, err)
	}()
}

// AuthenticateWithProvider completes a federated login with the opaque
// credential a provider bridge produced. Success closes the dialog whatever
// the current mode and step.
func (c *Controller) AuthenticateWithProvider(ctx context.Context, credential string) {
	c.mu.Lock()
	if c.closed || c.session.Submitting || c.session.ProviderSubmitting {
		c.mu.Unlock()
		return
	}
	c.session.ErrorMessage = ""
	c.session.InfoMessage = ""

	if strings.TrimSpace(credential) == "" {
		c.failValidation(OpFederated, "Missing provider credential.")
		return
	}

	c.session.ProviderSubmitting = true
	episode := c.episode
	snap := c.session
	c.mu.Unlock()
	c.notifyChange(snap)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		result, err := c.service.FederatedLogin(ctx, credential)
		c.finishFederated(episode, result, err)
	}()
}

// beginSubmit raises the submitting gate. Called with c.mu held; releases it.
func (c *Controller) beginSubmit() ulid.ULID {
	c.session.Submitting = true
	episode := c.episode
	snap := c.session
	c.mu.Unlock()
	c.notifyChange(snap)
	return episode
}

// failValidation finishes an action with a local validation error. Called
// with c.mu held; releases it.
func (c *Controller) failValidation(op, message string) {
	c.session.ErrorMessage = message
	snap := c.session
	c.mu.Unlock()
	c.recorder.RecordAttempt(op, StatusValidation)
	c.notifyChange(snap)
}

func (c *Controller) finishLogin(episode ulid.ULID, result *identity.AuthResult, err error) {
	c.mu.Lock()
	if episode != c.episode {
		c.mu.Unlock()
		c.logger.Debug("stale result dropped", "event", "stale_result_dropped", "operation", OpLogin)
		return
	}
	c.session.Submitting = false

	if err != nil {
		c.session.ErrorMessage = identity.FailureMessage(err)
		snap := c.session
		c.mu.Unlock()
		c.recorder.RecordAttempt(OpLogin, StatusFailure)
		c.logger.Warn("login failed", "event", "login_failed", "error", err.Error())
		c.notifyChange(snap)
		return
	}

	c.closeLocked()
	c.mu.Unlock()
	c.recorder.RecordAttempt(OpLogin, StatusSuccess)
	c.logger.Info("login succeeded", "event", "login_ok", "user_id", result.User.ID)
	c.emitSuccess(*result)
}

func (c *Controller) finishRegister(episode ulid.ULID, op string, ack *identity.RegisterAck, err error) {
	c.mu.Lock()
	if episode != c.episode {
		c.mu.Unlock()
		c.logger.Debug("stale result dropped", "event", "stale_result_dropped", "operation", op)
		return
	}
	c.session.Submitting = false

	if err == nil {
		c.session.Step = StepVerify
		c.startCooldownLocked(c.defaultCooldown)
		message := ""
		if ack != nil {
			message = ack.Message
		}
		if message == "" {
			message = "We sent a verification code to your email."
		}
		c.session.InfoMessage = message
		snap := c.session
		c.mu.Unlock()
		c.recorder.RecordAttempt(op, StatusSuccess)
		c.logger.Info("verification code sent",
			"event", "register_code_sent",
			"operation", op,
			"cooldown_seconds", c.defaultCooldown,
		)
		c.notifyChange(snap)
		return
	}

	failure := identity.FailureMessage(err)
	if seconds, ok := retryhint.Extract(failure); ok {
		// The service throttled a repeat request: the code already exists
		// server-side, so advance to verification and show the wait
		// instead of the raw error.
		c.session.Step = StepVerify
		c.startCooldownLocked(seconds)
		c.session.InfoMessage = fmt.Sprintf("A code was already sent. You can request another in %d seconds.", seconds)
		snap := c.session
		c.mu.Unlock()
		c.recorder.RecordAttempt(op, StatusThrottled)
		c.logger.Info("registration throttled",
			"event", "register_throttled",
			"operation", op,
			"cooldown_seconds", seconds,
		)
		c.notifyChange(snap)
		return
	}

	c.session.ErrorMessage = failure
	snap := c.session
	c.mu.Unlock()
	c.recorder.RecordAttempt(op, StatusFailure)
	c.logger.Warn("registration failed", "event", "register_failed", "operation", op, "error", err.Error())
	c.notifyChange(snap)
}

func (c *Controller) finishVerify(episode ulid.ULID, result *identity.AuthResult, err error) {
	c.mu.Lock()
	if episode != c.episode {
		c.mu.Unlock()
		c.logger.Debug("stale result dropped", "event", "stale_result_dropped", "operation", OpVerify)
		return
	}
	c.session.Submitting = false

	if err != nil {
		c.session.ErrorMessage = identity.FailureMessage(err)
		snap := c.session
		c.mu.Unlock()
		c.recorder.RecordAttempt(OpVerify, StatusFailure)
		c.logger.Warn("verification failed", "event", "verify_failed", "error", err.Error())
		c.notifyChange(snap)
		return
	}

	c.closeLocked()
	c.mu.Unlock()
	c.recorder.RecordAttempt(OpVerify, StatusSuccess)
	c.logger.Info("verification succeeded", "event", "verify_ok", "user_id", result.User.ID)
	c.emitSuccess(*result)
}

func (c *Controller) finishFederated(episode ulid.ULID, result *identity.AuthResult, err error) {
	c.mu.Lock()
	if episode != c.episode {
		c.mu.Unlock()
		c.logger.Debug("stale result dropped", "event", "stale_result_dropped", "operation", OpFederated)
		return
	}
	c.session.ProviderSubmitting = false

	if err != nil {
		// Provider failures never advance the flow.
		c.session.ErrorMessage = identity.FailureMessage(err)
		snap := c.session
		c.mu.Unlock()
		c.recorder.RecordAttempt(OpFederated, StatusFailure)
		c.logger.Warn("federated login failed", "event", "federated_failed", "error", err.Error())
		c.notifyChange(snap)
		return
	}

	c.closeLocked()
	c.mu.Unlock()
	c.recorder.RecordAttempt(OpFederated, StatusSuccess)
	c.logger.Info("federated login succeeded", "event", "federated_ok", "user_id", result.User.ID)
	c.emitSuccess(*result)
}

func (c *Controller) emitSuccess(result identity.AuthResult) {
	if c.hooks.OnSuccess != nil {
		c.hooks.OnSuccess(result)
	}
	if c.hooks.OnClose != nil {
		c.hooks.OnClose()
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// isVerificationCode reports whether s is exactly six ASCII digits.
func isVerificationCode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
