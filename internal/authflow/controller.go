// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

// Package authflow drives the sign-in and registration dialog of the MoRius
// client: a state machine over one AuthSession covering login, two-step
// registration (credentials, then email-code verification), the resend
// cooldown, and federated provider login. It owns no rendering; hosts feed
// it field edits and actions and re-render from session snapshots.
package authflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/ReisolRius/MoRius-sub003/internal/countdown"
	"github.com/ReisolRius/MoRius-sub003/internal/identity"
)

// DefaultResendCooldownSeconds is the wait imposed after a verification code
// is sent, unless the account service dictates another.
const DefaultResendCooldownSeconds = 60

// Service defines the account operations the flow consumes.
type Service interface {
	// Login authenticates an existing account.
	Login(ctx context.Context, email, password string) (*identity.AuthResult, error)

	// Register asks for an account; the service emails a verification code.
	Register(ctx context.Context, email, password string) (*identity.RegisterAck, error)

	// Verify confirms the emailed code and completes registration.
	Verify(ctx context.Context, email, code string) (*identity.AuthResult, error)

	// FederatedLogin signs in with an opaque provider credential.
	FederatedLogin(ctx context.Context, credential string) (*identity.AuthResult, error)
}

// Hooks are the dialog's boundary outputs. All hooks are optional. They are
// invoked with no internal locks held, on the goroutine that produced the
// change, so remote results can interleave with user actions.
type Hooks struct {
	// OnSuccess fires once with the result of a completed authentication.
	OnSuccess func(identity.AuthResult)

	// OnClose fires once when the dialog terminates, whether by success or
	// an external close.
	OnClose func()

	// OnChange fires with a session copy after every visible state change,
	// including cooldown ticks.
	OnChange func(Session)
}

// Config holds configuration for a Controller.
type Config struct {
	// Service performs the remote account operations. Required.
	Service Service

	// Hooks receive the dialog's boundary outputs.
	Hooks Hooks

	// InitialMode is the mode the dialog opens in.
	InitialMode Mode

	// DefaultCooldownSeconds overrides the post-send resend throttle
	// (default: DefaultResendCooldownSeconds).
	DefaultCooldownSeconds int

	// Scheduler drives cooldown ticks. If nil, the wall clock is used.
	Scheduler countdown.Scheduler

	// Recorder receives attempt outcomes. If nil, outcomes are dropped.
	Recorder Recorder
}

// Controller owns one AuthSession and interprets user actions against it.
// Methods never block on the network: remote calls resolve on their own
// goroutine and re-enter under the controller's lock. Every episode of the
// dialog carries a tag; resolutions from a superseded episode are discarded.
type Controller struct {
	service         Service
	hooks           Hooks
	recorder        Recorder
	logger          *slog.Logger
	defaultCooldown int

	mu      sync.Mutex
	session Session
	episode ulid.ULID
	closed  bool
	timer   *countdown.Timer
	wg      sync.WaitGroup
}

// New creates a Controller with a no-op logger.
func New(cfg Config) (*Controller, error) {
	return NewWithLogger(cfg, slog.New(slog.DiscardHandler))
}

// NewWithLogger creates a Controller with the provided logger.
func NewWithLogger(cfg Config, logger *slog.Logger) (*Controller, error) {
	if cfg.Service == nil {
		return nil, oops.Errorf("service is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}

	defaultCooldown := cfg.DefaultCooldownSeconds
	if defaultCooldown <= 0 {
		defaultCooldown = DefaultResendCooldownSeconds
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	c := &Controller{
		service:         cfg.Service,
		hooks:           cfg.Hooks,
		recorder:        recorder,
		logger:          logger,
		defaultCooldown: defaultCooldown,
		session:         Session{Mode: cfg.InitialMode},
		episode:         ulid.Make(),
	}
	c.timer = countdown.NewTimer(cfg.Scheduler, func(int) { c.onCooldownTick() })
	return c, nil
}

// Reset reopens the dialog in the given mode with a blank session. Any
// in-flight request is abandoned and any running cooldown cancelled.
func (c *Controller) Reset(mode Mode) {
	c.mu.Lock()
	c.session = Session{Mode: mode}
	c.closed = false
	c.timer.Reset()
	c.newEpisodeLocked()
	episode := c.episode
	snap := c.session
	c.mu.Unlock()

	c.logger.Info("dialog opened",
		"event", "flow_reset",
		"mode", mode.String(),
		"episode", episode.String(),
	)
	c.notifyChange(snap)
}

// SwitchMode flips between login and registration, returning to the
// credentials step. Email and password are kept; the verification code,
// messages, and cooldown are not. An in-flight request keeps running, but
// its result is discarded when it arrives.
func (c *Controller) SwitchMode(next Mode) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.session.Mode = next
	c.session.Step = StepCredentials
	c.session.VerificationCode = ""
	c.session.ErrorMessage = ""
	c.session.InfoMessage = ""
	c.session.CooldownSecondsRemaining = 0
	c.timer.Reset()
	c.newEpisodeLocked()
	snap := c.session
	c.mu.Unlock()

	c.logger.Debug("mode switched", "event", "flow_mode_switched", "mode", next.String())
	c.notifyChange(snap)
}

// ReturnToCredentials steps back from verification to the credentials step,
// clearing the code, messages, and cooldown. Available at any time while in
// Verify, including mid-cooldown; a no-op anywhere else.
func (c *Controller) ReturnToCredentials() {
	c.mu.Lock()
	if c.closed || c.session.Step != StepVerify {
		c.mu.Unlock()
		return
	}
	c.session.Step = StepCredentials
	c.session.VerificationCode = ""
	c.session.ErrorMessage = ""
	c.session.InfoMessage = ""
	c.session.CooldownSecondsRemaining = 0
	c.timer.Reset()
	c.newEpisodeLocked()
	snap := c.session
	c.mu.Unlock()

	c.logger.Debug("returned to credentials", "event", "flow_step_back")
	c.notifyChange(snap)
}

// Close terminates the dialog without a result. Idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closeLocked()
	c.mu.Unlock()

	c.logger.Info("dialog closed", "event", "flow_closed")
	if c.hooks.OnClose != nil {
		c.hooks.OnClose()
	}
}

// Closed reports whether the dialog has terminated.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Wait blocks until in-flight remote operations have resolved. Useful for
// orderly shutdown. Must not be called from inside a hook.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// SetEmail records the email field as typed. Field edits are host-local:
// they trigger no hooks and no validation until an action uses them.
func (c *Controller) SetEmail(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Email = v
}

// SetPassword records the password field as typed.
func (c *Controller) SetPassword(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Password = v
}

// SetConfirmPassword records the password confirmation field as typed.
func (c *Controller) SetConfirmPassword(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.ConfirmPassword = v
}

// SetVerificationCode records the verification code field as typed.
func (c *Controller) SetVerificationCode(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.VerificationCode = v
}

// onCooldownTick mirrors the timer into the session. It reads the timer
// rather than trusting the tick's value, so a tick that raced a reset or a
// restart can only ever apply the live countdown's state.
func (c *Controller) onCooldownTick() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.session.CooldownSecondsRemaining = c.timer.Remaining()
	snap := c.session
	c.mu.Unlock()
	c.notifyChange(snap)
}

// newEpisodeLocked starts a new episode: in-flight resolutions now carry a
// stale tag and will be dropped, so both gates reopen immediately.
func (c *Controller) newEpisodeLocked() {
	c.episode = ulid.Make()
	c.session.Submitting = false
	c.session.ProviderSubmitting = false
}

func (c *Controller) closeLocked() {
	c.closed = true
	c.session.CooldownSecondsRemaining = 0
	c.timer.Reset()
	c.newEpisodeLocked()
}

func (c *Controller) startCooldownLocked(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	c.session.CooldownSecondsRemaining = seconds
	c.timer.Start(seconds)
}

func (c *Controller) notifyChange(snap Session) {
	if c.hooks.OnChange != nil {
		c.hooks.OnChange(snap)
	}
}
