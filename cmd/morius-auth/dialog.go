// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ReisolRius/MoRius-sub003/internal/authflow"
	"github.com/ReisolRius/MoRius-sub003/internal/identity"
	"github.com/ReisolRius/MoRius-sub003/internal/provider"
)

// dialog hosts the account flow on a line-oriented terminal. It feeds typed
// commands into the controller and re-renders from session snapshots; it
// holds no flow state of its own beyond the last snapshot it drew.
type dialog struct {
	controller *authflow.Controller
	bridge     provider.Bridge
	logger     *slog.Logger

	done      chan struct{}
	closeOnce sync.Once

	providerBusy atomic.Bool
	wg           sync.WaitGroup

	mu   sync.Mutex
	out  io.Writer
	last authflow.Session
}

func newDialog(out io.Writer, logger *slog.Logger) *dialog {
	return &dialog{
		out:    out,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// bind attaches the controller and bridge. The hooks returned by hooks() are
// handed to the controller first, so bind must run before the first action.
func (d *dialog) bind(controller *authflow.Controller, bridge provider.Bridge) {
	d.controller = controller
	d.bridge = bridge
}

// hooks returns the controller hooks that drive rendering.
func (d *dialog) hooks() authflow.Hooks {
	return authflow.Hooks{
		OnChange:  d.onChange,
		OnSuccess: d.onSuccess,
		OnClose:   d.onClose,
	}
}

// run reads lines until the dialog closes, the input ends, or ctx is done.
func (d *dialog) run(ctx context.Context, in io.Reader) error {
	d.send(`MoRius account access. Type "help" for commands.`)
	d.mu.Lock()
	d.last = d.controller.Snapshot()
	d.writePrompt(d.last)
	d.mu.Unlock()

	lineCh := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lineCh <- scanner.Text():
			case <-d.done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errCh <- err
			return
		}
		errCh <- io.EOF
	}()

	for {
		select {
		case <-ctx.Done():
			d.controller.Close()
			d.drain()
			return ctx.Err()
		case err := <-errCh:
			d.controller.Close()
			d.drain()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		case <-d.done:
			d.drain()
			return nil
		case line := <-lineCh:
			d.processLine(ctx, line)
		}
	}
}

// drain waits for in-flight controller and provider work to settle.
func (d *dialog) drain() {
	d.controller.Wait()
	d.wg.Wait()
}

// processLine interprets one typed line.
func (d *dialog) processLine(ctx context.Context, line string) {
	cmd, arg := splitCommand(line)

	switch cmd {
	case "":
		// Ignore blank lines
	case "email":
		d.controller.SetEmail(arg)
		d.send("Email set.")
	case "password":
		d.controller.SetPassword(arg)
		d.send("Password set.")
	case "confirm":
		d.controller.SetConfirmPassword(arg)
		d.send("Password confirmation set.")
	case "code":
		d.controller.SetVerificationCode(arg)
		d.send("Code set.")
	case "submit":
		d.controller.Submit(ctx)
	case "resend":
		d.controller.ResendCode(ctx)
	case "back":
		d.controller.ReturnToCredentials()
	case "switch":
		d.switchMode()
	case "provider":
		d.startProvider(ctx)
	case "show":
		d.showSession()
	case "help":
		d.sendHelp()
	case "quit":
		d.send("Goodbye.")
		d.controller.Close()
	default:
		d.send(fmt.Sprintf("Unknown command %q. Type \"help\" for commands.", cmd))
	}
}

// splitCommand splits a typed line into its command word and argument. The
// argument keeps its spacing so passwords survive intact; only the single
// separator after the command word is removed.
func splitCommand(line string) (string, string) {
	line = strings.TrimLeft(line, " \t")
	cmd, arg, _ := strings.Cut(line, " ")
	return strings.ToLower(cmd), arg
}

// switchMode toggles between sign-in and registration.
func (d *dialog) switchMode() {
	next := authflow.ModeRegister
	if d.controller.Snapshot().Mode == authflow.ModeRegister {
		next = authflow.ModeLogin
	}
	d.controller.SwitchMode(next)
}

// startProvider launches the provider sign-in on its own goroutine: the
// out-of-band approval can take minutes and the dialog must stay responsive.
func (d *dialog) startProvider(ctx context.Context) {
	if !d.providerBusy.CompareAndSwap(false, true) {
		d.send("Provider sign-in is already in progress.")
		return
	}
	d.send("Starting provider sign-in...")
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.providerBusy.Store(false)

		credential, err := d.bridge.Credential(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			d.logger.Warn("provider sign-in failed", "error", err)
			d.send("! " + provider.FailureMessage(err))
			return
		}
		d.controller.AuthenticateWithProvider(ctx, credential)
	}()
}

// promptApproval shows the user code for the out-of-band provider approval.
func (d *dialog) promptApproval(userCode, verificationURL string) {
	d.send(fmt.Sprintf("Visit %s and enter code %s to approve the sign-in.", verificationURL, userCode))
}

// onChange renders the visible difference between snapshots. It runs on
// whichever goroutine produced the change, so all writes go through d.mu.
func (d *dialog) onChange(snap authflow.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev := d.last
	d.last = snap

	if (snap.Submitting && !prev.Submitting) || (snap.ProviderSubmitting && !prev.ProviderSubmitting) {
		d.writeLine("Working...")
	}
	if snap.ErrorMessage != "" && snap.ErrorMessage != prev.ErrorMessage {
		d.writeLine("! " + snap.ErrorMessage)
	}
	if snap.InfoMessage != "" && snap.InfoMessage != prev.InfoMessage {
		d.writeLine("* " + snap.InfoMessage)
	}
	if snap.Mode != prev.Mode || snap.Step != prev.Step {
		d.writePrompt(snap)
		return
	}
	if snap.Step == authflow.StepVerify && snap.CooldownSecondsRemaining == 0 && prev.CooldownSecondsRemaining > 0 {
		d.writeLine(`You can request a new code now. Type "resend".`)
	}
}

// onSuccess prints the outcome. The access token goes to the dialog output
// on purpose: it is the command's product, and nothing here persists it.
func (d *dialog) onSuccess(result identity.AuthResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeLine(fmt.Sprintf("Signed in as %s (level %d, %d coins).",
		result.User.Email, result.User.Level, result.User.Coins))
	d.writeLine(result.TokenType + " " + result.AccessToken)
}

func (d *dialog) onClose() {
	d.closeOnce.Do(func() { close(d.done) })
}

// showSession prints the full dialog state.
func (d *dialog) showSession() {
	snap := d.controller.Snapshot()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeLine("Mode: " + snap.Mode.String())
	d.writeLine("Step: " + snap.Step.String())
	d.writeLine("Email: " + valueOrUnset(snap.Email))
	d.writeLine("Password: " + setLabel(snap.Password))
	if snap.Mode == authflow.ModeRegister {
		d.writeLine("Confirm: " + setLabel(snap.ConfirmPassword))
	}
	if snap.Step == authflow.StepVerify {
		d.writeLine("Code: " + valueOrUnset(snap.VerificationCode))
		d.writeLine(fmt.Sprintf("Resend available in: %ds", snap.CooldownSecondsRemaining))
	}
	if snap.Submitting || snap.ProviderSubmitting {
		d.writeLine("Working...")
	}
	if snap.ErrorMessage != "" {
		d.writeLine("! " + snap.ErrorMessage)
	}
	if snap.InfoMessage != "" {
		d.writeLine("* " + snap.InfoMessage)
	}
}

// writePrompt describes the fields and actions available at this position.
// Callers must hold d.mu.
func (d *dialog) writePrompt(snap authflow.Session) {
	switch {
	case snap.Step == authflow.StepVerify:
		d.writeLine("-- Check your email. Commands: code <6 digits>, submit, resend, back, quit.")
	case snap.Mode == authflow.ModeRegister:
		d.writeLine("-- Create a MoRius account. Commands: email <address>, password <value>, confirm <value>, submit, switch, provider, quit.")
	default:
		d.writeLine("-- Sign in to MoRius. Commands: email <address>, password <value>, submit, switch, provider, quit.")
	}
}

func (d *dialog) sendHelp() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeLine("Commands:")
	d.writeLine("  email <address>     set the account email")
	d.writeLine("  password <value>    set the password")
	d.writeLine("  confirm <value>     repeat the password (registration)")
	d.writeLine("  code <6 digits>     enter the emailed verification code")
	d.writeLine("  submit              send the current step")
	d.writeLine("  resend              send the verification code again")
	d.writeLine("  back                return to the credential fields")
	d.writeLine("  switch              toggle between sign-in and registration")
	d.writeLine("  provider            sign in through the identity provider")
	d.writeLine("  show                print the current dialog state")
	d.writeLine("  quit                leave without signing in")
}

// send writes one line to the dialog output.
func (d *dialog) send(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeLine(line)
}

// writeLine writes without locking. Callers must hold d.mu.
func (d *dialog) writeLine(line string) {
	if _, err := fmt.Fprintln(d.out, line); err != nil {
		d.logger.Warn("failed to write to dialog output", "error", err)
	}
}

func valueOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

func setLabel(v string) string {
	if v == "" {
		return "(not set)"
	}
	return "(set)"
}
