// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

//go:build integration

package flow_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/ReisolRius/MoRius-sub003/internal/authflow"
)

var _ = Describe("Registration", func() {
	var (
		ctx context.Context
		rec *capture
	)

	BeforeEach(func() {
		ctx = context.Background()
		env.account.reset()
		rec = &capture{}
	})

	submitRegistration := func(controller *authflow.Controller, email string) {
		controller.SetEmail(email)
		controller.SetPassword("longenough")
		controller.SetConfirmPassword("longenough")
		controller.Submit(ctx)
		controller.Wait()
	}

	It("creates an account through the verify step", func() {
		controller, _ := env.newController(authflow.ModeRegister, rec)

		submitRegistration(controller, "newpilot@morius.app")

		snap := controller.Snapshot()
		Expect(snap.Step).To(Equal(authflow.StepVerify))
		Expect(snap.CooldownSecondsRemaining).To(Equal(authflow.DefaultResendCooldownSeconds))
		Expect(snap.InfoMessage).NotTo(BeEmpty())
		Expect(env.account.lastEmail()).To(Equal("newpilot@morius.app"))

		controller.SetVerificationCode(issuedCode)
		controller.Submit(ctx)
		controller.Wait()

		result := rec.result()
		Expect(result).NotTo(BeNil())
		Expect(result.User.Email).To(Equal("newpilot@morius.app"))
		Expect(controller.Closed()).To(BeTrue())
	})

	It("activates the account for subsequent logins", func() {
		controller, _ := env.newController(authflow.ModeRegister, rec)
		submitRegistration(controller, "newpilot@morius.app")
		controller.SetVerificationCode(issuedCode)
		controller.Submit(ctx)
		controller.Wait()
		Expect(controller.Closed()).To(BeTrue())

		loginRec := &capture{}
		login, _ := env.newController(authflow.ModeLogin, loginRec)
		login.SetEmail("newpilot@morius.app")
		login.SetPassword("longenough")
		login.Submit(ctx)
		login.Wait()

		Expect(loginRec.result()).NotTo(BeNil())
	})

	It("shows the service message for a rejected code", func() {
		controller, _ := env.newController(authflow.ModeRegister, rec)
		submitRegistration(controller, "newpilot@morius.app")

		controller.SetVerificationCode("000000")
		controller.Submit(ctx)
		controller.Wait()

		snap := controller.Snapshot()
		Expect(snap.Step).To(Equal(authflow.StepVerify))
		Expect(snap.ErrorMessage).To(Equal("That code is incorrect or expired."))
		Expect(controller.Closed()).To(BeFalse())
	})

	It("uses the service's retry hint when registration is throttled", func() {
		env.account.throttleRegistrations("Too many requests. Try again in 30 seconds.")
		controller, _ := env.newController(authflow.ModeRegister, rec)

		submitRegistration(controller, "newpilot@morius.app")

		snap := controller.Snapshot()
		Expect(snap.Step).To(Equal(authflow.StepVerify), "a throttled send means a code is already out")
		Expect(snap.CooldownSecondsRemaining).To(Equal(30))
		Expect(snap.InfoMessage).To(ContainSubstring("30 seconds"))
		Expect(snap.ErrorMessage).To(BeEmpty())
	})

	It("stays on credentials when a failure has no retry hint", func() {
		env.account.seedAccount("taken@morius.app", "whatever1")
		controller, _ := env.newController(authflow.ModeRegister, rec)

		submitRegistration(controller, "taken@morius.app")

		snap := controller.Snapshot()
		Expect(snap.Step).To(Equal(authflow.StepCredentials))
		Expect(snap.ErrorMessage).To(Equal("An account with this email already exists."))
	})

	It("ticks the cooldown down and resends after it expires", func() {
		controller, sched := env.newController(authflow.ModeRegister, rec)

		submitRegistration(controller, "newpilot@morius.app")
		Expect(env.account.registrations()).To(Equal(1))

		sched.Advance(60 * time.Second)
		Expect(controller.Snapshot().CooldownSecondsRemaining).To(BeZero())

		controller.ResendCode(ctx)
		controller.Wait()

		Expect(env.account.registrations()).To(Equal(2))
		Expect(controller.Snapshot().CooldownSecondsRemaining).To(Equal(authflow.DefaultResendCooldownSeconds))
	})

	It("refuses to resend while the cooldown is running", func() {
		controller, _ := env.newController(authflow.ModeRegister, rec)

		submitRegistration(controller, "newpilot@morius.app")

		controller.ResendCode(ctx)
		controller.Wait()

		Expect(env.account.registrations()).To(Equal(1))
		Expect(controller.Snapshot().InfoMessage).To(ContainSubstring("You can request another code in"))
	})
})
