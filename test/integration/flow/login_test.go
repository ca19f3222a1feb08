// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

//go:build integration

package flow_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/ReisolRius/MoRius-sub003/internal/authflow"
	"github.com/ReisolRius/MoRius-sub003/internal/identity"
)

var _ = Describe("Login", func() {
	var (
		ctx context.Context
		rec *capture
	)

	BeforeEach(func() {
		ctx = context.Background()
		env.account.reset()
		rec = &capture{}
	})

	It("signs in an active account and closes the dialog", func() {
		env.account.seedAccount("pilot@morius.app", "hunter22secret")
		controller, _ := env.newController(authflow.ModeLogin, rec)

		controller.SetEmail("pilot@morius.app")
		controller.SetPassword("hunter22secret")
		controller.Submit(ctx)
		controller.Wait()

		result := rec.result()
		Expect(result).NotTo(BeNil())
		Expect(result.AccessToken).To(Equal("tok-pilot@morius.app"))
		Expect(result.TokenType).To(Equal(identity.TokenTypeBearer))
		Expect(result.User.Email).To(Equal("pilot@morius.app"))
		Expect(rec.closed()).To(BeTrue())
		Expect(controller.Closed()).To(BeTrue())
	})

	It("normalizes the typed email before sending it", func() {
		env.account.seedAccount("pilot@morius.app", "hunter22secret")
		controller, _ := env.newController(authflow.ModeLogin, rec)

		controller.SetEmail("  Pilot@MoRius.APP ")
		controller.SetPassword("hunter22secret")
		controller.Submit(ctx)
		controller.Wait()

		Expect(rec.result()).NotTo(BeNil(), "the service only knows the lowercase address")
	})

	It("surfaces the service's rejection text and stays open", func() {
		env.account.seedAccount("pilot@morius.app", "hunter22secret")
		controller, _ := env.newController(authflow.ModeLogin, rec)

		controller.SetEmail("pilot@morius.app")
		controller.SetPassword("wrong-password")
		controller.Submit(ctx)
		controller.Wait()

		snap := controller.Snapshot()
		Expect(snap.ErrorMessage).To(Equal("Incorrect email or password."))
		Expect(snap.Submitting).To(BeFalse())
		Expect(snap.Email).To(Equal("pilot@morius.app"), "typed fields survive a failure")
		Expect(controller.Closed()).To(BeFalse())
		Expect(rec.result()).To(BeNil())
	})

	It("allows a corrected retry after a rejection", func() {
		env.account.seedAccount("pilot@morius.app", "hunter22secret")
		controller, _ := env.newController(authflow.ModeLogin, rec)

		controller.SetEmail("pilot@morius.app")
		controller.SetPassword("wrong-password")
		controller.Submit(ctx)
		controller.Wait()

		controller.SetPassword("hunter22secret")
		controller.Submit(ctx)
		controller.Wait()

		Expect(rec.result()).NotTo(BeNil())
		Expect(controller.Closed()).To(BeTrue())
	})

	It("reports a friendly message when the service is unreachable", func() {
		down := httptest.NewServer(http.NotFoundHandler())
		down.Close()

		client, err := identity.NewHTTPClient(identity.Config{BaseURL: down.URL})
		Expect(err).NotTo(HaveOccurred())
		controller, err := authflow.New(authflow.Config{
			Service: client,
			Hooks:   rec.hooks(),
		})
		Expect(err).NotTo(HaveOccurred())

		controller.SetEmail("pilot@morius.app")
		controller.SetPassword("hunter22secret")
		controller.Submit(ctx)
		controller.Wait()

		snap := controller.Snapshot()
		Expect(snap.ErrorMessage).To(Equal("Could not reach the account service. Check your connection and try again."))
		Expect(controller.Closed()).To(BeFalse())
	})
})
