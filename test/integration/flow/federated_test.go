// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

//go:build integration

package flow_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/ReisolRius/MoRius-sub003/internal/authflow"
	"github.com/ReisolRius/MoRius-sub003/internal/provider"
)

// fakeProvider imitates the identity provider's device-grant endpoints.
type fakeProvider struct {
	mu         sync.Mutex
	state      string // "pending", "approved", "denied"
	credential string
	polls      int
}

func (p *fakeProvider) approve() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = "approved"
}

func (p *fakeProvider) deny() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = "denied"
}

func (p *fakeProvider) pollCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

func (p *fakeProvider) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", p.handleStart)
	mux.HandleFunc("/credential", p.handleCredential)
	return mux
}

func (p *fakeProvider) handleStart(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	if p.state == "" {
		p.state = "pending"
	}
	p.mu.Unlock()

	// interval_seconds is omitted so the bridge falls back to its configured
	// poll interval, which the specs keep short.
	writeJSON(w, http.StatusOK, map[string]any{
		"device_code":      "dev-123",
		"user_code":        "WXYZ-7890",
		"verification_url": "https://id.morius.app/activate",
	})
}

func (p *fakeProvider) handleCredential(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	p.polls++
	state := p.state
	credential := p.credential
	p.mu.Unlock()

	switch state {
	case "approved":
		writeJSON(w, http.StatusOK, map[string]string{"credential": credential})
	case "denied":
		writeError(w, http.StatusForbidden, "ACCESS_DENIED", "The user denied the request.")
	default:
		writeError(w, http.StatusBadRequest, "AUTHORIZATION_PENDING", "approval pending")
	}
}

var _ = Describe("Federated sign-in", func() {
	var (
		ctx        context.Context
		rec        *capture
		prov       *fakeProvider
		provServer *httptest.Server
	)

	BeforeEach(func() {
		ctx = context.Background()
		env.account.reset()
		rec = &capture{}
		prov = &fakeProvider{credential: "prov-cred-777"}
		provServer = httptest.NewServer(prov.handler())
		DeferCleanup(provServer.Close)
	})

	newBridge := func(prompt provider.Prompt) provider.Bridge {
		bridge, err := provider.NewDeviceBridge(provider.DeviceConfig{
			StartURL:      provServer.URL + "/start",
			CredentialURL: provServer.URL + "/credential",
			ClientID:      "morius-auth-test",
			PollInterval:  5 * time.Millisecond,
			MaxWait:       2 * time.Second,
		}, prompt)
		Expect(err).NotTo(HaveOccurred())
		return bridge
	}

	It("completes the grant and signs in with the credential", func() {
		env.account.seedCredential("prov-cred-777", "federated@morius.app")

		var promptedCode, promptedURL string
		bridge := newBridge(func(userCode, verificationURL string) {
			promptedCode = userCode
			promptedURL = verificationURL
			prov.approve()
		})

		credential, err := bridge.Credential(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(credential).To(Equal("prov-cred-777"))
		Expect(promptedCode).To(Equal("WXYZ-7890"))
		Expect(promptedURL).To(Equal("https://id.morius.app/activate"))

		controller, _ := env.newController(authflow.ModeLogin, rec)
		controller.AuthenticateWithProvider(ctx, credential)
		controller.Wait()

		result := rec.result()
		Expect(result).NotTo(BeNil())
		Expect(result.User.Email).To(Equal("federated@morius.app"))
		Expect(controller.Closed()).To(BeTrue())
	})

	It("keeps polling while approval is pending", func() {
		env.account.seedCredential("prov-cred-777", "federated@morius.app")
		bridge := newBridge(func(string, string) {})

		go func() {
			time.Sleep(30 * time.Millisecond)
			prov.approve()
		}()

		credential, err := bridge.Credential(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(credential).To(Equal("prov-cred-777"))
		Expect(prov.pollCount()).To(BeNumerically(">", 1))
	})

	It("maps a denial to a user-facing message", func() {
		bridge := newBridge(func(string, string) { prov.deny() })

		_, err := bridge.Credential(ctx)
		Expect(err).To(HaveOccurred())
		Expect(provider.FailureMessage(err)).To(Equal("The provider denied the sign-in request."))
	})

	It("rejects a credential the account service does not recognize", func() {
		controller, _ := env.newController(authflow.ModeLogin, rec)

		controller.AuthenticateWithProvider(ctx, "unknown-cred")
		controller.Wait()

		snap := controller.Snapshot()
		Expect(snap.ErrorMessage).To(Equal("The provider credential was not accepted."))
		Expect(snap.ProviderSubmitting).To(BeFalse())
		Expect(controller.Closed()).To(BeFalse())
	})
})
