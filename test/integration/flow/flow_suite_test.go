// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

//go:build integration

// Package flow provides end-to-end integration tests for the account dialog:
// a real flow controller talking JSON-over-HTTP to a fake account service.
package flow_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/ReisolRius/MoRius-sub003/internal/authflow"
	"github.com/ReisolRius/MoRius-sub003/internal/countdown/countdowntest"
	"github.com/ReisolRius/MoRius-sub003/internal/identity"
)

func TestFlow(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Account Flow Integration Suite")
}

// issuedCode is the verification code the fake service "emails" on
// registration.
const issuedCode = "271828"

// testEnv holds the fake account service and its HTTP server.
type testEnv struct {
	account *fakeAccountService
	server  *httptest.Server
}

var env *testEnv

var _ = BeforeSuite(func() {
	account := newFakeAccountService()
	env = &testEnv{
		account: account,
		server:  httptest.NewServer(account),
	}
})

var _ = AfterSuite(func() {
	if env != nil {
		env.server.Close()
	}
})

// newController wires a controller to the fake service through a real HTTP
// client, on a fake scheduler so cooldowns advance without sleeping.
func (e *testEnv) newController(mode authflow.Mode, rec *capture) (*authflow.Controller, *countdowntest.Scheduler) {
	client, err := identity.NewHTTPClient(identity.Config{BaseURL: e.server.URL})
	Expect(err).NotTo(HaveOccurred())

	sched := countdowntest.NewScheduler()
	controller, err := authflow.New(authflow.Config{
		Service:     client,
		Hooks:       rec.hooks(),
		InitialMode: mode,
		Scheduler:   sched,
	})
	Expect(err).NotTo(HaveOccurred())
	return controller, sched
}

// capture records hook outputs for assertions.
type capture struct {
	mu        sync.Mutex
	snapshots []authflow.Session
	results   []identity.AuthResult
	closes    int
}

func (c *capture) hooks() authflow.Hooks {
	return authflow.Hooks{
		OnChange: func(s authflow.Session) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.snapshots = append(c.snapshots, s)
		},
		OnSuccess: func(r identity.AuthResult) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.results = append(c.results, r)
		},
		OnClose: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.closes++
		},
	}
}

func (c *capture) result() *identity.AuthResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.results) == 0 {
		return nil
	}
	r := c.results[len(c.results)-1]
	return &r
}

func (c *capture) closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes > 0
}

// fakeAccountService imitates the MoRius account service: active accounts,
// pending registrations, federated credentials, and a switchable
// registration throttle.
type fakeAccountService struct {
	mu          sync.Mutex
	active      map[string]string // email -> password
	pending     map[string]string // email -> password awaiting verification
	credentials map[string]string // provider credential -> email
	throttleMsg string            // when set, register replies 429 with this message

	lastRegisterEmail string
	registerCount     int
}

func newFakeAccountService() *fakeAccountService {
	return &fakeAccountService{
		active:      make(map[string]string),
		pending:     make(map[string]string),
		credentials: make(map[string]string),
	}
}

// reset clears all state between specs.
func (f *fakeAccountService) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = make(map[string]string)
	f.pending = make(map[string]string)
	f.credentials = make(map[string]string)
	f.throttleMsg = ""
	f.lastRegisterEmail = ""
	f.registerCount = 0
}

func (f *fakeAccountService) seedAccount(email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active[email] = password
}

func (f *fakeAccountService) seedCredential(credential, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credentials[credential] = email
	f.active[email] = "federated"
}

func (f *fakeAccountService) throttleRegistrations(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.throttleMsg = message
}

func (f *fakeAccountService) registrations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registerCount
}

func (f *fakeAccountService) lastEmail() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRegisterEmail
}

func (f *fakeAccountService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "POST only")
		return
	}
	switch r.URL.Path {
	case "/v1/auth/login":
		f.handleLogin(w, r)
	case "/v1/auth/register":
		f.handleRegister(w, r)
	case "/v1/auth/verify":
		f.handleVerify(w, r)
	case "/v1/auth/federated":
		f.handleFederated(w, r)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no such endpoint")
	}
}

func (f *fakeAccountService) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}

	f.mu.Lock()
	password, ok := f.active[req.Email]
	f.mu.Unlock()

	if !ok || password != req.Password {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Incorrect email or password.")
		return
	}
	writeResult(w, req.Email)
}

func (f *fakeAccountService) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}

	f.mu.Lock()
	f.registerCount++
	f.lastRegisterEmail = req.Email
	throttle := f.throttleMsg
	_, exists := f.active[req.Email]
	if throttle == "" && !exists {
		f.pending[req.Email] = req.Password
	}
	f.mu.Unlock()

	if throttle != "" {
		writeError(w, http.StatusTooManyRequests, "THROTTLED", throttle)
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "ACCOUNT_EXISTS", "An account with this email already exists.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "We sent a code to your email."})
}

func (f *fakeAccountService) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}

	f.mu.Lock()
	password, ok := f.pending[req.Email]
	if ok && req.Code == issuedCode {
		delete(f.pending, req.Email)
		f.active[req.Email] = password
	}
	f.mu.Unlock()

	if !ok || req.Code != issuedCode {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_CODE", "That code is incorrect or expired.")
		return
	}
	writeResult(w, req.Email)
}

func (f *fakeAccountService) handleFederated(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Credential string `json:"credential"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}

	f.mu.Lock()
	email, ok := f.credentials[req.Credential]
	f.mu.Unlock()

	if !ok {
		writeError(w, http.StatusForbidden, "CREDENTIAL_REJECTED", "The provider credential was not accepted.")
		return
	}
	writeResult(w, email)
}

func writeResult(w http.ResponseWriter, email string) {
	writeJSON(w, http.StatusOK, identity.AuthResult{
		AccessToken: "tok-" + email,
		TokenType:   identity.TokenTypeBearer,
		User: identity.UserProfile{
			ID:    42,
			Email: email,
			Level: 5,
			Coins: 900,
		},
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
