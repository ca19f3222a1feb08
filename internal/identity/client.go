// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// maxReplyBytes caps how much of a reply body is read.
const maxReplyBytes = 1 << 20

// Config holds configuration for the HTTP account service client.
type Config struct {
	// BaseURL is the account service root (e.g. "https://account.morius.app").
	BaseURL string

	// UserAgent is sent on outbound requests. Optional.
	UserAgent string

	// Timeout bounds each request (default: 15s). Ignored when HTTPClient is set.
	Timeout time.Duration

	// HTTPClient overrides the underlying transport. If nil, one is built
	// from Timeout.
	HTTPClient *http.Client
}

// HTTPClient talks JSON-over-HTTP to the MoRius account service.
type HTTPClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a new account service client with a no-op logger.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	return NewHTTPClientWithLogger(cfg, slog.New(slog.DiscardHandler))
}

// NewHTTPClientWithLogger creates a new account service client with the
// provided logger.
func NewHTTPClientWithLogger(cfg Config, logger *slog.Logger) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, oops.Errorf("base URL is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}

	// Set defaults
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &HTTPClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type federatedRequest struct {
	Credential string `json:"credential"`
}

type errorReply struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Login exchanges email and password for an access token and profile.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var result AuthResult
	if err := c.post(ctx, "/v1/auth/login", credentialsRequest{Email: email, Password: password}, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, oops.Code(CodeMalformedReply).Errorf("login reply missing access token")
	}
	return &result, nil
}

// Register asks the service to create an account. The service replies with
// an acknowledgement and emails a verification code; the account is not
// active until Verify succeeds.
func (c *HTTPClient) Register(ctx context.Context, email, password string) (*RegisterAck, error) {
	var ack RegisterAck
	if err := c.post(ctx, "/v1/auth/register", credentialsRequest{Email: email, Password: password}, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// Verify confirms the emailed code and completes registration.
func (c *HTTPClient) Verify(ctx context.Context, email, code string) (*AuthResult, error) {
	var result AuthResult
	if err := c.post(ctx, "/v1/auth/verify", verifyRequest{Email: email, Code: code}, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, oops.Code(CodeMalformedReply).Errorf("verify reply missing access token")
	}
	return &result, nil
}

// FederatedLogin signs in with an opaque credential obtained from a
// third-party provider. The credential is never interpreted client-side.
func (c *HTTPClient) FederatedLogin(ctx context.Context, credential string) (*AuthResult, error) {
	var result AuthResult
	if err := c.post(ctx, "/v1/auth/federated", federatedRequest{Credential: credential}, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, oops.Code(CodeMalformedReply).Errorf("federated login reply missing access token")
	}
	return &result, nil
}

// post sends a JSON request and decodes a successful reply into out.
// Non-2xx replies become ACCOUNT_REJECTED errors carrying the service's
// message; transport and decode failures get their own codes.
func (c *HTTPClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return oops.With("path", path).Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return oops.With("path", path).Wrap(err)
	}
	requestID := ulid.Make().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("account request failed",
			"event", "account_unreachable",
			"path", path,
			"request_id", requestID,
			"error", err.Error(),
		)
		return ErrUnreachable(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return ErrUnreachable(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var reply errorReply
		// A rejection body that does not decode still rejects; the user
		// just gets the fallback message.
		_ = json.Unmarshal(data, &reply)
		c.logger.Warn("account request rejected",
			"event", "account_rejected",
			"path", path,
			"request_id", requestID,
			"status", resp.StatusCode,
			"reply_code", reply.Code,
		)
		return ErrRejected(reply.Message, resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return ErrMalformedReply(err)
	}

	c.logger.Debug("account request ok",
		"event", "account_request_ok",
		"path", path,
		"request_id", requestID,
	)
	return nil
}
