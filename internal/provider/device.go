// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

package provider

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
	"github.com/sethvargo/go-retry"
)

const maxReplyBytes = 1 << 20

// Prompt presents the user code and verification URL to the user. It is
// called once, before polling starts.
type Prompt func(userCode, verificationURL string)

// DeviceConfig holds configuration for the device-grant bridge.
type DeviceConfig struct {
	// StartURL is the provider endpoint that issues a device grant.
	StartURL string

	// CredentialURL is the provider endpoint polled for the credential.
	CredentialURL string

	// ClientID identifies this client to the provider.
	ClientID string

	// PollInterval is the default time between polls. The provider's
	// reply overrides it. Default: 5s.
	PollInterval time.Duration

	// MaxWait bounds the whole approval wait. The provider's reply
	// overrides it. Default: 10m.
	MaxWait time.Duration

	// HTTPClient overrides the underlying transport. Optional.
	HTTPClient *http.Client
}

// DeviceBridge implements Bridge with a device-authorization grant: the
// provider issues a short user code, the user approves it out of band, and
// the bridge polls until the provider releases the credential.
type DeviceBridge struct {
	cfg        DeviceConfig
	prompt     Prompt
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDeviceBridge creates a device-grant bridge with a no-op logger.
func NewDeviceBridge(cfg DeviceConfig, prompt Prompt) (*DeviceBridge, error) {
	return NewDeviceBridgeWithLogger(cfg, prompt, slog.New(slog.DiscardHandler))
}

// NewDeviceBridgeWithLogger creates a device-grant bridge with the provided
// logger.
func NewDeviceBridgeWithLogger(cfg DeviceConfig, prompt Prompt, logger *slog.Logger) (*DeviceBridge, error) {
	if cfg.StartURL == "" {
		return nil, oops.Errorf("start URL is required")
	}
	if cfg.CredentialURL == "" {
		return nil, oops.Errorf("credential URL is required")
	}
	if prompt == nil {
		return nil, oops.Errorf("prompt is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}

	// Set defaults
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = 10 * time.Minute
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &DeviceBridge{
		cfg:        cfg,
		prompt:     prompt,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type grantRequest struct {
	ClientID string `json:"client_id"`
}

type grantReply struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURL string `json:"verification_url"`
	IntervalSeconds int    `json:"interval_seconds,omitempty"`
	ExpiresSeconds  int    `json:"expires_in_seconds,omitempty"`
}

type credentialRequest struct {
	ClientID   string `json:"client_id"`
	DeviceCode string `json:"device_code"`
}

type credentialReply struct {
	Credential string `json:"credential"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Poll outcome codes the provider uses while the grant is unresolved.
const (
	grantPending = "AUTHORIZATION_PENDING"
	grantSlow    = "SLOW_DOWN"
	grantDenied  = "ACCESS_DENIED"
	grantExpired = "CODE_EXPIRED"
)

// Credential runs the full device grant: request a grant, show the user
// code, poll until approval, denial, expiry, or ctx cancellation.
func (b *DeviceBridge) Credential(ctx context.Context) (string, error) {
	grant, err := b.begin(ctx)
	if err != nil {
		return "", err
	}

	b.prompt(grant.UserCode, grant.VerificationURL)
	b.logger.Info("provider grant issued",
		"event", "provider_grant_issued",
		"user_code", grant.UserCode,
	)

	interval := b.cfg.PollInterval
	if grant.IntervalSeconds > 0 {
		interval = time.Duration(grant.IntervalSeconds) * time.Second
	}
	maxWait := b.cfg.MaxWait
	if grant.ExpiresSeconds > 0 {
		maxWait = time.Duration(grant.ExpiresSeconds) * time.Second
	}

	var credential string
	backoff := retry.WithMaxDuration(maxWait, retry.NewConstant(interval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		cred, err := b.poll(ctx, grant.DeviceCode)
		if err != nil {
			return err
		}
		credential = cred
		return nil
	})
	if err != nil {
		// Cancellation passes through untouched so hosts can tell a quit
		// apart from a provider failure.
		return "", err
	}
	return credential, nil
}

func (b *DeviceBridge) begin(ctx context.Context) (*grantReply, error) {
	data, err := b.post(ctx, b.cfg.StartURL, grantRequest{ClientID: b.cfg.ClientID})
	if err != nil {
		return nil, err
	}

	var grant grantReply
	if err := json.Unmarshal(data, &grant); err != nil {
		return nil, oops.Code(CodeProviderFailed).Wrap(err)
	}
	if grant.DeviceCode == "" || grant.UserCode == "" {
		return nil, oops.Code(CodeProviderFailed).Errorf("grant reply missing device or user code")
	}
	return &grant, nil
}

// poll asks for the credential once. An unresolved grant is a retryable
// error; denial and expiry are permanent.
func (b *DeviceBridge) poll(ctx context.Context, deviceCode string) (string, error) {
	data, err := b.post(ctx, b.cfg.CredentialURL, credentialRequest{
		ClientID:   b.cfg.ClientID,
		DeviceCode: deviceCode,
	})
	if err != nil {
		return "", err
	}

	var reply credentialReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return "", oops.Code(CodeProviderFailed).Wrap(err)
	}

	switch reply.Code {
	case "":
		if reply.Credential == "" {
			return "", oops.Code(CodeProviderFailed).Errorf("credential reply missing credential")
		}
		return reply.Credential, nil
	case grantPending, grantSlow:
		return "", retry.RetryableError(
			oops.Code(CodeProviderTimeout).Errorf("sign-in was not approved in time"))
	case grantDenied:
		return "", oops.Code(CodeProviderDenied).
			With("message", reply.Message).
			Errorf("provider denied the sign-in")
	case grantExpired:
		return "", oops.Code(CodeProviderTimeout).
			With("message", reply.Message).
			Errorf("device code expired before approval")
	default:
		return "", oops.Code(CodeProviderFailed).
			With("provider_code", reply.Code).
			Errorf("unexpected provider reply")
	}
}

func (b *DeviceBridge) post(ctx context.Context, url string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, oops.Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, oops.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", ulid.Make().String())

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, oops.Code(CodeProviderUnreachable).Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, oops.Code(CodeProviderUnreachable).Wrap(err)
	}

	// Grant-state replies ride on 4xx; only transport-shaped statuses are
	// hard failures here.
	if resp.StatusCode >= 500 {
		return nil, oops.Code(CodeProviderFailed).
			With("status", resp.StatusCode).
			With("body", strings.TrimSpace(string(data))).
			Errorf("provider returned status %d", resp.StatusCode)
	}
	return data, nil
}
