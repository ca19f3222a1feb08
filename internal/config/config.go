// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

// Package config loads morius-auth settings from built-in defaults, an
// optional YAML file, and command-line flags, in that order.
package config

import (
	"net/url"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/ReisolRius/MoRius-sub003/internal/authflow"
)

// Error codes for configuration failures.
const (
	CodeUnreadable = "CONFIG_UNREADABLE"
	CodeInvalid    = "CONFIG_INVALID"
)

// Config holds the full morius-auth configuration tree.
type Config struct {
	Service  Service  `koanf:"service"`
	Provider Provider `koanf:"provider"`
	Resend   Resend   `koanf:"resend"`
	Log      Log      `koanf:"log"`
	Metrics  Metrics  `koanf:"metrics"`
}

// Service configures the account service client.
type Service struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// Provider configures the third-party sign-in bridge.
type Provider struct {
	StartURL      string `koanf:"start_url"`
	CredentialURL string `koanf:"credential_url"`
	ClientID      string `koanf:"client_id"`
}

// Resend configures verification code resends.
type Resend struct {
	CooldownSeconds int `koanf:"cooldown_seconds"`
}

// Log configures structured logging.
type Log struct {
	Format string `koanf:"format"`
}

// Metrics configures the optional metrics/health server.
type Metrics struct {
	Addr string `koanf:"addr"`
}

// Default values for morius-auth configuration.
const (
	DefaultServiceURL            = "https://account.morius.app"
	DefaultServiceTimeout        = 15 * time.Second
	DefaultProviderStartURL      = "https://id.morius.app/v1/device/start"
	DefaultProviderCredentialURL = "https://id.morius.app/v1/device/credential"
	DefaultProviderClientID      = "morius-auth"
	DefaultLogFormat             = "text"
	DefaultMetricsAddr           = ""
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Service: Service{
			URL:     DefaultServiceURL,
			Timeout: DefaultServiceTimeout,
		},
		Provider: Provider{
			StartURL:      DefaultProviderStartURL,
			CredentialURL: DefaultProviderCredentialURL,
			ClientID:      DefaultProviderClientID,
		},
		Resend: Resend{
			CooldownSeconds: authflow.DefaultResendCooldownSeconds,
		},
		Log: Log{
			Format: DefaultLogFormat,
		},
		Metrics: Metrics{
			Addr: DefaultMetricsAddr,
		},
	}
}

// flagKeys maps command-line flag names to configuration keys. Flags not
// listed here (--config, --help, ...) never reach the configuration tree.
var flagKeys = map[string]string{
	"service-url":             "service.url",
	"service-timeout":         "service.timeout",
	"provider-start-url":      "provider.start_url",
	"provider-credential-url": "provider.credential_url",
	"provider-client-id":      "provider.client_id",
	"resend-cooldown":         "resend.cooldown_seconds",
	"log-format":              "log.format",
	"metrics-addr":            "metrics.addr",
}

// RegisterFlags registers the configuration flags on a flag set with
// defaults mirroring Default(). Every flag registered here must have an
// entry in flagKeys.
func RegisterFlags(f *pflag.FlagSet) {
	d := Default()
	f.String("service-url", d.Service.URL, "account service base URL")
	f.Duration("service-timeout", d.Service.Timeout, "account service request timeout")
	f.String("provider-start-url", d.Provider.StartURL, "provider device-grant start URL")
	f.String("provider-credential-url", d.Provider.CredentialURL, "provider credential poll URL")
	f.String("provider-client-id", d.Provider.ClientID, "client ID sent to the provider")
	f.Int("resend-cooldown", d.Resend.CooldownSeconds, "seconds between verification code resends")
	f.String("log-format", d.Log.Format, "log format (json or text)")
	f.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
}

// Load builds the effective configuration: Default(), then the YAML file at
// path, then any flags changed on the command line. An empty path skips the
// file layer; a missing file at a non-empty path is an error, so callers
// decide whether an absent default file matters.
//
// Load does not validate: commands call Validate before acting so the
// config command can still print a broken configuration.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()

	ko := koanf.New(".")
	if path != "" {
		if err := ko.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code(CodeUnreadable).
				With("path", path).
				Wrap(err)
		}
	}
	if flags != nil {
		provider := posflag.ProviderWithValue(flags, ".", ko, func(name, value string) (string, interface{}) {
			key, ok := flagKeys[name]
			if !ok {
				return "", nil
			}
			return key, value
		})
		if err := ko.Load(provider, nil); err != nil {
			return Config{}, oops.Code(CodeUnreadable).Wrap(err)
		}
	}

	if err := ko.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code(CodeUnreadable).Wrap(err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if err := validateHTTPURL("service.url", c.Service.URL); err != nil {
		return err
	}
	if c.Service.Timeout <= 0 {
		return oops.Code(CodeInvalid).
			With("timeout", c.Service.Timeout.String()).
			Errorf("service.timeout must be positive")
	}
	if err := validateHTTPURL("provider.start_url", c.Provider.StartURL); err != nil {
		return err
	}
	if err := validateHTTPURL("provider.credential_url", c.Provider.CredentialURL); err != nil {
		return err
	}
	if c.Provider.ClientID == "" {
		return oops.Code(CodeInvalid).Errorf("provider.client_id is required")
	}
	if c.Resend.CooldownSeconds < 0 {
		return oops.Code(CodeInvalid).
			With("cooldown_seconds", c.Resend.CooldownSeconds).
			Errorf("resend.cooldown_seconds must not be negative")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code(CodeInvalid).
			Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	return nil
}

func validateHTTPURL(key, raw string) error {
	if raw == "" {
		return oops.Code(CodeInvalid).Errorf("%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return oops.Code(CodeInvalid).
			With("url", raw).
			Errorf("%s must be an http(s) URL", key)
	}
	return nil
}
