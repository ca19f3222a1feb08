// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

package config

import (
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// FileTemplate is the starter configuration written by `morius-auth config
// --init`. Its values mirror Default().
const FileTemplate = `# morius-auth configuration.
#
# Values here override built-in defaults; command-line flags override both.

service:
  # Account service base URL.
  url: https://account.morius.app
  # Per-request timeout.
  timeout: 15s

provider:
  # Device-grant endpoints for third-party sign-in.
  start_url: https://id.morius.app/v1/device/start
  credential_url: https://id.morius.app/v1/device/credential
  client_id: morius-auth

resend:
  # Seconds a fresh verification code blocks the next resend.
  cooldown_seconds: 60

log:
  # json or text.
  format: text

metrics:
  # Prometheus/health listen address. Empty disables the server.
  addr: ""
`

// Render returns the effective configuration as YAML, with durations in
// human-readable form.
func (c Config) Render() ([]byte, error) {
	type service struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	}
	type provider struct {
		StartURL      string `yaml:"start_url"`
		CredentialURL string `yaml:"credential_url"`
		ClientID      string `yaml:"client_id"`
	}
	type resend struct {
		CooldownSeconds int `yaml:"cooldown_seconds"`
	}
	type logging struct {
		Format string `yaml:"format"`
	}
	type metrics struct {
		Addr string `yaml:"addr"`
	}

	doc := struct {
		Service  service  `yaml:"service"`
		Provider provider `yaml:"provider"`
		Resend   resend   `yaml:"resend"`
		Log      logging  `yaml:"log"`
		Metrics  metrics  `yaml:"metrics"`
	}{
		Service: service{
			URL:     c.Service.URL,
			Timeout: c.Service.Timeout.String(),
		},
		Provider: provider{
			StartURL:      c.Provider.StartURL,
			CredentialURL: c.Provider.CredentialURL,
			ClientID:      c.Provider.ClientID,
		},
		Resend:  resend{CooldownSeconds: c.Resend.CooldownSeconds},
		Log:     logging{Format: c.Log.Format},
		Metrics: metrics{Addr: c.Metrics.Addr},
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, oops.Wrap(err)
	}
	return out, nil
}
