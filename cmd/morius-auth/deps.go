package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/ReisolRius/MoRius-sub003/internal/authflow"
	"github.com/ReisolRius/MoRius-sub003/internal/identity"
	"github.com/ReisolRius/MoRius-sub003/internal/observability"
	"github.com/ReisolRius/MoRius-sub003/internal/provider"
)

// FlowDeps contains injectable dependencies for the login and register
// commands. All fields with nil values will use their default implementations.
type FlowDeps struct {
	// ServiceFactory creates the account service client.
	// Default: identity.NewHTTPClientWithLogger
	ServiceFactory func(cfg identity.Config, logger *slog.Logger) (authflow.Service, error)

	// BridgeFactory creates the provider sign-in bridge.
	// Default: provider.NewDeviceBridgeWithLogger
	BridgeFactory func(cfg provider.DeviceConfig, prompt provider.Prompt, logger *slog.Logger) (provider.Bridge, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// In overrides the dialog input stream. Default: the command's stdin.
	In io.Reader

	// Out overrides the dialog output stream. Default: the command's stdout.
	Out io.Writer
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}
