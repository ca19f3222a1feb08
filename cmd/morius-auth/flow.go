// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ReisolRius/MoRius-sub003/internal/authflow"
	"github.com/ReisolRius/MoRius-sub003/internal/identity"
	"github.com/ReisolRius/MoRius-sub003/internal/logging"
	"github.com/ReisolRius/MoRius-sub003/internal/observability"
	"github.com/ReisolRius/MoRius-sub003/internal/provider"
)

// runFlow starts the interactive account dialog in the given mode and blocks
// until it finishes.
func runFlow(ctx context.Context, cmd *cobra.Command, mode authflow.Mode, deps *FlowDeps) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logging.SetDefault("morius-auth", version, cfg.Log.Format)

	slog.Info("starting account dialog",
		"mode", mode.String(),
		"service_url", cfg.Service.URL,
		"log_format", cfg.Log.Format,
	)

	if deps == nil {
		deps = &FlowDeps{}
	}
	if deps.ServiceFactory == nil {
		deps.ServiceFactory = func(cfg identity.Config, logger *slog.Logger) (authflow.Service, error) {
			return identity.NewHTTPClientWithLogger(cfg, logger)
		}
	}
	if deps.BridgeFactory == nil {
		deps.BridgeFactory = func(cfg provider.DeviceConfig, prompt provider.Prompt, logger *slog.Logger) (provider.Bridge, error) {
			return provider.NewDeviceBridgeWithLogger(cfg, prompt, logger)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	// Start observability server if configured
	var recorder authflow.Recorder
	if cfg.Metrics.Addr != "" {
		obsServer := deps.ObservabilityServerFactory(cfg.Metrics.Addr, func() bool { return true })
		obsErrChan, obsErr := obsServer.Start()
		if obsErr != nil {
			return fmt.Errorf("failed to start observability server: %w", obsErr)
		}
		// Monitor observability server errors in background
		go func() {
			if serveErr := <-obsErrChan; serveErr != nil {
				slog.Error("observability server error", "error", serveErr)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if stopErr := obsServer.Stop(shutdownCtx); stopErr != nil {
				slog.Warn("error stopping observability server", "error", stopErr)
			}
		}()
		recorder = obsServer.Metrics()
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	service, err := deps.ServiceFactory(identity.Config{
		BaseURL:   cfg.Service.URL,
		UserAgent: "morius-auth/" + version,
		Timeout:   cfg.Service.Timeout,
	}, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create account service client: %w", err)
	}

	in := deps.In
	if in == nil {
		in = cmd.InOrStdin()
	}
	out := deps.Out
	if out == nil {
		out = cmd.OutOrStdout()
	}

	d := newDialog(out, slog.Default())

	bridge, err := deps.BridgeFactory(provider.DeviceConfig{
		StartURL:      cfg.Provider.StartURL,
		CredentialURL: cfg.Provider.CredentialURL,
		ClientID:      cfg.Provider.ClientID,
	}, d.promptApproval, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create provider bridge: %w", err)
	}

	controller, err := authflow.NewWithLogger(authflow.Config{
		Service:                service,
		Hooks:                  d.hooks(),
		InitialMode:            mode,
		DefaultCooldownSeconds: cfg.Resend.CooldownSeconds,
		Recorder:               recorder,
	}, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create auth flow controller: %w", err)
	}
	d.bind(controller, bridge)

	// Handle signals
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := d.run(ctx, in); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	slog.Info("account dialog finished", "mode", mode.String())
	return nil
}
