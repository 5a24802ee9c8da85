// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ward-dev/ward/internal/config"
	"github.com/ward-dev/ward/internal/plugin/mcp"
	warderr "github.com/ward-dev/ward/pkg/errors"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the plugin host",
		Long:  "Load configuration, scan the plugins directory, start approved plugins in their sandboxes, and serve the control API until interrupted.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override control API listen address (host:port)")
	_ = viper.BindPFlag("server.listen_addr", cmd.Flags().Lookup("listen"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return warderr.Wrap(err, warderr.CodeCLISetupFailure, "loading config")
	}

	setupLogging(cfg)
	mcp.ClientVersion = version

	host, err := WireHost(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = host.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("ward host starting",
		"plugins_dir", cfg.Plugins.Dir,
		"listen", cfg.Server.ListenAddr,
		"allow_unconfined", cfg.Sandbox.AllowUnconfined)

	if err := host.Loader.LoadAll(ctx); err != nil {
		return err
	}
	if pending := host.Loader.Pending(); len(pending) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d plugin(s) awaiting approval; run 'ward approvals review'\n", len(pending))
	}

	if err := host.Server.Start(ctx); err != nil {
		return err
	}

	slog.Info("ward host stopped")
	return nil
}

// setupLogging configures the process-wide slog default from config.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if viper.GetBool("verbose") {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
