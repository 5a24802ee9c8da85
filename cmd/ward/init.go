// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ward-dev/ward/internal/config"
	warderr "github.com/ward-dev/ward/pkg/errors"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the ward config directory and a starter config",
		Long:  "Write a starter ward.yaml to the user config directory and create the plugins directory.",
		RunE:  runInit,
	}

	cmd.Flags().Bool("force", false, "overwrite an existing config file")

	return cmd
}

// initConfigYAML mirrors config.Config with yaml tags so the starter
// file round-trips through the same shape viper reads back.
type initConfigYAML struct {
	Plugins struct {
		Dir string `yaml:"dir"`
	} `yaml:"plugins"`
	Sandbox struct {
		AllowUnconfined bool `yaml:"allow_unconfined"`
	} `yaml:"sandbox"`
	MCP struct {
		RequestTimeout string `yaml:"request_timeout"`
		ShutdownGrace  string `yaml:"shutdown_grace"`
	} `yaml:"mcp"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`
	Storage struct {
		Backend string `yaml:"backend"`
	} `yaml:"storage"`
}

func runInit(cmd *cobra.Command, _ []string) error {
	force, _ := cmd.Flags().GetBool("force")
	out := cmd.OutOrStdout()

	dir, err := config.DefaultDir()
	if err != nil {
		return warderr.Wrap(err, warderr.CodeCLISetupFailure, "resolving config directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return warderr.Wrap(err, warderr.CodeCLISetupFailure, "creating config directory")
	}

	pluginsDir := filepath.Join(dir, "plugins")
	if err := os.MkdirAll(pluginsDir, 0o700); err != nil {
		return warderr.Wrap(err, warderr.CodeCLISetupFailure, "creating plugins directory")
	}

	cfgPath := filepath.Join(dir, "ward.yaml")
	if _, err := os.Stat(cfgPath); err == nil && !force {
		_, _ = fmt.Fprintf(out, "Config already exists at %s (use --force to overwrite)\n", cfgPath)
		_, _ = fmt.Fprintf(out, "Plugins directory: %s\n", pluginsDir)
		return nil
	}

	var c initConfigYAML
	c.Plugins.Dir = pluginsDir
	c.Sandbox.AllowUnconfined = false
	c.MCP.RequestTimeout = "15s"
	c.MCP.ShutdownGrace = "3s"
	c.Logging.Level = "info"
	c.Logging.Format = "text"
	c.Server.ListenAddr = defaultHostAddr
	c.Storage.Backend = "sqlite"

	raw, err := yaml.Marshal(&c)
	if err != nil {
		return warderr.Wrap(err, warderr.CodeCLISetupFailure, "encoding config")
	}
	header := []byte("# Ward configuration - generated by ward init\n")
	if err := os.WriteFile(cfgPath, append(header, raw...), 0o600); err != nil {
		return warderr.Wrap(err, warderr.CodeCLISetupFailure, "writing config file")
	}

	_, _ = fmt.Fprintf(out, "Wrote config to %s\n", cfgPath)
	_, _ = fmt.Fprintf(out, "Plugins directory: %s\n", pluginsDir)
	_, _ = fmt.Fprintln(out, "Drop plugin directories there and run 'ward serve'.")
	return nil
}
