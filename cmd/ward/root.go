// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ward-dev/ward/internal/config"
	"github.com/ward-dev/ward/internal/secrets"
	warderr "github.com/ward-dev/ward/pkg/errors"
)

// NewRootCmd creates the root ward command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ward",
		Short:         "Ward — plugin trust and execution host",
		Long:          "Ward runs third-party plugins behind explicit user consent, OS-level sandboxing, and a default-deny environment filter.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd)
		},
	}

	// Global flags — these map to viper keys via initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("plugins-dir", "", "path to plugins directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newInitCmd(),
		newServeCmd(),
		newStatusCmd(),
		newVersionCmd(),
		newPluginCmd(),
		newToolsCmd(),
		newCallCmd(),
		newApprovalsCmd(),
		newSecretCmd(),
		newDoctorCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return warderr.Errorf(warderr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// Auto-discover ward.yaml from standard locations.
		// Note: SetConfigType is intentionally omitted. When set, Viper
		// falls back to trying the bare config name without extension,
		// which collides with the ./ward binary in the project root.
		v.SetConfigName("ward")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/ward")
		v.AddConfigPath("/etc/ward")
		// No config file is fine — defaults and env vars still apply.
		// Parse or permission errors must surface.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return warderr.Errorf(warderr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			// No config found anywhere — bootstrap a default to ~/.config/ward/.
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return warderr.Errorf(warderr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}

	// Bind persistent flags to viper keys.
	if err := v.BindPFlag("plugins.dir", cmd.Root().PersistentFlags().Lookup("plugins-dir")); err != nil {
		return warderr.Errorf(warderr.CodeCLISetupFailure, "binding plugins-dir flag: %w", err)
	}
	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return warderr.Errorf(warderr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	// Config values may reference the OS keyring (keyring://service/key).
	secrets.ResolveViperSecrets(v, secretStoreFactory())

	return nil
}
