// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ward-dev/ward/internal/plugin/configstore"
	"github.com/ward-dev/ward/pkg/plugin"
)

// pluginConfigDir resolves the plugin-config directory. Package-level so
// tests can point it at a temp dir.
var pluginConfigDir = configstore.DefaultDir

func openPluginConfigStore() (*configstore.Store, error) {
	dir, err := pluginConfigDir()
	if err != nil {
		return nil, err
	}
	return configstore.New(dir, secretStoreFactory()), nil
}

// pluginManifest loads the plugin's manifest from the plugins directory.
// A missing or invalid manifest is not fatal here: values can still be
// managed, they are just all treated as plain.
func pluginManifest(pluginID string) *plugin.Manifest {
	m, err := plugin.Load(filepath.Join(resolvePluginsDir(), pluginID))
	if err != nil {
		return nil
	}
	return m
}

func newPluginConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage plugin configuration values",
		Long:  "Set, get, list, and unset the configuration values a plugin declares in its manifest. Secret-typed fields are stored in the OS keyring.",
	}

	cmd.AddCommand(
		newPluginConfigSetCmd(),
		newPluginConfigGetCmd(),
		newPluginConfigListCmd(),
		newPluginConfigUnsetCmd(),
	)

	return cmd
}

func newPluginConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <field> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openPluginConfigStore()
			if err != nil {
				return err
			}
			id, field, value := args[0], args[1], args[2]
			if err := store.Set(pluginManifest(id), id, field, value); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Set %s for %s\n", field, id)
			return err
		},
	}
}

func newPluginConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id> <field>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openPluginConfigStore()
			if err != nil {
				return err
			}
			value, ok, err := store.Get(args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s is not set\n", args[1])
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
			return err
		},
	}
}

func newPluginConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <id>",
		Short: "List configured values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openPluginConfigStore()
			if err != nil {
				return err
			}
			id := args[0]
			values, err := store.All(id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(values) == 0 {
				_, err := fmt.Fprintf(out, "No configuration set for %s\n", id)
				return err
			}

			m := pluginManifest(id)
			fields := make([]string, 0, len(values))
			for field := range values {
				fields = append(fields, field)
			}
			sort.Strings(fields)
			for _, field := range fields {
				if m != nil && m.Configuration[field].Type == "secret" {
					fmt.Fprintf(out, "%s = (secret, stored in keyring)\n", field)
					continue
				}
				fmt.Fprintf(out, "%s = %s\n", field, values[field])
			}
			return nil
		},
	}
}

func newPluginConfigUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <id> <field>",
		Short: "Remove a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openPluginConfigStore()
			if err != nil {
				return err
			}
			if err := store.Delete(args[0], args[1]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Unset %s for %s\n", args[1], args[0])
			return err
		},
	}
}
