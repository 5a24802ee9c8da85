// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ward-dev/ward/internal/server"
)

func newPluginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Manage plugins",
		Long:  "List, inspect, and reload plugins on a running host.",
	}

	cmd.PersistentFlags().String("address", defaultHostAddr, "host address")

	cmd.AddCommand(
		newPluginListCmd(),
		newPluginInspectCmd(),
		newPluginReloadCmd(),
		newPluginConfigCmd(),
	)

	return cmd
}

func hostAddr(cmd *cobra.Command) string {
	addr, _ := cmd.Flags().GetString("address")
	if addr == "" {
		addr = defaultHostAddr
	}
	return addr
}

func newPluginListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed plugins",
		RunE: func(cmd *cobra.Command, _ []string) error {
			host := newHostClient(hostAddr(cmd))
			var body struct {
				Plugins []server.PluginSummary `json:"plugins"`
			}
			if err := host.getJSON("/api/v1/plugins", &body); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(body.Plugins) == 0 {
				_, err := fmt.Fprintln(out, "No plugins installed")
				return err
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tVERSION\tSTATE\tRISK")
			for _, p := range body.Plugins {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Version, p.State, p.Risk)
			}
			return w.Flush()
		},
	}
}

func newPluginInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <id>",
		Short: "Show plugin details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host := newHostClient(hostAddr(cmd))
			var p server.PluginDetail
			if err := host.getJSON("/api/v1/plugins/"+args[0], &p); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", p.Name, p.ID)
			fmt.Fprintf(out, "  version: %s\n", p.Version)
			if p.Description != "" {
				fmt.Fprintf(out, "  description: %s\n", p.Description)
			}
			fmt.Fprintf(out, "  runtime: %s\n", p.Runtime)
			fmt.Fprintf(out, "  state: %s\n", p.State)
			fmt.Fprintf(out, "  risk: %s\n", p.Risk)
			fmt.Fprintln(out, "  permissions:")
			for _, line := range p.Permissions {
				fmt.Fprintf(out, "    - %s\n", line)
			}
			if len(p.Tools) > 0 {
				fmt.Fprintln(out, "  tools:")
				for _, tool := range p.Tools {
					fmt.Fprintf(out, "    - %s\n", tool)
				}
			}
			if p.Error != "" {
				fmt.Fprintf(out, "  error: %s\n", p.Error)
			}
			return nil
		},
	}
}

func newPluginReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Rescan the plugins directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			host := newHostClient(hostAddr(cmd))
			var body struct {
				Status string `json:"status"`
			}
			if err := host.postJSON("/api/v1/plugins/reload", nil, &body); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Plugins %s\n", body.Status)
			return err
		},
	}
}
