// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	warderr "github.com/ward-dev/ward/pkg/errors"
)

// defaultHostAddr is where the control API listens unless overridden.
const defaultHostAddr = "127.0.0.1:18219"

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show host status",
		Long:  "Check the running host's status endpoint and display plugin, approval, and tool counts.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", defaultHostAddr, "host address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	host := newHostClient(addr)
	var body struct {
		Status  string `json:"status"`
		Plugins int    `json:"plugins"`
		Pending int    `json:"pending"`
		Tools   int    `json:"tools"`
	}
	if err := host.getJSON("/api/v1/status", &body); err != nil {
		if warderr.HasCode(err, warderr.CodeCLIHostNotRunning) {
			_, _ = fmt.Fprintf(out, "Host at %s is not running (run 'ward serve')\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Host at %s: %s\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "Host at %s: %s\n", addr, body.Status)
	_, _ = fmt.Fprintf(out, "  plugins: %d\n", body.Plugins)
	_, _ = fmt.Fprintf(out, "  pending approvals: %d\n", body.Pending)
	_, _ = fmt.Fprintf(out, "  tools: %d\n", body.Tools)
	return nil
}
