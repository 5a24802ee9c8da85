// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ward-dev/ward/internal/server"
	warderr "github.com/ward-dev/ward/pkg/errors"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List registered tools",
		RunE:  runTools,
	}

	cmd.Flags().String("address", defaultHostAddr, "host address")

	return cmd
}

func runTools(cmd *cobra.Command, _ []string) error {
	host := newHostClient(hostAddr(cmd))
	var body struct {
		Tools []server.ToolSummary `json:"tools"`
	}
	if err := host.getJSON("/api/v1/tools", &body); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(body.Tools) == 0 {
		_, err := fmt.Fprintln(out, "No tools registered")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPLUGIN\tDESCRIPTION")
	for _, t := range body.Tools {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, t.PluginID, t.Description)
	}
	return w.Flush()
}

func newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <tool> [json-arguments]",
		Short: "Invoke a tool",
		Long:  "Invoke a registered tool by bare or qualified name, passing arguments as a JSON object.",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runCall,
	}

	cmd.Flags().String("address", defaultHostAddr, "host address")

	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	arguments := map[string]any{}
	if len(args) == 2 {
		if err := json.Unmarshal([]byte(args[1]), &arguments); err != nil {
			return warderr.Wrap(err, warderr.CodeCLIInputInvalid, "arguments must be a JSON object")
		}
	}

	host := newHostClient(hostAddr(cmd))
	req := struct {
		Arguments map[string]any `json:"arguments"`
	}{Arguments: arguments}

	var res server.ToolCallResult
	if err := host.postJSON("/api/v1/tools/"+args[0]+"/call", req, &res); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.IsError {
		fmt.Fprintln(out, "Tool reported an error:")
	}
	_, err := fmt.Fprintln(out, res.Text)
	return err
}
