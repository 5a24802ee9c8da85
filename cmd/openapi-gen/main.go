// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ward-dev/ward/internal/server"
	warderr "github.com/ward-dev/ward/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec creates a server with all routes registered and extracts the
// OpenAPI spec that huma generates from the Go type annotations.
func generateSpec() ([]byte, error) {
	srv, err := server.New(server.Config{
		ListenAddr: "127.0.0.1:0",
	})
	if err != nil {
		return nil, warderr.Errorf(warderr.CodeCLISetupFailure, "creating server: %w", err)
	}

	// Use no-op service stubs so all routes are registered for schema
	// discovery. Handlers are never invoked during spec generation.
	srv.RegisterServices(server.NewServicesForTest(&stubPlugin{}, &stubApproval{}, &stubTool{}))

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

// No-op service stubs for spec generation. Methods are never called.

type stubPlugin struct{}

func (s *stubPlugin) List(context.Context) ([]server.PluginSummary, error)      { return nil, nil }
func (s *stubPlugin) Get(context.Context, string) (*server.PluginDetail, error) { return nil, nil }
func (s *stubPlugin) Reload(context.Context) error                              { return nil }

type stubApproval struct{}

func (s *stubApproval) Pending(context.Context) ([]server.PendingApproval, error) { return nil, nil }
func (s *stubApproval) Decide(context.Context, string, bool) error                { return nil }

type stubTool struct{}

func (s *stubTool) List(context.Context) ([]server.ToolSummary, error) { return nil, nil }
func (s *stubTool) Call(context.Context, string, map[string]any) (*server.ToolCallResult, error) {
	return nil, nil
}
