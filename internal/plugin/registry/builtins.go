// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package registry

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/atotto/clipboard"

	"github.com/ward-dev/ward/internal/plugin/mcp"
)

// clipboardWrite is a seam for tests; the default writes the system clipboard.
var clipboardWrite = clipboard.WriteAll

// RegisterBuiltins records the built-in action set under the "builtin"
// plugin id. These never go through a plugin process: copy_text and
// search_web run entirely in-process, while the model-backed actions
// (explain, translate, fix suggestions, CSV extraction, command
// generation) return a delegation marker until the embedding application
// replaces their handlers via RegisterBuiltin with its own backend.
func RegisterBuiltins(r *Registry) {
	builtins := []struct {
		tool    RegisteredTool
		handler BuiltinHandler
	}{
		{
			tool: RegisteredTool{
				PluginID:    BuiltinPluginID,
				Name:        "copy_text",
				DisplayName: "Copy Text",
				Description: "Copy the extracted text to the clipboard",
			},
			handler: handleCopyText,
		},
		{
			tool: RegisteredTool{
				PluginID:    BuiltinPluginID,
				Name:        "search_web",
				DisplayName: "Search Web",
				Description: "Search the web for the extracted text",
			},
			handler: handleSearchWeb,
		},
		{
			tool: RegisteredTool{
				PluginID:    BuiltinPluginID,
				Name:        "explain_error",
				DisplayName: "Explain Error",
				Description: "Explain what this error means and why it occurred",
			},
			handler: delegatedHandler("explain_error"),
		},
		{
			tool: RegisteredTool{
				PluginID:    BuiltinPluginID,
				Name:        "suggest_fix",
				DisplayName: "Suggest Fix",
				Description: "Analyze the error and suggest a fix (code or command)",
			},
			handler: delegatedHandler("suggest_fix"),
		},
		{
			tool: RegisteredTool{
				PluginID:    BuiltinPluginID,
				Name:        "export_csv",
				DisplayName: "Export CSV",
				Description: "Extract tabular data and export as CSV file",
			},
			handler: delegatedHandler("export_csv"),
		},
		{
			tool: RegisteredTool{
				PluginID:    BuiltinPluginID,
				Name:        "explain",
				DisplayName: "Explain This",
				Description: "Explain this content clearly and concisely",
			},
			handler: delegatedHandler("explain"),
		},
		{
			tool: RegisteredTool{
				PluginID:    BuiltinPluginID,
				Name:        "translate_text",
				DisplayName: "Translate",
				Description: "Translate the text to English (or another target language)",
			},
			handler: delegatedHandler("translate_text"),
		},
		{
			tool: RegisteredTool{
				PluginID:    BuiltinPluginID,
				Name:        "run_command",
				DisplayName: "Run Command",
				Description: "Execute a user request as a host shell command (change settings, open apps, manage files, install software, etc.)",
			},
			handler: delegatedHandler("run_command"),
		},
	}

	for _, b := range builtins {
		r.RegisterBuiltin(b.tool, b.handler)
	}

	slog.Info("built-in tools registered", "count", len(builtins))
}

// textArgument pulls the conventional "text" payload out of tool arguments.
func textArgument(arguments map[string]any) string {
	if s, ok := arguments["text"].(string); ok {
		return s
	}
	return ""
}

func textResult(text string) mcp.ToolResult {
	return mcp.ToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: text}}}
}

func errorResult(text string) mcp.ToolResult {
	return mcp.ToolResult{
		Content: []mcp.ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

// handleCopyText places the text payload on the system clipboard and
// echoes it back. A headless host without a clipboard reports a tool-level
// error rather than failing dispatch.
func handleCopyText(_ context.Context, arguments map[string]any) (mcp.ToolResult, error) {
	text := textArgument(arguments)
	if err := clipboardWrite(text); err != nil {
		return errorResult("clipboard unavailable: " + err.Error()), nil
	}
	return textResult(text), nil
}

// handleSearchWeb builds a web search URL for the text payload. Opening
// it is the caller's job.
func handleSearchWeb(_ context.Context, arguments map[string]any) (mcp.ToolResult, error) {
	query := url.QueryEscape(textArgument(arguments))
	return textResult("https://www.google.com/search?q=" + query), nil
}

// delegatedHandler marks a built-in whose real implementation lives in
// the embedding application (it needs a model backend or user
// confirmation this process does not have). The result is a tool-level
// error so dispatch itself still succeeds.
func delegatedHandler(name string) BuiltinHandler {
	return func(_ context.Context, _ map[string]any) (mcp.ToolResult, error) {
		return errorResult(name + " is dispatched by the embedding application; no in-process backend is wired"), nil
	}
}
