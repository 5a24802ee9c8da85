// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeManifestNotFound        Code = "plugin.manifest.not_found"
	CodeManifestMalformed       Code = "plugin.manifest.parse.malformed"
	CodeManifestValidateInvalid Code = "plugin.manifest.validate.invalid"

	CodeApprovalPersistFailure Code = "plugin.approval.persist.failure"
	CodeApprovalDenied         Code = "plugin.approval.denied"
	CodeApprovalNotPending     Code = "plugin.approval.not_pending"

	CodeSandboxPathInvalid      Code = "plugin.sandbox.path.invalid"
	CodeSandboxUnsupported      Code = "plugin.sandbox.unsupported"
	CodeSandboxSetupFailure     Code = "plugin.sandbox.setup.failure"
	CodeSandboxRuntimeNotFound  Code = "plugin.sandbox.runtime.not_found"
	CodeSandboxEntryNotRunnable Code = "plugin.sandbox.entry.not_runnable"

	CodeMCPSpawnFailure     Code = "plugin.mcp.spawn.failure"
	CodeMCPHandshakeFailure Code = "plugin.mcp.handshake.failure"
	CodeMCPTimeout          Code = "plugin.mcp.request.timeout"
	CodeMCPCallFailure      Code = "plugin.mcp.call.failure"
	CodeMCPProtocolInvalid  Code = "plugin.mcp.protocol.invalid"
	CodeMCPProcessExited    Code = "plugin.mcp.process.exited"

	CodeRegistryToolNotFound      Code = "plugin.registry.tool.not_found"
	CodeRegistryServerUnavailable Code = "plugin.registry.server.unavailable"

	CodeLoaderDiscoveryFailure Code = "plugin.loader.discovery.failure"
	CodeLoaderLoadFailure      Code = "plugin.loader.load.failure"

	CodeLifecycleTransitionInvalid Code = "plugin.lifecycle.transition.invalid"
	CodePluginNotFound             Code = "plugin.not_found"

	CodePluginConfigLoadFailure    Code = "plugin.config.load.failure"
	CodePluginConfigPersistFailure Code = "plugin.config.persist.failure"

	CodeSecretInvalidInput   Code = "secret.invalid_input"
	CodeSecretNotFound       Code = "secret.not_found"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretDeleteFailure  Code = "secret.delete.failure"
	CodeSecretListFailure    Code = "secret.list.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"

	CodeStoreDatabaseFailure    Code = "store.database.failure"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"
	CodeStoreInvalidInput       Code = "store.invalid_input"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerEntityNotFound  Code = "server.entity.not_found"
	CodeServerConfigInvalid   Code = "server.config.invalid"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"

	CodeCLISetupFailure   Code = "cli.setup.failure"
	CodeCLIInputInvalid   Code = "cli.input.invalid"
	CodeCLIRequestFailure Code = "cli.request.failure"
	CodeCLIHostNotRunning Code = "cli.host.not_running"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// FieldValue creates a structured error field.
func FieldValue(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// Field is kept as the primary helper for terse callsites.
func Field(key string, value any) Attr {
	return FieldValue(key, value)
}

func FieldPlugin(value string) Attr {
	return Field("plugin", value)
}

func FieldTool(value string) Attr {
	return Field("tool", value)
}

func FieldPath(value string) Attr {
	return Field("path", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format" || r == "malformed"
}

func IsDenied(err error) bool {
	return reason(CodeOf(err)) == "denied"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func IsUnavailable(err error) bool {
	r := reason(CodeOf(err))
	return r == "unavailable" || r == "not_running" || r == "exited"
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsDenied(err):
		return http.StatusForbidden
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	case IsUnavailable(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
