// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	warderr "github.com/ward-dev/ward/pkg/errors"
)

// ---------------------------------------------------------------------------
// New / Errorf
// ---------------------------------------------------------------------------

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := warderr.New(
		warderr.CodeManifestValidateInvalid,
		"invalid plugin manifest",
		warderr.FieldPlugin("com.example.notes"),
		warderr.Field("field", "entry"),
	)

	require.Error(t, err)
	assert.Equal(t, warderr.CodeManifestValidateInvalid, warderr.CodeOf(err))
	assert.True(t, warderr.HasCode(err, warderr.CodeManifestValidateInvalid))

	fields := warderr.FieldsOf(err)
	assert.Equal(t, "com.example.notes", fields["plugin"])
	assert.Equal(t, "entry", fields["field"])
}

func TestNewWithNoFields(t *testing.T) {
	err := warderr.New(warderr.CodeStoreDatabaseFailure, "connection lost")
	require.Error(t, err)
	assert.Equal(t, warderr.CodeStoreDatabaseFailure, warderr.CodeOf(err))
	assert.Contains(t, err.Error(), "connection lost")
}

func TestErrorfFormatsMessage(t *testing.T) {
	err := warderr.Errorf(warderr.CodeMCPSpawnFailure, "spawning plugin %s: exit %d", "com.example.echo", 127)
	require.Error(t, err)
	assert.Equal(t, warderr.CodeMCPSpawnFailure, warderr.CodeOf(err))
	assert.Contains(t, err.Error(), "spawning plugin com.example.echo: exit 127")
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := warderr.Errorf(warderr.CodeStoreDatabaseFailure, "write failed: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, warderr.CodeStoreDatabaseFailure, warderr.CodeOf(err))
}

// ---------------------------------------------------------------------------
// Wrap / Wrapf
// ---------------------------------------------------------------------------

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("record missing")
	err := warderr.Wrap(
		root,
		warderr.CodeManifestNotFound,
		"loading manifest",
		warderr.FieldPath("/plugins/com.example.notes"),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.Equal(t, warderr.CodeManifestNotFound, warderr.CodeOf(err))
	assert.True(t, warderr.IsNotFound(err))
	assert.Equal(t, "/plugins/com.example.notes", warderr.FieldsOf(err)["path"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, warderr.Wrap(nil, warderr.CodeServerInternalFailure, "ignored"))
}

func TestWrapfNilReturnsNil(t *testing.T) {
	assert.NoError(t, warderr.Wrapf(nil, warderr.CodeServerInternalFailure, "ignored %s", "arg"))
}

func TestWrapfFormatsAndPreservesChain(t *testing.T) {
	root := stderrors.New("timeout")
	err := warderr.Wrapf(root, warderr.CodeMCPTimeout, "calling tool %s on %s", "search", "com.example.web")

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.Equal(t, warderr.CodeMCPTimeout, warderr.CodeOf(err))
	assert.Contains(t, err.Error(), "calling tool search on com.example.web")
}

func TestWrapWithFields(t *testing.T) {
	root := stderrors.New("denied")
	err := warderr.Wrap(root, warderr.CodeApprovalDenied, "consent check",
		warderr.FieldPlugin("com.example.shellout"),
		warderr.FieldTool("run_command"),
	)

	fields := warderr.FieldsOf(err)
	assert.Equal(t, "com.example.shellout", fields["plugin"])
	assert.Equal(t, "run_command", fields["tool"])
}

// ---------------------------------------------------------------------------
// With
// ---------------------------------------------------------------------------

func TestWithAddsContextWithoutChangingCode(t *testing.T) {
	base := warderr.New(warderr.CodeApprovalDenied, "plugin denied by user")
	withCtx := warderr.With(base, warderr.FieldPlugin("com.example.notes"))

	require.Error(t, withCtx)
	assert.Equal(t, warderr.CodeApprovalDenied, warderr.CodeOf(withCtx))
	assert.Equal(t, "com.example.notes", warderr.FieldsOf(withCtx)["plugin"])
}

func TestWithNilReturnsNil(t *testing.T) {
	assert.NoError(t, warderr.With(nil, warderr.FieldPlugin("x")))
}

func TestWithOnPlainErrorDefaultsToInternalCode(t *testing.T) {
	plain := stderrors.New("something broke")
	enriched := warderr.With(plain, warderr.FieldTool("copy_text"))

	require.Error(t, enriched)
	assert.Equal(t, warderr.CodeServerInternalFailure, warderr.CodeOf(enriched))
	assert.Equal(t, "copy_text", warderr.FieldsOf(enriched)["tool"])
}

// ---------------------------------------------------------------------------
// HasCode
// ---------------------------------------------------------------------------

func TestHasCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code warderr.Code
		want bool
	}{
		{
			name: "matching code",
			err:  warderr.New(warderr.CodeRegistryToolNotFound, "gone"),
			code: warderr.CodeRegistryToolNotFound,
			want: true,
		},
		{
			name: "non-matching code",
			err:  warderr.New(warderr.CodeRegistryToolNotFound, "gone"),
			code: warderr.CodeStoreDatabaseFailure,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			code: warderr.CodeRegistryToolNotFound,
			want: false,
		},
		{
			name: "plain stdlib error has no code",
			err:  stderrors.New("plain"),
			code: warderr.CodeServerInternalFailure,
			want: false,
		},
		{
			name: "wrapped coded error returns innermost code",
			err: warderr.Wrap(
				warderr.New(warderr.CodeStoreDatabaseFailure, "inner"),
				warderr.CodeServerInternalFailure, "outer",
			),
			code: warderr.CodeStoreDatabaseFailure,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, warderr.HasCode(tt.err, tt.code))
		})
	}
}

// ---------------------------------------------------------------------------
// CodeOf
// ---------------------------------------------------------------------------

func TestCodeOfNil(t *testing.T) {
	assert.Equal(t, warderr.Code(""), warderr.CodeOf(nil))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, warderr.Code(""), warderr.CodeOf(stderrors.New("plain")))
}

func TestCodeOfReturnsInnermostCodedError(t *testing.T) {
	inner := warderr.New(warderr.CodeStoreDatabaseFailure, "db")
	outer := warderr.Wrap(inner, warderr.CodeServerInternalFailure, "handler")
	// oops.AsOops walks to the deepest oops error, so CodeOf returns the innermost code.
	assert.Equal(t, warderr.CodeStoreDatabaseFailure, warderr.CodeOf(outer))
}

// ---------------------------------------------------------------------------
// FieldsOf
// ---------------------------------------------------------------------------

func TestFieldsOfNil(t *testing.T) {
	assert.Nil(t, warderr.FieldsOf(nil))
}

func TestFieldsOfPlainError(t *testing.T) {
	assert.Nil(t, warderr.FieldsOf(stderrors.New("plain")))
}

// ---------------------------------------------------------------------------
// FieldValue / Field / typed field helpers
// ---------------------------------------------------------------------------

func TestFieldValueCreatesAttr(t *testing.T) {
	attr := warderr.FieldValue("key", 42)
	assert.Equal(t, "key", attr.Key)
	assert.Equal(t, 42, attr.Value)
}

func TestFieldAliasMatchesFieldValue(t *testing.T) {
	a := warderr.FieldValue("k", "v")
	b := warderr.Field("k", "v")
	assert.Equal(t, a, b)
}

func TestTypedFieldHelpers(t *testing.T) {
	tests := []struct {
		name string
		attr warderr.Attr
		key  string
		val  string
	}{
		{"plugin", warderr.FieldPlugin("com.example.notes"), "plugin", "com.example.notes"},
		{"tool", warderr.FieldTool("search_web"), "tool", "search_web"},
		{"path", warderr.FieldPath("/tmp/ward"), "path", "/tmp/ward"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.attr.Key)
			assert.Equal(t, tt.val, tt.attr.Value)
		})
	}
}

func TestFieldsWithEmptyKeyAreIgnored(t *testing.T) {
	err := warderr.New(warderr.CodeStoreDatabaseFailure, "oops",
		warderr.Field("", "should-be-dropped"),
		warderr.FieldPlugin("kept"),
	)
	fields := warderr.FieldsOf(err)
	assert.Equal(t, "kept", fields["plugin"])
	assert.NotContains(t, fields, "")
}

// ---------------------------------------------------------------------------
// errors.Is / errors.As unwrapping
// ---------------------------------------------------------------------------

func TestErrorIsWithWrappedChain(t *testing.T) {
	sentinel := stderrors.New("root cause")
	mid := fmt.Errorf("mid: %w", sentinel)
	outer := warderr.Wrap(mid, warderr.CodeServerInternalFailure, "handler")

	assert.ErrorIs(t, outer, sentinel)
}

func TestErrorIsWithMultiWrap(t *testing.T) {
	sentinel := stderrors.New("original")
	first := warderr.Wrap(sentinel, warderr.CodeStoreDatabaseFailure, "layer 1")
	second := warderr.Wrap(first, warderr.CodeServerInternalFailure, "layer 2")

	assert.ErrorIs(t, second, sentinel)
	// CodeOf returns the innermost coded error (first wrap layer).
	assert.Equal(t, warderr.CodeStoreDatabaseFailure, warderr.CodeOf(second))
}

// ---------------------------------------------------------------------------
// Classification helpers
// ---------------------------------------------------------------------------

func TestClassificationAndStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		code   warderr.Code
		status int
		check  func(error) bool
	}{
		{name: "manifest not found", code: warderr.CodeManifestNotFound, status: 404, check: warderr.IsNotFound},
		{name: "tool not found", code: warderr.CodeRegistryToolNotFound, status: 404, check: warderr.IsNotFound},
		{name: "plugin not found", code: warderr.CodePluginNotFound, status: 404, check: warderr.IsNotFound},
		{name: "server entity not found", code: warderr.CodeServerEntityNotFound, status: 404, check: warderr.IsNotFound},
		{name: "secret not found", code: warderr.CodeSecretNotFound, status: 404, check: warderr.IsNotFound},
		{name: "manifest malformed", code: warderr.CodeManifestMalformed, status: 400, check: warderr.IsInvalidInput},
		{name: "manifest invalid", code: warderr.CodeManifestValidateInvalid, status: 400, check: warderr.IsInvalidInput},
		{name: "sandbox path invalid", code: warderr.CodeSandboxPathInvalid, status: 400, check: warderr.IsInvalidInput},
		{name: "config invalid value", code: warderr.CodeConfigValidateInvalidValue, status: 400, check: warderr.IsInvalidInput},
		{name: "store invalid input", code: warderr.CodeStoreInvalidInput, status: 400, check: warderr.IsInvalidInput},
		{name: "approval denied", code: warderr.CodeApprovalDenied, status: 403, check: warderr.IsDenied},
		{name: "request timeout", code: warderr.CodeMCPTimeout, status: 504, check: warderr.IsTimeout},
		{name: "server unavailable", code: warderr.CodeRegistryServerUnavailable, status: 502, check: warderr.IsUnavailable},
		{name: "process exited", code: warderr.CodeMCPProcessExited, status: 502, check: warderr.IsUnavailable},
		{name: "host not running", code: warderr.CodeCLIHostNotRunning, status: 502, check: warderr.IsUnavailable},
		{name: "internal", code: warderr.CodeServerInternalFailure, status: 500, check: func(err error) bool { return !warderr.IsNotFound(err) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := warderr.New(tt.code, "boom")
			assert.Equal(t, tt.status, warderr.HTTPStatus(err))
			assert.True(t, tt.check(err))
		})
	}
}

func TestClassificationNegativeCases(t *testing.T) {
	err := warderr.New(warderr.CodeStoreDatabaseFailure, "db error")
	assert.False(t, warderr.IsNotFound(err))
	assert.False(t, warderr.IsInvalidInput(err))
	assert.False(t, warderr.IsDenied(err))
	assert.False(t, warderr.IsTimeout(err))
	assert.False(t, warderr.IsUnavailable(err))
}

func TestClassificationOnNilError(t *testing.T) {
	assert.False(t, warderr.IsNotFound(nil))
	assert.False(t, warderr.IsInvalidInput(nil))
	assert.False(t, warderr.IsDenied(nil))
	assert.False(t, warderr.IsTimeout(nil))
	assert.False(t, warderr.IsUnavailable(nil))
}

func TestClassificationOnPlainError(t *testing.T) {
	err := stderrors.New("plain")
	assert.False(t, warderr.IsNotFound(err))
	assert.False(t, warderr.IsInvalidInput(err))
	assert.False(t, warderr.IsDenied(err))
	assert.False(t, warderr.IsTimeout(err))
	assert.False(t, warderr.IsUnavailable(err))
}

// ---------------------------------------------------------------------------
// HTTPStatus edge cases
// ---------------------------------------------------------------------------

func TestHTTPStatusNilReturnsInternalServerError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, warderr.HTTPStatus(nil))
}

func TestHTTPStatusPlainErrorReturnsInternalServerError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, warderr.HTTPStatus(stderrors.New("oops")))
}

// ---------------------------------------------------------------------------
// Join
// ---------------------------------------------------------------------------

func TestJoinCombinesErrors(t *testing.T) {
	a := stderrors.New("first")
	b := stderrors.New("second")
	joined := warderr.Join(a, b)

	require.Error(t, joined)
	assert.ErrorIs(t, joined, a)
	assert.ErrorIs(t, joined, b)
	assert.Equal(t, warderr.CodeServerInternalFailure, warderr.CodeOf(joined))
}

// ---------------------------------------------------------------------------
// Nested wrapping
// ---------------------------------------------------------------------------

func TestNestedWrapInnermostCodePersists(t *testing.T) {
	root := stderrors.New("io error")
	l1 := warderr.Wrap(root, warderr.CodeStoreDatabaseFailure, "store layer")
	l2 := warderr.Wrap(l1, warderr.CodeMCPCallFailure, "client layer")
	l3 := warderr.Wrap(l2, warderr.CodeServerInternalFailure, "server layer")

	// oops walks to the deepest coded error, so CodeOf returns the first code set.
	assert.Equal(t, warderr.CodeStoreDatabaseFailure, warderr.CodeOf(l3))
	assert.ErrorIs(t, l3, root)
}

// ---------------------------------------------------------------------------
// Error message content
// ---------------------------------------------------------------------------

func TestWrapMessageIncludesContext(t *testing.T) {
	root := stderrors.New("EOF")
	err := warderr.Wrap(root, warderr.CodeMCPProcessExited, "reading response")

	msg := err.Error()
	assert.Contains(t, msg, "reading response")
	assert.Contains(t, msg, "EOF")
}

func TestNewMessageContent(t *testing.T) {
	err := warderr.New(warderr.CodeMCPHandshakeFailure, "initialize returned no server info")
	assert.Contains(t, err.Error(), "initialize returned no server info")
}
