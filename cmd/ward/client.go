// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	warderr "github.com/ward-dev/ward/pkg/errors"
)

// defaultHTTPClient is the package-level HTTP client used by host
// commands. Overridden in tests via httptest.
var defaultHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// hostClient provides HTTP access to a running Ward host.
type hostClient struct {
	baseURL string
	http    *http.Client
}

// newHostClient creates a client targeting the given host:port address.
func newHostClient(addr string) *hostClient {
	return &hostClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

// getJSON performs a GET request and decodes the JSON response into dest.
func (c *hostClient) getJSON(path string, dest any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		if isDialError(err) {
			return warderr.New(warderr.CodeCLIHostNotRunning, "host is not running (connection refused)")
		}
		return warderr.Wrap(err, warderr.CodeCLIRequestFailure, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()
	return decodeResponse(resp, dest)
}

// postJSON performs a POST request with a JSON body and decodes the
// JSON response into dest. A nil body sends an empty JSON object.
func (c *hostClient) postJSON(path string, body, dest any) error {
	if body == nil {
		body = struct{}{}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return warderr.Wrap(err, warderr.CodeCLIInputInvalid, "encoding request body")
	}

	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		if isDialError(err) {
			return warderr.New(warderr.CodeCLIHostNotRunning, "host is not running (connection refused)")
		}
		return warderr.Wrap(err, warderr.CodeCLIRequestFailure, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()
	return decodeResponse(resp, dest)
}

func decodeResponse(resp *http.Response, dest any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return warderr.Errorf(warderr.CodeCLIRequestFailure, "host returned status %d: %s", resp.StatusCode, string(body))
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return warderr.Wrap(err, warderr.CodeCLIRequestFailure, "invalid response")
	}
	return nil
}

// isDialError returns true if err is a net dial error (connection refused, etc.).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
