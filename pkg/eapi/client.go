/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package eapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/carverauto/sitecheck/pkg/logger"
	"github.com/google/uuid"
)

const (
	encodingJSON = "json"
	encodingText = "text"

	runningConfigCommand = "show running-config all"
)

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      string    `json:"id"`
}

type rpcParams struct {
	Version int           `json:"version"`
	Cmds    []interface{} `json:"cmds"`
	Format  string        `json:"format"`
}

type rpcResponse struct {
	ID     string            `json:"id"`
	Result []json.RawMessage `json:"result"`
	Error  *rpcError         `json:"error"`
}

type rpcError struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    []json.RawMessage `json:"data"`
}

// Client talks to the command-api endpoint of one device.
type Client struct {
	profile *Profile
	client  *http.Client
	logger  logger.Logger

	mu            sync.Mutex
	runningConfig string
}

// NewClient builds a client for the profile. A nil httpClient gets a
// dedicated transport honoring the profile TLS and timeout settings.
func NewClient(profile *Profile, httpClient *http.Client, log logger.Logger) (*Client, error) {
	if profile == nil || profile.Host == "" {
		return nil, fmt.Errorf("%w: host is required", errInvalidProfile)
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: profile.InsecureSkipVerify, //nolint:gosec // switches ship self-signed certificates
		}

		httpClient = &http.Client{Transport: transport, Timeout: profile.Timeout}
	}

	return &Client{
		profile: profile,
		client:  httpClient,
		logger:  log,
	}, nil
}

// Enable runs cmds in enable mode and returns one result per command.
func (c *Client) Enable(ctx context.Context, cmds ...string) ([]CommandResult, error) {
	raw, err := c.runEnabled(ctx, cmds, encodingJSON)
	if err != nil {
		return nil, err
	}

	results := make([]CommandResult, len(cmds))
	for i, cmd := range cmds {
		results[i] = CommandResult{Command: cmd, Result: raw[i], Encoding: encodingJSON}
	}

	return results, nil
}

// RunText runs cmds in enable mode with text encoding and returns the
// command output strings.
func (c *Client) RunText(ctx context.Context, cmds ...string) ([]string, error) {
	raw, err := c.runEnabled(ctx, cmds, encodingText)
	if err != nil {
		return nil, err
	}

	outputs := make([]string, len(cmds))

	for i, r := range raw {
		var text struct {
			Output string `json:"output"`
		}

		if err := json.Unmarshal(r, &text); err != nil {
			return nil, fmt.Errorf("failed to decode text output of '%s': %w", cmds[i], err)
		}

		outputs[i] = text.Output
	}

	return outputs, nil
}

// RunningConfig returns "show running-config all", fetched once per client.
func (c *Client) RunningConfig(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runningConfig != "" {
		return c.runningConfig, nil
	}

	out, err := c.RunText(ctx, runningConfigCommand)
	if err != nil {
		return "", err
	}

	c.runningConfig = out[0]

	return c.runningConfig, nil
}

// Vlans returns every configured VLAN keyed by id.
func (c *Client) Vlans(ctx context.Context) (Resource, error) {
	config, err := c.RunningConfig(ctx)
	if err != nil {
		return nil, err
	}

	return ParseVlans(config), nil
}

// Interfaces returns every configured interface keyed by name.
func (c *Client) Interfaces(ctx context.Context) (Resource, error) {
	config, err := c.RunningConfig(ctx)
	if err != nil {
		return nil, err
	}

	return ParseInterfaces(config), nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()

	return nil
}

// runEnabled prepends the enable command and strips its result.
func (c *Client) runEnabled(ctx context.Context, cmds []string, format string) ([]json.RawMessage, error) {
	if len(cmds) == 0 {
		return nil, errEmptyCommandList
	}

	var enable interface{} = "enable"
	if c.profile.EnablePassword != "" {
		enable = map[string]string{"cmd": "enable", "input": c.profile.EnablePassword}
	}

	payload := make([]interface{}, 0, len(cmds)+1)
	payload = append(payload, enable)

	for _, cmd := range cmds {
		payload = append(payload, cmd)
	}

	results, err := c.execute(ctx, payload, format)
	if err != nil {
		return nil, err
	}

	if len(results) != len(payload) {
		return nil, fmt.Errorf("%w: sent %d, got %d", ErrResultCount, len(payload), len(results))
	}

	return results[1:], nil
}

func (c *Client) execute(ctx context.Context, cmds []interface{}, format string) ([]json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "runCmds",
		Params:  rpcParams{Version: 1, Cmds: cmds, Format: format},
		ID:      uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal eAPI request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.profile.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create eAPI request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.profile.Username, c.profile.Password)

	c.logger.Debug().
		Str("host", c.profile.Host).
		Int("commands", len(cmds)).
		Str("format", format).
		Msg("Sending eAPI request")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eAPI request to %s failed: %w", c.profile.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w %d from %s: %s", ErrHTTPStatus, resp.StatusCode, c.profile.Host, strings.TrimSpace(string(msg)))
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode eAPI response: %w", err)
	}

	if decoded.Error != nil {
		return nil, newCommandError(decoded.Error)
	}

	return decoded.Result, nil
}

// newCommandError collects the per-command "errors" arrays carried in data.
func newCommandError(e *rpcError) *CommandError {
	cmdErr := &CommandError{Code: e.Code, Message: e.Message}

	for _, item := range e.Data {
		var entry struct {
			Errors []string `json:"errors"`
		}

		if err := json.Unmarshal(item, &entry); err != nil {
			continue
		}

		cmdErr.Errors = append(cmdErr.Errors, entry.Errors...)
	}

	return cmdErr
}

// Dialer opens eAPI sessions from connection profiles.
type Dialer struct {
	Profiles   Profiles
	HTTPClient *http.Client
	Logger     logger.Logger
	// Stdin is used for password prompts; nil disables prompting.
	Stdin  *os.File
	Prompt io.Writer
}

// Connect resolves the device profile and returns a client for it. No
// request is sent until the first command.
func (d *Dialer) Connect(_ context.Context, device string) (Session, error) {
	profile, err := d.Profiles.Lookup(device)
	if err != nil {
		return nil, err
	}

	if d.Stdin != nil {
		prompt := d.Prompt
		if prompt == nil {
			prompt = os.Stderr
		}

		if err := PromptPassword(profile, d.Stdin, prompt); err != nil {
			return nil, err
		}
	}

	return NewClient(profile, d.HTTPClient, d.Logger)
}
