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
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrHTTPStatus is returned when the command endpoint answers with a non-200 status.
	ErrHTTPStatus = errors.New("unexpected eAPI http status")
	// ErrResultCount is returned when the number of results does not match the commands sent.
	ErrResultCount = errors.New("eAPI result count mismatch")
	// ErrProfileNotFound is returned when no connection profile exists for a device.
	ErrProfileNotFound = errors.New("connection profile not found")
	// ErrUnsupportedTransport is returned for transports other than http and https.
	ErrUnsupportedTransport = errors.New("unsupported eAPI transport")

	errEmptyCommandList = errors.New("no commands given")
	errInvalidProfile   = errors.New("invalid connection profile")
)

// CommandError is the JSON-RPC error object returned by the switch.
type CommandError struct {
	Code    int
	Message string
	Errors  []string
}

func (e *CommandError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("Error [%d]: %s", e.Code, e.Message)
	}

	return fmt.Sprintf("Error [%d]: %s [%s]", e.Code, e.Message, strings.Join(e.Errors, ", "))
}
