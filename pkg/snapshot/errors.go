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

package snapshot

import "errors"

var (
	// ErrDeviceFailed wraps the cause of a device processing failure.
	ErrDeviceFailed = errors.New("device processing failed")
	// ErrDeviceSkipped marks devices not processed because the run was cancelled.
	ErrDeviceSkipped = errors.New("device skipped")
	// ErrMissingPath is returned when a query result lacks its extraction path.
	ErrMissingPath = errors.New("missing path in response")
	// ErrUnexpectedShape is returned when an extracted value is not the expected list or mapping.
	ErrUnexpectedShape = errors.New("unexpected response shape")
	// ErrMalformedRecord is returned when a record to serialize is not a mapping.
	ErrMalformedRecord = errors.New("malformed record")

	errNoDevices        = errors.New("at least one device is required")
	errNoNodesFile      = errors.New("nodes_file is required")
	errNegativeTimeout  = errors.New("query_timeout must not be negative")
	errNegativeInterval = errors.New("metrics export_interval must not be negative")
	errNoResult         = errors.New("no command result")
	errNonFinite        = errors.New("non-finite number")
)
