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

//go:generate mockgen -destination=mock_eapi.go -package=eapi github.com/carverauto/sitecheck/pkg/eapi Session,Connector

import (
	"context"
	"encoding/json"
)

// CommandResult is the result of one enable-mode command.
type CommandResult struct {
	Command  string
	Result   json.RawMessage
	Encoding string
}

// Resource maps entity names (VLAN ids, interface names) to their attributes.
type Resource map[string]map[string]interface{}

// Session is an authenticated handle to one device.
type Session interface {
	Enable(ctx context.Context, cmds ...string) ([]CommandResult, error)
	Vlans(ctx context.Context) (Resource, error)
	Interfaces(ctx context.Context) (Resource, error)
	Close() error
}

// Connector opens sessions by device name.
type Connector interface {
	Connect(ctx context.Context, device string) (Session, error)
}
