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

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/carverauto/sitecheck/pkg/eapi"
	"github.com/tidwall/gjson"
)

// Query is one named, read-only call against a session.
type Query struct {
	Label string
	Shape Shape
	Fetch func(ctx context.Context, s eapi.Session) (QueryResult, error)
}

// EnableQuery runs command in enable mode and extracts path from its result.
func EnableQuery(label, command, path string, shape Shape) Query {
	return Query{
		Label: label,
		Shape: shape,
		Fetch: func(ctx context.Context, s eapi.Session) (QueryResult, error) {
			results, err := s.Enable(ctx, command)
			if err != nil {
				return QueryResult{}, err
			}

			if len(results) == 0 {
				return QueryResult{}, fmt.Errorf("%w for '%s'", errNoResult, command)
			}

			return Extract(results[0].Result, path, shape)
		},
	}
}

// ResourceQuery returns a get-all resource as a mapping result.
func ResourceQuery(label string, getAll func(eapi.Session, context.Context) (eapi.Resource, error)) Query {
	return Query{
		Label: label,
		Shape: ShapeMapping,
		Fetch: func(ctx context.Context, s eapi.Session) (QueryResult, error) {
			resource, err := getAll(s, ctx)
			if err != nil {
				return QueryResult{}, err
			}

			mapping := make(map[string]interface{}, len(resource))
			for name, attrs := range resource {
				mapping[name] = map[string]interface{}(attrs)
			}

			return QueryResult{Shape: ShapeMapping, Mapping: mapping}, nil
		},
	}
}

// DefaultQueries returns the fixed report sections in report order.
func DefaultQueries() []Query {
	return []Query{
		EnableQuery("show inventory", "show inventory", "xcvrSlots", ShapeMapping),
		ResourceQuery("show vlan", eapi.Session.Vlans),
		EnableQuery("show mac address-table", "show mac address-table", "unicastTable.tableEntries", ShapeList),
		ResourceQuery("show interfaces status", eapi.Session.Interfaces),
		EnableQuery("show lldp neighbors", "show lldp neighbors", "lldpNeighbors", ShapeList),
		EnableQuery("show ip arp", "show ip arp", "ipV4Neighbors", ShapeList),
		EnableQuery("show ip bgp summary", "show ip bgp summary", "vrfs.default.peers", ShapeMapping),
		EnableQuery("show ip ospf neighbor", "show ip ospf neighbor", "vrfs.default.instList.1.ospfNeighborEntries", ShapeList),
		EnableQuery("show ip route", "show ip route", "vrfs.default.routes", ShapeMapping),
	}
}

// Extract pulls path out of a raw command result and decodes it with the
// expected shape. Numbers are kept as json.Number.
func Extract(raw json.RawMessage, path string, shape Shape) (QueryResult, error) {
	value := gjson.GetBytes(raw, path)
	if !value.Exists() {
		return QueryResult{}, fmt.Errorf("%w: %s", ErrMissingPath, path)
	}

	if (shape == ShapeList && !value.IsArray()) || (shape == ShapeMapping && !value.IsObject()) {
		return QueryResult{}, fmt.Errorf("%w: %s is %s, want %s", ErrUnexpectedShape, path, value.Type, shape)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(value.Raw)))
	dec.UseNumber()

	res := QueryResult{Shape: shape}

	var err error
	if shape == ShapeList {
		err = dec.Decode(&res.List)
	} else {
		err = dec.Decode(&res.Mapping)
	}

	if err != nil {
		return QueryResult{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return res, nil
}
