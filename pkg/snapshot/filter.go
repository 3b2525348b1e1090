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

// DefaultDenylist holds the volatile keys stripped from every report.
//
//nolint:gochecknoglobals // fixed key set shared by every filter
var DefaultDenylist = []string{
	"lastMove", "sflow", "flowcontrol_send",
	"flowcontrol_receive", "routeAction", "hardwareProgrammed",
	"kernelProgrammed", "directlyConnected", "ttl",
	"type", "entryType", "moves",
	"upDownTime", "msgSent", "inMsgQueue",
	"underMaintenance", "msgReceived", "outMsgQueue",
	"stateTime",
}

// KeyFilter removes denylisted keys from records.
type KeyFilter struct {
	deny   map[string]struct{}
	nested bool
}

// NewKeyFilter builds a filter over DefaultDenylist plus extra. With nested
// set, mappings below the top level are filtered too.
func NewKeyFilter(extra []string, nested bool) *KeyFilter {
	deny := make(map[string]struct{}, len(DefaultDenylist)+len(extra))

	for _, k := range DefaultDenylist {
		deny[k] = struct{}{}
	}

	for _, k := range extra {
		deny[k] = struct{}{}
	}

	return &KeyFilter{deny: deny, nested: nested}
}

// Denied reports whether key is stripped.
func (f *KeyFilter) Denied(key string) bool {
	_, ok := f.deny[key]
	return ok
}

// Filter returns a copy of record without denylisted keys. The input is never
// modified. Nested values are shared with the input unless nested filtering
// is enabled.
func (f *KeyFilter) Filter(record Record) Record {
	out := make(Record, len(record))

	for k, v := range record {
		if f.Denied(k) {
			continue
		}

		if f.nested {
			v = f.filterValue(v)
		}

		out[k] = v
	}

	return out
}

func (f *KeyFilter) filterValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return f.Filter(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = f.filterValue(item)
		}

		return out
	default:
		return v
	}
}
