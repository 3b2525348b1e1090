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
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportWriterBlocks(t *testing.T) {
	var buf bytes.Buffer

	rw := NewReportWriter(&buf, "leaf1", nil)

	require.NoError(t, rw.WriteTimestamp(time.Date(2026, 10, 14, 8, 1, 2, 345678000, time.Local)))
	require.NoError(t, rw.WriteHeader("show ip arp"))

	assert.Equal(t, "--------------------------------------\n"+
		"2026-10-14 08:01:02.345678\n"+
		"--------------------------------------\n"+
		"leaf1\n"+
		"show ip arp\n"+
		"--------------------------------------\n", buf.String())
}

func TestReportWriterList(t *testing.T) {
	var buf bytes.Buffer

	lines, err := NewReportWriter(&buf, "leaf1", nil).WriteResult(QueryResult{
		Shape: ShapeList,
		List: []interface{}{
			map[string]interface{}{"mac": "aa:bb", "lastMove": json.Number("123"), "vlanId": json.Number("10")},
			map[string]interface{}{"mac": "cc:dd", "vlanId": json.Number("20")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{`{"mac": "aa:bb", "vlanId": 10}`, `{"mac": "cc:dd", "vlanId": 20}`}, lines)
	assert.Equal(t, "{\"mac\": \"aa:bb\", \"vlanId\": 10}\n{\"mac\": \"cc:dd\", \"vlanId\": 20}\n\n", buf.String())
}

func TestReportWriterMapping(t *testing.T) {
	var buf bytes.Buffer

	_, err := NewReportWriter(&buf, "leaf1", nil).WriteResult(QueryResult{
		Shape: ShapeMapping,
		Mapping: map[string]interface{}{
			"10.0.0.9": map[string]interface{}{"peerState": "Idle"},
			"10.0.0.1": map[string]interface{}{"peerState": "Established", "upDownTime": json.Number("1.5")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1 : {\"peerState\": \"Established\"}\n10.0.0.9 : {\"peerState\": \"Idle\"}\n", buf.String())
}

func TestReportWriterRejectsNonMapping(t *testing.T) {
	var buf bytes.Buffer

	rw := NewReportWriter(&buf, "leaf1", nil)

	_, err := rw.WriteResult(QueryResult{Shape: ShapeList, List: []interface{}{map[string]interface{}{}, "oops"}})
	require.ErrorIs(t, err, ErrMalformedRecord)

	_, err = rw.WriteResult(QueryResult{Shape: ShapeMapping, Mapping: map[string]interface{}{"Ethernet1": json.Number("1")}})
	require.ErrorIs(t, err, ErrMalformedRecord)

	assert.Empty(t, buf.String())
}

func TestReportWriterNestedFilter(t *testing.T) {
	var buf bytes.Buffer

	res := QueryResult{Shape: ShapeList, List: []interface{}{
		map[string]interface{}{"routerId": "1.1.1.1", "details": map[string]interface{}{"stateTime": json.Number("5")}},
	}}

	lines, err := NewReportWriter(&buf, "leaf1", NewKeyFilter(nil, true)).WriteResult(res)
	require.NoError(t, err)
	assert.Equal(t, []string{`{"details": {}, "routerId": "1.1.1.1"}`}, lines)
}
