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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/carverauto/sitecheck/pkg/eapi"
	"github.com/carverauto/sitecheck/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/mock/gomock"
)

const sep = "--------------------------------------\n"

var errSinkDown = errors.New("sink down")

func fixedClock() time.Time {
	return time.Date(2026, 10, 14, 9, 30, 0, 123456000, time.Local)
}

func header(device, label string) string {
	return sep + device + "\n" + label + "\n" + sep
}

func expectHealthySession(s *eapi.MockSession) {
	s.EXPECT().Enable(gomock.Any(), "show inventory").
		Return(results(`{"xcvrSlots":{"1":{"mfgName":"Arista","modelName":"SFP-10G-SR","type":"sfp"}}}`), nil)
	s.EXPECT().Vlans(gomock.Any()).
		Return(eapi.Resource{"1": {"vlan_id": "1", "name": "default", "state": "active", "trunk_groups": []interface{}{}}}, nil)
	s.EXPECT().Enable(gomock.Any(), "show mac address-table").
		Return(results(`{"unicastTable":{"tableEntries":[{"mac":"aa:bb","lastMove":123}]}}`), nil)
	s.EXPECT().Interfaces(gomock.Any()).
		Return(eapi.Resource{"Ethernet1": {
			"name": "Ethernet1", "type": "ethernet", "shutdown": false, "description": nil,
			"sflow": true, "flowcontrol_send": "off", "flowcontrol_receive": "off",
		}}, nil)
	s.EXPECT().Enable(gomock.Any(), "show lldp neighbors").
		Return(results(`{"lldpNeighbors":[{"port":"Ethernet1","neighborDevice":"spine1","ttl":120}]}`), nil)
	s.EXPECT().Enable(gomock.Any(), "show ip arp").
		Return(results(`{"ipV4Neighbors":[]}`), nil)
	s.EXPECT().Enable(gomock.Any(), "show ip bgp summary").
		Return(results(`{"vrfs":{"default":{"peers":{"10.0.0.1":{"peerState":"Established","upDownTime":1.5}}}}}`), nil)
	s.EXPECT().Enable(gomock.Any(), "show ip ospf neighbor").
		Return(results(`{"vrfs":{"default":{"instList":{"1":{"ospfNeighborEntries":[{"routerId":"1.1.1.1","details":{"stateTime":5}}]}}}}}`), nil)
	s.EXPECT().Enable(gomock.Any(), "show ip route").
		Return(results(`{"vrfs":{"default":{"routes":{"10.0.0.0/24":{"routeType":"connected","hardwareProgrammed":true}}}}}`), nil)
	s.EXPECT().Close().Return(nil)
}

func healthyReport(device string) string {
	return sep + "2026-10-14 09:30:00.123456\n" +
		header(device, "show inventory") +
		`1 : {"mfgName": "Arista", "modelName": "SFP-10G-SR"}` + "\n" +
		header(device, "show vlan") +
		`1 : {"name": "default", "state": "active", "trunk_groups": [], "vlan_id": "1"}` + "\n" +
		header(device, "show mac address-table") +
		`{"mac": "aa:bb"}` + "\n\n" +
		header(device, "show interfaces status") +
		`Ethernet1 : {"description": null, "name": "Ethernet1", "shutdown": false}` + "\n" +
		header(device, "show lldp neighbors") +
		`{"neighborDevice": "spine1", "port": "Ethernet1"}` + "\n\n" +
		header(device, "show ip arp") +
		"\n" +
		header(device, "show ip bgp summary") +
		`10.0.0.1 : {"peerState": "Established"}` + "\n" +
		header(device, "show ip ospf neighbor") +
		`{"details": {"stateTime": 5}, "routerId": "1.1.1.1"}` + "\n\n" +
		header(device, "show ip route") +
		`10.0.0.0/24 : {"routeType": "connected"}` + "\n"
}

type recordingSink struct {
	snaps []*Snapshot
	err   error
}

func (s *recordingSink) Archive(_ context.Context, snap *Snapshot) error {
	s.snaps = append(s.snaps, snap)

	return s.err
}

func newTestRunner(t *testing.T, connector eapi.Connector, console *bytes.Buffer, opts ...RunnerOption) (*Runner, string) {
	t.Helper()

	dir := t.TempDir()
	cfg := &Config{Devices: []string{"switch-name"}, NodesFile: "nodes.conf", OutputDir: dir}
	require.NoError(t, cfg.Validate())

	opts = append([]RunnerOption{WithConsole(console), WithClock(fixedClock)}, opts...)

	return NewRunner(cfg, connector, logger.NewTestLogger(), opts...), dir
}

func readReport(t *testing.T, dir, device string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, FormatFilename(device, fixedClock())))
	require.NoError(t, err)

	return string(data)
}

func TestRunnerWritesFullReport(t *testing.T) {
	ctrl := gomock.NewController(t)
	connector := eapi.NewMockConnector(ctrl)
	session := eapi.NewMockSession(ctrl)

	connector.EXPECT().Connect(gomock.Any(), "switch-name").Return(session, nil)
	expectHealthySession(session)

	var console bytes.Buffer

	sink := &recordingSink{}
	runner, dir := newTestRunner(t, connector, &console, WithSink(sink))

	res := runner.Run(context.Background(), []string{"switch-name"})
	require.Len(t, res, 1)
	require.NoError(t, res[0].Err)
	assert.Equal(t, 9, res[0].Sections)
	assert.Equal(t, OutcomeSuccess, res[0].Outcome())
	assert.Equal(t, filepath.Join(dir, "2026-10-14_switch-name_09_30.txt"), res[0].Path)

	report := readReport(t, dir, "switch-name")
	assert.Equal(t, healthyReport("switch-name"), report)
	assert.NotContains(t, report, "lastMove")
	assert.Empty(t, console.String())

	require.Len(t, sink.snaps, 1)
	snap := sink.snaps[0]
	assert.Equal(t, "switch-name", snap.Device)
	assert.Empty(t, snap.Error)
	assert.Equal(t, Section{Label: "show mac address-table", Lines: []string{`{"mac": "aa:bb"}`}}, snap.Sections[2])
}

func TestRunnerFirstQueryFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	connector := eapi.NewMockConnector(ctrl)
	session := eapi.NewMockSession(ctrl)

	connector.EXPECT().Connect(gomock.Any(), "switch-name").Return(session, nil)
	session.EXPECT().Enable(gomock.Any(), "show inventory").
		Return(nil, &eapi.CommandError{Code: 1002, Message: "invalid command"})
	session.EXPECT().Close().Return(nil)

	var console bytes.Buffer

	runner, dir := newTestRunner(t, connector, &console)

	res := runner.Run(context.Background(), []string{"switch-name"})
	require.Len(t, res, 1)
	require.ErrorIs(t, res[0].Err, ErrDeviceFailed)
	assert.Equal(t, 0, res[0].Sections)

	var cmdErr *eapi.CommandError
	assert.ErrorAs(t, res[0].Err, &cmdErr)

	want := sep + "2026-10-14 09:30:00.123456\n" +
		header("switch-name", "show inventory") +
		"Error [1002]: invalid command\n"
	assert.Equal(t, want, readReport(t, dir, "switch-name"))
	assert.Equal(t, "Error [1002]: invalid command\n", console.String())
}

func TestRunnerContinuesAfterFailedDevice(t *testing.T) {
	ctrl := gomock.NewController(t)
	connector := eapi.NewMockConnector(ctrl)
	session := eapi.NewMockSession(ctrl)

	connector.EXPECT().Connect(gomock.Any(), "leaf1").Return(nil, eapi.ErrProfileNotFound)
	connector.EXPECT().Connect(gomock.Any(), "leaf2").Return(session, nil)
	expectHealthySession(session)

	var console bytes.Buffer

	runner, dir := newTestRunner(t, connector, &console)

	res := runner.Run(context.Background(), []string{"leaf1", "leaf2"})
	require.Len(t, res, 2)

	assert.ErrorIs(t, res[0].Err, eapi.ErrProfileNotFound)
	assert.Equal(t, OutcomeFailure, res[0].Outcome())
	assert.NoError(t, res[1].Err)

	assert.Equal(t, eapi.ErrProfileNotFound.Error()+"\n", readReport(t, dir, "leaf1"))
	assert.Equal(t, healthyReport("leaf2"), readReport(t, dir, "leaf2"))
	assert.NotContains(t, readReport(t, dir, "leaf2"), "leaf1")
}

func TestRunnerAppendsToExistingReport(t *testing.T) {
	ctrl := gomock.NewController(t)
	connector := eapi.NewMockConnector(ctrl)

	connector.EXPECT().Connect(gomock.Any(), "switch-name").Return(nil, eapi.ErrProfileNotFound).Times(2)

	var console bytes.Buffer

	runner, dir := newTestRunner(t, connector, &console)

	runner.Run(context.Background(), []string{"switch-name"})
	runner.Run(context.Background(), []string{"switch-name"})

	assert.Equal(t, strings.Repeat(eapi.ErrProfileNotFound.Error()+"\n", 2), readReport(t, dir, "switch-name"))
}

func TestRunnerArchiveFailureKeepsReport(t *testing.T) {
	ctrl := gomock.NewController(t)
	connector := eapi.NewMockConnector(ctrl)
	session := eapi.NewMockSession(ctrl)

	connector.EXPECT().Connect(gomock.Any(), "switch-name").Return(session, nil)
	expectHealthySession(session)

	var console bytes.Buffer

	runner, dir := newTestRunner(t, connector, &console, WithSink(&recordingSink{err: errSinkDown}))

	res := runner.Run(context.Background(), []string{"switch-name"})
	require.Len(t, res, 1)
	assert.NoError(t, res[0].Err)
	assert.ErrorIs(t, res[0].ArchiveErr, errSinkDown)
	assert.Equal(t, healthyReport("switch-name"), readReport(t, dir, "switch-name"))
}

func TestRunnerSkipsAfterCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	connector := eapi.NewMockConnector(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var console bytes.Buffer

	runner, dir := newTestRunner(t, connector, &console)

	res := runner.Run(ctx, []string{"leaf1", "leaf2"})
	require.Len(t, res, 2)

	for _, r := range res {
		assert.ErrorIs(t, r.Err, ErrDeviceSkipped)
		assert.ErrorIs(t, r.Err, context.Canceled)
		assert.Equal(t, OutcomeSkipped, r.Outcome())
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunnerRecordsMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	connector := eapi.NewMockConnector(ctrl)
	session := eapi.NewMockSession(ctrl)

	connector.EXPECT().Connect(gomock.Any(), "leaf1").Return(nil, eapi.ErrProfileNotFound)
	connector.EXPECT().Connect(gomock.Any(), "leaf2").Return(session, nil)
	expectHealthySession(session)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	var console bytes.Buffer

	runner, _ := newTestRunner(t, connector, &console, WithMetrics(metrics))
	runner.Run(context.Background(), []string{"leaf1", "leaf2"})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	outcomes := map[string]int64{}
	queries := map[string]uint64{}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				assert.Equal(t, metricDevicesProcessed, m.Name)

				for _, dp := range data.DataPoints {
					v, _ := dp.Attributes.Value(attribute.Key("outcome"))
					outcomes[v.AsString()] += dp.Value
				}
			case metricdata.Histogram[float64]:
				assert.Equal(t, metricQueryDuration, m.Name)

				for _, dp := range data.DataPoints {
					v, _ := dp.Attributes.Value(attribute.Key("query"))
					queries[v.AsString()] += dp.Count
				}
			}
		}
	}

	assert.Equal(t, map[string]int64{OutcomeSuccess: 1, OutcomeFailure: 1}, outcomes)
	assert.Len(t, queries, 9)
	assert.Equal(t, uint64(1), queries["show ip route"])
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{Devices: []string{"leaf1"}, NodesFile: "nodes.conf"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, 30*time.Second, time.Duration(cfg.QueryTimeout))

	assert.ErrorIs(t, (&Config{NodesFile: "nodes.conf"}).Validate(), errNoDevices)

	neg := &Config{Devices: []string{"leaf1"}, NodesFile: "nodes.conf", QueryTimeout: -1}
	assert.ErrorIs(t, neg.Validate(), errNegativeTimeout)
}
