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
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/carverauto/sitecheck/pkg/snapshot"

	metricDevicesProcessed = "sitecheck.devices.processed"
	metricQueryDuration    = "sitecheck.query.duration"
)

// Metrics records run instrumentation.
type Metrics struct {
	devices       metric.Int64Counter
	queryDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on meter, or on the global meter
// provider when meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	devices, err := meter.Int64Counter(
		metricDevicesProcessed,
		metric.WithDescription("Devices processed by outcome"),
	)
	if err != nil {
		return nil, err
	}

	hist, err := meter.Float64Histogram(
		metricQueryDuration,
		metric.WithDescription("Latency of a single report query"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{devices: devices, queryDuration: hist}, nil
}

// RecordDevice counts a processed device.
func (m *Metrics) RecordDevice(ctx context.Context, outcome string) {
	if m == nil {
		return
	}

	m.devices.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordQuery records how long query took.
func (m *Metrics) RecordQuery(ctx context.Context, query string, d time.Duration) {
	if m == nil {
		return
	}

	m.queryDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("query", query)))
}
