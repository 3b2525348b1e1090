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

package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	log "go.opentelemetry.io/otel/log"
)

func TestOTelConfig(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_TIMEOUT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_HEADERS", "Authorization=Bearer abc, X-Team = netops")

	config := DefaultOTelConfig()

	if config.ServiceName == "" {
		t.Error("ServiceName should have a default value")
	}

	if config.BatchTimeout != Duration(5*time.Second) {
		t.Errorf("Expected default BatchTimeout to be 5s, got %v", config.BatchTimeout)
	}

	if config.Headers["X-Team"] != "netops" {
		t.Errorf("Expected X-Team header netops, got %q", config.Headers["X-Team"])
	}
}

func TestOTelWriter_Disabled(t *testing.T) {
	writer, err := NewOTelWriter(context.Background(), OTelConfig{Enabled: false})
	if !errors.Is(err, ErrOTelLoggingDisabled) {
		t.Errorf("Expected ErrOTelLoggingDisabled, got %v", err)
	}

	if writer != nil {
		t.Error("Writer should be nil when OTel is disabled")
	}
}

func TestOTelWriter_NoEndpoint(t *testing.T) {
	writer, err := NewOTelWriter(context.Background(), OTelConfig{Enabled: true})
	if !errors.Is(err, ErrOTelEndpointRequired) {
		t.Errorf("Expected ErrOTelEndpointRequired, got %v", err)
	}

	if writer != nil {
		t.Error("Writer should be nil when endpoint is empty")
	}
}

func TestInitializeMetricsDisabled(t *testing.T) {
	_, err := InitializeMetrics(context.Background(), MetricsConfig{})
	if !errors.Is(err, ErrOTelMetricsDisabled) {
		t.Errorf("Expected ErrOTelMetricsDisabled, got %v", err)
	}
}

func TestBuildRecord(t *testing.T) {
	entry := map[string]interface{}{
		"time":    "2025-03-01T10:00:00Z",
		"level":   "warn",
		"message": "device failed",
		"device":  "leaf1",
	}

	record := buildRecord(entry)

	if record.Severity() != log.SeverityWarn {
		t.Errorf("Expected warn severity, got %v", record.Severity())
	}

	if record.Body().AsString() != "device failed" {
		t.Errorf("Unexpected body %q", record.Body().AsString())
	}

	if record.Timestamp().IsZero() {
		t.Error("Expected timestamp to be parsed")
	}

	if len(entry) != 1 || entry["device"] != "leaf1" {
		t.Errorf("Expected only custom fields to remain, got %v", entry)
	}
}

func TestFormatAttributeValue(t *testing.T) {
	if got := formatAttributeValue(nil); got != "null" {
		t.Errorf("nil formatted as %q", got)
	}

	if got := formatAttributeValue(true); got != "true" {
		t.Errorf("bool formatted as %q", got)
	}

	if got := formatAttributeValue(map[string]interface{}{"a": 1}); got != `{"a":1}` {
		t.Errorf("map formatted as %q", got)
	}

	long := strings.Repeat("x", maxAttributeValueLength+10)
	if got := formatAttributeValue(long); len(got) != maxAttributeValueLength || !strings.HasSuffix(got, "...") {
		t.Errorf("long string not truncated, len=%d", len(got))
	}
}

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer

	mw := NewMultiWriter(&a, &b)

	n, err := mw.Write([]byte("line\n"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if n != 5 || a.String() != "line\n" || b.String() != "line\n" {
		t.Errorf("MultiWriter did not fan out: n=%d a=%q b=%q", n, a.String(), b.String())
	}
}
