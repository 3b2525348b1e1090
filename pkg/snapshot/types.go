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
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/sitecheck/pkg/eapi"
	"github.com/carverauto/sitecheck/pkg/logger"
	"github.com/carverauto/sitecheck/pkg/models"
)

const (
	defaultQueryTimeout = 30 * time.Second
	defaultOutputDir    = "."
)

// MetricsConfig enables OTLP metric export.
type MetricsConfig struct {
	Enabled        bool            `json:"enabled"`
	ExportInterval models.Duration `json:"export_interval,omitempty"`
}

// Config is the sitecheck application configuration.
type Config struct {
	NodesFile         string              `json:"nodes_file"`
	Devices           []string            `json:"devices"`
	OutputDir         string              `json:"output_dir"`
	QueryTimeout      models.Duration     `json:"query_timeout"`
	FilterNested      bool                `json:"filter_nested"`
	ExtraFilteredKeys []string            `json:"extra_filtered_keys"`
	Logging           *logger.Config      `json:"logging,omitempty"`
	Metrics           *MetricsConfig      `json:"metrics,omitempty"`
	NATS              *models.NATSConfig  `json:"nats,omitempty"`
	Mongo             *models.MongoConfig `json:"mongo,omitempty"`
}

// Validate fills defaults and rejects incomplete configuration.
func (c *Config) Validate() error {
	if c.NodesFile == "" {
		c.NodesFile = eapi.DefaultProfilesPath()
	}

	if c.OutputDir == "" {
		c.OutputDir = defaultOutputDir
	}

	if c.QueryTimeout == 0 {
		c.QueryTimeout = models.Duration(defaultQueryTimeout)
	}

	if len(c.Devices) == 0 {
		return errNoDevices
	}

	if c.NodesFile == "" {
		return errNoNodesFile
	}

	if c.QueryTimeout < 0 {
		return errNegativeTimeout
	}

	if c.Metrics != nil && c.Metrics.ExportInterval < 0 {
		return errNegativeInterval
	}

	if c.NATS != nil {
		if err := c.NATS.Validate(); err != nil {
			return fmt.Errorf("nats: %w", err)
		}
	}

	if c.Mongo != nil {
		if err := c.Mongo.Validate(); err != nil {
			return fmt.Errorf("mongo: %w", err)
		}
	}

	return nil
}

// Record is one device response entry.
type Record = map[string]interface{}

// Shape is the fixed structure of a query result.
type Shape int

const (
	// ShapeMapping results map entity names to records.
	ShapeMapping Shape = iota
	// ShapeList results are sequences of records.
	ShapeList
)

func (s Shape) String() string {
	if s == ShapeList {
		return "list"
	}

	return "mapping"
}

// QueryResult holds a decoded result. Only the field matching Shape is set;
// elements are validated as records when written.
type QueryResult struct {
	Shape   Shape
	List    []interface{}
	Mapping map[string]interface{}
}

// Section is one written report section.
type Section struct {
	Label string   `json:"label"`
	Lines []string `json:"lines"`
}

// Snapshot is the structured copy of one device report handed to sinks.
type Snapshot struct {
	Device     string    `json:"device"`
	ReportPath string    `json:"report_path"`
	TakenAt    time.Time `json:"taken_at"`
	Sections   []Section `json:"sections"`
	Error      string    `json:"error,omitempty"`
}

// Outcome values for DeviceResult.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// DeviceResult is the outcome of processing one device.
type DeviceResult struct {
	Device     string
	Path       string
	Sections   int
	Started    time.Time
	Finished   time.Time
	Err        error
	ArchiveErr error
}

// Outcome reports success, failure or skipped.
func (r DeviceResult) Outcome() string {
	switch {
	case r.Err == nil:
		return OutcomeSuccess
	case errors.Is(r.Err, ErrDeviceSkipped):
		return OutcomeSkipped
	default:
		return OutcomeFailure
	}
}
