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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/carverauto/sitecheck/pkg/eapi"
	"github.com/carverauto/sitecheck/pkg/logger"
)

const reportFileMode = 0o644

// Sink receives every finished snapshot.
type Sink interface {
	Archive(ctx context.Context, snap *Snapshot) error
}

// Runner processes devices one at a time and writes their reports.
type Runner struct {
	connector    eapi.Connector
	queries      []Query
	filter       *KeyFilter
	outputDir    string
	queryTimeout time.Duration
	console      io.Writer
	sink         Sink
	metrics      *Metrics
	logger       logger.Logger
	now          func() time.Time
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithConsole sets where error text is printed. Defaults to stdout.
func WithConsole(w io.Writer) RunnerOption {
	return func(r *Runner) { r.console = w }
}

// WithSink hands every snapshot to sink after its report is written.
func WithSink(sink Sink) RunnerOption {
	return func(r *Runner) { r.sink = sink }
}

// WithMetrics records device and query instrumentation.
func WithMetrics(m *Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithQueries replaces the default query set.
func WithQueries(queries []Query) RunnerOption {
	return func(r *Runner) { r.queries = queries }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// NewRunner builds a runner from a validated config.
func NewRunner(cfg *Config, connector eapi.Connector, log logger.Logger, opts ...RunnerOption) *Runner {
	if log == nil {
		log = logger.NewTestLogger()
	}

	r := &Runner{
		connector:    connector,
		queries:      DefaultQueries(),
		filter:       NewKeyFilter(cfg.ExtraFilteredKeys, cfg.FilterNested),
		outputDir:    cfg.OutputDir,
		queryTimeout: time.Duration(cfg.QueryTimeout),
		console:      os.Stdout,
		logger:       log,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run processes devices in order. A failed device never stops the run; once
// ctx is done the remaining devices are reported as skipped.
func (r *Runner) Run(ctx context.Context, devices []string) []DeviceResult {
	results := make([]DeviceResult, 0, len(devices))

	for _, device := range devices {
		if err := ctx.Err(); err != nil {
			results = append(results, DeviceResult{
				Device: device,
				Err:    fmt.Errorf("%w: %s: %w", ErrDeviceSkipped, device, err),
			})
			r.metrics.RecordDevice(context.WithoutCancel(ctx), OutcomeSkipped)

			continue
		}

		res := r.RunDevice(ctx, device)
		results = append(results, res)
	}

	return results
}

// RunDevice writes the report of one device and archives its snapshot.
func (r *Runner) RunDevice(ctx context.Context, device string) DeviceResult {
	started := r.now()
	path := filepath.Join(r.outputDir, FormatFilename(device, started))

	res := DeviceResult{Device: device, Path: path, Started: started}
	snap := &Snapshot{Device: device, ReportPath: path, TakenAt: started}

	log := r.logger.With().Str("device", device).Logger()
	log.Info().Str("path", path).Msg("Collecting device snapshot")

	if err := r.writeReport(ctx, device, path, snap); err != nil {
		snap.Error = err.Error()
		res.Err = fmt.Errorf("%w: %s: %w", ErrDeviceFailed, device, err)

		log.Error().Err(err).Msg("Device processing failed")
	}

	res.Sections = len(snap.Sections)
	res.Finished = r.now()

	if r.sink != nil {
		if err := r.sink.Archive(context.WithoutCancel(ctx), snap); err != nil {
			res.ArchiveErr = err

			log.Warn().Err(err).Msg("Failed to archive snapshot")
		}
	}

	r.metrics.RecordDevice(ctx, res.Outcome())

	log.Info().
		Int("sections", res.Sections).
		Dur("elapsed", res.Finished.Sub(res.Started)).
		Str("outcome", res.Outcome()).
		Msg("Device snapshot finished")

	return res
}

// writeReport owns the report file. On failure the error text is printed to
// the console and appended to the report.
func (r *Runner) writeReport(ctx context.Context, device, path string, snap *Snapshot) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, reportFileMode)
	if err != nil {
		fmt.Fprintln(r.console, err.Error())

		return fmt.Errorf("failed to open report: %w", err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close report: %w", cerr)
		}
	}()

	rw := NewReportWriter(f, device, r.filter)

	if err := r.collect(ctx, device, rw, snap); err != nil {
		fmt.Fprintln(r.console, err.Error())

		if werr := rw.WriteError(err); werr != nil {
			return errors.Join(err, werr)
		}

		return err
	}

	return nil
}

func (r *Runner) collect(ctx context.Context, device string, rw *ReportWriter, snap *Snapshot) error {
	session, err := r.connector.Connect(ctx, device)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := session.Close(); cerr != nil {
			r.logger.Debug().Err(cerr).Str("device", device).Msg("Failed to close session")
		}
	}()

	if err := rw.WriteTimestamp(r.now()); err != nil {
		return err
	}

	for _, q := range r.queries {
		if err := rw.WriteHeader(q.Label); err != nil {
			return err
		}

		res, err := r.runQuery(ctx, session, q)
		if err != nil {
			return err
		}

		lines, err := rw.WriteResult(res)
		if err != nil {
			return err
		}

		snap.Sections = append(snap.Sections, Section{Label: q.Label, Lines: lines})
	}

	return nil
}

func (r *Runner) runQuery(ctx context.Context, session eapi.Session, q Query) (QueryResult, error) {
	if r.queryTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := q.Fetch(ctx, session)
	r.metrics.RecordQuery(ctx, q.Label, time.Since(start))

	return res, err
}
