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
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05.000000"

//nolint:gochecknoglobals // constant separator line
var separator = strings.Repeat("-", 38)

// ReportWriter appends report blocks for one device to w.
type ReportWriter struct {
	w      io.Writer
	device string
	filter *KeyFilter
}

// NewReportWriter returns a writer for device. A nil filter uses the default denylist.
func NewReportWriter(w io.Writer, device string, filter *KeyFilter) *ReportWriter {
	if filter == nil {
		filter = NewKeyFilter(nil, false)
	}

	return &ReportWriter{w: w, device: device, filter: filter}
}

// WriteTimestamp writes the separator and t in local time.
func (rw *ReportWriter) WriteTimestamp(t time.Time) error {
	_, err := fmt.Fprintf(rw.w, "%s\n%s\n", separator, t.Local().Format(timestampLayout))

	return err
}

// WriteHeader writes a section header for label.
func (rw *ReportWriter) WriteHeader(label string) error {
	_, err := fmt.Fprintf(rw.w, "%s\n%s\n%s\n%s\n", separator, rw.device, label, separator)

	return err
}

// WriteResult writes the section body and returns the lines written, without
// the trailing blank line of list sections. Nothing is written when a record
// is malformed.
func (rw *ReportWriter) WriteResult(res QueryResult) ([]string, error) {
	var (
		lines []string
		err   error
	)

	if res.Shape == ShapeList {
		lines, err = rw.renderList(res.List)
	} else {
		lines, err = rw.renderMapping(res.Mapping)
	}

	if err != nil {
		return nil, err
	}

	var b strings.Builder

	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if res.Shape == ShapeList {
		b.WriteByte('\n')
	}

	if _, err := io.WriteString(rw.w, b.String()); err != nil {
		return nil, err
	}

	return lines, nil
}

// WriteError appends the error text.
func (rw *ReportWriter) WriteError(cause error) error {
	_, err := fmt.Fprintln(rw.w, cause.Error())

	return err
}

func (rw *ReportWriter) renderList(items []interface{}) ([]string, error) {
	lines := make([]string, 0, len(items))

	for i, item := range items {
		line, err := rw.renderRecord(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}

		lines = append(lines, line)
	}

	return lines, nil
}

func (rw *ReportWriter) renderMapping(m map[string]interface{}) ([]string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	lines := make([]string, 0, len(keys))

	for _, k := range keys {
		line, err := rw.renderRecord(m[k])
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", k, err)
		}

		lines = append(lines, k+" : "+line)
	}

	return lines, nil
}

func (rw *ReportWriter) renderRecord(v interface{}) (string, error) {
	record, ok := v.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("%w: got %T, want mapping", ErrMalformedRecord, v)
	}

	return Canonical(rw.filter.Filter(record))
}
