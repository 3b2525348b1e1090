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

// Package cli renders console output for sitecheck runs.
package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/carverauto/sitecheck/pkg/snapshot"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaOrange     = "#FFB86C"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaComment    = "#6272A4"
)

const maxErrorWidth = 60

type summaryStyles struct {
	header, cell, success, failure, skipped, hint lipgloss.Style
}

func newSummaryStyles() summaryStyles {
	return summaryStyles{
		header:  lipgloss.NewStyle().Foreground(lipgloss.Color(draculaCyan)).Bold(true).Padding(0, 1),
		cell:    lipgloss.NewStyle().Foreground(lipgloss.Color(draculaForeground)).Padding(0, 1),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color(draculaGreen)).Padding(0, 1),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color(draculaRed)).Padding(0, 1),
		skipped: lipgloss.NewStyle().Foreground(lipgloss.Color(draculaOrange)).Padding(0, 1),
		hint:    lipgloss.NewStyle().Foreground(lipgloss.Color(draculaComment)),
	}
}

const outcomeColumn = 1

// WriteSummary renders one row per device result followed by totals.
func WriteSummary(w io.Writer, results []snapshot.DeviceResult) error {
	styles := newSummaryStyles()

	rows := make([][]string, 0, len(results))
	outcomes := make([]string, 0, len(results))
	counts := map[string]int{}

	for _, r := range results {
		outcome := r.Outcome()
		counts[outcome]++
		outcomes = append(outcomes, outcome)

		rows = append(rows, []string{
			r.Device,
			outcome,
			strconv.Itoa(r.Sections),
			elapsed(r),
			r.Path,
			errorText(r),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(draculaPurple))).
		Headers("DEVICE", "OUTCOME", "SECTIONS", "ELAPSED", "REPORT", "ERROR").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.header
			}

			if col == outcomeColumn && row >= 0 && row < len(outcomes) {
				switch outcomes[row] {
				case snapshot.OutcomeSuccess:
					return styles.success
				case snapshot.OutcomeSkipped:
					return styles.skipped
				default:
					return styles.failure
				}
			}

			return styles.cell
		})

	totals := fmt.Sprintf("%d devices: %d succeeded, %d failed, %d skipped",
		len(results), counts[snapshot.OutcomeSuccess], counts[snapshot.OutcomeFailure], counts[snapshot.OutcomeSkipped])

	_, err := fmt.Fprintf(w, "%s\n%s\n", t.Render(), styles.hint.Render(totals))

	return err
}

func elapsed(r snapshot.DeviceResult) string {
	if r.Started.IsZero() || r.Finished.IsZero() {
		return "-"
	}

	return r.Finished.Sub(r.Started).Round(time.Millisecond).String()
}

func errorText(r snapshot.DeviceResult) string {
	var text string

	switch {
	case r.Err != nil:
		text = r.Err.Error()
	case r.ArchiveErr != nil:
		text = "archive: " + r.ArchiveErr.Error()
	default:
		return ""
	}

	if len(text) > maxErrorWidth {
		return text[:maxErrorWidth-3] + "..."
	}

	return text
}
