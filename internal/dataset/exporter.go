/*
 * This file is part of AgriVoice ASR Bench (https://github.com/agrivoice/asr-bench).
 * Copyright (C) 2025 AgriVoice Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// Result is the per-row outcome appended to the export. Rows the tester
// skipped export with these fields empty.
type Result struct {
	Transcript string
	Verdict    string
	RecordedAt time.Time
}

// exportedColumns are appended after the canonical columns, in this order.
var exportedColumns = []string{"transcript", "verdict", "recorded_at"}

// Export writes rows and their results as CSV: canonical columns in their
// original order, then transcript, verdict and recorded_at. Row order is
// the upload order; results is keyed by row index.
func Export(w io.Writer, rows []Row, results map[int]Result) error {
	writer := csv.NewWriter(w)

	header := append(append([]string{}, CanonicalColumns...), exportedColumns...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}

	for i, row := range rows {
		record := []string{row.SerialNumber, row.CropCode, row.CropName, row.Language, row.Project}

		if result, ok := results[i]; ok {
			recordedAt := ""
			if !result.RecordedAt.IsZero() {
				recordedAt = result.RecordedAt.UTC().Format(time.RFC3339)
			}
			record = append(record, result.Transcript, result.Verdict, recordedAt)
		} else {
			record = append(record, "", "", "")
		}

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write export row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}

	return nil
}

// ExportFilename returns the download name for a results file.
func ExportFilename(now time.Time) string {
	return "asr_test_results_" + now.Format("20060102_150405") + ".csv"
}
