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
	"strconv"
	"strings"
)

// Canonical column names for the crop test schema
const (
	ColSerialNumber = "serial_number"
	ColCropCode     = "crop_code"
	ColCropName     = "crop_name"
	ColLanguage     = "language"
	ColProject      = "project"
)

// CanonicalColumns is the fixed output order for exports
var CanonicalColumns = []string{ColSerialNumber, ColCropCode, ColCropName, ColLanguage, ColProject}

// headerAliases maps normalized header spellings onto canonical columns.
// Normalization lowercases and strips spaces, underscores and hyphens, so
// "Crop Name", "crop_name" and "CROPNAME" all land on crop_name.
var headerAliases = map[string]string{
	"serialnumber": ColSerialNumber,
	"serialno":     ColSerialNumber,
	"serial":       ColSerialNumber,
	"srno":         ColSerialNumber,
	"sno":          ColSerialNumber,
	"sn":           ColSerialNumber,
	"cropcode":     ColCropCode,
	"code":         ColCropCode,
	"cropname":     ColCropName,
	"crop":         ColCropName,
	"name":         ColCropName,
	"language":     ColLanguage,
	"lang":         ColLanguage,
	"project":      ColProject,
	"projectname":  ColProject,
}

// Row is one crop entry from an uploaded CSV. Only CropName is mandatory.
type Row struct {
	SerialNumber string `json:"serial_number"`
	CropCode     string `json:"crop_code"`
	CropName     string `json:"crop_name"`
	Language     string `json:"language"`
	Project      string `json:"project"`
}

// ValidationError reports a CSV that cannot be used for a test run. The
// tester fixes the file and re-uploads; nothing is retried automatically.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "csv validation failed: " + e.Reason
}

// Load parses an uploaded CSV into an ordered sequence of rows. Headers are
// matched case/space-insensitively onto the canonical schema; insertion
// order is preserved and nothing is deduplicated or sorted.
func Load(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows tolerated, shortfall means empty optional fields
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ValidationError{Reason: "file is empty"}
	}
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("unreadable header: %v", err)}
	}

	columns := mapHeader(header)
	if _, ok := columns[ColCropName]; !ok {
		return nil, &ValidationError{Reason: "no column maps to crop_name"}
	}

	var rows []Row
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("bad record on line %d: %v", line+1, err)}
		}
		line++

		row := Row{
			SerialNumber: field(record, columns, ColSerialNumber),
			CropCode:     field(record, columns, ColCropCode),
			CropName:     field(record, columns, ColCropName),
			Language:     field(record, columns, ColLanguage),
			Project:      field(record, columns, ColProject),
		}

		if row.CropName == "" {
			return nil, &ValidationError{Reason: fmt.Sprintf("empty crop_name on line %d", line)}
		}

		if row.SerialNumber == "" {
			row.SerialNumber = strconv.Itoa(len(rows) + 1)
		}

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, &ValidationError{Reason: "no data rows"}
	}

	return rows, nil
}

// mapHeader resolves each header cell to a canonical column index. When two
// headers collide on the same canonical column, the first one wins.
func mapHeader(header []string) map[string]int {
	columns := make(map[string]int, len(CanonicalColumns))
	for i, cell := range header {
		canonical, ok := headerAliases[normalizeHeader(cell)]
		if !ok {
			continue // unknown columns are ignored
		}
		if _, taken := columns[canonical]; taken {
			continue
		}
		columns[canonical] = i
	}
	return columns
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF") // BOM from spreadsheet exports
	h = strings.ToLower(h)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '_', '-':
			return -1
		}
		return r
	}, h)
}

func field(record []string, columns map[string]int, col string) string {
	idx, ok := columns[col]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
