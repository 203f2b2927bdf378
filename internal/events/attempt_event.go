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

package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agrivoice/asr-bench/internal/dataset"
)

// AttemptEvent records one recording attempt against one crop row, with
// full traceability from upload to verdict. Once stored it is never
// mutated; a re-recorded row produces a fresh event.
type AttemptEvent struct {
	// Core identification
	UUID      string    `json:"uuid" db:"uuid"`
	SessionID string    `json:"session_id" db:"session_id"`
	Tester    string    `json:"tester" db:"tester"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	// Row snapshot at submission time
	SerialNumber string `json:"serial_number" db:"serial_number"`
	CropCode     string `json:"crop_code" db:"crop_code"`
	CropName     string `json:"crop_name" db:"crop_name"`
	Language     string `json:"language" db:"language"`
	Project      string `json:"project" db:"project"`

	// Processing results
	Transcript     string `json:"transcript" db:"transcript"`
	Verdict        string `json:"verdict" db:"verdict"`
	ProcessingTime int64  `json:"processing_time_ms" db:"processing_time_ms"`
	Success        bool   `json:"success" db:"success"`
	ErrorMessage   string `json:"error_message,omitempty" db:"error_message"`
}

// NewAttemptEvent creates a new AttemptEvent with a generated UUID and
// current timestamp
func NewAttemptEvent(sessionID, tester string, row dataset.Row) *AttemptEvent {
	return &AttemptEvent{
		UUID:         uuid.NewString(),
		SessionID:    sessionID,
		Tester:       tester,
		Timestamp:    time.Now(),
		SerialNumber: row.SerialNumber,
		CropCode:     row.CropCode,
		CropName:     row.CropName,
		Language:     row.Language,
		Project:      row.Project,
		Success:      true,
	}
}

// SetResult records the transcription outcome and stamps the processing time
func (ae *AttemptEvent) SetResult(transcript, verdict string) {
	ae.Transcript = transcript
	ae.Verdict = verdict
	ae.ProcessingTime = time.Since(ae.Timestamp).Milliseconds()
}

// SetError marks the attempt as failed with an error message
func (ae *AttemptEvent) SetError(err error) {
	ae.Success = false
	ae.ErrorMessage = err.Error()
	ae.ProcessingTime = time.Since(ae.Timestamp).Milliseconds()
}

// GetUUID returns the event UUID
func (ae *AttemptEvent) GetUUID() string {
	return ae.UUID
}

// IsValid performs basic validation on the attempt event
func (ae *AttemptEvent) IsValid() error {
	if ae.UUID == "" {
		return fmt.Errorf("UUID is required")
	}

	if ae.SessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	if ae.Tester == "" {
		return fmt.Errorf("tester is required")
	}

	if ae.CropName == "" {
		return fmt.Errorf("cropName is required")
	}

	if ae.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	return nil
}
