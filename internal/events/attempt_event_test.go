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
	"errors"
	"testing"

	"github.com/agrivoice/asr-bench/internal/dataset"
)

func sampleRow() dataset.Row {
	return dataset.Row{
		SerialNumber: "1",
		CropCode:     "RICE001",
		CropName:     "Basmati Rice",
		Language:     "hi",
		Project:      "DCS",
	}
}

func TestNewAttemptEvent(t *testing.T) {
	event := NewAttemptEvent("sess-1", "qa@sarvam.ai", sampleRow())

	if event.UUID == "" {
		t.Error("UUID should be generated")
	}
	if event.SessionID != "sess-1" {
		t.Errorf("SessionID = %q", event.SessionID)
	}
	if event.CropName != "Basmati Rice" {
		t.Errorf("CropName = %q", event.CropName)
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if !event.Success {
		t.Error("new events start successful")
	}

	if err := event.IsValid(); err != nil {
		t.Errorf("IsValid() = %v", err)
	}
}

func TestAttemptEvent_UniqueUUIDs(t *testing.T) {
	a := NewAttemptEvent("sess-1", "qa@sarvam.ai", sampleRow())
	b := NewAttemptEvent("sess-1", "qa@sarvam.ai", sampleRow())
	if a.UUID == b.UUID {
		t.Errorf("two events share UUID %q", a.UUID)
	}
}

func TestAttemptEvent_SetResult(t *testing.T) {
	event := NewAttemptEvent("sess-1", "qa@sarvam.ai", sampleRow())
	event.SetResult("basmati rice", "yes")

	if event.Transcript != "basmati rice" {
		t.Errorf("Transcript = %q", event.Transcript)
	}
	if event.Verdict != "yes" {
		t.Errorf("Verdict = %q", event.Verdict)
	}
	if event.ProcessingTime < 0 {
		t.Errorf("ProcessingTime = %d", event.ProcessingTime)
	}
	if !event.Success {
		t.Error("SetResult must not mark the event failed")
	}
}

func TestAttemptEvent_SetError(t *testing.T) {
	event := NewAttemptEvent("sess-1", "qa@sarvam.ai", sampleRow())
	event.SetError(errors.New("vendor returned status 502"))

	if event.Success {
		t.Error("SetError must mark the event failed")
	}
	if event.ErrorMessage != "vendor returned status 502" {
		t.Errorf("ErrorMessage = %q", event.ErrorMessage)
	}
}

func TestAttemptEvent_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AttemptEvent)
	}{
		{"missing UUID", func(e *AttemptEvent) { e.UUID = "" }},
		{"missing session", func(e *AttemptEvent) { e.SessionID = "" }},
		{"missing tester", func(e *AttemptEvent) { e.Tester = "" }},
		{"missing crop name", func(e *AttemptEvent) { e.CropName = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := NewAttemptEvent("sess-1", "qa@sarvam.ai", sampleRow())
			tt.mutate(event)
			if err := event.IsValid(); err == nil {
				t.Error("IsValid() expected error, got nil")
			}
		})
	}
}
