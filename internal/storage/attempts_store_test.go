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

package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agrivoice/asr-bench/internal/dataset"
	"github.com/agrivoice/asr-bench/internal/events"
	"github.com/agrivoice/asr-bench/internal/logging"
)

func TestMain(m *testing.M) {
	if err := logging.Initialize(); err != nil {
		os.Exit(1)
	}
	code := m.Run()
	logging.Close()
	os.Exit(code)
}

func testDatabase(t *testing.T) *Database {
	t.Helper()

	db, err := NewDatabase(DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func testEvent(sessionID, cropName string) *events.AttemptEvent {
	event := events.NewAttemptEvent(sessionID, "qa@sarvam.ai", dataset.Row{
		SerialNumber: "1",
		CropCode:     "RICE001",
		CropName:     cropName,
		Language:     "hi",
		Project:      "DCS",
	})
	event.SetResult(strings.ToLower(cropName), "yes")
	return event
}

func TestDatabase_OpenAndPing(t *testing.T) {
	db := testDatabase(t)
	if err := db.Ping(); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if db.GetPath() == "" {
		t.Error("GetPath() returned empty path")
	}
}

func TestAttemptsStore_InsertAndGet(t *testing.T) {
	store := NewAttemptsStore(testDatabase(t))

	event := testEvent("sess-1", "Basmati Rice")
	if err := store.Insert(event); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := store.GetByUUID(event.UUID)
	if err != nil {
		t.Fatalf("GetByUUID() error = %v", err)
	}

	if got.CropName != "Basmati Rice" {
		t.Errorf("CropName = %q", got.CropName)
	}
	if got.Transcript != "basmati rice" {
		t.Errorf("Transcript = %q", got.Transcript)
	}
	if got.Verdict != "yes" {
		t.Errorf("Verdict = %q", got.Verdict)
	}
	if !got.Success {
		t.Error("Success should round-trip as true")
	}
}

func TestAttemptsStore_InsertInvalid(t *testing.T) {
	store := NewAttemptsStore(testDatabase(t))

	event := testEvent("sess-1", "Wheat")
	event.SessionID = ""
	if err := store.Insert(event); err == nil {
		t.Error("Insert() expected error for invalid event")
	}
}

func TestAttemptsStore_GetByUUID_NotFound(t *testing.T) {
	store := NewAttemptsStore(testDatabase(t))

	if _, err := store.GetByUUID("no-such-uuid"); err == nil {
		t.Error("GetByUUID() expected error for missing event")
	}
}

func TestAttemptsStore_ListAndCount(t *testing.T) {
	store := NewAttemptsStore(testDatabase(t))

	for _, crop := range []string{"Basmati Rice", "Wheat", "Corn"} {
		if err := store.Insert(testEvent("sess-1", crop)); err != nil {
			t.Fatalf("Insert(%s) error = %v", crop, err)
		}
	}
	failed := testEvent("sess-2", "Millet")
	failed.Success = false
	failed.ErrorMessage = "vendor timeout"
	if err := store.Insert(failed); err != nil {
		t.Fatalf("Insert(failed) error = %v", err)
	}

	// Filter by session
	got, err := store.List(ListOptions{SessionID: "sess-1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("List(sess-1) returned %d events, want 3", len(got))
	}

	// Filter by success
	success := false
	got, err = store.List(ListOptions{Success: &success})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].CropName != "Millet" {
		t.Errorf("List(failed) = %v", got)
	}

	// Count without pagination
	total, err := store.Count(ListOptions{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if total != 4 {
		t.Errorf("Count() = %d, want 4", total)
	}

	// Pagination
	got, err = store.List(ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("List(limit=2) returned %d events", len(got))
	}
}

func TestAttemptsStore_GetBySessionOrder(t *testing.T) {
	store := NewAttemptsStore(testDatabase(t))

	crops := []string{"Basmati Rice", "Wheat", "Corn"}
	for _, crop := range crops {
		if err := store.Insert(testEvent("sess-1", crop)); err != nil {
			t.Fatalf("Insert(%s) error = %v", crop, err)
		}
	}

	got, err := store.GetBySession("sess-1")
	if err != nil {
		t.Fatalf("GetBySession() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("GetBySession() returned %d events, want 3", len(got))
	}
}

func TestAttemptsStore_Delete(t *testing.T) {
	store := NewAttemptsStore(testDatabase(t))

	event := testEvent("sess-1", "Wheat")
	if err := store.Insert(event); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := store.Delete(event.UUID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(event.UUID); err == nil {
		t.Error("Delete() expected error for already-deleted event")
	}
}
