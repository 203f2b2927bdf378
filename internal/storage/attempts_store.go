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
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agrivoice/asr-bench/internal/events"
	"github.com/agrivoice/asr-bench/internal/logging"
)

// AttemptsStore handles database operations for attempt events
type AttemptsStore struct {
	db *Database
}

// NewAttemptsStore creates a new attempts store
func NewAttemptsStore(db *Database) *AttemptsStore {
	return &AttemptsStore{db: db}
}

// Insert stores a new attempt event in the database
func (s *AttemptsStore) Insert(event *events.AttemptEvent) error {
	if err := event.IsValid(); err != nil {
		return fmt.Errorf("invalid attempt event: %w", err)
	}

	query := `
		INSERT INTO attempts (
			uuid, session_id, tester, timestamp,
			serial_number, crop_code, crop_name, language, project,
			transcript, verdict, processing_time_ms, success, error_message
		) VALUES (
			?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?, ?, ?
		)`

	_, err := s.db.DB().Exec(query,
		event.UUID, event.SessionID, event.Tester, event.Timestamp,
		event.SerialNumber, event.CropCode, event.CropName, event.Language, event.Project,
		event.Transcript, event.Verdict, event.ProcessingTime, event.Success, event.ErrorMessage,
	)

	if err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}

	logging.LogDatabaseOperation("insert", "attempts",
		zap.String("event_uuid", event.UUID),
		zap.String("session_id", sanitizeLogInput(event.SessionID)),
		zap.String("crop_name", sanitizeLogInput(event.CropName)),
	)
	return nil
}

// GetByUUID retrieves an attempt event by its UUID
func (s *AttemptsStore) GetByUUID(uuid string) (*events.AttemptEvent, error) {
	query := `
		SELECT uuid, session_id, tester, timestamp,
			   serial_number, crop_code, crop_name, language, project,
			   transcript, verdict, processing_time_ms, success, error_message
		FROM attempts
		WHERE uuid = ?`

	row := s.db.DB().QueryRow(query, uuid)
	return s.scanAttempt(row)
}

// List retrieves attempt events with pagination and filtering
func (s *AttemptsStore) List(options ListOptions) ([]*events.AttemptEvent, error) {
	query, args := s.buildListQuery(options)

	rows, err := s.db.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*events.AttemptEvent
	for rows.Next() {
		event, err := s.scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempts: %w", err)
	}

	return attempts, nil
}

// Count returns the total number of attempts matching the filter
func (s *AttemptsStore) Count(options ListOptions) (int64, error) {
	options.Limit = 0
	options.Offset = 0
	query, args := s.buildListQuery(options)

	countQuery := "SELECT COUNT(*) FROM (" + query + ") as filtered"

	var count int64
	err := s.db.DB().QueryRow(countQuery, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	return count, nil
}

// GetBySession retrieves all attempts for one test session, oldest first
func (s *AttemptsStore) GetBySession(sessionID string) ([]*events.AttemptEvent, error) {
	return s.List(ListOptions{
		SessionID: sessionID,
		SortBy:    "timestamp",
		SortOrder: "ASC",
	})
}

// Delete removes an attempt event by UUID
func (s *AttemptsStore) Delete(uuid string) error {
	result, err := s.db.DB().Exec("DELETE FROM attempts WHERE uuid = ?", uuid)
	if err != nil {
		return fmt.Errorf("failed to delete attempt: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("attempt not found: %s", uuid)
	}

	logging.LogDatabaseOperation("delete", "attempts",
		zap.String("event_uuid", uuid),
	)
	return nil
}

// ListOptions defines filtering and pagination options
type ListOptions struct {
	// Filtering
	SessionID string
	Tester    string
	Verdict   string
	Success   *bool // nil = all, true = success only, false = errors only
	StartTime *time.Time
	EndTime   *time.Time

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "timestamp", "processing_time_ms", "crop_name"
	SortOrder string // "ASC", "DESC"
}

// allowed sort columns; anything else falls back to timestamp
var sortColumns = map[string]bool{
	"timestamp":          true,
	"processing_time_ms": true,
	"crop_name":          true,
}

// buildListQuery constructs the SQL query based on ListOptions
func (s *AttemptsStore) buildListQuery(options ListOptions) (string, []interface{}) {
	query := `
		SELECT uuid, session_id, tester, timestamp,
			   serial_number, crop_code, crop_name, language, project,
			   transcript, verdict, processing_time_ms, success, error_message
		FROM attempts WHERE 1=1`

	var args []interface{}

	if options.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, options.SessionID)
	}

	if options.Tester != "" {
		query += " AND tester = ?"
		args = append(args, options.Tester)
	}

	if options.Verdict != "" {
		query += " AND verdict = ?"
		args = append(args, options.Verdict)
	}

	if options.Success != nil {
		query += " AND success = ?"
		args = append(args, *options.Success)
	}

	if options.StartTime != nil {
		query += " AND timestamp >= ?"
		args = append(args, options.StartTime)
	}

	if options.EndTime != nil {
		query += " AND timestamp <= ?"
		args = append(args, options.EndTime)
	}

	sortBy := options.SortBy
	if !sortColumns[sortBy] {
		sortBy = "timestamp"
	}

	sortOrder := options.SortOrder
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	if options.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, options.Limit)

		if options.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, options.Offset)
		}
	}

	return query, args
}

// scanAttempt scans a database row into an AttemptEvent struct
func (s *AttemptsStore) scanAttempt(scanner interface{}) (*events.AttemptEvent, error) {
	var event events.AttemptEvent

	var row interface {
		Scan(dest ...interface{}) error
	}

	switch v := scanner.(type) {
	case *sql.Row:
		row = v
	case *sql.Rows:
		row = v
	default:
		return nil, fmt.Errorf("unsupported scanner type")
	}

	err := row.Scan(
		&event.UUID, &event.SessionID, &event.Tester, &event.Timestamp,
		&event.SerialNumber, &event.CropCode, &event.CropName, &event.Language, &event.Project,
		&event.Transcript, &event.Verdict, &event.ProcessingTime, &event.Success, &event.ErrorMessage,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("attempt not found")
		}
		return nil, err
	}

	return &event, nil
}
