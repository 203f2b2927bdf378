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

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agrivoice/asr-bench/internal/asr"
	"github.com/agrivoice/asr-bench/internal/dataset"
	"github.com/agrivoice/asr-bench/internal/events"
	"github.com/agrivoice/asr-bench/internal/logging"
	"github.com/agrivoice/asr-bench/internal/messaging"
	"github.com/agrivoice/asr-bench/internal/storage"
)

// ErrNoActiveSession means the tester has not started a test run yet
var ErrNoActiveSession = errors.New("no active test session")

// Manager owns the live sessions, one per logged-in tester, and drives
// submissions through the transcriber. Store and publisher are optional;
// a nil store skips persistence and a nil publisher skips NATS.
type Manager struct {
	transcriber asr.Transcriber
	store       *storage.AttemptsStore
	publisher   *messaging.Publisher

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager
func NewManager(transcriber asr.Transcriber, store *storage.AttemptsStore, publisher *messaging.Publisher) *Manager {
	return &Manager{
		transcriber: transcriber,
		store:       store,
		publisher:   publisher,
		sessions:    make(map[string]*Session),
	}
}

// Start begins a test run for the given tester, replacing any run they
// abandoned without exporting.
func (m *Manager) Start(id, tester, qaName, language string, rows []dataset.Row) *Session {
	sess := newSession(id, tester, qaName, language, rows)

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	logging.Sugar.Infow("Test session started",
		"session_id", id,
		"tester", tester,
		"rows", len(rows),
		"language", language,
	)

	m.publishSessionEvent(&messaging.SessionEvent{
		Type:      messaging.SessionStarted,
		SessionID: id,
		Tester:    tester,
		Language:  language,
		RowCount:  len(rows),
	})

	return sess
}

// Get returns the active session for a tester, if any
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	return sess, ok
}

// Submit sends one recorded clip for the session's current row. On success
// the result is stored against the row; on failure nothing changes and the
// tester re-records. The cursor is never moved by a submission.
func (m *Manager) Submit(ctx context.Context, id string, clip asr.Clip) (*AttemptResult, error) {
	sess, ok := m.Get(id)
	if !ok {
		return nil, ErrNoActiveSession
	}

	row, index, err := sess.beginSubmit()
	if err != nil {
		return nil, err
	}

	language := row.Language
	if language == "" {
		language = sess.Language
	}

	event := events.NewAttemptEvent(sess.ID, sess.Tester, row)

	result, err := m.transcriber.Transcribe(ctx, clip, row.CropName, language)
	if err != nil {
		sess.finishSubmit(index, nil)
		event.SetError(err)
		m.recordAttempt(event)

		logging.LogError(err, "Transcription failed",
			zap.String("session_id", sess.ID),
			zap.String("crop_name", row.CropName),
		)
		return nil, err
	}

	attempt := &AttemptResult{
		Row:        row,
		Transcript: result.Transcript,
		Verdict:    result.Verdict,
		RecordedAt: time.Now(),
	}
	sess.finishSubmit(index, attempt)

	event.SetResult(result.Transcript, string(result.Verdict))
	m.recordAttempt(event)

	logging.LogAttempt(sess.ID, row.CropName,
		zap.String("verdict", string(result.Verdict)),
		zap.Int("row_index", index),
	)

	return attempt, nil
}

// End closes a session and returns its rows and results for export. The
// session is gone afterwards; starting over requires a fresh upload.
func (m *Manager) End(id string) ([]dataset.Row, map[int]dataset.Result, error) {
	sess, ok := m.Get(id)
	if !ok {
		return nil, nil, ErrNoActiveSession
	}

	rows, results, err := sess.end()
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	logging.Sugar.Infow("Test session ended",
		"session_id", sess.ID,
		"tester", sess.Tester,
		"completed", len(results),
		"total", len(rows),
	)

	m.publishSessionEvent(&messaging.SessionEvent{
		Type:      messaging.SessionEnded,
		SessionID: sess.ID,
		Tester:    sess.Tester,
		Language:  sess.Language,
		RowCount:  len(rows),
		Completed: len(results),
	})

	return rows, results, nil
}

// Drop discards a session without exporting (logout)
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// recordAttempt persists and publishes an attempt event, best effort
func (m *Manager) recordAttempt(event *events.AttemptEvent) {
	if m.store != nil {
		if err := m.store.Insert(event); err != nil {
			logging.LogError(err, "Failed to persist attempt", zap.String("event_uuid", event.UUID))
		}
	}

	if m.publisher != nil {
		if err := m.publisher.PublishAttempt(event); err != nil {
			logging.LogError(err, "Failed to publish attempt", zap.String("event_uuid", event.UUID))
		}
	}
}

func (m *Manager) publishSessionEvent(event *messaging.SessionEvent) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishSessionEvent(event); err != nil {
		logging.LogError(err, "Failed to publish session event", zap.String("session_id", event.SessionID))
	}
}
