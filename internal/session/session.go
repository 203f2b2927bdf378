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
	"errors"
	"sync"
	"time"

	"github.com/agrivoice/asr-bench/internal/asr"
	"github.com/agrivoice/asr-bench/internal/dataset"
)

var (
	// ErrNoCurrentItem means the tester is already past the last row
	ErrNoCurrentItem = errors.New("no current item: all rows completed")

	// ErrSubmissionInFlight means a recording for this session is still
	// being transcribed; progression is strictly sequential.
	ErrSubmissionInFlight = errors.New("a submission is already in flight for this session")

	// ErrSessionEnded means the session was already exported and closed
	ErrSessionEnded = errors.New("session has ended")
)

// AttemptResult is the stored outcome for one row. Immutable once stored;
// re-recording a row replaces the whole value.
type AttemptResult struct {
	Row        dataset.Row `json:"row"`
	Transcript string      `json:"transcript"`
	Verdict    asr.Verdict `json:"verdict"`
	RecordedAt time.Time   `json:"recorded_at"`
}

// Session is the single mutable object of one tester's run: the uploaded
// rows, the cursor, and the per-row results. All access goes through the
// mutex; the manager owns creation and teardown.
type Session struct {
	ID        string
	Tester    string
	QAName    string
	Language  string
	StartedAt time.Time

	mu       sync.Mutex
	rows     []dataset.Row
	index    int
	results  map[int]AttemptResult
	inFlight bool
	ended    bool
}

func newSession(id, tester, qaName, language string, rows []dataset.Row) *Session {
	return &Session{
		ID:        id,
		Tester:    tester,
		QAName:    qaName,
		Language:  language,
		StartedAt: time.Now(),
		rows:      rows,
		results:   make(map[int]AttemptResult, len(rows)),
	}
}

// Current returns the row under the cursor. ok is false once the tester
// has advanced past the last row.
func (s *Session) Current() (row dataset.Row, index int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index >= len(s.rows) {
		return dataset.Row{}, s.index, false
	}
	return s.rows[s.index], s.index, true
}

// Result returns the stored result for a row index, if any
func (s *Session) Result(index int) (AttemptResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, ok := s.results[index]
	return result, ok
}

// Progress reports completed and total row counts
func (s *Session) Progress() (done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.results), len(s.rows)
}

// Advance moves the cursor forward. It stops one past the last row, which
// marks the run as finished.
func (s *Session) Advance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index >= len(s.rows) {
		return false
	}
	s.index++
	return true
}

// Previous moves the cursor back, never below the first row
func (s *Session) Previous() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == 0 {
		return false
	}
	s.index--
	return true
}

// beginSubmit reserves the session for one transcription call and returns
// the row it targets. The reservation keeps submissions strictly
// sequential without holding the lock across the network call.
func (s *Session) beginSubmit() (dataset.Row, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return dataset.Row{}, 0, ErrSessionEnded
	}
	if s.inFlight {
		return dataset.Row{}, 0, ErrSubmissionInFlight
	}
	if s.index >= len(s.rows) {
		return dataset.Row{}, 0, ErrNoCurrentItem
	}

	s.inFlight = true
	return s.rows[s.index], s.index, nil
}

// finishSubmit releases the reservation; on success it stores the result.
// The cursor never moves here - advancing is an explicit tester action,
// and a failed call must leave the index untouched.
func (s *Session) finishSubmit(index int, result *AttemptResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight = false
	if result != nil {
		s.results[index] = *result
	}
}

// end closes the session and hands back its rows and results for export
func (s *Session) end() ([]dataset.Row, map[int]dataset.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return nil, nil, ErrSessionEnded
	}
	if s.inFlight {
		return nil, nil, ErrSubmissionInFlight
	}
	s.ended = true

	results := make(map[int]dataset.Result, len(s.results))
	for i, r := range s.results {
		results[i] = dataset.Result{
			Transcript: r.Transcript,
			Verdict:    string(r.Verdict),
			RecordedAt: r.RecordedAt,
		}
	}
	return s.rows, results, nil
}
