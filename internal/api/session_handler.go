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

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agrivoice/asr-bench/internal/asr"
	"github.com/agrivoice/asr-bench/internal/dataset"
	"github.com/agrivoice/asr-bench/internal/logging"
	"github.com/agrivoice/asr-bench/internal/security"
	"github.com/agrivoice/asr-bench/internal/session"
)

// maxUploadBytes caps multipart bodies: datasets are small CSVs and clips
// are a few seconds of audio.
const maxUploadBytes = 32 << 20

// SessionHandler exposes the test-run lifecycle over HTTP. A tester has at
// most one run at a time, keyed by their login token.
type SessionHandler struct {
	sessions *session.Manager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *session.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// sessionState is the common response shape for session endpoints: enough
// for the UI to render the current row without a second round trip.
type sessionState struct {
	SessionID  string                 `json:"session_id"`
	Tester     string                 `json:"tester"`
	QAName     string                 `json:"qa_name"`
	Language   string                 `json:"language"`
	StartedAt  time.Time              `json:"started_at"`
	Index      int                    `json:"index"`
	Done       int                    `json:"done"`
	Total      int                    `json:"total"`
	Completed  bool                   `json:"completed"`
	CurrentRow *dataset.Row           `json:"current_row,omitempty"`
	Result     *session.AttemptResult `json:"result,omitempty"`
}

func stateOf(s *session.Session) sessionState {
	done, total := s.Progress()
	state := sessionState{
		SessionID: s.ID,
		Tester:    s.Tester,
		QAName:    s.QAName,
		Language:  s.Language,
		StartedAt: s.StartedAt,
		Done:      done,
		Total:     total,
	}

	row, index, ok := s.Current()
	state.Index = index
	if !ok {
		state.Completed = true
		return state
	}

	state.CurrentRow = &row
	if result, found := s.Result(index); found {
		state.Result = &result
	}
	return state
}

// HandleSession handles POST /api/session (start a run) and
// DELETE /api/session (abandon it without exporting).
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleStart(w, r)
	case http.MethodDelete:
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, KindAuth, "not authenticated")
			return
		}
		h.sessions.Drop(identity.Token)
		writeJSON(w, http.StatusOK, map[string]string{"status": "session dropped"})
	default:
		writeError(w, http.StatusMethodNotAllowed, KindConflict, "method not allowed")
	}
}

func (h *SessionHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, KindAuth, "not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, KindValidation, "expected multipart form data")
		return
	}

	qaName := strings.TrimSpace(r.FormValue("qa_name"))
	if qaName == "" {
		writeError(w, http.StatusBadRequest, KindValidation, "qa_name is required")
		return
	}

	language := strings.TrimSpace(r.FormValue("language"))
	if language == "" {
		language = "hi"
	}
	if err := security.ValidateLanguageCode(language); err != nil {
		writeError(w, http.StatusBadRequest, KindValidation, "language must be a code like hi or hi-IN")
		return
	}

	rows, err := h.loadRows(r, language)
	if err != nil {
		var vErr *dataset.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, KindValidation, vErr.Error())
			return
		}
		logging.LogError(err, "Failed to read dataset upload")
		writeError(w, http.StatusBadRequest, KindValidation, "could not read dataset file")
		return
	}

	s := h.sessions.Start(identity.Token, identity.User.Email, qaName, language, rows)
	writeJSON(w, http.StatusCreated, stateOf(s))
}

// loadRows parses the uploaded CSV, or falls back to the built-in sample
// set when the form asks for it.
func (h *SessionHandler) loadRows(r *http.Request, language string) ([]dataset.Row, error) {
	if r.FormValue("sample") == "true" {
		return dataset.SampleRows(language), nil
	}

	file, _, err := r.FormFile("dataset")
	if err != nil {
		return nil, &dataset.ValidationError{Reason: "dataset file is required (or set sample=true)"}
	}
	defer file.Close()

	return dataset.Load(file)
}

// HandleCurrent handles GET /api/session/current
func (h *SessionHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, KindConflict, "method not allowed")
		return
	}

	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stateOf(s))
}

// HandleSubmit handles POST /api/session/recordings: one audio clip for the
// row under the cursor. The cursor never moves here; the tester advances
// explicitly after reviewing the verdict.
func (h *SessionHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, KindConflict, "method not allowed")
		return
	}

	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, KindAuth, "not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, KindValidation, "expected multipart form data")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, KindValidation, "audio file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, KindValidation, "could not read audio file")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, KindValidation, "audio file is empty")
		return
	}

	clip := asr.Clip{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}

	result, err := h.sessions.Submit(r.Context(), identity.Token, clip)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *SessionHandler) writeSubmitError(w http.ResponseWriter, err error) {
	var tErr *asr.TransmissionError
	switch {
	case errors.Is(err, session.ErrNoActiveSession):
		writeError(w, http.StatusNotFound, KindNotFound, "no active session")
	case errors.Is(err, session.ErrNoCurrentItem):
		writeError(w, http.StatusConflict, KindConflict, "all rows are already completed")
	case errors.Is(err, session.ErrSubmissionInFlight):
		writeError(w, http.StatusConflict, KindConflict, "a recording is still being transcribed")
	case errors.As(err, &tErr):
		writeError(w, http.StatusBadGateway, KindTransmission,
			fmt.Sprintf("transcription service unavailable: %v", tErr))
	default:
		logging.LogError(err, "Recording submission failed")
		writeError(w, http.StatusInternalServerError, KindInternal, "submission failed")
	}
}

// HandleAdvance handles POST /api/session/advance
func (h *SessionHandler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, func(s *session.Session) { s.Advance() })
}

// HandlePrevious handles POST /api/session/previous
func (h *SessionHandler) HandlePrevious(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, func(s *session.Session) { s.Previous() })
}

// HandleSkip handles POST /api/session/skip. Skipping is just advancing
// without a result; the exported row keeps empty transcript and verdict.
func (h *SessionHandler) HandleSkip(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, func(s *session.Session) { s.Advance() })
}

func (h *SessionHandler) move(w http.ResponseWriter, r *http.Request, step func(*session.Session)) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, KindConflict, "method not allowed")
		return
	}

	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}

	step(s)
	writeJSON(w, http.StatusOK, stateOf(s))
}

// HandleExport handles GET /api/session/export: streams the results CSV and
// ends the session.
func (h *SessionHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, KindConflict, "method not allowed")
		return
	}

	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, KindAuth, "not authenticated")
		return
	}

	rows, results, err := h.sessions.End(identity.Token)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoActiveSession):
			writeError(w, http.StatusNotFound, KindNotFound, "no active session")
		case errors.Is(err, session.ErrSubmissionInFlight):
			writeError(w, http.StatusConflict, KindConflict, "a recording is still being transcribed")
		case errors.Is(err, session.ErrSessionEnded):
			writeError(w, http.StatusConflict, KindConflict, "session has already ended")
		default:
			logging.LogError(err, "Session export failed")
			writeError(w, http.StatusInternalServerError, KindInternal, "export failed")
		}
		return
	}

	filename := dataset.ExportFilename(time.Now())
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	if err := dataset.Export(w, rows, results); err != nil {
		// Headers are already out; all we can do is log it.
		logging.LogError(err, "Failed to write results CSV")
	}
}

func (h *SessionHandler) currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, KindAuth, "not authenticated")
		return nil, false
	}

	s, found := h.sessions.Get(identity.Token)
	if !found {
		writeError(w, http.StatusNotFound, KindNotFound, "no active session")
		return nil, false
	}
	return s, true
}
