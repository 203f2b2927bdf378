package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agrivoice/asr-bench/internal/asr"
	"github.com/agrivoice/asr-bench/internal/auth"
	"github.com/agrivoice/asr-bench/internal/session"
)

type stubTranscriber struct {
	result *asr.Result
	err    error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, clip asr.Clip, expected, language string) (*asr.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubTranscriber) Close() error { return nil }

const testToken = "test-token"

func authedRequest(method, target, contentType string, body *bytes.Buffer) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	identity := &Identity{Token: testToken, User: &auth.UserInfo{Email: "tester@gmail.com"}}
	return req.WithContext(WithIdentity(req.Context(), identity))
}

func sampleSessionForm(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("qa_name", "QA Tester"); err != nil {
		t.Fatalf("Failed to write field: %v", err)
	}
	if err := mw.WriteField("sample", "true"); err != nil {
		t.Fatalf("Failed to write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func audioForm(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("audio", "clip.wav")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := fw.Write([]byte("RIFF-fake-audio")); err != nil {
		t.Fatalf("Failed to write audio: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func startSession(t *testing.T, h *SessionHandler) {
	t.Helper()
	body, contentType := sampleSessionForm(t)
	rec := httptest.NewRecorder()
	h.HandleSession(rec, authedRequest(http.MethodPost, "/api/session", contentType, body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
}

func TestHandleSubmit_TransmissionErrorMapsTo502(t *testing.T) {
	manager := session.NewManager(&stubTranscriber{
		err: &asr.TransmissionError{Op: "transcribe", Err: errors.New("connection refused")},
	}, nil, nil)
	h := NewSessionHandler(manager)

	startSession(t, h)

	body, contentType := audioForm(t)
	rec := httptest.NewRecorder()
	h.HandleSubmit(rec, authedRequest(http.MethodPost, "/api/session/recordings", contentType, body))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected status %d, got %d", http.StatusBadGateway, rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if resp["error"] != KindTransmission {
		t.Errorf("Expected error kind %q, got %q", KindTransmission, resp["error"])
	}
}

func TestHandleSubmit_NoSessionMapsTo404(t *testing.T) {
	manager := session.NewManager(&stubTranscriber{result: &asr.Result{}}, nil, nil)
	h := NewSessionHandler(manager)

	body, contentType := audioForm(t)
	rec := httptest.NewRecorder()
	h.HandleSubmit(rec, authedRequest(http.MethodPost, "/api/session/recordings", contentType, body))

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestHandleSession_InvalidCSVMapsTo400(t *testing.T) {
	manager := session.NewManager(&stubTranscriber{result: &asr.Result{}}, nil, nil)
	h := NewSessionHandler(manager)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("qa_name", "QA Tester"); err != nil {
		t.Fatalf("Failed to write field: %v", err)
	}
	fw, err := mw.CreateFormFile("dataset", "bad.csv")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := fw.Write([]byte("serial_number,crop_code\n1,RICE001\n")); err != nil {
		t.Fatalf("Failed to write CSV: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	rec := httptest.NewRecorder()
	h.HandleSession(rec, authedRequest(http.MethodPost, "/api/session", mw.FormDataContentType(), &buf))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if resp["error"] != KindValidation {
		t.Errorf("Expected error kind %q, got %q", KindValidation, resp["error"])
	}
}

func TestHandleCurrent_CompletedSession(t *testing.T) {
	manager := session.NewManager(&stubTranscriber{result: &asr.Result{}}, nil, nil)
	h := NewSessionHandler(manager)

	startSession(t, h)

	// Walk past the last row
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.HandleAdvance(rec, authedRequest(http.MethodPost, "/api/session/advance", "", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Advance %d: expected status %d, got %d", i, http.StatusOK, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.HandleCurrent(rec, authedRequest(http.MethodGet, "/api/session/current", "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var state sessionState
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	if !state.Completed {
		t.Error("Expected completed=true past the last row")
	}
	if state.CurrentRow != nil {
		t.Error("Expected no current row past the last row")
	}

	// Submitting past the end is a conflict
	body, contentType := audioForm(t)
	rec = httptest.NewRecorder()
	h.HandleSubmit(rec, authedRequest(http.MethodPost, "/api/session/recordings", contentType, body))
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

// blockingTranscriber parks Transcribe until released, so tests can observe
// the in-flight window.
type blockingTranscriber struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingTranscriber) Transcribe(ctx context.Context, clip asr.Clip, expected, language string) (*asr.Result, error) {
	close(b.started)
	<-b.release
	return &asr.Result{Transcript: expected, Verdict: asr.VerdictYes}, nil
}

func (b *blockingTranscriber) Close() error { return nil }

func TestHandleExport_InFlightSubmissionMapsTo409(t *testing.T) {
	bt := &blockingTranscriber{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	manager := session.NewManager(bt, nil, nil)
	h := NewSessionHandler(manager)

	startSession(t, h)

	body, contentType := audioForm(t)
	done := make(chan struct{})
	go func() {
		defer close(done)
		rec := httptest.NewRecorder()
		h.HandleSubmit(rec, authedRequest(http.MethodPost, "/api/session/recordings", contentType, body))
	}()
	<-bt.started

	rec := httptest.NewRecorder()
	h.HandleExport(rec, authedRequest(http.MethodGet, "/api/session/export", "", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status %d, got %d", http.StatusConflict, rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if resp["error"] != KindConflict {
		t.Errorf("Expected error kind %q, got %q", KindConflict, resp["error"])
	}

	close(bt.release)
	<-done

	// Once the submission finishes the export goes through
	rec = httptest.NewRecorder()
	h.HandleExport(rec, authedRequest(http.MethodGet, "/api/session/export", "", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status %d after release, got %d", http.StatusOK, rec.Code)
	}
}

func TestHandleSession_MethodNotAllowed(t *testing.T) {
	manager := session.NewManager(&stubTranscriber{result: &asr.Result{}}, nil, nil)
	h := NewSessionHandler(manager)

	rec := httptest.NewRecorder()
	h.HandleSession(rec, authedRequest(http.MethodPut, "/api/session", "", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
