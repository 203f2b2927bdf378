/*
Copyright (c) 2025 AgriVoice Labs

Licensed under the AGPLv3 License.
This file is part of asr-bench.
*/

package asr

import "context"

// Verdict is the derived yes/no judgment attached to a transcript.
type Verdict string

const (
	VerdictYes     Verdict = "yes"
	VerdictNo      Verdict = "no"
	VerdictUnknown Verdict = "unknown"
)

// Clip is one recorded audio clip as received from the browser.
type Clip struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Result contains the outcome of one transcription call.
type Result struct {
	Transcript  string
	Verdict     Verdict
	RawResponse string // exact vendor payload, kept for audit
}

// Transcriber defines the interface to the external speech-recognition
// service. One clip, one attempt; callers surface failures to the tester
// without retrying.
type Transcriber interface {
	// Transcribe submits a clip with the expected crop name and a language
	// hint, returning the transcript and verdict.
	Transcribe(ctx context.Context, clip Clip, expected, language string) (*Result, error)

	// Close cleans up resources
	Close() error
}

// TransmissionError reports a failed call to the vendor API. The current
// item is left untouched so the tester can re-record and resubmit.
type TransmissionError struct {
	Op  string
	Err error
}

func (e *TransmissionError) Error() string {
	return "asr transmission failed: " + e.Op + ": " + e.Err.Error()
}

func (e *TransmissionError) Unwrap() error {
	return e.Err
}
