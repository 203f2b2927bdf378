/*
Copyright (c) 2025 AgriVoice Labs

Licensed under the AGPLv3 License.
This file is part of asr-bench.
*/

package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/agrivoice/asr-bench/internal/logging"
)

// Client implements the Transcriber interface against the vendor's REST
// transcription endpoint (OpenAI-compatible multipart upload with a bearer
// API key).
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// vendor response shape; verdict is optional and wins over local derivation
type transcriptionResponse struct {
	Text    string `json:"text"`
	Verdict string `json:"verdict,omitempty"`
}

// NewClient creates a vendor ASR client. The timeout bounds the whole
// request; there is no retry.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Transcribe implements the Transcriber interface
func (c *Client) Transcribe(ctx context.Context, clip Clip, expected, language string) (*Result, error) {
	if len(clip.Data) == 0 {
		return nil, &TransmissionError{Op: "validate", Err: fmt.Errorf("empty audio clip")}
	}

	startTime := time.Now()
	requestID := fmt.Sprintf("req_%d", startTime.UnixNano())

	logging.Sugar.Infow("Sending transcription request",
		"request_id", requestID,
		"bytes", len(clip.Data),
		"language", language,
	)

	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	filename := clip.Filename
	if filename == "" {
		filename = "audio.wav"
	}
	audioWriter, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, &TransmissionError{Op: "build request", Err: err}
	}
	if _, err := audioWriter.Write(clip.Data); err != nil {
		return nil, &TransmissionError{Op: "build request", Err: err}
	}

	_ = writer.WriteField("model", c.model)
	_ = writer.WriteField("language", language)
	_ = writer.WriteField("response_format", "json")

	contentType := writer.FormDataContentType()
	if err := writer.Close(); err != nil {
		return nil, &TransmissionError{Op: "build request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/transcriptions", &requestBody)
	if err != nil {
		return nil, &TransmissionError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransmissionError{Op: "http", Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("Failed to close transcription response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransmissionError{Op: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &TransmissionError{
			Op:  "http",
			Err: fmt.Errorf("vendor returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var transcriptionResp transcriptionResponse
	if err := json.Unmarshal(body, &transcriptionResp); err != nil {
		return nil, &TransmissionError{Op: "parse response", Err: err}
	}

	verdict := ParseVerdict(transcriptionResp.Verdict)
	if verdict == "" {
		verdict = DeriveVerdict(transcriptionResp.Text, expected)
	}

	processingTime := time.Since(startTime)
	logging.Sugar.Infow("Transcription completed",
		"request_id", requestID,
		"processing_time_ms", processingTime.Milliseconds(),
		"text_length", len(transcriptionResp.Text),
		"verdict", string(verdict),
	)

	return &Result{
		Transcript:  transcriptionResp.Text,
		Verdict:     verdict,
		RawResponse: string(body),
	}, nil
}

// Close cleans up resources
func (c *Client) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
