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
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agrivoice/asr-bench/internal/events"
	"github.com/agrivoice/asr-bench/internal/logging"
	"github.com/agrivoice/asr-bench/internal/storage"
)

// AttemptsHandler handles HTTP requests for stored recording attempts
type AttemptsHandler struct {
	store *storage.AttemptsStore
}

// NewAttemptsHandler creates a new attempts handler
func NewAttemptsHandler(store *storage.AttemptsStore) *AttemptsHandler {
	return &AttemptsHandler{store: store}
}

// ListAttemptsResponse represents the response for listing attempts
type ListAttemptsResponse struct {
	Attempts   []*events.AttemptEvent `json:"attempts"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	TotalPages int                    `json:"total_pages"`
}

// HandleAttempts handles GET /api/attempts
func (h *AttemptsHandler) HandleAttempts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, KindConflict, "method not allowed")
		return
	}
	h.listAttempts(w, r)
}

// HandleAttemptByID handles GET /api/attempts/{id}
func (h *AttemptsHandler) HandleAttemptByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, KindConflict, "method not allowed")
		return
	}

	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/attempts/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		writeError(w, http.StatusBadRequest, KindValidation, "attempt ID is required")
		return
	}

	h.getAttemptByID(w, pathParts[0])
}

func (h *AttemptsHandler) listAttempts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page := parseIntParam(query.Get("page"), 1)
	pageSize := parseIntParam(query.Get("page_size"), 20)
	if pageSize > 100 {
		pageSize = 100
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if page < 1 {
		page = 1
	}

	options := storage.ListOptions{
		SessionID: query.Get("session_id"),
		Tester:    query.Get("tester"),
		Verdict:   query.Get("verdict"),
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
		SortBy:    query.Get("sort_by"),
		SortOrder: strings.ToUpper(query.Get("sort_order")),
	}

	if successStr := query.Get("success"); successStr != "" {
		if success, err := strconv.ParseBool(successStr); err == nil {
			options.Success = &success
		}
	}

	if startTimeStr := query.Get("start_time"); startTimeStr != "" {
		if startTime, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			options.StartTime = &startTime
		}
	}
	if endTimeStr := query.Get("end_time"); endTimeStr != "" {
		if endTime, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			options.EndTime = &endTime
		}
	}

	total, err := h.store.Count(options)
	if err != nil {
		logging.LogError(err, "Failed to count attempts")
		writeError(w, http.StatusInternalServerError, KindInternal, "internal server error")
		return
	}

	attempts, err := h.store.List(options)
	if err != nil {
		logging.LogError(err, "Failed to list attempts")
		writeError(w, http.StatusInternalServerError, KindInternal, "internal server error")
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	response := ListAttemptsResponse{
		Attempts:   attempts,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}

	logging.Sugar.Infow("Attempts API request",
		"endpoint", "list",
		"page", page,
		"page_size", pageSize,
		"total_results", total,
		"filters", map[string]interface{}{
			"session_id": options.SessionID,
			"tester":     options.Tester,
			"verdict":    options.Verdict,
			"success":    options.Success,
		},
	)

	writeJSON(w, http.StatusOK, response)
}

func (h *AttemptsHandler) getAttemptByID(w http.ResponseWriter, uuid string) {
	event, err := h.store.GetByUUID(uuid)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, KindNotFound, "attempt not found")
			return
		}
		logging.LogError(err, "Failed to get attempt",
			zap.String("uuid", uuid),
		)
		writeError(w, http.StatusInternalServerError, KindInternal, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// parseIntParam parses integer parameter with default value
func parseIntParam(param string, defaultValue int) int {
	if param == "" {
		return defaultValue
	}

	if value, err := strconv.Atoi(param); err == nil {
		return value
	}

	return defaultValue
}
