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

package security

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidLanguageCode is returned when a language code format is invalid
	ErrInvalidLanguageCode = errors.New("invalid language code")

	// languagePattern validates BCP 47-style codes like "hi" or "hi-IN"
	languagePattern = regexp.MustCompile(`^[a-z]{2,3}(-[A-Z]{2})?$`)
)

// SanitizeLogInput removes newline characters to prevent log injection attacks
// This function should be used for all user-controlled data before logging
func SanitizeLogInput(input string) string {
	sanitized := strings.ReplaceAll(input, "\n", "")
	sanitized = strings.ReplaceAll(sanitized, "\r", "")
	return sanitized
}

// ValidateLanguageCode ensures a tester-supplied language code is a plain
// two- or three-letter code with an optional region, so it can pass straight
// through to the transcription API and into file paths and log lines.
func ValidateLanguageCode(code string) error {
	if code == "" {
		return ErrInvalidLanguageCode
	}

	if strings.Contains(code, "/") || strings.Contains(code, "\\") || strings.Contains(code, "..") {
		return ErrInvalidLanguageCode
	}

	if !languagePattern.MatchString(code) {
		return ErrInvalidLanguageCode
	}

	return nil
}
