/*
Copyright (c) 2025 AgriVoice Labs

Licensed under the AGPLv3 License.
This file is part of asr-bench.
*/

package asr

import "strings"

// ParseVerdict maps a vendor-supplied verdict string onto a Verdict, or ""
// when the vendor did not send one.
func ParseVerdict(s string) Verdict {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "match":
		return VerdictYes
	case "no", "false", "mismatch":
		return VerdictNo
	case "unknown":
		return VerdictUnknown
	default:
		return ""
	}
}

// DeriveVerdict is the fallback when the vendor payload carries no verdict:
// a case/space-insensitive containment check of the expected crop name in
// the transcript. An empty transcript yields unknown.
func DeriveVerdict(transcript, expected string) Verdict {
	normTranscript := normalize(transcript)
	if normTranscript == "" {
		return VerdictUnknown
	}

	normExpected := normalize(expected)
	if normExpected == "" {
		return VerdictUnknown
	}

	if strings.Contains(normTranscript, normExpected) {
		return VerdictYes
	}
	return VerdictNo
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
