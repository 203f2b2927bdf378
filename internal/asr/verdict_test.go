/*
Copyright (c) 2025 AgriVoice Labs

Licensed under the AGPLv3 License.
This file is part of asr-bench.
*/

package asr

import "testing"

func TestDeriveVerdict(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		expected   string
		want       Verdict
	}{
		{"exact match", "basmati rice", "Basmati Rice", VerdictYes},
		{"contained in longer utterance", "please say basmati rice", "Basmati Rice", VerdictYes},
		{"case and spacing differences", "  BASMATI   RICE  ", "basmati rice", VerdictYes},
		{"mismatch", "weed", "Wheat", VerdictNo},
		{"partial word only", "rice", "Basmati Rice", VerdictNo},
		{"empty transcript", "", "Wheat", VerdictUnknown},
		{"whitespace transcript", "   ", "Wheat", VerdictUnknown},
		{"empty expected", "wheat", "", VerdictUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveVerdict(tt.transcript, tt.expected); got != tt.want {
				t.Errorf("DeriveVerdict(%q, %q) = %q, want %q", tt.transcript, tt.expected, got, tt.want)
			}
		})
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		in   string
		want Verdict
	}{
		{"yes", VerdictYes},
		{"YES", VerdictYes},
		{"match", VerdictYes},
		{"no", VerdictNo},
		{"mismatch", VerdictNo},
		{"unknown", VerdictUnknown},
		{"", ""},
		{"garbage", ""},
	}

	for _, tt := range tests {
		if got := ParseVerdict(tt.in); got != tt.want {
			t.Errorf("ParseVerdict(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
