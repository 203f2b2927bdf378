/*
Copyright (c) 2025 AgriVoice Labs

Licensed under the AGPLv3 License.
This file is part of asr-bench.
*/

package asr

import (
	"os"
	"testing"

	"github.com/agrivoice/asr-bench/internal/logging"
)

func TestMain(m *testing.M) {
	if err := logging.Initialize(); err != nil {
		os.Exit(1)
	}
	code := m.Run()
	logging.Close()
	os.Exit(code)
}
