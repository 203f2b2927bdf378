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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the bench server
type Config struct {
	Server  ServerConfig
	Auth    AuthConfig
	ASR     ASRConfig
	Logging LoggingConfig
	NATS    NATSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DBPath       string
}

// AuthConfig holds Google OAuth configuration. Client credentials come from
// the environment, never from source.
type AuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	RedirectURL        string // must exactly match the deployment URL, trailing slash included
	AllowedDomains     []string
}

// ASRConfig holds the external speech-recognition vendor configuration
type ASRConfig struct {
	URL      string // base URL of the vendor transcription API
	APIKey   string
	Model    string
	Language string // default language hint for rows without one
	Timeout  time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// NATSConfig holds NATS messaging configuration. An empty URL disables
// publishing entirely.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// ConfigurationError reports missing or invalid credentials and settings.
// It is surfaced at boot; the operator must fix the environment and redeploy.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:         getEnvString("ASRBENCH_HOST", "0.0.0.0"),
			Port:         getEnvInt("ASRBENCH_PORT", 8501),
			ReadTimeout:  getEnvDuration("ASRBENCH_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("ASRBENCH_WRITE_TIMEOUT", 60*time.Second),
			DBPath:       getEnvString("ASRBENCH_DB_PATH", "./data/asr-bench.db"),
		},
		Auth: AuthConfig{
			GoogleClientID:     getEnvString("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnvString("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:        getEnvString("GOOGLE_REDIRECT_URI", ""),
			AllowedDomains:     getEnvStringSlice("ALLOWED_DOMAINS", defaultAllowedDomains),
		},
		ASR: ASRConfig{
			URL:      getEnvString("ASR_URL", ""),
			APIKey:   getEnvString("ASR_API_KEY", ""),
			Model:    getEnvString("ASR_MODEL", "saarika:v2"),
			Language: getEnvString("ASR_LANGUAGE", "hi"),
			Timeout:  getEnvDuration("ASR_TIMEOUT", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		NATS: NATSConfig{
			URL:           getEnvString("NATS_URL", ""),
			SubjectPrefix: getEnvString("NATS_SUBJECT_PREFIX", "asrbench"),
			MaxReconnect:  getEnvInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait: getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

var defaultAllowedDomains = []string{"gmail.com", "googlemail.com", "google.com", "sarvam.ai"}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigurationError{Setting: "ASRBENCH_PORT", Reason: fmt.Sprintf("invalid port: %d", c.Server.Port)}
	}

	if c.Auth.GoogleClientID == "" {
		return &ConfigurationError{Setting: "GOOGLE_CLIENT_ID", Reason: "must be provided"}
	}

	if c.Auth.GoogleClientSecret == "" {
		return &ConfigurationError{Setting: "GOOGLE_CLIENT_SECRET", Reason: "must be provided"}
	}

	if c.Auth.RedirectURL == "" {
		return &ConfigurationError{Setting: "GOOGLE_REDIRECT_URI", Reason: "must be provided"}
	}

	if len(c.Auth.AllowedDomains) == 0 {
		return &ConfigurationError{Setting: "ALLOWED_DOMAINS", Reason: "at least one domain required"}
	}

	if c.ASR.URL == "" {
		return &ConfigurationError{Setting: "ASR_URL", Reason: "must be provided"}
	}

	if c.ASR.APIKey == "" {
		return &ConfigurationError{Setting: "ASR_API_KEY", Reason: "must be provided"}
	}

	if c.ASR.Timeout <= 0 {
		return &ConfigurationError{Setting: "ASR_TIMEOUT", Reason: "must be positive"}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
