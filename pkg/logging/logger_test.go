package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Expected default pretty to be false")
	}
	if cfg.Output == nil {
		t.Error("Expected default output to be set")
	}
}

func TestSetup(t *testing.T) {
	tests := []struct {
		level LogLevel
		emit  func(zerolog.Logger)
	}{
		{LevelDebug, func(l zerolog.Logger) { l.Debug().Msg("page fetched") }},
		{LevelInfo, func(l zerolog.Logger) { l.Info().Msg("page fetched") }},
		{LevelWarn, func(l zerolog.Logger) { l.Warn().Msg("page fetched") }},
		{LevelError, func(l zerolog.Logger) { l.Error().Msg("page fetched") }},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.emit(Setup(Config{Level: tt.level, Output: buf}))

			if !strings.Contains(buf.String(), "page fetched") {
				t.Errorf("Expected output to contain message, got %q", buf.String())
			}
		})
	}
}

func TestSetupPretty(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})
	logger.Info().Str("operation", "ListUsers").Msg("pagination complete")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("Expected console output, got JSON: %q", out)
	}
	if !strings.Contains(out, "operation=") || !strings.Contains(out, "ListUsers") {
		t.Errorf("Expected operation field in console output, got %q", out)
	}
}

func TestSetupNilOutput(t *testing.T) {
	logger := Setup(Config{Level: LevelError})
	logger.Debug().Msg("dropped")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"verbose", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseLevel(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseLevel(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLevel(%q) unexpected error: %v", tt.input, err)
			}
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestZerologLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"WARNING", zerolog.WarnLevel},
		{"invalid", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if result := tt.input.zerologLevel(); result != tt.expected {
				t.Errorf("%q.zerologLevel() = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewLogger_ContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelDebug, Output: buf})

	logger := NewLogger("pagination")
	logger.Debug().
		Str("operation", "ListUsers").
		Int("page", 2).
		Int("items", 50).
		Msg("Fetched page")

	var event map[string]any
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("output is not a JSON event: %v (%q)", err, buf.String())
	}
	want := map[string]any{
		"component": "pagination",
		"operation": "ListUsers",
		"page":      float64(2),
		"items":     float64(50),
		"message":   "Fetched page",
		"level":     "debug",
	}
	for k, v := range want {
		if event[k] != v {
			t.Errorf("field %q = %v, want %v", k, event[k], v)
		}
	}
	if _, ok := event["time"]; !ok {
		t.Error("expected a timestamp field")
	}
}

func TestLogLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelWarn, Output: buf})

	logger := NewLogger("client")
	logger.Debug().Msg("executing request")
	logger.Info().Msg("cached response")
	logger.Warn().Msg("retrying request")
	logger.Error().Msg("request failed")

	output := buf.String()
	for _, dropped := range []string{"executing request", "cached response"} {
		if strings.Contains(output, dropped) {
			t.Errorf("%q should be filtered out at Warn level", dropped)
		}
	}
	for _, kept := range []string{"retrying request", "request failed"} {
		if !strings.Contains(output, kept) {
			t.Errorf("%q should be included at Warn level", kept)
		}
	}
}
