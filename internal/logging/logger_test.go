package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "default config", config: nil},
		{
			name:   "explicit config",
			config: &Config{Level: LevelDebug, Output: &bytes.Buffer{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.config)
			if logger == nil {
				t.Error("NewLogger() returned nil")
			}
		})
	}
}

func TestLoggerWithDomainAndDevice(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	domainLogger := logger.WithDomain(7)
	domainLogger.Info("attached")

	output := buf.String()
	if !strings.Contains(output, "dom_id=7") {
		t.Errorf("Expected dom_id=7 in output, got: %s", output)
	}

	buf.Reset()
	deviceLogger := domainLogger.WithDevice(1)
	deviceLogger.Info("queued request")

	output = buf.String()
	if !strings.Contains(output, "dom_id=7") {
		t.Errorf("Expected dom_id=7 in device logger output, got: %s", output)
	}
	if !strings.Contains(output, "dev_id=1") {
		t.Errorf("Expected dev_id=1 in output, got: %s", output)
	}
}

func TestLoggerWithRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	requestLogger := logger.WithRequest(0x123, "read")
	requestLogger.Debug("translating request")

	output := buf.String()
	if !strings.Contains(output, "req_id=123") {
		t.Errorf("Expected req_id=123 in output, got: %s", output)
	}
	if !strings.Contains(output, "op=read") {
		t.Errorf("Expected op=read in output, got: %s", output)
	}
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	testErr := errors.New("grant map failed")
	errorLogger := logger.WithError(testErr)
	errorLogger.Error("request failed")

	output := buf.String()
	if !strings.Contains(output, "grant map failed") {
		t.Errorf("Expected 'grant map failed' in output, got: %s", output)
	}
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))

	Debug("debug message", "key", "value")
	output := buf.String()
	if !strings.Contains(output, "debug message") {
		t.Errorf("Expected debug message, got: %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("Expected key=value, got: %s", output)
	}

	buf.Reset()
	Info("info message")
	output = buf.String()
	if !strings.Contains(output, "info message") {
		t.Errorf("Expected info message, got: %s", output)
	}

	buf.Reset()
	Warn("warning message")
	output = buf.String()
	if !strings.Contains(output, "warning message") {
		t.Errorf("Expected warning message, got: %s", output)
	}

	buf.Reset()
	Error("error message")
	output = buf.String()
	if !strings.Contains(output, "error message") {
		t.Errorf("Expected error message, got: %s", output)
	}
}
