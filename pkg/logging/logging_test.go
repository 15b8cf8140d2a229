package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, test.level.String())
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{LogLevel(999), slog.LevelInfo},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, test.level.SlogLevel())
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelInfo, &buf)

	assert.NotNil(t, defaultLogger)

	Info("test-subsystem", "test message")

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "test-subsystem")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelInfo, &buf)

	Debug("test", "debug message")
	Info("test", "info message")

	output := buf.String()
	assert.False(t, strings.Contains(output, "debug message"))
	assert.Contains(t, output, "info message")
}

func TestTruncateSessionID(t *testing.T) {
	assert.Equal(t, "short", TruncateSessionID("short"))
	assert.Equal(t, "abc12345...", TruncateSessionID("abc12345-6789-full-uuid"))
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", MaskToken("short"))
	assert.Equal(t, "acce...oken", MaskToken("accessTokenValueHere-oken"))
}

func TestAudit(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelInfo, &buf)

	Audit(AuditEvent{
		Action:    "token_exchange",
		Outcome:   "success",
		SessionID: TruncateSessionID("abcdefgh-1234"),
		ClientID:  "claude-client",
	})

	output := buf.String()
	assert.Contains(t, output, "[AUDIT]")
	assert.Contains(t, output, "action=token_exchange")
	assert.Contains(t, output, "outcome=success")
	assert.Contains(t, output, "client=claude-client")
}
