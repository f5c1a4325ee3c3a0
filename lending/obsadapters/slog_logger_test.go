package obsadapters_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openshelf/lending-ledger-go/lending/obsadapters"
)

func Test_NewSlogLogger_Construction(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)

	logger := obsadapters.NewSlogLogger(slog.New(handler))
	assert.NotNil(t, logger, "NewSlogLogger should return non-nil logger")
}

func Test_NewSlogLogger_NilLogger(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	defer slog.SetDefault(previous)
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))

	logger := obsadapters.NewSlogLogger(nil)
	logger.Info("fallback message", "book_id", "book-1")

	assert.Contains(t, buf.String(), "fallback message", "nil logger should fall back to slog.Default()")
}

func Test_SlogLogger_AllLevels(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug, // Capture all levels
	})

	logger := obsadapters.NewSlogLogger(slog.New(handler))

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()

	assert.Contains(t, output, "debug message", "Debug message should be logged")
	assert.Contains(t, output, "info message", "Info message should be logged")
	assert.Contains(t, output, "warn message", "Warn message should be logged")
	assert.Contains(t, output, "error message", "Error message should be logged")

	assert.Contains(t, output, `"level":"DEBUG"`, "Debug level should be present")
	assert.Contains(t, output, `"level":"INFO"`, "Info level should be present")
	assert.Contains(t, output, `"level":"WARN"`, "Warn level should be present")
	assert.Contains(t, output, `"level":"ERROR"`, "Error level should be present")
}

func Test_SlogLogger_WithAttributes(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)

	logger := obsadapters.NewSlogLogger(slog.New(handler))

	logger.Info("book issued",
		"book_id", "book-1",
		"times_issued", 42,
		"duration_ms", 3.14,
		"available", true,
	)

	output := buf.String()

	assert.Contains(t, output, "book issued", "Message should be logged")
	assert.Contains(t, output, `"book_id":"book-1"`, "String attribute should be present")
	assert.Contains(t, output, `"times_issued":42`, "Int attribute should be present")
	assert.Contains(t, output, `"duration_ms":3.14`, "Float attribute should be present")
	assert.Contains(t, output, `"available":true`, "Bool attribute should be present")
}
