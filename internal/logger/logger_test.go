package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newPretty(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	return slog.New(NewPrettyHandler(buf, &slog.HandlerOptions{Level: level}, false))
}

func TestNew_CustomWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  slog.LevelInfo,
		Format: "json",
		Writer: &buf,
	})
	logger.Info("test message")

	assert.Contains(t, buf.String(), "test message")
	assert.Contains(t, buf.String(), `"level":"INFO"`)
}

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantJSON    bool
	}{
		{name: "production uses json", environment: "production", wantJSON: true},
		{name: "development uses pretty", environment: "development"},
		{name: "staging uses pretty", environment: "staging"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{
				Level:       slog.LevelInfo,
				Environment: tt.environment,
				Writer:      &buf,
			})
			logger.Info("test")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"test"`)
			} else {
				assert.Contains(t, buf.String(), colorReset)
				assert.Contains(t, buf.String(), "INF")
			}
		})
	}
}

func TestNew_NoColor(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:   slog.LevelInfo,
		Format:  "pretty",
		Writer:  &buf,
		NoColor: true,
	})
	logger.Info("catalog loaded", "entries", 873)

	assert.NotContains(t, buf.String(), "\033[")
	assert.Contains(t, buf.String(), "INF catalog loaded entries=873")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DeBuG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo}, false)

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	newPretty(&buf, slog.LevelInfo).Info("resolved",
		"query", "barbell squat",
		"tier", 1,
		"exact", true,
		"took", 1500*time.Microsecond,
		"empty", "",
	)

	output := buf.String()
	assert.Contains(t, output, "INF resolved")
	assert.Contains(t, output, `query="barbell squat"`)
	assert.Contains(t, output, "tier=1")
	assert.Contains(t, output, "exact=true")
	assert.Contains(t, output, "took=1.5ms")
	assert.Contains(t, output, `empty=""`)
}

func TestPrettyHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := newPretty(&buf, slog.LevelInfo).
		With("component", "api").
		WithGroup("request").
		With("method", "POST")

	logger.Info("handled", "status", 200, slog.Group("cache", "hit", true))

	output := buf.String()
	assert.Contains(t, output, "component=api")
	assert.Contains(t, output, "request.method=POST")
	assert.Contains(t, output, "request.status=200")
	assert.Contains(t, output, "request.cache.hit=true")
}

func TestPrettyHandler_WithGroupEmpty(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, nil, false)
	assert.Same(t, h, h.WithGroup(""))
}

func TestPrettyHandler_WithSource(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo, AddSource: true}, false)
	slog.New(h).Info("test message")

	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestPrettyHandler_LevelFormatting(t *testing.T) {
	var buf bytes.Buffer
	logger := newPretty(&buf, slog.LevelDebug)

	logger.Debug("d")
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")

	for _, want := range []string{"DBG d", "INF i", "WRN w", "ERR e"} {
		assert.Contains(t, buf.String(), want)
	}
}

func TestFormatLevel(t *testing.T) {
	tests := []struct {
		level     slog.Level
		wantStr   string
		wantColor string
	}{
		{slog.LevelDebug, "DBG", colorMagenta},
		{slog.LevelInfo, "INF", colorGreen},
		{slog.LevelWarn, "WRN", colorYellow},
		{slog.LevelError, "ERR", colorRed},
	}

	for _, tt := range tests {
		t.Run(tt.wantStr, func(t *testing.T) {
			str, color := formatLevel(tt.level)
			assert.Equal(t, tt.wantStr, str)
			assert.Equal(t, tt.wantColor, color)
		})
	}
}

func TestLogger_WithComponentAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Writer: &buf})

	logger.WithComponent("watcher").WithError(errors.New("boom")).Warn("reload failed")

	output := buf.String()
	assert.Contains(t, output, `"component":"watcher"`)
	assert.Contains(t, output, `"error":"boom"`)
	assert.Contains(t, output, "reload failed")
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Format: "json", Writer: &buf})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	assert.NotContains(t, buf.String(), "debug message")
	assert.NotContains(t, buf.String(), "info message")
	assert.Contains(t, buf.String(), "warn message")
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("nothing to see")
	assert.NotNil(t, logger)
}
