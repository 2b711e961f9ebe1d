package corelog

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(format Format, debug bool) (*ProductionLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := NewProductionLogger("latchbreaker-test", "info", format, debug)
	l.output = buf
	return l, buf
}

func TestProductionLoggerJSONIncludesFieldsAndComponent(t *testing.T) {
	l, buf := newTestLogger(FormatJSON, false)
	l.Info("stock checked", map[string]any{"sku": "abc", "qty": 3})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "latchbreaker-test", entry["service"])
	assert.Equal(t, "latchbreaker", entry["component"])
	assert.Equal(t, "stock checked", entry["message"])
	assert.Equal(t, "abc", entry["sku"])
	assert.Equal(t, float64(3), entry["qty"])
}

func TestProductionLoggerTextFormatIsHumanReadable(t *testing.T) {
	l, buf := newTestLogger(FormatText, false)
	l.Error("warehouse unavailable", map[string]any{"group": "inventory-api"})

	line := buf.String()
	assert.Contains(t, line, "[ERROR]")
	assert.Contains(t, line, "[latchbreaker-test/latchbreaker]")
	assert.Contains(t, line, "warehouse unavailable")
	assert.Contains(t, line, "group=inventory-api")
}

func TestProductionLoggerDebugGatedByDebugFlag(t *testing.T) {
	quiet, quietBuf := newTestLogger(FormatText, false)
	quiet.Debug("should not appear", nil)
	assert.Empty(t, quietBuf.String())

	loud, loudBuf := newTestLogger(FormatText, true)
	loud.Debug("should appear", nil)
	assert.Contains(t, loudBuf.String(), "should appear")
}

func TestProductionLoggerDebugLevelImpliesDebugEnabled(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewProductionLogger("svc", "debug", FormatText, false)
	l.output = buf
	l.Debug("visible", nil)
	assert.Contains(t, buf.String(), "visible")
}

func TestProductionLoggerWithComponentClonesIndependently(t *testing.T) {
	base, baseBuf := newTestLogger(FormatText, false)
	breakerLogger := base.WithComponent("latchbreaker/breaker")

	breakerLogger.Info("tripped", nil)
	base.Info("base line", nil)

	out := baseBuf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[latchbreaker-test/latchbreaker/breaker]")
	assert.Contains(t, lines[1], "[latchbreaker-test/latchbreaker]")
}

func TestProductionLoggerWithContextVariantsDelegateToSameOutput(t *testing.T) {
	l, buf := newTestLogger(FormatText, true)
	ctx := context.Background()

	l.InfoWithContext(ctx, "info-ctx", nil)
	l.WarnWithContext(ctx, "warn-ctx", nil)
	l.ErrorWithContext(ctx, "error-ctx", nil)
	l.DebugWithContext(ctx, "debug-ctx", nil)

	out := buf.String()
	assert.Contains(t, out, "info-ctx")
	assert.Contains(t, out, "warn-ctx")
	assert.Contains(t, out, "error-ctx")
	assert.Contains(t, out, "debug-ctx")
}

func TestNoOpLoggerDiscardsEverything(t *testing.T) {
	var l Logger = NoOpLogger{}
	assert.NotPanics(t, func() {
		l.Info("x", nil)
		l.Error("x", nil)
		l.Warn("x", nil)
		l.Debug("x", nil)
		l.InfoWithContext(context.Background(), "x", nil)
	})
}
