package corelog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Format controls how ProductionLogger renders a log line.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ProductionLogger is a structured logger writing to stdout, one line
// per event, either as a JSON object or a human-readable line.
// It carries a component tag so breaker/bulkhead/invoker/registry logs
// can be told apart in aggregated output.
type ProductionLogger struct {
	level     string
	debug     bool
	service   string
	component string
	format    Format
	output    io.Writer
}

// NewProductionLogger builds a ProductionLogger. level is one of
// "debug"/"info"/"warn"/"error"; format is FormatJSON or FormatText.
func NewProductionLogger(service string, level string, format Format, debug bool) *ProductionLogger {
	return &ProductionLogger{
		level:     strings.ToLower(level),
		debug:     debug || strings.ToLower(level) == "debug",
		service:   service,
		component: "latchbreaker",
		format:    format,
		output:    os.Stdout,
	}
}

// WithComponent returns a logger sharing this one's configuration but
// tagging lines with the given component, e.g. "latchbreaker/breaker".
func (p *ProductionLogger) WithComponent(component string) Logger {
	clone := *p
	clone.component = component
	return &clone
}

func (p *ProductionLogger) Info(msg string, fields map[string]any)  { p.logEvent("INFO", msg, fields, nil) }
func (p *ProductionLogger) Error(msg string, fields map[string]any) { p.logEvent("ERROR", msg, fields, nil) }
func (p *ProductionLogger) Warn(msg string, fields map[string]any)  { p.logEvent("WARN", msg, fields, nil) }

func (p *ProductionLogger) Debug(msg string, fields map[string]any) {
	if p.debug {
		p.logEvent("DEBUG", msg, fields, nil)
	}
}

func (p *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]any) {
	p.logEvent("INFO", msg, fields, ctx)
}

func (p *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]any) {
	p.logEvent("ERROR", msg, fields, ctx)
}

func (p *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]any) {
	p.logEvent("WARN", msg, fields, ctx)
}

func (p *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]any) {
	if p.debug {
		p.logEvent("DEBUG", msg, fields, ctx)
	}
}

func (p *ProductionLogger) logEvent(level, msg string, fields map[string]any, ctx context.Context) {
	_ = ctx // no distributed tracing baggage in this module; kept for interface symmetry

	if p.format == FormatJSON {
		entry := map[string]any{
			"timestamp": time.Now().Format(time.RFC3339),
			"level":     level,
			"service":   p.service,
			"component": p.component,
			"message":   msg,
		}
		for k, v := range fields {
			entry[k] = v
		}
		if data, err := json.Marshal(entry); err == nil {
			fmt.Fprintln(p.output, string(data))
		}
		return
	}

	var fieldStr strings.Builder
	for k, v := range fields {
		fieldStr.WriteString(fmt.Sprintf(" %s=%v", k, v))
	}
	fmt.Fprintf(p.output, "%s [%s] [%s/%s] %s%s\n",
		time.Now().Format(time.RFC3339), level, p.service, p.component, msg, fieldStr.String())
}
