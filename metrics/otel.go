package metrics

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// gaugeSuffixes names the service-string suffixes that represent
// point-in-time readings rather than durations, per spec.md §6's
// "mjolnir pool <key> activeThreads" / "mjolnir breaker <key> IsAllowing"
// examples. Everything else is recorded as a duration histogram.
var gaugeSuffixes = []string{"activeThreads", "IsAllowing", "total", "error"}

// OTelSink records emissions as OpenTelemetry instruments, lazily
// creating one instrument per distinct service string. Grounded on the
// teacher's telemetry.MetricInstruments cached-instrument-map pattern,
// narrowed to the two instrument kinds this module's emissions need
// (duration histogram, point-in-time gauge via a Float64UpDownCounter,
// which unlike a monotonic counter can move down as well as up to track
// a current running value such as activeThreads).
type OTelSink struct {
	meter metric.Meter

	mu         sync.RWMutex
	histograms map[string]metric.Float64Histogram
	gauges     map[string]metric.Float64UpDownCounter
}

// NewOTelSink creates a sink backed by the named OTel meter.
func NewOTelSink(meterName string) *OTelSink {
	return &OTelSink{
		meter:      otel.Meter(meterName),
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]metric.Float64UpDownCounter),
	}
}

func (s *OTelSink) Emit(service, status string, value float64) {
	name := instrumentName(service)
	attrs := metric.WithAttributes(attribute.String("status", status))

	if isGaugeShaped(service) {
		counter, err := s.gaugeCounter(name)
		if err != nil {
			return
		}
		counter.Add(context.Background(), value, attrs)
		return
	}

	hist, err := s.histogram(name)
	if err != nil {
		return
	}
	hist.Record(context.Background(), value, attrs)
}

func (s *OTelSink) histogram(name string) (metric.Float64Histogram, error) {
	s.mu.RLock()
	h, ok := s.histograms[name]
	s.mu.RUnlock()
	if ok {
		return h, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.histograms[name]; ok {
		return h, nil
	}
	h, err := s.meter.Float64Histogram(name)
	if err != nil {
		return nil, fmt.Errorf("metrics: creating histogram %s: %w", name, err)
	}
	s.histograms[name] = h
	return h, nil
}

func (s *OTelSink) gaugeCounter(name string) (metric.Float64UpDownCounter, error) {
	s.mu.RLock()
	c, ok := s.gauges[name]
	s.mu.RUnlock()
	if ok {
		return c, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.gauges[name]; ok {
		return c, nil
	}
	c, err := s.meter.Float64UpDownCounter(name)
	if err != nil {
		return nil, fmt.Errorf("metrics: creating up-down counter %s: %w", name, err)
	}
	s.gauges[name] = c
	return c, nil
}

func instrumentName(service string) string {
	name := strings.ToLower(service)
	name = strings.ReplaceAll(name, " ", "_")
	return name
}

func isGaugeShaped(service string) bool {
	for _, suffix := range gaugeSuffixes {
		if strings.HasSuffix(service, suffix) {
			return true
		}
	}
	return false
}
