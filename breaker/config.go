package breaker

import (
	"fmt"
	"time"

	"github.com/latchbreaker/latchbreaker/config"
	"github.com/latchbreaker/latchbreaker/corelog"
	"github.com/latchbreaker/latchbreaker/metrics"
)

// Config configures one breaker instance, keyed by breakerKey. The
// threshold and override fields (MinimumOperations, ThresholdPercent,
// TrippedDuration, ForceTripped, ForceFixed) are hot-reloadable when
// Provider is set: the breaker re-reads their config keys on every call
// rather than caching them, per spec.md §4.3. WindowSize and BucketCount
// are read once, when New builds the rolling counter.
//
// Defaults match spec.md §4.3: MinimumOperations 10, ThresholdPercent 50,
// TrippedDuration 10s.
type Config struct {
	Key string

	MinimumOperations int
	ThresholdPercent  int
	TrippedDuration   time.Duration
	ForceTripped      bool
	ForceFixed        bool

	WindowSize  time.Duration
	BucketCount int

	// Provider, if set, is consulted for mjolnir.breaker.<Key>.* on every
	// admission/transition decision, overriding the static fields above.
	Provider config.Provider

	Logger corelog.Logger
	Sink   metrics.Sink
}

const (
	DefaultMinimumOperations = 10
	DefaultThresholdPercent  = 50
	DefaultTrippedDuration   = 10 * time.Second
)

func (c Config) withDefaults() Config {
	if c.MinimumOperations <= 0 {
		c.MinimumOperations = DefaultMinimumOperations
	}
	if c.ThresholdPercent <= 0 {
		c.ThresholdPercent = DefaultThresholdPercent
	}
	if c.TrippedDuration <= 0 {
		c.TrippedDuration = DefaultTrippedDuration
	}
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindow
	}
	if c.BucketCount <= 0 {
		c.BucketCount = DefaultBucketCount
	}
	if c.Logger == nil {
		c.Logger = corelog.NoOpLogger{}
	}
	if c.Sink == nil {
		c.Sink = metrics.NoopSink{}
	}
	return c
}

func (c Config) minimumOperations() int {
	if c.Provider == nil {
		return c.MinimumOperations
	}
	return c.Provider.Int(c.key("minimumOperations"), c.MinimumOperations)
}

func (c Config) thresholdPercent() int {
	if c.Provider == nil {
		return c.ThresholdPercent
	}
	return c.Provider.Int(c.key("thresholdPercent"), c.ThresholdPercent)
}

func (c Config) trippedDuration() time.Duration {
	if c.Provider == nil {
		return c.TrippedDuration
	}
	return c.Provider.Duration(c.key("trippedDurationMillis"), c.TrippedDuration)
}

func (c Config) forceTripped() bool {
	if c.Provider == nil {
		return c.ForceTripped
	}
	return c.Provider.Bool(c.key("forceTripped"), c.ForceTripped)
}

func (c Config) forceFixed() bool {
	if c.Provider == nil {
		return c.ForceFixed
	}
	return c.Provider.Bool(c.key("forceFixed"), c.ForceFixed)
}

func (c Config) key(suffix string) string {
	return fmt.Sprintf("mjolnir.breaker.%s.%s", c.Key, suffix)
}
