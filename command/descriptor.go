// Package command defines the immutable CommandDescriptor and the
// generic CommandResult[T] of spec.md §3.
package command

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// GroupKey is an interned, case-sensitive identifier naming a dependency
// cluster. It is the shared key for breaker, bulkhead, and fallback-gate
// lookup in the registry package.
type GroupKey string

// Descriptor is immutable metadata for one command instance: name, group
// key, breaker key, bulkhead key, and default timeout. It is created
// once per invocation and discarded after use, per spec.md §3's
// lifecycle note.
type Descriptor struct {
	name           string
	group          GroupKey
	breakerKey     GroupKey
	bulkheadKey    GroupKey
	defaultTimeout time.Duration
	id             string

	hasInvoked atomic.Bool
}

// Option configures a Descriptor at construction time.
type Option func(*Descriptor)

// WithBreakerKey overrides the breaker key; it defaults to the group.
func WithBreakerKey(key GroupKey) Option {
	return func(d *Descriptor) { d.breakerKey = key }
}

// WithBulkheadKey overrides the bulkhead key; it defaults to the group.
func WithBulkheadKey(key GroupKey) Option {
	return func(d *Descriptor) { d.bulkheadKey = key }
}

// WithDefaultTimeout overrides the default timeout consulted when the
// invoker receives no explicit timeout argument. Must be positive; a
// non-positive value is a programming error the invoker will raise.
func WithDefaultTimeout(d time.Duration) Option {
	return func(desc *Descriptor) { desc.defaultTimeout = d }
}

// New builds a Descriptor. name should already be in the
// "<group-with-dashes>.<operation>" shape spec.md §3 describes; use
// DeriveName to build one from a Go type.
func New(name string, group GroupKey, opts ...Option) *Descriptor {
	d := &Descriptor{
		name:           name,
		group:          group,
		breakerKey:     group,
		bulkheadKey:    group,
		defaultTimeout: time.Second,
		id:             uuid.NewString(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DeriveName builds a command name from a group and a Go type name,
// mirroring spec.md §3's naming rule
// "<group-with-dots-replaced-by-dashes>.<className-without-Command-suffix>".
// typeName is usually the result of calling reflect.TypeOf(cmd).Name()
// at the call site; this package does not use reflection itself so the
// caller supplies the string directly.
func DeriveName(group GroupKey, typeName string) string {
	groupPart := strings.ReplaceAll(string(group), ".", "-")
	opPart := strings.TrimSuffix(typeName, "Command")
	return groupPart + "." + opPart
}

// derivedMeta is the part of a Descriptor that is safe to share across
// calls: the derived name and the (possibly overridden) breaker/bulkhead
// keys. hasInvoked must never be shared, so it is not part of this.
type derivedMeta struct {
	name           string
	breakerKey     GroupKey
	bulkheadKey    GroupKey
	defaultTimeout time.Duration
}

// nameCache caches derivedMeta per (typeName, group) pair, per spec.md §3
// ("cached per (type or provided-name) x group"). It exists for callers
// that repeatedly derive the same name/group pair (e.g. the interceptor
// package, which synthesizes one per proxied method) so DeriveName and
// option application only run once per pair.
var nameCache sync.Map // map[string]derivedMeta

// CachedDescriptor returns a fresh Descriptor for (typeName, group) on
// every call, reusing the derived name and breaker/bulkhead keys from
// the first call (opts are ignored after the first call for that pair)
// but never the instance itself: each Descriptor has its own hasInvoked
// flag, so repeated calls through the same proxied method each get a
// usable single-use Descriptor instead of one that fails with
// KindProgrammingError after the first invocation.
func CachedDescriptor(typeName string, group GroupKey, opts ...Option) *Descriptor {
	key := fmt.Sprintf("%s|%s", typeName, group)
	if cached, ok := nameCache.Load(key); ok {
		return fromMeta(cached.(derivedMeta), group)
	}

	d := New(DeriveName(group, typeName), group, opts...)
	meta := derivedMeta{name: d.name, breakerKey: d.breakerKey, bulkheadKey: d.bulkheadKey, defaultTimeout: d.defaultTimeout}
	actual, _ := nameCache.LoadOrStore(key, meta)
	return fromMeta(actual.(derivedMeta), group)
}

func fromMeta(meta derivedMeta, group GroupKey) *Descriptor {
	return New(meta.name, group,
		WithBreakerKey(meta.breakerKey),
		WithBulkheadKey(meta.bulkheadKey),
		WithDefaultTimeout(meta.defaultTimeout))
}

func (d *Descriptor) Name() string            { return d.name }
func (d *Descriptor) Group() GroupKey         { return d.group }
func (d *Descriptor) BreakerKey() GroupKey    { return d.breakerKey }
func (d *Descriptor) BulkheadKey() GroupKey   { return d.bulkheadKey }
func (d *Descriptor) DefaultTimeout() time.Duration { return d.defaultTimeout }
func (d *Descriptor) ID() string              { return d.id }

// MarkInvoked atomically flips the single-use flag from false to true.
// It reports whether this call was the one that flipped it: false means
// the descriptor was already invoked once before, which the invoker
// must treat as a programming error regardless of onFailure.
func (d *Descriptor) MarkInvoked() bool {
	return d.hasInvoked.CompareAndSwap(false, true)
}
