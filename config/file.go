package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/latchbreaker/latchbreaker/corelog"
)

// FileProvider loads a YAML document into the key space this package's
// Provider interface exposes, and watches the file for changes with
// fsnotify, firing registered OnChange callbacks when a watched key's
// value actually changes. Nested YAML maps flatten into dotted keys, so
//
//	mjolnir:
//	  breaker:
//	    payments-api:
//	      thresholdPercent: 40
//
// becomes the key "mjolnir.breaker.payments-api.thresholdPercent".
type FileProvider struct {
	mu       sync.RWMutex
	values   map[string]any
	path     string
	logger   corelog.Logger
	watchers *fsnotify.Watcher

	callbacksMu sync.Mutex
	callbacks   map[string][]func()
}

// NewFileProvider loads path immediately and starts a background watch.
// Pass a nil logger to use corelog.NoOpLogger.
func NewFileProvider(path string, logger corelog.Logger) (*FileProvider, error) {
	if logger == nil {
		logger = corelog.NoOpLogger{}
	}
	p := &FileProvider{
		path:      path,
		logger:    logger,
		callbacks: make(map[string][]func()),
	}
	if err := p.reload(); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: starting watcher for %s: %w", path, err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("config: watching %s: %w", path, err)
	}
	p.watchers = watcher
	go p.watchLoop()
	return p, nil
}

// Close stops the background watch.
func (p *FileProvider) Close() error {
	if p.watchers == nil {
		return nil
	}
	return p.watchers.Close()
}

func (p *FileProvider) watchLoop() {
	for {
		select {
		case event, ok := <-p.watchers.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := p.reload(); err != nil {
				p.logger.Error("config reload failed", map[string]any{"path": p.path, "error": err.Error()})
				continue
			}
		case err, ok := <-p.watchers.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", map[string]any{"path": p.path, "error": err.Error()})
		}
	}
}

func (p *FileProvider) reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", p.path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("config: parsing %s: %w", p.path, err)
	}
	flat := make(map[string]any)
	flatten("", raw, flat)

	p.mu.Lock()
	old := p.values
	p.values = flat
	p.mu.Unlock()

	p.trackChangedKeys(old, flat)
	return nil
}

func flatten(prefix string, node map[string]any, out map[string]any) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flatten(key, child, out)
			continue
		}
		out[key] = v
	}
}

func (p *FileProvider) trackChangedKeys(old, new map[string]any) {
	p.callbacksMu.Lock()
	defer p.callbacksMu.Unlock()
	for key, fns := range p.callbacks {
		if fmt.Sprint(old[key]) != fmt.Sprint(new[key]) {
			for _, fn := range fns {
				fn()
			}
		}
	}
}

// OnChange registers fn to run after any reload in which key's value
// differs from its pre-reload value.
func (p *FileProvider) OnChange(key string, fn func()) {
	p.callbacksMu.Lock()
	defer p.callbacksMu.Unlock()
	p.callbacks[key] = append(p.callbacks[key], fn)
}

func (p *FileProvider) Bool(key string, fallback bool) bool {
	if v, ok := p.lookup(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

func (p *FileProvider) Int(key string, fallback int) int {
	if v, ok := p.lookup(key); ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return fallback
}

func (p *FileProvider) Duration(key string, fallback time.Duration) time.Duration {
	if v, ok := p.lookup(key); ok {
		switch d := v.(type) {
		case int:
			return time.Duration(d) * time.Millisecond
		case int64:
			return time.Duration(d) * time.Millisecond
		case float64:
			return time.Duration(d) * time.Millisecond
		}
	}
	return fallback
}

func (p *FileProvider) String(key string, fallback string) string {
	if v, ok := p.lookup(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

func (p *FileProvider) lookup(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok
}
