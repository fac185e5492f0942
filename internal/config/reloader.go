package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
)

// ReloadFunc receives the new config and the names of the top-level
// sections that differ from the previous one.
type ReloadFunc func(cfg *Config, changed []string)

// Reloader re-reads .env and the config file on demand. Readers always see a
// complete config through Current.
type Reloader struct {
	configPath string
	dotenvPath string
	current    atomic.Pointer[Config]

	mu        sync.Mutex
	listeners []ReloadFunc
}

// NewReloader starts from initial, usually the config loaded at startup.
func NewReloader(configPath, dotenvPath string, initial *Config) *Reloader {
	r := &Reloader{configPath: configPath, dotenvPath: dotenvPath}
	r.current.Store(initial)
	return r
}

// Current returns the active config.
func (r *Reloader) Current() *Config {
	return r.current.Load()
}

// OnReload registers fn for every successful reload.
func (r *Reloader) OnReload(fn ReloadFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Reload applies .env over the environment, then loads the config file, or
// the defaults when it does not exist. On error the active config is kept.
func (r *Reloader) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ReloadDotenv(r.dotenvPath); err != nil {
		return fmt.Errorf("reload dotenv: %w", err)
	}
	next, err := LoadOrDefault(r.configPath)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	prev := r.current.Swap(next)
	changed := ChangedSections(prev, next)
	slog.Info("config reloaded", "path", r.configPath, "changed", strings.Join(changed, ","))

	for _, fn := range r.listeners {
		fn(next, changed)
	}
	return nil
}

// Watch reloads once per received signal until ctx is done.
func (r *Reloader) Watch(ctx context.Context, signals <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			slog.Debug("reload requested", "signal", sig)
			if err := r.Reload(); err != nil {
				slog.Error("config reload failed", "path", r.configPath, "error", err)
			}
		}
	}
}

// ChangedSections lists, by JSON name, the top-level sections of Config that
// differ between a and b. A nil config counts as the zero value.
func ChangedSections(a, b *Config) []string {
	if a == nil {
		a = &Config{}
	}
	if b == nil {
		b = &Config{}
	}
	va, vb := reflect.ValueOf(*a), reflect.ValueOf(*b)
	t := va.Type()

	var changed []string
	for i := range t.NumField() {
		if reflect.DeepEqual(va.Field(i).Interface(), vb.Field(i).Interface()) {
			continue
		}
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		changed = append(changed, name)
	}
	return changed
}
