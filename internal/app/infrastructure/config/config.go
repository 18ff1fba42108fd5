package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"streambot/pkg/fileutil"
)

// ErrCreated is returned by New when no settings file existed and a default one was written.
var ErrCreated = errors.New("default settings written")

// Manager owns the settings document. Snapshots returned by Get are never mutated in place:
// Update works on a copy and swaps it in once it validates and persists.
type Manager struct {
	mu       sync.RWMutex
	cfg      *Config
	path     string
	env      func(string) (string, bool)
	warnings []string
}

type Option func(*Manager)

// WithEnv replaces os.LookupEnv as the source of secret overrides.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(m *Manager) {
		m.env = lookup
	}
}

func New(path string, opts ...Option) (*Manager, error) {
	m := &Manager{path: path, env: os.LookupEnv}
	for _, opt := range opts {
		opt(m)
	}

	cfg, err := m.readParse(path)
	created := false
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = m.GetDefault()
		data, err := marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshal config: %w", err)
		}
		if err := fileutil.WriteAtomic(path, data, 0o600); err != nil {
			return nil, fmt.Errorf("write config: %w", err)
		}
		created = true
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(cfg, m.env)
	applyDefaults(cfg)

	warnings, err := m.validate(cfg)
	if err != nil {
		if created {
			return nil, fmt.Errorf("%w to %s, fill it in: %w", ErrCreated, path, err)
		}
		return nil, fmt.Errorf("validate: %w", err)
	}

	m.cfg = cfg
	m.warnings = warnings
	return m, nil
}

// Get returns the current snapshot. Callers must treat it as read-only.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.cfg
}

// Read runs fn against the current snapshot under the read lock.
func (m *Manager) Read(fn func(cfg *Config)) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fn(m.cfg)
}

// Warnings lists the non-fatal findings of the last successful validation.
func (m *Manager) Warnings() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]string(nil), m.warnings...)
}

// Update applies modify to a copy of the settings, validates it and persists it atomically.
// On any failure the current snapshot is left untouched.
func (m *Manager) Update(modify func(cfg *Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg == nil {
		return errors.New("no config loaded")
	}

	next, err := clone(m.cfg)
	if err != nil {
		return fmt.Errorf("copy config: %w", err)
	}

	modify(next)
	applyDefaults(next)

	warnings, err := m.validate(next)
	if err != nil {
		return fmt.Errorf("invalid config update: %w", err)
	}

	if err := m.saveLocked(next); err != nil {
		return err
	}

	m.cfg = next
	m.warnings = warnings
	return nil
}

func (m *Manager) readParse(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("no config path provided")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open/read config: %w", err)
	}

	// Keys missing from the document keep their defaults.
	cfg := m.GetDefault()
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return cfg, nil
}

func (m *Manager) saveLocked(cfg *Config) error {
	if m.path == "" {
		return errors.New("no config file loaded")
	}

	data, err := marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return fileutil.WriteAtomic(m.path, data, 0o600)
}

func marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clone(cfg *Config) (*Config, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}

	var out Config
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
