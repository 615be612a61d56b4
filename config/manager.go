package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dyike/ivy/internal/logger"
)

var log = logger.New("config")

const (
	fileName        = "config.json"
	defaultDebounce = 300 * time.Millisecond
)

// Manager owns one JSON config file. Changes made through Set, Update or
// UpdateFromJSON are validated and written atomically; Watch picks up edits
// made by other processes or by hand.
type Manager struct {
	path     string
	debounce time.Duration

	mu       sync.RWMutex
	cfg      Config
	written  []byte // last bytes this manager wrote, to skip its own events
	onChange func(Config)
	watching bool
}

type managerOptions struct {
	path     string
	seed     *Config
	debounce time.Duration
}

type ManagerOption func(*managerOptions)

// WithConfigPath selects the file. An empty path keeps the default.
func WithConfigPath(path string) ManagerOption {
	return func(o *managerOptions) {
		if path != "" {
			o.path = path
		}
	}
}

// WithConfigDir places config.json in dir.
func WithConfigDir(dir string) ManagerOption {
	return func(o *managerOptions) {
		if dir != "" {
			o.path = filepath.Join(dir, fileName)
		}
	}
}

func WithDebounce(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithInitialConfig seeds a missing file. An existing file always wins.
func WithInitialConfig(cfg *Config) ManagerOption {
	return func(o *managerOptions) {
		o.seed = cfg
	}
}

// DefaultPath is the per-user config file, under the OS config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config dir: %w", err)
	}
	return filepath.Join(dir, "ivy", fileName), nil
}

// NewManager loads the config file, creating it from the seed (or the
// defaults next to it) when it does not exist yet.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	o := managerOptions{debounce: defaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}
	if o.path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		o.path = p
	}
	if err := os.MkdirAll(filepath.Dir(o.path), 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	m := &Manager{path: o.path, debounce: o.debounce}

	cfg, data, err := readFile(o.path)
	switch {
	case err == nil:
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", o.path, err)
		}
		m.cfg, m.written = cfg, data
		return m, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	seed := DefaultConfigWithRoot(filepath.Dir(o.path))
	if o.seed != nil {
		seed = o.seed
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	if err := m.write(seed.clone()); err != nil {
		return nil, fmt.Errorf("write initial config: %w", err)
	}
	log.Info().Str("path", o.path).Msg("config file created")
	return m, nil
}

// Get returns a copy of the current config.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.clone()
}

func (m *Manager) Path() string {
	return m.path
}

// Set applies KEY=VALUE pairs and saves the result.
func (m *Manager) Set(pairs ...string) (Config, error) {
	cfg := m.Get()
	if err := cfg.SetPairs(pairs); err != nil {
		return m.Get(), err
	}
	if err := m.Update(cfg); err != nil {
		return m.Get(), err
	}
	return cfg, nil
}

// UpdateFromJSON merges a JSON object onto the current config. Fields the
// object does not mention keep their values.
func (m *Manager) UpdateFromJSON(data []byte) error {
	cfg := m.Get()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return fmt.Errorf("parse config json: %w", err)
	}
	return m.Update(cfg)
}

// Update validates cfg and saves it. An unchanged config is not rewritten.
// The Watch callback, if any, sees the new config.
func (m *Manager) Update(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := encode(cfg)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if bytes.Equal(data, m.written) {
		m.mu.Unlock()
		return nil
	}
	if err := writeAtomic(m.path, data); err != nil {
		m.mu.Unlock()
		return err
	}
	m.cfg, m.written = cfg.clone(), data
	cb := m.onChange
	m.mu.Unlock()

	log.Info().Str("path", m.path).Msg("config saved")
	if cb != nil {
		cb(cfg)
	}
	return nil
}

// write stores cfg as the initial state. The caller must own m exclusively.
func (m *Manager) write(cfg Config) error {
	data, err := encode(cfg)
	if err != nil {
		return err
	}
	if err := writeAtomic(m.path, data); err != nil {
		return err
	}
	m.cfg, m.written = cfg, data
	return nil
}

// Watch reloads the file after changes made outside this manager and calls
// onChange with every new valid config until ctx is done. An invalid file is
// logged and ignored. Calling Watch again only replaces the callback.
func (m *Manager) Watch(ctx context.Context, onChange func(Config)) error {
	m.mu.Lock()
	m.onChange = onChange
	if m.watching {
		m.mu.Unlock()
		return nil
	}
	m.watching = true
	m.mu.Unlock()

	w, err := fsnotify.NewWatcher()
	if err == nil {
		// The directory, not the file: editors and writeAtomic replace it.
		err = w.Add(filepath.Dir(m.path))
		if err != nil {
			w.Close()
		}
	}
	if err != nil {
		m.mu.Lock()
		m.watching = false
		m.mu.Unlock()
		return fmt.Errorf("watch config: %w", err)
	}

	go m.watch(ctx, w)
	return nil
}

func (m *Manager) watch(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()

	// Stopped until the first relevant event.
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	target := filepath.Clean(m.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			timer.Reset(m.debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("config watcher error")
		case <-timer.C:
			m.reload()
		}
	}
}

// reload adopts the file's current content when it is valid and differs from
// what this manager last wrote.
func (m *Manager) reload() {
	cfg, data, err := readFile(m.path)
	if err != nil {
		// A rename in progress leaves the path missing briefly.
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Msg("config reload failed")
		}
		return
	}
	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("invalid config on disk, keeping current settings")
		return
	}

	m.mu.Lock()
	if bytes.Equal(data, m.written) {
		m.mu.Unlock()
		return
	}
	m.cfg, m.written = cfg, data
	cb := m.onChange
	m.mu.Unlock()

	log.Info().Str("path", m.path).Int("batch_size", cfg.BatchSize).Int("recommend_limit", cfg.RecommendLimit).Msg("config reloaded")
	if cb != nil {
		cb(cfg.clone())
	}
}

func readFile(path string) (Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, data, nil
}

func encode(cfg Config) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return append(data, '\n'), nil
}

// writeAtomic replaces path through a temp file in the same directory.
func writeAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".config-*.json")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmp := f.Name()
	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
