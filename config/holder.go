package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder provides thread-safe access to configuration with hot reload support.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	onReload func(error)
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder creates a new config holder and loads the initial configuration.
// An empty or missing path loads from the environment; such a holder has no
// file to reload or watch.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := LoadWithFallback(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var absPath string
	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			if absPath, err = filepath.Abs(path); err != nil {
				return nil, fmt.Errorf("absolute path: %w", err)
			}
		}
	}

	h := &Holder{
		config: cfg,
		path:   absPath,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	return h, nil
}

// Get returns the current configuration (thread-safe).
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Path returns the absolute config file path, or "" when loaded from the environment.
func (h *Holder) Path() string {
	return h.path
}

// Reload reloads the configuration from disk.
// Returns error if loading fails (keeps old config).
func (h *Holder) Reload() error {
	if h.path == "" {
		return fmt.Errorf("reload config: no config file")
	}
	h.logger.Info().Str("path", h.path).Msg("reloading configuration")

	newCfg, err := Load(h.path)
	h.mu.RLock()
	onReload := h.onReload
	h.mu.RUnlock()
	if onReload != nil {
		onReload(err)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping old config")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.config
	h.config = newCfg
	callbacks := append([]func(*Config){}, h.onChange...)
	h.mu.Unlock()

	// Log what changed
	h.logChanges(oldCfg, newCfg)

	// Notify listeners
	for _, fn := range callbacks {
		fn(newCfg)
	}

	h.logger.Info().Msg("configuration reloaded successfully")
	return nil
}

// OnChange registers a callback to be called when config changes.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// OnReload registers a callback told about every reload attempt and its error.
func (h *Holder) OnReload(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReload = fn
}

// WatchFile starts watching the config file for changes.
// Changes trigger automatic reload. It does nothing without a config file.
func (h *Holder) WatchFile() error {
	if h.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	// Watch the directory (more reliable for editors that do atomic saves)
	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching config file for changes")
	return nil
}

// WatchSignals starts listening for SIGHUP to trigger reload.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading config")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()

	h.logger.Info().Msg("listening for SIGHUP to reload config")
}

// Stop stops watching for file changes and signals. It is safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop() {
	filename := filepath.Base(h.path)

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			// Only react to our config file
			if filepath.Base(event.Name) != filename {
				continue
			}

			// React to write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("config file changed")

				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func (h *Holder) logChanges(old, new *Config) {
	// Log significant changes
	if old.Logging.Level != new.Logging.Level {
		h.logger.Info().
			Str("old", old.Logging.Level).
			Str("new", new.Logging.Level).
			Msg("log level changed")
	}

	if old.Metrics.Enabled != new.Metrics.Enabled {
		h.logger.Info().
			Bool("old", old.Metrics.Enabled).
			Bool("new", new.Metrics.Enabled).
			Msg("metrics toggle changed, takes effect on restart")
	}

	if old.Server.RequestTimeout != new.Server.RequestTimeout {
		h.logger.Info().
			Dur("old", old.Server.RequestTimeout).
			Dur("new", new.Server.RequestTimeout).
			Msg("request timeout changed")
	}

	for _, field := range changedRestartFields(old, new) {
		h.logger.Warn().Str("field", field).Msg("changed setting requires a restart")
	}
}

// changedRestartFields lists the non-reloadable settings that differ.
func changedRestartFields(old, new *Config) []string {
	var changed []string
	if old.Server.Host != new.Server.Host {
		changed = append(changed, "server.host")
	}
	if old.Server.Port != new.Server.Port {
		changed = append(changed, "server.port")
	}
	if old.Database.Driver != new.Database.Driver {
		changed = append(changed, "database.driver")
	}
	if old.Database.DSN != new.Database.DSN {
		changed = append(changed, "database.dsn")
	}
	if old.Catalog.Dir != new.Catalog.Dir {
		changed = append(changed, "catalog.dir")
	}
	return changed
}

// ReloadableFields returns which fields can be changed without restart.
func ReloadableFields() []string {
	return []string{
		"logging.level",
		"server.request_timeout",
	}
}

// NonReloadableFields returns which fields require a restart. The catalog and
// the store stay fixed for the life of the process.
func NonReloadableFields() []string {
	return []string{
		"server.host",
		"server.port",
		"database.driver",
		"database.dsn",
		"catalog.dir",
	}
}
