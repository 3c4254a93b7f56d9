// Package watch re-runs a callback when rule documents change on disk.
//
// It backs "pricelist lint --watch": the callback re-validates the
// documents and prints the result. The extraction engine itself is never
// rebuilt from here.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config contains configuration for the watcher.
type Config struct {
	// Path is a rule document or a directory of rule documents.
	Path string

	// Debounce is the quiet period before the callback runs.
	// Default: 100ms
	Debounce time.Duration

	// Extensions are the watched file extensions.
	// Default: .yaml, .yml
	Extensions []string

	// SkipHidden ignores dot files and dot directories.
	SkipHidden bool
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() *Config {
	return &Config{
		Debounce:   100 * time.Millisecond,
		Extensions: []string{".yaml", ".yml"},
		SkipHidden: true,
	}
}

// Watcher watches rule documents and debounces change events.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	config   *Config
	debounce *Debouncer

	// file is set when Path names a single document; its parent
	// directory is watched so editors that replace the file are seen.
	file string

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a watcher. The path is checked when Watch starts.
func New(config *Config, logger *slog.Logger) (*Watcher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Debounce <= 0 {
		config.Debounce = 100 * time.Millisecond
	}
	if len(config.Extensions) == 0 {
		config.Extensions = []string{".yaml", ".yml"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:  w,
		logger:   logger.With("component", "rules.watch"),
		config:   config,
		debounce: NewDebouncer(config.Debounce),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until ctx is cancelled or Stop is called. onChange receives
// the path of the last changed document of each debounced burst.
func (w *Watcher) Watch(ctx context.Context, onChange func(path string)) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	if err := w.addPath(w.config.Path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.config.Path, err)
	}

	w.logger.Info("watching rule documents",
		"path", w.config.Path,
		"debounce_ms", w.config.Debounce.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-w.stopCh:
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Has(fsnotify.Create) {
				w.watchNewDirectory(event.Name)
			}
			if !w.shouldProcess(event) {
				continue
			}

			w.logger.Debug("rule document changed", "path", event.Name, "op", event.Op.String())

			name := event.Name
			w.debounce.Trigger(func() { onChange(name) })

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

// Stop stops a running watcher and releases its resources.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}

	w.debounce.Stop()
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *Watcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		w.file = filepath.Clean(path)
		return w.watcher.Add(filepath.Dir(w.file))
	}
	return w.addDirectory(path)
}

func (w *Watcher) addDirectory(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.hidden(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", path, err)
		}
		w.logger.Debug("watching directory", "path", path)
		return nil
	})
}

// watchNewDirectory starts watching a directory created below a watched
// directory tree.
func (w *Watcher) watchNewDirectory(path string) {
	if w.file != "" {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.hidden(path) {
		return
	}
	if err := w.addDirectory(path); err != nil {
		w.logger.Warn("failed to watch new directory", "path", path, "error", err)
	}
}

func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if w.file != "" {
		return filepath.Clean(event.Name) == w.file
	}
	if w.hidden(event.Name) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	for _, valid := range w.config.Extensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}

func (w *Watcher) hidden(path string) bool {
	return w.config.SkipHidden && strings.HasPrefix(filepath.Base(path), ".")
}
