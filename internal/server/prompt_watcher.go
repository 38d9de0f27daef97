package server

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"interviewprep/internal/config"
	"interviewprep/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// PromptReloader re-reads the prompt file of one operation
type PromptReloader interface {
	Files() map[config.Operation]string
	Reload(op config.Operation) error
}

var _ PromptReloader = (*config.PromptStore)(nil)

// PromptWatcher reloads prompt templates when their files change.
// Directories are watched instead of the files so that editors replacing a
// file through a rename are noticed.
type PromptWatcher struct {
	mu sync.Mutex

	store PromptReloader
	// absolute file path -> operation
	files map[string]config.Operation

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer
	pending       map[config.Operation]bool

	stopChan chan struct{}
	logger   *errors.Logger

	running     bool
	reloadCount int
	lastError   string
}

// NewPromptWatcher creates a watcher over the prompt files of store
func NewPromptWatcher(store PromptReloader, debounceDelay time.Duration, logger *errors.Logger) *PromptWatcher {
	if debounceDelay == 0 {
		debounceDelay = time.Second
	}

	files := make(map[string]config.Operation)
	for op, path := range store.Files() {
		files[filepath.Clean(path)] = op
	}

	return &PromptWatcher{
		store:         store,
		files:         files,
		debounceDelay: debounceDelay,
		pending:       make(map[config.Operation]bool),
		stopChan:      make(chan struct{}),
		logger:        logger,
	}
}

// Start begins watching. A store without prompt files is not an error;
// the watcher then stays idle.
func (pw *PromptWatcher) Start() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.running {
		return fmt.Errorf("prompt watcher is already running")
	}
	if len(pw.files) == 0 {
		pw.logger.Info("No prompt files configured, prompt watcher idle")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dirs := make(map[string]bool)
	for path := range pw.files {
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	pw.fsWatcher = watcher
	pw.running = true
	go pw.watchLoop(watcher)

	pw.logger.Info("Prompt file watcher started",
		"files", len(pw.files),
		"debounce_delay", pw.debounceDelay)
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (pw *PromptWatcher) Stop() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if !pw.running {
		return nil
	}

	close(pw.stopChan)
	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.running = false

	if err := pw.fsWatcher.Close(); err != nil {
		pw.logger.LogError(err, "Failed to close prompt file watcher")
		return err
	}
	pw.logger.Info("Prompt file watcher stopped")
	return nil
}

func (pw *PromptWatcher) watchLoop(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if op, watched := pw.operationFor(event); watched {
				pw.scheduleReload(op)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			pw.logger.LogError(err, "Prompt file watcher error")

		case <-pw.stopChan:
			return
		}
	}
}

// operationFor maps write, create and rename events on a prompt file to its operation
func (pw *PromptWatcher) operationFor(event fsnotify.Event) (config.Operation, bool) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return "", false
	}
	op, ok := pw.files[filepath.Clean(event.Name)]
	return op, ok
}

// scheduleReload collects operations until the files have been quiet for
// debounceDelay
func (pw *PromptWatcher) scheduleReload(op config.Operation) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	pw.pending[op] = true
	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.debounceTimer = time.AfterFunc(pw.debounceDelay, pw.reloadPending)
}

func (pw *PromptWatcher) reloadPending() {
	pw.mu.Lock()
	ops := make([]config.Operation, 0, len(pw.pending))
	for op := range pw.pending {
		ops = append(ops, op)
	}
	clear(pw.pending)
	pw.mu.Unlock()

	for _, op := range ops {
		err := pw.store.Reload(op)

		pw.mu.Lock()
		pw.reloadCount++
		if err != nil {
			pw.lastError = err.Error()
		} else {
			pw.lastError = ""
		}
		pw.mu.Unlock()

		if err != nil {
			pw.logger.Warn("Prompt reload failed, keeping previous template",
				"operation", op,
				"error", err.Error())
			continue
		}
		pw.logger.Info("Prompt template reloaded", "operation", op)
	}
}

// Status returns the watcher state for the stats endpoint
func (pw *PromptWatcher) Status() map[string]any {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	files := make([]string, 0, len(pw.files))
	for path := range pw.files {
		files = append(files, path)
	}
	return map[string]any{
		"running":      pw.running,
		"files":        files,
		"reload_count": pw.reloadCount,
		"last_error":   pw.lastError,
	}
}
