package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Registry hands out file-backed debug loggers keyed by an arbitrary
// string (the pipeline keys them by processing date). It replaces an
// ambient global cache of loggers with an explicit lifecycle: build
// one per run, inject it, Close it when the run ends.
type Registry struct {
	dir string

	mu      sync.Mutex
	loggers map[string]*Logger
	files   map[string]*os.File
}

// NewRegistry creates a registry writing sink files under dir.
// An empty dir yields a registry whose loggers discard everything,
// so callers never have to nil-check.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:     dir,
		loggers: make(map[string]*Logger),
		files:   make(map[string]*os.File),
	}
}

// GetOrCreate returns the debug logger for key, creating its sink file
// on first use. The same key always returns the same logger.
func (r *Registry) GetOrCreate(key string) (*Logger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lg, ok := r.loggers[key]; ok {
		return lg, nil
	}

	if r.dir == "" {
		lg := New(discardWriter{}, DEBUG)
		r.loggers[key] = lg
		return lg, nil
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating debug log dir: %w", err)
	}

	name := sanitizeKey(key) + ".log"
	f, err := os.OpenFile(filepath.Join(r.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening debug log %s: %w", name, err)
	}

	lg := New(f, DEBUG)
	r.loggers[key] = lg
	r.files[key] = f
	return lg, nil
}

// Close closes every sink file the registry opened.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for key, f := range r.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.files, key)
		delete(r.loggers, key)
	}
	return firstErr
}

func sanitizeKey(key string) string {
	repl := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "_")
	return repl.Replace(key)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
