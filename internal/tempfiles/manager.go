// Package tempfiles tracks the lifecycle of ephemeral files and directories
// created by feature code (OCR region crops, AI-replace payloads, PDF import
// staging) and guarantees they are cleaned up on every exit path.
//
// A Manager owns the set of paths it tracks: every path ever registered is
// either still present on disk and tracked, or has been deleted and untracked.
// A tracked path found missing from disk is logged as a warning and untracked;
// it never aborts cleanup of the remaining set.
package tempfiles

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPrefix is prepended to generated temp file and directory names so
// leaked entries are attributable if cleanup ever gets skipped by a crash.
const DefaultPrefix = "slidekit-"

// resource records what the manager knows about a tracked path.
type resource struct {
	isDir     bool
	createdAt time.Time
}

// Manager tracks temp files and directories under a single temp root and
// deletes them on request or at teardown. It is safe for concurrent use.
type Manager struct {
	root string
	log  zerolog.Logger

	mu      sync.Mutex
	tracked map[string]resource
}

// NewManager returns a Manager creating entries under root. An empty root
// selects the platform temp directory. The root is created if missing.
func NewManager(root string, log zerolog.Logger) (*Manager, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp root %s: %w", root, err)
	}
	return &Manager{
		root:    root,
		log:     log,
		tracked: make(map[string]resource),
	}, nil
}

// Root returns the directory new temp entries are created in.
func (m *Manager) Root() string {
	return m.root
}

// CreateFile allocates a uniquely named empty file with the given suffix,
// registers it for cleanup, and returns its path. The generated name never
// collides with a currently tracked path.
func (m *Manager) CreateFile(suffix string) (string, error) {
	f, err := os.CreateTemp(m.root, DefaultPrefix+"*"+suffix)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close temp file %s: %w", path, err)
	}

	m.track(path, false)
	m.log.Debug().Str("path", path).Msg("created temp file")
	return path, nil
}

// CreateDir allocates a uniquely named directory with the given name prefix,
// registers it for cleanup, and returns its path.
func (m *Manager) CreateDir(prefix string) (string, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	path, err := os.MkdirTemp(m.root, prefix+"*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}

	m.track(path, true)
	m.log.Debug().Str("path", path).Msg("created temp dir")
	return path, nil
}

// Register adopts an externally created path into managed cleanup. The path
// must exist; whether it is a file or a directory is detected here.
func (m *Manager) Register(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("cannot register %s: %w", abs, err)
	}

	m.track(abs, info.IsDir())
	m.log.Debug().Str("path", abs).Msg("registered external path")
	return nil
}

// Unregister opts a path out of automatic cleanup without deleting it.
// Unknown paths are ignored.
func (m *Manager) Unregister(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tracked, path)
}

// CleanupOne deletes the path (recursively for directories) if it exists and
// removes it from tracking. Calling it on an already-cleaned or never-tracked
// path is a no-op. A tracked path that has vanished from disk is logged as a
// warning and untracked. A failed delete keeps the path tracked and returns
// the error.
func (m *Manager) CleanupOne(path string) error {
	m.mu.Lock()
	res, wasTracked := m.tracked[path]
	m.mu.Unlock()

	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			if wasTracked {
				m.log.Warn().Str("path", path).Msg("tracked temp path already gone from disk")
				m.Unregister(path)
			}
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, statErr)
	}
	if !wasTracked {
		// Not ours to delete.
		return nil
	}

	var err error
	if res.isDir || info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		m.log.Warn().Err(err).Str("path", path).Msg("failed to delete temp path")
		return err
	}

	m.Unregister(path)
	m.log.Debug().Str("path", path).Msg("cleaned temp path")
	return nil
}

// CleanupAll deletes every currently tracked path. Individual failures are
// logged and do not stop cleanup of the remaining set; the tracked set holds
// only the paths that could not be deleted when CleanupAll returns. It
// reports the number of paths removed.
func (m *Manager) CleanupAll() int {
	m.mu.Lock()
	paths := make([]string, 0, len(m.tracked))
	for p := range m.tracked {
		paths = append(paths, p)
	}
	m.mu.Unlock()

	if len(paths) == 0 {
		return 0
	}
	m.log.Info().Int("count", len(paths)).Msg("cleaning tracked temp paths")

	removed := 0
	for _, p := range paths {
		if err := m.CleanupOne(p); err == nil {
			removed++
		}
	}
	return removed
}

// Len returns the number of currently tracked paths.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tracked)
}

// Tracks reports whether path is currently tracked.
func (m *Manager) Tracks(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tracked[path]
	return ok
}

// WithFile creates a temp file with the given suffix, runs fn with its path,
// and cleans the file up on every exit path, including a panic inside fn.
func (m *Manager) WithFile(suffix string, fn func(path string) error) error {
	path, err := m.CreateFile(suffix)
	if err != nil {
		return err
	}
	defer m.CleanupOne(path)
	return fn(path)
}

// WithDir is WithFile for directories.
func (m *Manager) WithDir(prefix string, fn func(path string) error) error {
	path, err := m.CreateDir(prefix)
	if err != nil {
		return err
	}
	defer m.CleanupOne(path)
	return fn(path)
}

func (m *Manager) track(path string, isDir bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracked[path] = resource{isDir: isDir, createdAt: time.Now()}
}
