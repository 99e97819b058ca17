package output

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	dirMode  = 0o755
	fileMode = 0o644
)

// Writer writes documents below a root directory.
type Writer struct {
	root   string
	logger *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// NewWriter creates a Writer rooted at root. Nothing is created on disk
// until Prepare is called.
func NewWriter(root string, opts ...WriterOption) *Writer {
	w := &Writer{
		root:   root,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the output root.
func (w *Writer) Root() string {
	return w.root
}

// Prepare creates the output root. A failure here is fatal for the run.
func (w *Writer) Prepare() error {
	if err := os.MkdirAll(w.root, dirMode); err != nil {
		return fmt.Errorf("%w: create output directory %s: %w", ErrOutputWrite, w.root, err)
	}
	return nil
}

// Path returns the file system path of a slash-separated relative path.
func (w *Writer) Path(relPath string) string {
	return filepath.Join(w.root, filepath.FromSlash(relPath))
}

// Write stores content at relPath below the root, creating parent
// directories as needed. Existing files are overwritten.
//
// The root itself is never recreated: if it was removed or replaced after
// Prepare, Write fails with an error matching both ErrOutputWrite and
// ErrOutputRoot.
func (w *Writer) Write(relPath, content string) error {
	local := filepath.FromSlash(relPath)
	if !filepath.IsLocal(local) {
		return fmt.Errorf("%w: path %q escapes the output directory", ErrOutputWrite, relPath)
	}
	if info, err := os.Stat(w.root); err != nil {
		return fmt.Errorf("%w: %w: %w", ErrOutputWrite, ErrOutputRoot, err)
	} else if !info.IsDir() {
		return fmt.Errorf("%w: %w: %s is not a directory", ErrOutputWrite, ErrOutputRoot, w.root)
	}

	full := filepath.Join(w.root, local)
	if err := os.MkdirAll(filepath.Dir(full), dirMode); err != nil {
		return fmt.Errorf("%w: create directory for %s: %w", ErrOutputWrite, relPath, err)
	}
	if err := os.WriteFile(full, []byte(content), fileMode); err != nil {
		return fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}

	w.logger.Debug("file written", "path", full, "bytes", len(content))
	return nil
}
