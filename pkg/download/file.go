package download

import (
	"fmt"
	"io"
	"os"
)

// FileHook streams an episode body to a file as it arrives
type FileHook struct {
	path    string
	file    *os.File
	written int64
}

// NewFileHook makes a hook writing to path. Open must be called before the first exchange.
func NewFileHook(path string) *FileHook {
	return &FileHook{path: path}
}

// Path returns the target file path
func (h *FileHook) Path() string { return h.path }

// Written returns the number of bytes stored by the last successful exchange
func (h *FileHook) Written() int64 { return h.written }

// Open creates or truncates the target file
func (h *FileHook) Open() error {
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644) //nolint:gosec // path built from save location
	if err != nil {
		return fmt.Errorf("open %s for writing: %w", h.path, err)
	}
	h.file = f
	h.written = 0
	return nil
}

// Success copies the body to the file and closes it. On any error the partial file is removed.
func (h *FileHook) Success(body io.Reader) error {
	if h.file == nil {
		return fmt.Errorf("file %s is not open for writing", h.path)
	}
	n, err := io.Copy(h.file, body)
	if err != nil {
		h.Abandon()
		return fmt.Errorf("write %s: %w", h.path, err)
	}
	if err := h.file.Close(); err != nil {
		h.file = nil
		h.remove()
		return fmt.Errorf("close %s: %w", h.path, err)
	}
	h.file = nil
	h.written = n
	return nil
}

// Moved resets the file to offset 0 so the new location does not append to a partial write
func (h *FileHook) Moved(string) error {
	if h.file == nil {
		return fmt.Errorf("file %s is not open for writing", h.path)
	}
	if err := h.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate %s: %w", h.path, err)
	}
	if _, err := h.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s: %w", h.path, err)
	}
	return nil
}

// Abandon closes and removes the partial file, a completed file is left in place
func (h *FileHook) Abandon() {
	if h.file == nil {
		return
	}
	_ = h.file.Close()
	h.file = nil
	h.remove()
}

func (h *FileHook) remove() {
	_ = os.Remove(h.path)
}
