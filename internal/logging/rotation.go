package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	defaultMaxSizeMB = 10
	defaultBackups   = 3
)

// RotatingFile appends to a log file and, once it would grow past the size
// limit, renames it to dhk.1.log (pushing older backups to .2, .3 ...) and
// starts a new one.
type RotatingFile struct {
	path    string
	limit   int64
	backups int

	mu   sync.Mutex
	f    *os.File
	size int64
}

// OpenRotatingFile opens path for appending. Zero limits take the defaults.
func OpenRotatingFile(path string, maxSizeMB, backups int) (*RotatingFile, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxSizeMB
	}
	if backups <= 0 {
		backups = defaultBackups
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("log directory: %w", err)
	}
	r := &RotatingFile{path: path, limit: int64(maxSizeMB) << 20, backups: backups}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return 0, os.ErrClosed
	}
	if r.size > 0 && r.size+int64(len(p)) > r.limit {
		// A failed rename keeps appending to the current file.
		if err := r.rotate(); err != nil && r.f == nil {
			return 0, err
		}
	}
	n, err := r.f.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

func (r *RotatingFile) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("open log file: %w", err)
	}
	r.f, r.size = f, st.Size()
	return nil
}

// Windows cannot rename an open file, so the current one is closed first.
func (r *RotatingFile) rotate() error {
	r.f.Close()
	r.f = nil
	os.Remove(r.backup(r.backups))
	for i := r.backups; i > 1; i-- {
		os.Rename(r.backup(i-1), r.backup(i))
	}
	renameErr := os.Rename(r.path, r.backup(1))
	if err := r.open(); err != nil {
		return err
	}
	if renameErr != nil && !os.IsNotExist(renameErr) {
		return fmt.Errorf("rotate log file: %w", renameErr)
	}
	return nil
}

// backup(2) of dhk.log is dhk.2.log.
func (r *RotatingFile) backup(n int) string {
	ext := filepath.Ext(r.path)
	return fmt.Sprintf("%s.%d%s", strings.TrimSuffix(r.path, ext), n, ext)
}
