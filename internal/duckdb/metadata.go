package duckdb

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Key returns a string that changes whenever the file is replaced or
// rewritten.
func (f FileFingerprint) Key() string {
	return fmt.Sprintf("%s|%d|%d", f.Path, f.Size, f.ModTime.UnixNano())
}

// ErrInMemory is returned when fingerprinting an in-memory store.
var ErrInMemory = errors.New("in-memory store has no file fingerprint")

// Fingerprint identifies the store's database file.
func (s *Store) Fingerprint() (FileFingerprint, error) {
	if s.path == "" {
		return FileFingerprint{}, ErrInMemory
	}
	return StatFile(s.path)
}
