package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when an upload exceeds the configured ceiling.
var ErrTooLarge = errors.New("file exceeds size limit")

// ErrInvalidKey is returned for keys that would escape the storage directory.
var ErrInvalidKey = errors.New("invalid storage key")

// Store keeps ticket attachments on local disk.
type Store struct {
	dir string
}

// NewStore ensures dir exists.
func NewStore(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{dir: abs}, nil
}

// Dir returns the absolute storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes r under a fresh key "<uuid>_<base name>". When maxBytes is
// positive, larger inputs are rejected and nothing is left on disk.
func (s *Store) Save(name string, r io.Reader, maxBytes int64) (string, error) {
	base := SanitizeName(name)
	key := uuid.NewString() + "_" + base

	f, err := os.OpenFile(filepath.Join(s.dir, key), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(f.Name())
		return "", copyErr
	case closeErr != nil:
		_ = os.Remove(f.Name())
		return "", closeErr
	case maxBytes > 0 && n > maxBytes:
		_ = os.Remove(f.Name())
		return "", ErrTooLarge
	}
	return key, nil
}

// Path resolves a key to an absolute file path.
func (s *Store) Path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, key), nil
}

// Exists reports whether the key names a regular file.
func (s *Store) Exists(key string) bool {
	path, err := s.Path(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Remove deletes the file behind key. Missing files are not an error.
func (s *Store) Remove(key string) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// SanitizeName reduces an uploaded filename to a safe base name.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.Map(func(r rune) rune {
		if r < 0x20 || r == '/' {
			return -1
		}
		return r
	}, base)
	if base == "" || base == "." || base == ".." || base == "/" {
		return "file"
	}
	return base
}

// OriginalName strips the "<uuid>_" prefix added by Save.
func OriginalName(key string) string {
	if len(key) > 37 && key[36] == '_' {
		if _, err := uuid.Parse(key[:36]); err == nil {
			return key[37:]
		}
	}
	return key
}
