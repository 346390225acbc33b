package out

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	trackerout "notegenius/internal/modules/tracker/port/out"
	apperrors "notegenius/internal/platform/errors"
)

// FileLocalStore keeps one file per key under dir. Writes go through a
// temporary file and a rename so a crash never leaves half a value.
type FileLocalStore struct {
	mu  sync.Mutex
	dir string
}

func NewFileLocalStore(dir string) *FileLocalStore {
	return &FileLocalStore{dir: dir}
}

var _ trackerout.LocalStore = (*FileLocalStore)(nil)

func (s *FileLocalStore) Get(key string) (string, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read local value %s: %w", key, err)
	}
	return string(payload), true, nil
}

func (s *FileLocalStore) Set(key, value string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create local store dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp value: %w", err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write local value %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close local value %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("store local value %s: %w", key, err)
	}
	return nil
}

func (s *FileLocalStore) Remove(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("remove local value %s: %w", key, err)
	}
	return nil
}

func (s *FileLocalStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: local key %q", apperrors.ErrInvalidInput, key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}
