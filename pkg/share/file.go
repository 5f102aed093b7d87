package share

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/matzehuels/revenuemap/pkg/errors"
)

// FileStore keeps one JSON file per share in a directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
	now     func() time.Time
}

// NewFileStore opens a store in baseDir. If baseDir is empty it defaults to
// ~/.config/revenuemap/shares.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "revenuemap", "shares")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create share dir: %w", err)
	}
	return &FileStore{baseDir: baseDir, now: time.Now}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) Save(_ context.Context, sh *Share) error {
	if err := ValidateID(sh.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(sh)
}

func (s *FileStore) Get(_ context.Context, id string) (*Share, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(id)
}

func (s *FileStore) RecordView(_ context.Context, id string) (*Share, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, err := s.read(id)
	if err != nil {
		return nil, err
	}
	sh.Views++
	if err := s.write(sh); err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove share file: %w", err)
	}
	return nil
}

func (s *FileStore) Cleanup(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, fmt.Errorf("read share dir: %w", err)
	}

	now := s.now()
	n := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.baseDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var sh Share
		if err := json.Unmarshal(data, &sh); err != nil {
			continue
		}
		if sh.IsExpired(now) && os.Remove(path) == nil {
			n++
		}
	}
	return n, nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the directory holding the share files.
func (s *FileStore) Path() string { return s.baseDir }

// read and write expect s.mu to be held.
func (s *FileStore) read(id string) (*Share, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("read share file: %w", err)
	}

	var sh Share
	if err := json.Unmarshal(data, &sh); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parse share %s", id)
	}
	if sh.IsExpired(s.now()) {
		return nil, expired(id)
	}
	return &sh, nil
}

func (s *FileStore) write(sh *Share) error {
	data, err := json.MarshalIndent(sh, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal share: %w", err)
	}
	if err := os.WriteFile(s.path(sh.ID), data, 0o600); err != nil {
		return fmt.Errorf("write share file: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
