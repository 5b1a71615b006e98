package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/okian/artype/internal/domain/model"
	"github.com/okian/artype/pkg/metrics"
)

// Default file store permissions.
const (
	defaultFileMode fs.FileMode = 0o600
	defaultDirMode  fs.FileMode = 0o750
	recordExt                   = ".json"
)

// guestIDPattern keeps ids usable as file names.
var guestIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// FileStore keeps one JSON document per guest in a directory. Writes go to a
// temporary file that is renamed over the target.
type FileStore struct {
	mu       sync.RWMutex
	dir      string
	fileMode fs.FileMode
	dirMode  fs.FileMode
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	s := &FileStore{
		dir:      dir,
		fileMode: defaultFileMode,
		dirMode:  defaultDirMode,
	}
	for _, opt := range opts {
		opt(s)
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("file store: empty directory")
	}
	if err := os.MkdirAll(dir, s.dirMode); err != nil {
		return nil, fmt.Errorf("file store: create %s: %w", dir, err)
	}
	return s, nil
}

func (s *FileStore) path(guestID string) (string, error) {
	if !guestIDPattern.MatchString(guestID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, guestID)
	}
	return filepath.Join(s.dir, guestID+recordExt), nil
}

// Load reads and decodes the guest's document.
func (s *FileStore) Load(ctx context.Context, guestID string) (model.GuestRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(msSince(start)) }()

	p, err := s.path(guestID)
	if err != nil {
		return model.GuestRecord{}, err
	}

	s.mu.RLock()
	b, err := os.ReadFile(p)
	s.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return model.GuestRecord{}, fmt.Errorf("%w: %s", ErrNotFound, guestID)
	}
	if err != nil {
		return model.GuestRecord{}, fmt.Errorf("file store: read %s: %w", guestID, err)
	}

	var rec model.GuestRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return model.GuestRecord{}, fmt.Errorf("%w: %s: %v", ErrCorruptEntry, guestID, err)
	}
	return rec.Clone(), nil
}

// Save writes rec atomically.
func (s *FileStore) Save(ctx context.Context, rec model.GuestRecord) error {
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(msSince(start)) }()

	p, err := s.path(rec.GuestID)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(rec.Clone(), "", "  ")
	if err != nil {
		return fmt.Errorf("file store: encode %s: %w", rec.GuestID, err)
	}

	s.mu.Lock()
	err = s.writeAtomic(p, b)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	metrics.UpdateGuestRecordsTotal(s.Count(ctx))
	return nil
}

func (s *FileStore) writeAtomic(p string, b []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".guest-*.tmp")
	if err != nil {
		return fmt.Errorf("file store: temp file: %w", err)
	}
	name := tmp.Name()
	cleanup := func() { _ = os.Remove(name) }

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("file store: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("file store: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("file store: close: %w", err)
	}
	if err := os.Chmod(name, s.fileMode); err != nil {
		cleanup()
		return fmt.Errorf("file store: chmod: %w", err)
	}
	if err := os.Rename(name, p); err != nil {
		cleanup()
		return fmt.Errorf("file store: rename: %w", err)
	}
	return nil
}

// Delete removes the guest's document.
func (s *FileStore) Delete(ctx context.Context, guestID string) error {
	p, err := s.path(guestID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	err = os.Remove(p)
	s.mu.Unlock()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file store: delete %s: %w", guestID, err)
	}
	metrics.UpdateGuestRecordsTotal(s.Count(ctx))
	return nil
}

// Count returns the number of guest documents in the directory.
func (s *FileStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), recordExt) {
			n++
		}
	}
	return n
}
