package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps every profile in one JSON document. Each save rewrites
// the whole file through a temp file and rename, so a crash leaves either
// the old document or the new one.
type FileStore struct {
	path string

	mu       sync.Mutex
	profiles map[string]Profile
}

// NewFileStore loads path, or starts empty when it does not exist yet.
func NewFileStore(path string) (*FileStore, error) {
	fsStore := &FileStore{path: path, profiles: make(map[string]Profile)}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fsStore, nil
	case err != nil:
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	if err := json.Unmarshal(data, &fsStore.profiles); err != nil {
		return nil, fmt.Errorf("decode profiles %s: %w", path, err)
	}
	return fsStore, nil
}

func (f *FileStore) Load(_ context.Context, playerID string) (Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[playerID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (f *FileStore) Save(_ context.Context, p Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.profiles[p.PlayerID]
	f.profiles[p.PlayerID] = p
	data, err := json.MarshalIndent(f.profiles, "", "  ")
	if err == nil {
		err = writeFileAtomic(f.path, data, 0o644)
	}
	if err != nil {
		if had {
			f.profiles[p.PlayerID] = prev
		} else {
			delete(f.profiles, p.PlayerID)
		}
		return fmt.Errorf("save profile %s: %w", p.PlayerID, err)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }

// writeFileAtomic writes data next to filename and renames it into place.
// The temp file lives in the same directory so the rename stays on one
// filesystem.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
