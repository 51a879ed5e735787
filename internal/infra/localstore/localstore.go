// Package localstore persists JSON documents as one file per key on the local disk.
package localstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

const fileExt = ".json"

var (
	// ErrInvalidKey is returned for keys that cannot be mapped to a file name.
	ErrInvalidKey = errors.New("invalid key")
)

// Store is a directory of JSON files.
type Store struct {
	mu  sync.Mutex
	dir string
}

// New creates a store rooted at dir. An empty dir resolves to
// <user config dir>/harmony.
func New(dir string) (*Store, error) {
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve config directory")
		}
		dir = filepath.Join(configDir, "harmony")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "failed to create data directory %s", dir)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", errors.Wrapf(ErrInvalidKey, "key=%q", key)
	}
	return filepath.Join(s.dir, key+fileExt), nil
}

// Get decodes the document stored under key into dst.
func (s *Store) Get(_ context.Context, key string, dst any) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	data, err := os.ReadFile(p)
	s.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "failed to read %s", key)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, errors.Wrapf(err, "failed to decode %s", key)
	}
	return true, nil
}

// Set writes value under key. The file is replaced atomically.
func (s *Store) Set(_ context.Context, key string, value any) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file for %s", key)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to write %s", key)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to close %s", key)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to replace %s", key)
	}

	zlog.Debug().Msgf("localstore: saved: key=%s, bytes=%d", key, len(data))
	return nil
}

// Delete removes the document stored under key. Missing keys are not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to delete %s", key)
	}
	return nil
}
