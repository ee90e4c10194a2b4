package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/datarhei/settings/log"
)

// DiskConfig is the config for a disk backend.
type DiskConfig struct {
	// Dir is the directory where the values are stored, one file per key.
	Dir string

	Logger log.Logger
}

type diskStorage struct {
	dir    string
	logger log.Logger
}

// NewDisk returns an Adapter that stores each key as a JSON file in a
// directory. The directory will be created if it doesn't exist.
func NewDisk(config DiskConfig) (Adapter, error) {
	s := &diskStorage{
		logger: config.Logger,
	}

	if s.logger == nil {
		s.logger = log.New("")
	}

	if len(config.Dir) == 0 {
		return nil, fmt.Errorf("invalid base path provided")
	}

	dir, err := filepath.Abs(config.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to determine absolute path of '%s': %w", config.Dir, err)
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	s.dir = dir
	s.logger = s.logger.WithFields(log.Fields{
		"type": "disk",
		"dir":  dir,
	})

	return s, nil
}

func (s *diskStorage) Type() string {
	return "disk"
}

func (s *diskStorage) path(key string) (string, error) {
	if len(key) == 0 || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid key '%s'", key)
	}

	return filepath.Join(s.dir, key+".json"), nil
}

func (s *diskStorage) Read(ctx context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}

		return nil, err
	}

	return data, nil
}

// Write writes the data to a temporary file first and renames it to the
// actual path afterwards, such that a reader never sees a partial file.
func (s *diskStorage) Write(ctx context.Context, key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return err
	}

	tmpname := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpname)
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpname)
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpname)
		return err
	}

	if err := os.Rename(tmpname, path); err != nil {
		os.Remove(tmpname)
		return err
	}

	s.logger.Debug().WithField("key", key).Log("Stored")

	return nil
}

func (s *diskStorage) Remove(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}
