package checkpointer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// fileStore stores a Record as a gob encoded file
type fileStore struct {
	path string
}

// NewFileStore returns a Store that saves a Record to the file at path
func NewFileStore(path string) Store {
	return &fileStore{path: path}
}

// Load loads the Record saved at the store's path
func (f *fileStore) Load() (Record, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, ErrNotFound
	} else if err != nil {
		return Record{}, fmt.Errorf("load: %w", err)
	}

	return decode(data)
}

// Save saves r to the store's path. The file is replaced atomically so
// that a failed save never corrupts an existing checkpoint.
func (f *fileStore) Save(r Record) error {
	data, err := encode(r)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Close implements the Store interface
func (f *fileStore) Close() error {
	return nil
}
