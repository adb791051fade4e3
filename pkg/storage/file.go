package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/HatiCode/trafficcast/pkg/models"
)

// FileStore keeps a model as a JSON document at Path.
//
// Save writes to a temporary file in the same directory and renames it into
// place, so a concurrent Load sees either the old or the new model.
type FileStore struct {
	path string
}

// NewFileStore creates a store for the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the model file path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Save(m *models.FittedModel) error {
	if m == nil {
		return errors.New("save: nil model")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".model-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename model file: %w", err)
	}
	return nil
}

func (s *FileStore) Load() (*models.FittedModel, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", s.path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	m := new(models.FittedModel)
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", s.path, err)
	}
	return m, nil
}
