package themes

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"conflux/internal/model"
)

// Store persists the theme registry. Mutate runs a full read-modify-write
// under the store's lock; the callback sees the registry keyed by theme ID
// and may add, change, or remove entries in place.
type Store interface {
	Load(ctx context.Context) ([]model.Theme, error)
	Mutate(ctx context.Context, fn func(reg map[string]*model.Theme) error) error
}

// registryFile is the on-disk shape
type registryFile struct {
	Themes []model.Theme `json:"themes"`
}

// FileStore keeps the registry in a single JSON file. Writes go through a
// temp file and rename so a crash never leaves a half-written registry.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns all persisted themes. A missing file is an empty registry.
func (s *FileStore) Load(ctx context.Context) ([]model.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Mutate applies fn to the registry and persists the result atomically
func (s *FileStore) Mutate(ctx context.Context, fn func(reg map[string]*model.Theme) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	themes, err := s.read()
	if err != nil {
		return err
	}

	reg := make(map[string]*model.Theme, len(themes))
	for i := range themes {
		t := themes[i]
		reg[t.ID] = &t
	}

	if err := fn(reg); err != nil {
		return err
	}

	return s.write(reg)
}

func (s *FileStore) read() ([]model.Theme, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading theme registry: %w", err)
	}

	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing theme registry %s: %w", s.path, err)
	}
	return file.Themes, nil
}

func (s *FileStore) write(reg map[string]*model.Theme) error {
	file := registryFile{Themes: make([]model.Theme, 0, len(reg))}
	for _, t := range reg {
		file.Themes = append(file.Themes, *t)
	}
	sortThemes(file.Themes)

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding theme registry: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".themes-*.json")
	if err != nil {
		return fmt.Errorf("creating temp registry: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp registry: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing theme registry: %w", err)
	}
	return nil
}

func sortThemes(themes []model.Theme) {
	sort.Slice(themes, func(i, j int) bool { return themes[i].ID < themes[j].ID })
}
