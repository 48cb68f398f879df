package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alexanxin/ideaspire-sub000/internal/model"
)

// FileStore keeps the state as a JSON file. Writes go through a temp file
// and rename so readers never see a partial blob.
type FileStore struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

func (s *FileStore) Kind() string {
	return "file"
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(ctx context.Context, st *model.ProcessingState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := encode(st)
	if err != nil {
		s.logger.Error("error encoding state", "error", err)
		return false
	}

	if err := atomicWrite(s.path, content); err != nil {
		s.logger.Error("error saving state", "path", s.path, "error", err)
		return false
	}

	return true
}

func (s *FileStore) Load(ctx context.Context) *model.ProcessingState {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.logger.Error("error reading state", "path", s.path, "error", err)
		return nil
	}

	st, err := decode(raw)
	if err != nil {
		s.logger.Error("error decoding state", "path", s.path, "error", err)
		return nil
	}
	return st
}

func (s *FileStore) Clear(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Error("error clearing state", "path", s.path, "error", err)
		return false
	}
	return true
}

func atomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}

// encode stamps SavedAt on a copy so the caller's state is left alone.
func encode(st *model.ProcessingState) ([]byte, error) {
	if st == nil {
		st = model.NewProcessingState()
	}
	snapshot := *st
	now := time.Now().UTC()
	snapshot.SavedAt = &now
	return json.MarshalIndent(snapshot, "", "  ")
}

func decode(raw []byte) (*model.ProcessingState, error) {
	st := model.NewProcessingState()
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, err
	}
	if st.Results == nil {
		st.Results = map[string]model.CategoryResult{}
	}
	if st.CompletedCategories == nil {
		st.CompletedCategories = []string{}
	}
	if st.RemainingCategories == nil {
		st.RemainingCategories = []string{}
	}
	return st, nil
}
