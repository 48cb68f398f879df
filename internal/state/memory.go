package state

import (
	"context"
	"sync"

	"github.com/alexanxin/ideaspire-sub000/internal/model"
)

// MemoryStore holds the encoded blob in process memory. Nothing survives a
// restart.
type MemoryStore struct {
	mu   sync.Mutex
	blob []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Kind() string {
	return "memory"
}

func (s *MemoryStore) Save(ctx context.Context, st *model.ProcessingState) bool {
	content, err := encode(st)
	if err != nil {
		return false
	}

	s.mu.Lock()
	s.blob = content
	s.mu.Unlock()
	return true
}

func (s *MemoryStore) Load(ctx context.Context) *model.ProcessingState {
	s.mu.Lock()
	blob := s.blob
	s.mu.Unlock()

	if blob == nil {
		return nil
	}

	st, err := decode(blob)
	if err != nil {
		return nil
	}
	return st
}

func (s *MemoryStore) Clear(ctx context.Context) bool {
	s.mu.Lock()
	s.blob = nil
	s.mu.Unlock()
	return true
}
