package storage

import (
	"sync"

	"github.com/HatiCode/trafficcast/pkg/models"
)

// MemoryStore keeps the latest model in memory. Data is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	model *models.FittedModel
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(m *models.FittedModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = m
	return nil
}

func (s *MemoryStore) Load() (*models.FittedModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.model == nil {
		return nil, ErrNotFound
	}
	return s.model, nil
}
