package session

import (
	"context"
	"sync"
)

// ProgressStore persists StudentProgress keyed by (terminal, student). The
// store is owned by the single active session for that pair; writes are
// last-write-wins.
type ProgressStore interface {
	Load(ctx context.Context, terminalID, studentName string) (*StudentProgress, bool, error)
	Save(ctx context.Context, terminalID, studentName string, progress *StudentProgress) error
}

// MemoryProgressStore is an in-memory ProgressStore for tests and demo runs.
type MemoryProgressStore struct {
	mu       sync.RWMutex
	progress map[string]*StudentProgress
	saves    int
}

// NewMemoryProgressStore creates an empty in-memory store.
func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{
		progress: make(map[string]*StudentProgress),
	}
}

func progressKey(terminalID, studentName string) string {
	return terminalID + ":" + studentName
}

func (s *MemoryProgressStore) Load(_ context.Context, terminalID, studentName string) (*StudentProgress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[progressKey(terminalID, studentName)]
	if !ok {
		return nil, false, nil
	}
	return p.Clone(), true, nil
}

func (s *MemoryProgressStore) Save(_ context.Context, terminalID, studentName string, progress *StudentProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[progressKey(terminalID, studentName)] = progress.Clone()
	s.saves++
	return nil
}

// Saves returns how many writes the store has seen, for persistence-contract
// assertions in tests.
func (s *MemoryProgressStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// All returns every stored progress record, for the admin report.
func (s *MemoryProgressStore) All(_ context.Context, terminalID string) (map[string]*StudentProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*StudentProgress)
	prefix := terminalID + ":"
	for key, p := range s.progress {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			out[key[len(prefix):]] = p.Clone()
		}
	}
	return out, nil
}
