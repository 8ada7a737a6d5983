// Package auth implements the activation and login gate for a terminal.
package auth

import (
	"context"
	"sync"
)

// Durable credential keys. Durable values survive restarts; session values
// live only as long as the current browser session.
const (
	KeyAPIKey           = "gateway_api_key"
	KeyTerminalPassword = "terminal_password"
	KeyTerminalName     = "terminal_name"
	KeyActivated        = "activated"

	SessionKeyAdmin = "is_admin"
)

// CredentialStore persists terminal credentials in two lifetimes: durable
// (survives restarts) and session (cleared when the session ends).
type CredentialStore interface {
	GetDurable(ctx context.Context, key string) (string, bool, error)
	SetDurable(ctx context.Context, key, value string) error
	GetSession(ctx context.Context, key string) (string, bool, error)
	SetSession(ctx context.Context, key, value string) error
	DeleteSession(ctx context.Context, key string) error
}

// MemoryCredentialStore is an in-memory CredentialStore for tests and
// single-process demo deployments.
type MemoryCredentialStore struct {
	mu      sync.RWMutex
	durable map[string]string
	session map[string]string
}

// NewMemoryCredentialStore creates an empty in-memory store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		durable: make(map[string]string),
		session: make(map[string]string),
	}
}

func (s *MemoryCredentialStore) GetDurable(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.durable[key]
	return v, ok, nil
}

func (s *MemoryCredentialStore) SetDurable(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durable[key] = value
	return nil
}

func (s *MemoryCredentialStore) GetSession(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.session[key]
	return v, ok, nil
}

func (s *MemoryCredentialStore) SetSession(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session[key] = value
	return nil
}

func (s *MemoryCredentialStore) DeleteSession(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.session, key)
	return nil
}

// ClearSession drops all session-scoped values, simulating a tab close.
func (s *MemoryCredentialStore) ClearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = make(map[string]string)
}
