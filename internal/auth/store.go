package auth

import "sync"

// Keys under which the manager parks session material in the caller-supplied
// store.
const (
	tokenKey = "budgetify_auth_token"
	userKey  = "budgetify_user"
)

// TokenStore is the narrow persistence contract for client-held session
// material. The manager never touches the backing store except through it.
type TokenStore interface {
	Put(key, value string) error
	Get(key string) (string, bool)
	Remove(key string) error
}

// MemoryTokenStore keeps session material for the process lifetime. Callers
// with durable requirements supply their own TokenStore.
type MemoryTokenStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{values: make(map[string]string)}
}

func (s *MemoryTokenStore) Put(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryTokenStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryTokenStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
