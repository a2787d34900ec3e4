package diet

import (
	"context"
	"fmt"
	"maps"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// userState is everything the memory store keeps for one user. Values are never
// mutated after being added to the cache; writers store a modified copy.
type userState struct {
	profile *UserProfile
	logs    map[string]string
}

// MemoryStore implements Store in process memory. It keeps at most a fixed number
// of users and forgets the least recently used one when full.
type MemoryStore struct {
	// mu serializes writers, which replace a user's whole state.
	mu    sync.Mutex
	users *lru.Cache[string, userState]
}

// NewMemoryStore creates a MemoryStore holding up to maxUsers users.
func NewMemoryStore(maxUsers int) (*MemoryStore, error) {
	users, err := lru.New[string, userState](maxUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory store: %w", err)
	}
	return &MemoryStore{users: users}, nil
}

// Close drops every stored user.
func (s *MemoryStore) Close() error {
	s.users.Purge()
	return nil
}

// GetProfile retrieves the profile of userID, or nil if none was saved.
func (s *MemoryStore) GetProfile(_ context.Context, userID string) (*UserProfile, error) {
	state, ok := s.users.Get(userID)
	if !ok || state.profile == nil {
		return nil, nil
	}
	p := *state.profile
	return &p, nil
}

// PutProfile saves the profile of userID, replacing any previous one.
func (s *MemoryStore) PutProfile(_ context.Context, userID string, profile UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, _ := s.users.Peek(userID)
	state.profile = &profile
	s.users.Add(userID, state)
	return nil
}

// GetMealLog retrieves the meal description of userID for date.
func (s *MemoryStore) GetMealLog(_ context.Context, userID, date string) (string, bool, error) {
	state, ok := s.users.Get(userID)
	if !ok {
		return "", false, nil
	}
	description, ok := state.logs[date]
	return description, ok, nil
}

// PutMealLog saves the meal description of userID for date. An empty description
// deletes the entry.
func (s *MemoryStore) PutMealLog(_ context.Context, userID, date, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, _ := s.users.Peek(userID)
	logs := maps.Clone(state.logs)
	if logs == nil {
		logs = make(map[string]string)
	}
	if description == "" {
		delete(logs, date)
	} else {
		logs[date] = description
	}
	state.logs = logs
	s.users.Add(userID, state)
	return nil
}

// ListMealLogs retrieves every meal description of userID keyed by date.
func (s *MemoryStore) ListMealLogs(_ context.Context, userID string) (map[string]string, error) {
	state, _ := s.users.Get(userID)
	logs := maps.Clone(state.logs)
	if logs == nil {
		logs = make(map[string]string)
	}
	return logs, nil
}
